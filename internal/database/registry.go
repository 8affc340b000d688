package database

import (
	"context"
	"sync"

	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/observability"
	pkgmysql "github.com/sql-assistant/server/pkg/mysql"
)

// Registry tracks the database each conversation is connected to.
type Registry struct {
	defaults pkgmysql.Config
	query    model.QueryConfig

	mu       sync.RWMutex
	managers map[string]*Manager
}

func NewRegistry(defaults pkgmysql.Config, query model.QueryConfig) *Registry {
	return &Registry{
		defaults: defaults,
		query:    query,
		managers: make(map[string]*Manager),
	}
}

// Connect opens a database for the conversation, replacing any previous one.
// The previous connection is kept when the new one fails.
func (r *Registry) Connect(ctx context.Context, conversationID string, params model.ConnectionParams) (*Manager, error) {
	m := NewManager(r.query)
	if err := m.Connect(ctx, Merge(r.defaults, params)); err != nil {
		return nil, err
	}
	r.Attach(conversationID, m)
	return m, nil
}

// Attach binds an existing manager to the conversation.
func (r *Registry) Attach(conversationID string, m *Manager) {
	r.mu.Lock()
	old := r.managers[conversationID]
	r.managers[conversationID] = m
	n := len(r.managers)
	r.mu.Unlock()

	if old != nil && old != m {
		_ = old.Close()
	}
	observability.SetActiveConnections(n)
}

// Manager returns the manager for the conversation, if any.
func (r *Registry) Manager(conversationID string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[conversationID]
	return m, ok
}

// Lookup implements model.DatabaseProvider.
func (r *Registry) Lookup(conversationID string) (model.Database, error) {
	m, ok := r.Manager(conversationID)
	if !ok || !m.Connected() {
		return nil, errx.NotConnected(conversationID)
	}
	return m, nil
}

// Disconnect closes and forgets the conversation's database.
func (r *Registry) Disconnect(conversationID string) error {
	r.mu.Lock()
	m := r.managers[conversationID]
	delete(r.managers, conversationID)
	n := len(r.managers)
	r.mu.Unlock()

	observability.SetActiveConnections(n)
	if m == nil {
		return nil
	}
	return m.Close()
}

// CloseAll closes every open connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		_ = m.Close()
	}
	observability.SetActiveConnections(0)
}

var _ model.DatabaseProvider = (*Registry)(nil)
