package database

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"

	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/observability"
	logx "github.com/sql-assistant/server/pkg/logger"
	pkgmysql "github.com/sql-assistant/server/pkg/mysql"
)

// Manager owns one user database connection and its cached schema text.
type Manager struct {
	query model.QueryConfig

	mu     sync.RWMutex
	db     *sqlx.DB
	name   string
	schema string
}

// NewManager returns an unconnected manager.
func NewManager(query model.QueryConfig) *Manager {
	return &Manager{query: query}
}

// NewManagerWithDB wraps an already open pool.
func NewManagerWithDB(db *sqlx.DB, name string, query model.QueryConfig) *Manager {
	return &Manager{query: query, db: db, name: name}
}

// Merge overlays non-empty connection params on the configured defaults.
func Merge(defaults pkgmysql.Config, p model.ConnectionParams) pkgmysql.Config {
	cfg := defaults
	if p.Host != "" {
		cfg.Host = p.Host
	}
	if p.Port != 0 {
		cfg.Port = p.Port
	}
	if p.User != "" {
		cfg.User = p.User
	}
	if p.Password != "" {
		cfg.Password = p.Password
	}
	if p.Database != "" {
		cfg.Database = p.Database
	}
	return cfg
}

// Connect opens a new pool, replacing and closing any previous one.
func (m *Manager) Connect(ctx context.Context, cfg pkgmysql.Config) error {
	db, err := cfg.New(ctx)
	if err != nil {
		logx.Warn().Err(err).Str("addr", cfg.Addr()).Str("database", cfg.Database).Msg("database connection failed")
		return errx.WrapDatabase(fmt.Errorf("failed to connect to database: %w", err))
	}

	m.mu.Lock()
	old := m.db
	m.db = db
	m.name = cfg.Database
	m.schema = ""
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	logx.Info().Str("addr", cfg.Addr()).Str("database", cfg.Database).Msg("connected to database")
	return nil
}

// Name returns the connected database name.
func (m *Manager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Connected reports whether a pool is open.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db != nil
}

func (m *Manager) handle() (*sqlx.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, errx.New(errx.ErrNotConnected, http.StatusConflict, errx.NotConnectedMessage)
	}
	return m.db, nil
}

// Schema returns the cached schema text, loading it on first use.
func (m *Manager) Schema(ctx context.Context) (string, error) {
	m.mu.RLock()
	cached := m.schema
	m.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}
	return m.RefreshSchema(ctx)
}

// RefreshSchema reloads the schema text from the database.
func (m *Manager) RefreshSchema(ctx context.Context) (string, error) {
	db, err := m.handle()
	if err != nil {
		return "", err
	}

	text, err := loadSchema(ctx, db, m.query.SampleRows)
	if err != nil {
		return "", errx.WrapDatabase(fmt.Errorf("load schema: %w", err))
	}

	m.mu.Lock()
	if m.db == db {
		m.schema = text
	}
	m.mu.Unlock()
	return text, nil
}

// Execute runs query, retrying transient failures with a constant delay.
// Errors caused by the statement itself are returned without retrying.
func (m *Manager) Execute(ctx context.Context, query string) (*model.QueryResult, error) {
	db, err := m.handle()
	if err != nil {
		return nil, err
	}

	tries := m.query.MaxRetries
	if tries <= 0 {
		tries = 1
	}

	start := time.Now()
	attempt := 0
	res, err := backoff.Retry(ctx, func() (*model.QueryResult, error) {
		attempt++
		res, err := m.run(ctx, db, query)
		if err == nil {
			return res, nil
		}
		if errx.IsPermanentQueryError(err) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		logx.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", tries).Msg("query execution failed")
		return nil, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(m.query.RetryDelay)),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(error, time.Duration) { observability.IncrementQueryRetry() }),
	)
	elapsed := time.Since(start)
	observability.ObserveQueryExecution(err, elapsed)
	if err != nil {
		return nil, errx.WrapDatabase(err)
	}

	res.Elapsed = elapsed
	logx.Debug().Int("rows", len(res.Rows)).Bool("truncated", res.Truncated).Dur("elapsed", elapsed).Msg("query executed")
	return res, nil
}

func (m *Manager) run(ctx context.Context, db *sqlx.DB, query string) (*model.QueryResult, error) {
	if m.query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.query.Timeout)
		defer cancel()
	}

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows, m.query.MaxRows)
}

// Close releases the pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	db := m.db
	m.db = nil
	m.schema = ""
	m.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

var _ model.Database = (*Manager)(nil)
