package repo

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/sql-assistant/server/internal/agent/model"
)

type memoryConversation struct {
	messages  []*schema.Message
	expiresAt time.Time
}

// MemoryConversationRepository keeps histories in process memory. It is used
// when no Redis URL is configured.
type MemoryConversationRepository struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	convs map[string]*memoryConversation
}

func NewMemoryConversationRepository(ttl time.Duration) *MemoryConversationRepository {
	return &MemoryConversationRepository{
		ttl:   ttl,
		now:   time.Now,
		convs: make(map[string]*memoryConversation),
	}
}

// get returns the live conversation, dropping it when expired. Caller holds mu.
func (r *MemoryConversationRepository) get(conversationID string) *memoryConversation {
	c, ok := r.convs[conversationID]
	if !ok {
		return nil
	}
	if !c.expiresAt.IsZero() && !r.now().Before(c.expiresAt) {
		delete(r.convs, conversationID)
		return nil
	}
	return c
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.get(conversationID)
	if c == nil {
		c = &memoryConversation{}
		r.convs[conversationID] = c
	}
	cp := *message
	c.messages = append(c.messages, &cp)
	if r.ttl > 0 {
		c.expiresAt = r.now().Add(r.ttl)
	}
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := []*schema.Message{}
	if c := r.get(conversationID); c != nil {
		for _, m := range c.messages {
			cp := *m
			msgs = append(msgs, &cp)
		}
	}
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.get(conversationID); c != nil {
		return len(c.messages), nil
	}
	return 0, nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
