package repo

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository(time.Hour)

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("q1")))
	require.NoError(t, r.AddMessage(ctx, "c1", schema.AssistantMessage("a1", nil)))
	require.NoError(t, r.AddMessage(ctx, "c2", schema.UserMessage("other")))

	n, err := r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h, err := r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, "q1", h.Messages[0].Content)

	h.Messages[0].Content = "mutated"
	again, _ := r.LoadHistory(ctx, "c1")
	assert.Equal(t, "q1", again.Messages[0].Content)

	require.NoError(t, r.ClearHistory(ctx, "c1"))
	n, _ = r.GetMessageCount(ctx, "c1")
	assert.Zero(t, n)
	n, _ = r.GetMessageCount(ctx, "c2")
	assert.Equal(t, 1, n)
}

func TestMemoryRepositoryExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewMemoryConversationRepository(time.Minute)
	r.now = func() time.Time { return now }

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("q1")))
	now = now.Add(30 * time.Second)
	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("q2")))

	now = now.Add(45 * time.Second)
	n, _ := r.GetMessageCount(ctx, "c1")
	assert.Equal(t, 2, n, "touch extends the TTL")

	now = now.Add(time.Minute)
	h, err := r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)
}
