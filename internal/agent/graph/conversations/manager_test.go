package conversations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/agent/repo"
)

func newManager(maxTurns int) *MessagesManager {
	return NewMessagesManager(repo.NewMemoryConversationRepository(time.Hour), model.ConversationConfig{MaxTurns: maxTurns})
}

func TestEnsureGreetingOnce(t *testing.T) {
	ctx := context.Background()
	cm := newManager(10)

	require.NoError(t, cm.EnsureGreeting(ctx, "c1"))
	require.NoError(t, cm.EnsureGreeting(ctx, "c1"))

	msgs, err := cm.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.Assistant, msgs[0].Role)
	assert.Equal(t, Greeting, msgs[0].Content)
}

func TestProcessUserMessageRendersRecentTurns(t *testing.T) {
	ctx := context.Background()
	cm := newManager(3)

	require.NoError(t, cm.EnsureGreeting(ctx, "c1"))
	_, err := cm.ProcessUserMessage(ctx, "c1", "How many customers?")
	require.NoError(t, err)
	require.NoError(t, cm.SaveResponse(ctx, "c1", "There are 100 customers."))

	text, err := cm.ProcessUserMessage(ctx, "c1", "And orders?")
	require.NoError(t, err)

	assert.Equal(t, "<conversation_context>\n"+
		"UserMessage(How many customers?)\n"+
		"AssistantMessage(There are 100 customers.)\n"+
		"UserMessage(And orders?)\n"+
		"</conversation_context>", text)
}

func TestSaveErrorAndClear(t *testing.T) {
	ctx := context.Background()
	cm := newManager(10)

	require.NoError(t, cm.SaveError(ctx, "c1", errors.New("database not initialized")))
	msgs, err := cm.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "I encountered an error: database not initialized", msgs[0].Content)

	require.NoError(t, cm.Clear(ctx, "c1"))
	msgs, _ = cm.History(ctx, "c1")
	assert.Empty(t, msgs)
}

func TestTrimTail(t *testing.T) {
	msgs := []*schema.Message{schema.UserMessage("1"), schema.UserMessage("2"), schema.UserMessage("3")}

	assert.Len(t, trimTail(msgs, 5), 3)
	assert.Len(t, trimTail(msgs, 0), 3)
	tail := trimTail(msgs, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, "2", tail[0].Content)
}
