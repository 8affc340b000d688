package conversations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sql-assistant/server/internal/agent/model"
)

// Greeting opens every conversation.
const Greeting = "👋 Hello! I'm your SQL Assistant. I can help you query your database, analyze data, and create visualizations. How can I help you today?"

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.MaxTurns,
	}
}

// EnsureGreeting seeds an empty conversation with the greeting message.
func (cm *MessagesManager) EnsureGreeting(ctx context.Context, conversationID string) error {
	n, err := cm.conversationRepo.GetMessageCount(ctx, conversationID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.AssistantMessage(Greeting, nil))
}

// ProcessUserMessage stores the question and returns the recent history,
// question included, rendered for the SQL prompt.
func (cm *MessagesManager) ProcessUserMessage(ctx context.Context, conversationID string, query string) (string, error) {
	if err := cm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query)); err != nil {
		return "", err
	}

	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return cm.buildHistoryContext(history.Messages), nil
}

func (cm *MessagesManager) buildHistoryContext(messages []*schema.Message) string {
	recentMessages := trimTail(messages, cm.maxTurns)

	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range recentMessages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	return b.String()
}

func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	return cm.conversationRepo.AddMessage(ctx, conversationID, schema.AssistantMessage(content, nil))
}

// SaveError records a failed turn the way the chat shows it.
func (cm *MessagesManager) SaveError(ctx context.Context, conversationID string, cause error) error {
	return cm.SaveResponse(ctx, conversationID, fmt.Sprintf("I encountered an error: %v", cause))
}

func (cm *MessagesManager) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return cm.conversationRepo.ClearHistory(ctx, conversationID)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
