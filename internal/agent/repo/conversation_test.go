package repo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/sql-assistant/server/internal/core/error"
)

func marshal(t *testing.T, m *schema.Message) string {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func TestRedisAddMessageExtendsTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedisConversationRepository(db, time.Hour)
	msg := schema.UserMessage("top customers?")
	key := conversationKey("c1")

	mock.ExpectRPush(key, []byte(marshal(t, msg))).SetVal(1)
	mock.ExpectExpire(key, time.Hour).SetVal(true)

	require.NoError(t, r.AddMessage(context.Background(), "c1", msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAddMessageError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedisConversationRepository(db, 0)
	msg := schema.UserMessage("hi")

	mock.ExpectRPush(conversationKey("c1"), []byte(marshal(t, msg))).SetErr(errors.New("connection refused"))

	err := r.AddMessage(context.Background(), "c1", msg)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestRedisLoadHistory(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedisConversationRepository(db, time.Hour)
	user := schema.UserMessage("how many orders?")
	reply := schema.AssistantMessage("There are 1000 orders.", nil)

	mock.ExpectLRange(conversationKey("c1"), 0, -1).SetVal([]string{marshal(t, user), marshal(t, reply)})

	h, err := r.LoadHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", h.ConversationID)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "There are 1000 orders.", h.Messages[1].Content)
}

func TestRedisLoadHistoryCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedisConversationRepository(db, time.Hour)
	mock.ExpectLRange(conversationKey("c1"), 0, -1).SetVal([]string{"{not json"})

	_, err := r.LoadHistory(context.Background(), "c1")
	assert.ErrorContains(t, err, "unmarshal message at index 0")
}

func TestRedisClearAndCount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRedisConversationRepository(db, time.Hour)
	key := conversationKey("c1")

	mock.ExpectLLen(key).SetVal(3)
	mock.ExpectDel(key).SetVal(1)

	n, err := r.GetMessageCount(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, r.ClearHistory(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
