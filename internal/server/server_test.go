package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/agent/repo"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/database"
	pkgmysql "github.com/sql-assistant/server/pkg/mysql"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	got    []model.QueryInput
	answer *model.Answer
	err    error
}

func (f *fakeRunner) Invoke(_ context.Context, in model.QueryInput) (*model.Answer, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func newTestServer(runner *fakeRunner) (*Server, *conversations.MessagesManager) {
	mm := conversations.NewMessagesManager(repo.NewMemoryConversationRepository(time.Hour), model.ConversationConfig{MaxTurns: 10})
	dbs := database.NewRegistry(pkgmysql.Config{Host: "localhost", Port: 3306}, model.QueryConfig{})
	return New(Config{Addr: ":0"}, runner, mm, dbs), mm
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIndexAndHealth(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{})

	w := do(t, s.Handler(), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Enable visualizations")
	assert.Contains(t, w.Body.String(), "Show SQL queries")

	w = do(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateConversationSeedsGreeting(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{})

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ConversationID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "assistant", resp.Messages[0].Role)
	assert.Equal(t, conversations.Greeting, resp.Messages[0].Content)

	w = do(t, s.Handler(), http.MethodGet, "/api/v1/conversations/"+resp.ConversationID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, resp.Messages, listed.Messages)
}

func TestAskUsesDefaultOptions(t *testing.T) {
	runner := &fakeRunner{answer: &model.Answer{ConversationID: "c1", Content: "There are 100 customers."}}
	s, _ := newTestServer(runner)

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations/c1/messages", map[string]any{"query": "How many customers?"})
	require.Equal(t, http.StatusOK, w.Code)

	var ans model.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ans))
	assert.Equal(t, "There are 100 customers.", ans.Content)

	require.Len(t, runner.got, 1)
	assert.Equal(t, "c1", runner.got[0].ConversationID)
	assert.Equal(t, model.QueryOptions{EnableViz: true}, runner.got[0].Options)
}

func TestAskExplicitOptions(t *testing.T) {
	runner := &fakeRunner{answer: &model.Answer{ConversationID: "c1", Content: "ok", SQL: "SELECT 1"}}
	s, _ := newTestServer(runner)

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations/c1/messages", map[string]any{
		"query":      "q",
		"show_sql":   true,
		"enable_viz": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, runner.got, 1)
	assert.Equal(t, model.QueryOptions{ShowSQL: true, EnableViz: false}, runner.got[0].Options)
	assert.Contains(t, w.Body.String(), `"sql":"SELECT 1"`)
}

func TestAskRequiresQuery(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := newTestServer(runner)

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations/c1/messages", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errx.InvalidInputMessage, resp.Error)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, runner.got)
}

func TestAskMapsAppErrors(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{err: errx.NotConnected("c1")})

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations/c1/messages", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errx.NotConnectedMessage, resp.Error)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Details, "database not initialized")
}

func TestInternalErrorsHideDetails(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{err: errx.New(assert.AnError, http.StatusInternalServerError, errx.SystemErrorMessage)})

	w := do(t, s.Handler(), http.MethodPost, "/api/v1/conversations/c1/messages", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errx.SystemErrorMessage, resp.Error)
	assert.Empty(t, resp.Details)
}

func TestSchemaRequiresConnection(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{})

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/conversations/c1/schema", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConnectRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/c1/connect", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteConversationClearsHistory(t *testing.T) {
	s, mm := newTestServer(&fakeRunner{})
	ctx := context.Background()
	require.NoError(t, mm.EnsureGreeting(ctx, "c1"))

	w := do(t, s.Handler(), http.MethodDelete, "/api/v1/conversations/c1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	msgs, err := mm.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(&fakeRunner{})
	do(t, s.Handler(), http.MethodGet, "/healthz", nil)

	w := do(t, s.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sqlassist_http_requests_total")
}
