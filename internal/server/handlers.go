package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// MessageDTO is one chat history entry.
type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ConversationResponse struct {
	ConversationID string       `json:"conversation_id"`
	Messages       []MessageDTO `json:"messages"`
}

type SchemaResponse struct {
	ConversationID string `json:"conversation_id"`
	Database       string `json:"database"`
	Schema         string `json:"schema"`
}

// AskRequest carries one question. Unset options fall back to the chat
// defaults: visualizations on, SQL hidden.
type AskRequest struct {
	Query     string `json:"query" binding:"required"`
	ShowSQL   *bool  `json:"show_sql,omitempty"`
	EnableViz *bool  `json:"enable_viz,omitempty"`
}

func (r AskRequest) options() model.QueryOptions {
	opts := model.DefaultQueryOptions()
	if r.ShowSQL != nil {
		opts.ShowSQL = *r.ShowSQL
	}
	if r.EnableViz != nil {
		opts.EnableViz = *r.EnableViz
	}
	return opts
}

func abortWithError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	resp := ErrorResponse{Error: errx.SystemErrorMessage, Code: status}

	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		resp.Error = appErr.Message
	}
	if status < http.StatusInternalServerError || status == http.StatusBadGateway || status == http.StatusGatewayTimeout {
		resp.Details = err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func toDTOs(msgs []*schema.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, MessageDTO{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (s *Server) index(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createConversation(c *gin.Context) {
	id := uuid.NewString()
	if err := s.messages.EnsureGreeting(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	msgs, err := s.messages.History(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ConversationResponse{ConversationID: id, Messages: toDTOs(msgs)})
}

func (s *Server) listMessages(c *gin.Context) {
	id := c.Param("id")
	msgs, err := s.messages.History(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConversationResponse{ConversationID: id, Messages: toDTOs(msgs)})
}

func (s *Server) deleteConversation(c *gin.Context) {
	id := c.Param("id")
	if err := s.messages.Clear(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.databases.Disconnect(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) connect(c *gin.Context) {
	id := c.Param("id")

	var params model.ConnectionParams
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, errx.Invalid(err))
		return
	}

	m, err := s.databases.Connect(c.Request.Context(), id, params)
	if err != nil {
		abortWithError(c, err)
		return
	}
	text, err := m.Schema(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SchemaResponse{ConversationID: id, Database: m.Name(), Schema: text})
}

func (s *Server) schema(c *gin.Context) {
	id := c.Param("id")
	m, ok := s.databases.Manager(id)
	if !ok {
		abortWithError(c, errx.NotConnected(id))
		return
	}

	var (
		text string
		err  error
	)
	if c.Query("refresh") == "true" {
		text, err = m.RefreshSchema(c.Request.Context())
	} else {
		text, err = m.Schema(c.Request.Context())
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SchemaResponse{ConversationID: id, Database: m.Name(), Schema: text})
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errx.Invalid(err))
		return
	}

	answer, err := s.runner.Invoke(c.Request.Context(), model.QueryInput{
		ConversationID: c.Param("id"),
		Query:          req.Query,
		Options:        req.options(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
