package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sql-assistant/server/internal/agent/graph"
	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/database"
	logx "github.com/sql-assistant/server/pkg/logger"
)

//go:embed static/index.html
var staticFS embed.FS

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Server serves the chat page and the conversation API.
type Server struct {
	cfg       Config
	runner    graph.Runner
	messages  *conversations.MessagesManager
	databases *database.Registry
	engine    *gin.Engine
}

func New(cfg Config, runner graph.Runner, mm *conversations.MessagesManager, dbs *database.Registry) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		messages:  mm,
		databases: dbs,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMetrics())

	r.GET("/", s.index)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1/conversations")
	v1.POST("", s.createConversation)
	v1.GET("/:id/messages", s.listMessages)
	v1.POST("/:id/messages", s.ask)
	v1.DELETE("/:id", s.deleteConversation)
	v1.POST("/:id/connect", s.connect)
	v1.GET("/:id/schema", s.schema)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	logx.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
