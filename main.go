package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/sql-assistant/server/internal/agent/graph"
	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/agent/repo"
	"github.com/sql-assistant/server/internal/core"
	"github.com/sql-assistant/server/internal/database"
	"github.com/sql-assistant/server/internal/server"
	logx "github.com/sql-assistant/server/pkg/logger"
	pkgmysql "github.com/sql-assistant/server/pkg/mysql"
	pkgredis "github.com/sql-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	MySQL pkgmysql.Config
	HTTP  server.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	SQL          model.SQLModelConfig
	Analysis     model.AnalysisModelConfig
	Viz          model.VizModelConfig
	Conversation model.ConversationConfig
	Query        model.QueryConfig
	Chart        model.ChartConfig
}

var (
	envFile string
	appCfg  AppConfig
)

var rootCmd = &cobra.Command{
	Use:           "sqlassist",
	Short:         "Ask questions about a MySQL database in plain language",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, askCmd, seedCmd)
}

func loadConfig() error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	if err := envconfig.Process("", &appCfg); err != nil {
		return fmt.Errorf("failed to process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{Environment: appCfg.Environment, Level: appCfg.LogLevel})
	return nil
}

// app bundles the pieces shared by the chat surfaces.
type app struct {
	messages  *conversations.MessagesManager
	databases *database.Registry
	runner    graph.Runner
	closers   []func() error
}

func (a *app) Close() {
	a.databases.CloseAll()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Close failed")
		}
	}
}

func newApp(ctx context.Context, cfg AppConfig) (*app, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	a := &app{databases: database.NewRegistry(cfg.MySQL, cfg.Query)}

	var convRepo model.ConversationRepository
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		convRepo = repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL)
		logx.Info().Msg("Conversation history stored in Redis")
	} else {
		convRepo = repo.NewMemoryConversationRepository(cfg.Conversation.TTL)
		logx.Info().Msg("REDIS_URL not set, keeping conversation history in memory")
	}
	a.messages = conversations.NewMessagesManager(convRepo, cfg.Conversation)

	runner, err := graph.BuildQueryGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		SQLModel:         cfg.SQL.ChatModel(),
		AnalysisModel:    cfg.Analysis.ChatModel(),
		VizModel:         cfg.Viz.ChatModel(),
		Conversation:     cfg.Conversation,
		Query:            cfg.Query,
		Chart:            cfg.Chart,
		ConversationRepo: convRepo,
		Databases:        a.databases,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	a.runner = runner
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logx.Error().Err(err).Msg("sqlassist failed")
		stop()
		os.Exit(1)
	}
}
