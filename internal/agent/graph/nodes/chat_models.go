package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/sql-assistant/server/internal/agent/model"
	logx "github.com/sql-assistant/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey   string
	BaseURL  string
	SQL      model.ChatModelConfig
	Analysis model.ChatModelConfig
	Viz      model.ChatModelConfig
}

// ChatModels holds the three models used by the query graph.
type ChatModels struct {
	SQL      einomodel.BaseChatModel
	Analysis einomodel.BaseChatModel
	Viz      einomodel.BaseChatModel

	SQLModelName      string
	AnalysisModelName string
	VizModelName      string
}

// NewChatModels creates the SQL, analysis and visualization Gemini models
// over one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	sqlModel, err := newGeminiModel(ctx, client, config.SQL)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating SQL model")
		return nil, fmt.Errorf("error creating SQL model: %w", err)
	}

	analysisModel, err := newGeminiModel(ctx, client, config.Analysis)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating analysis model")
		return nil, fmt.Errorf("error creating analysis model: %w", err)
	}

	vizModel, err := newGeminiModel(ctx, client, config.Viz)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating visualization model")
		return nil, fmt.Errorf("error creating visualization model: %w", err)
	}

	return &ChatModels{
		SQL:               sqlModel,
		Analysis:          analysisModel,
		Viz:               vizModel,
		SQLModelName:      config.SQL.Model,
		AnalysisModelName: config.Analysis.Model,
		VizModelName:      config.Viz.Model,
	}, nil
}

func newGeminiModel(ctx context.Context, client *genai.Client, cfg model.ChatModelConfig) (*gemini.ChatModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(cfg.ThinkingBudget),
		},
	})
}

// Validate reports whether all three models are set.
func (cm *ChatModels) Validate() error {
	if cm == nil || cm.SQL == nil || cm.Analysis == nil || cm.Viz == nil {
		return fmt.Errorf("chat models are not properly initialized")
	}
	return nil
}
