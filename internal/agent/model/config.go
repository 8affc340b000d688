package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL      time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	MaxTurns int           `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
}

// ChatModelConfig describes one Gemini model used by a graph stage.
type ChatModelConfig struct {
	Model          string
	MaxTokens      int
	Temperature    float32
	ThinkingBudget int32
}

type SQLModelConfig struct {
	Model          string  `envconfig:"SQL_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"SQL_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"SQL_TEMPERATURE" default:"0"`
	ThinkingBudget int32   `envconfig:"SQL_THINKING_BUDGET" default:"1024"`
}

type AnalysisModelConfig struct {
	Model          string  `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"ANALYSIS_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"ANALYSIS_TEMPERATURE" default:"0.4"`
	ThinkingBudget int32   `envconfig:"ANALYSIS_THINKING_BUDGET" default:"1024"`
}

type VizModelConfig struct {
	Model          string  `envconfig:"VIZ_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens      int     `envconfig:"VIZ_MAX_TOKENS" default:"500"`
	Temperature    float32 `envconfig:"VIZ_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"VIZ_THINKING_BUDGET" default:"0"`
}

func (c SQLModelConfig) ChatModel() ChatModelConfig {
	return ChatModelConfig{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature, ThinkingBudget: c.ThinkingBudget}
}

func (c AnalysisModelConfig) ChatModel() ChatModelConfig {
	return ChatModelConfig{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature, ThinkingBudget: c.ThinkingBudget}
}

func (c VizModelConfig) ChatModel() ChatModelConfig {
	return ChatModelConfig{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature, ThinkingBudget: c.ThinkingBudget}
}

// QueryConfig bounds query generation and execution.
type QueryConfig struct {
	MaxRetries int           `envconfig:"QUERY_MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"QUERY_RETRY_DELAY" default:"2s"`
	MaxRows    int           `envconfig:"QUERY_MAX_ROWS" default:"1000"`
	Timeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"30s"`
	ReadOnly   bool          `envconfig:"QUERY_READ_ONLY" default:"true"`
	SampleRows int           `envconfig:"SCHEMA_SAMPLE_ROWS" default:"3"`
	PromptRows int           `envconfig:"PROMPT_MAX_ROWS" default:"50"`
}

type ChartConfig struct {
	Width  int `envconfig:"CHART_WIDTH" default:"1024"`
	Height int `envconfig:"CHART_HEIGHT" default:"576"`
}
