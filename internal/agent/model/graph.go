package model

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type AppState struct {
	ConversationID string
	Question       string
	Options        QueryOptions

	Database Database // resolved by the input converter
	Schema   string

	SQL           string
	Result        *QueryResult
	Analysis      string
	Visualization *VizConfig

	// Accumulated total LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// QueryOptions mirrors the chat settings toggles.
type QueryOptions struct {
	ShowSQL   bool `json:"show_sql"`
	EnableViz bool `json:"enable_viz"`
}

// DefaultQueryOptions matches the settings defaults: visualisations on, SQL hidden.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{EnableViz: true}
}

// QueryInput represents the input for processing user questions.
type QueryInput struct {
	ConversationID string       `json:"conversation_id"`
	Query          string       `json:"query"`
	Options        QueryOptions `json:"options"`
}

// Answer is what a chat turn returns to the caller.
type Answer struct {
	ConversationID string   `json:"conversation_id"`
	Content        string   `json:"content"`
	SQL            string   `json:"sql,omitempty"`
	Columns        []string `json:"columns,omitempty"`
	Rows           [][]any  `json:"rows,omitempty"`
	Truncated      bool     `json:"truncated,omitempty"`
	Chart          *Chart   `json:"chart,omitempty"`
	CostUSD        float64  `json:"cost_usd"`
}
