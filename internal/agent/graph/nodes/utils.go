package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/observability"
	logx "github.com/sql-assistant/server/pkg/logger"
)

// Graph node keys.
const (
	NodeInputConverter    = "InputConverter"
	NodeSQLChatModel      = "SQLChatModel"
	NodeSQLParser         = "SQLParser"
	NodeQueryExecutor     = "QueryExecutor"
	NodeAnalysisAssembler = "AnalysisAssembler"
	NodeAnalysisChatModel = "AnalysisChatModel"
	NodeVizAssembler      = "VizAssembler"
	NodeVizChatModel      = "VizChatModel"
	NodeVizParser         = "VizParser"
	NodeFinalizer         = "Finalizer"
)

// recordUsage prices the token usage on out, exposes it in out.Extra and
// adds it to the running total in state.
func recordUsage(node, modelName string, out *schema.Message, state *model.AppState) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	logx.Debug().
		Str("conversation_id", state.ConversationID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	observability.ObserveLLMUsage(modelName, usage.PromptTokens, usage.CompletionTokens, totalC)

	state.TotalCostUSD += totalC
	out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
}
