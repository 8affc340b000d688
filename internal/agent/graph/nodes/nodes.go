package nodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/agent/graph/parsers"
	"github.com/sql-assistant/server/internal/agent/graph/prompts"
	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/charts"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/database"
	logx "github.com/sql-assistant/server/pkg/logger"
)

// NewInputConverterPreHandler resets the per-query state.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.ConversationID = in.ConversationID
		s.Question = in.Query
		s.Options = in.Options
		s.SQL = ""
		s.Result = nil
		s.Analysis = ""
		s.Visualization = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode records the question, resolves the conversation's
// database and builds the SQL generation messages.
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	dbs model.DatabaseProvider,
	readOnly bool,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		history, err := mm.ProcessUserMessage(ctx, input.ConversationID, input.Query)
		if err != nil {
			return nil, fmt.Errorf("error getting conversation context: %w", err)
		}

		db, err := dbs.Lookup(input.ConversationID)
		if err != nil {
			return nil, err
		}

		schemaText, err := db.Schema(ctx)
		if err != nil {
			return nil, err
		}

		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Database = db
			state.Schema = schemaText
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderSQLSystem(ctx, schemaText, history, readOnly)
		if err != nil {
			return nil, fmt.Errorf("render sql system prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(input.Query),
		}, nil
	})
}

// NewChatModelPostHandler computes and logs usage cost for a model node.
func NewChatModelPostHandler(node, modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsage(node, modelName, out, state)
		return out, nil
	}
}

// NewSQLParserNode turns the model reply into a single validated statement.
func NewSQLParserNode(readOnly bool) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.GeneratedSQL, error) {
		if resp == nil {
			return model.GeneratedSQL{}, errx.New(errx.ErrEmptySQL, http.StatusBadGateway, errx.RejectedQueryMessage)
		}
		out, err := parsers.ParseSQL(resp.Content, readOnly)
		if err != nil {
			logx.Warn().Err(err).Msg("Generated SQL rejected")
			return model.GeneratedSQL{}, err
		}
		return out, nil
	})
}

// NewSQLParserPostHandler saves the statement to state.
func NewSQLParserPostHandler() func(context.Context, model.GeneratedSQL, *model.AppState) (model.GeneratedSQL, error) {
	return func(ctx context.Context, out model.GeneratedSQL, state *model.AppState) (model.GeneratedSQL, error) {
		state.SQL = out.Query
		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Str("sql", out.Query).
			Msg("Generated SQL")
		return out, nil
	}
}

// NewQueryExecutorNode runs the statement against the conversation's database.
func NewQueryExecutorNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.GeneratedSQL) (*model.QueryResult, error) {
		var db model.Database
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			if state.Database == nil {
				return errx.NotConnected(state.ConversationID)
			}
			db = state.Database
			return nil
		})
		if err != nil {
			return nil, err
		}
		return db.Execute(ctx, in.Query)
	})
}

// NewQueryExecutorPostHandler saves the result to state.
func NewQueryExecutorPostHandler() func(context.Context, *model.QueryResult, *model.AppState) (*model.QueryResult, error) {
	return func(ctx context.Context, out *model.QueryResult, state *model.AppState) (*model.QueryResult, error) {
		state.Result = out
		if out != nil {
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Int("rows", len(out.Rows)).
				Bool("truncated", out.Truncated).
				Dur("elapsed", out.Elapsed).
				Msg("Query executed")
		}
		return out, nil
	}
}

// NewAnalysisAssemblerNode builds the analyst prompt from the executed query.
func NewAnalysisAssemblerNode(promptRows int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res *model.QueryResult) ([]*schema.Message, error) {
		var sql, schemaText string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sql = state.SQL
			schemaText = state.Schema
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		text, err := prompts.RenderAnalysis(ctx, sql, schemaText, database.FormatResult(res, promptRows))
		if err != nil {
			return nil, fmt.Errorf("generate analysis prompt: %w", err)
		}
		return []*schema.Message{schema.UserMessage(text)}, nil
	})
}

// AnalysisFailurePrefix starts the analysis text when the model call fails.
const AnalysisFailurePrefix = "Error generating response: "

// generate calls cm with the model callbacks attributed to node.
func generate(ctx context.Context, node string, cm einomodel.BaseChatModel, in []*schema.Message) (*schema.Message, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: node, Component: components.ComponentOfChatModel})
	return cm.Generate(ctx, in)
}

// NewAnalysisModelNode asks the analysis model to explain the result. A failed
// call becomes the analysis text so the turn still returns the rows.
func NewAnalysisModelNode(cm einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
		out, err := generate(ctx, NodeAnalysisChatModel, cm, in)
		if err == nil && (out == nil || strings.TrimSpace(out.Content) == "") {
			err = errors.New("model returned an empty analysis")
		}
		if err != nil {
			logx.Warn().Err(err).Msg("Analysis generation failed")
			return schema.AssistantMessage(AnalysisFailurePrefix+err.Error(), nil), nil
		}
		return out, nil
	})
}

// NewAnalysisChatModelPostHandler records usage and keeps the analysis text.
func NewAnalysisChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsage(NodeAnalysisChatModel, modelName, out, state)
		state.Analysis = strings.TrimSpace(out.Content)
		return out, nil
	}
}

// NewVizModelNode asks the visualization model for a chart. A failed call
// yields an empty reply, which the parser turns into no chart.
func NewVizModelNode(cm einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
		out, err := generate(ctx, NodeVizChatModel, cm, in)
		if err != nil {
			logx.Warn().Err(err).Msg("Visualization recommendation failed")
			return schema.AssistantMessage("", nil), nil
		}
		if out == nil {
			return schema.AssistantMessage("", nil), nil
		}
		return out, nil
	})
}

// NewVizCondition routes to the visualization stage when charts are enabled
// and the result can be charted.
func NewVizCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, _ *schema.Message) (string, error) {
		next := NodeFinalizer
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			if state.Options.EnableViz && state.Result.Chartable() {
				next = NodeVizAssembler
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		logx.Debug().Str("next", next).Msg("Visualization routing")
		return next, nil
	}
}

// NewVizAssemblerNode builds the chart recommendation prompt.
func NewVizAssemblerNode(promptRows int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
		var res *model.QueryResult
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			res = state.Result
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if res == nil {
			return nil, fmt.Errorf("missing query result in state")
		}

		text, err := prompts.RenderVisualization(ctx, res.Columns, database.FormatResult(res, promptRows))
		if err != nil {
			return nil, fmt.Errorf("generate visualization prompt: %w", err)
		}
		return []*schema.Message{schema.UserMessage(text)}, nil
	})
}

// NewVizParserNode reads the chart recommendation into state. A reply that
// cannot be used leaves the turn without a chart.
func NewVizParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*schema.Message, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			if resp == nil {
				return nil
			}
			state.Visualization = parsers.ParseVisualization(resp.Content, state.Result)
			if state.Visualization == nil {
				logx.Debug().Str("conversation_id", state.ConversationID).Msg("No usable visualization")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return resp, nil
	})
}

// NewFinalizerNode renders the chart, stores the analysis in the history
// and assembles the answer.
func NewFinalizerNode(mm *conversations.MessagesManager, chartCfg model.ChartConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*model.Answer, error) {
		var state model.AppState
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			state = *s
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		answer := &model.Answer{
			ConversationID: state.ConversationID,
			Content:        state.Analysis,
			CostUSD:        state.TotalCostUSD,
		}
		if state.Options.ShowSQL {
			answer.SQL = state.SQL
		}
		if res := state.Result; res != nil {
			answer.Columns = res.Columns
			answer.Rows = res.Rows
			answer.Truncated = res.Truncated
		}

		if viz := state.Visualization; viz != nil && state.Options.EnableViz {
			png, err := charts.Render(*viz, state.Result, chartCfg)
			if err != nil {
				logx.Warn().Err(err).
					Str("conversation_id", state.ConversationID).
					Str("viz_type", string(viz.Type)).
					Msg("Chart rendering failed")
			} else {
				answer.Chart = &model.Chart{VizConfig: *viz, PNG: png}
			}
		}

		if err := mm.SaveResponse(ctx, state.ConversationID, state.Analysis); err != nil {
			logx.Error().Err(err).Str("conversation_id", state.ConversationID).Msg("Failed to save response")
		}
		return answer, nil
	})
}
