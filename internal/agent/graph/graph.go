package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/agent/graph/nodes"
	"github.com/sql-assistant/server/internal/agent/graph/observers"
	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/observability"
	logx "github.com/sql-assistant/server/pkg/logger"
)

const maxRunSteps = 20

// Runner executes the compiled query graph for one chat turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Answer, error)
}

// Config holds everything needed to compose the full query graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	SQLModel         model.ChatModelConfig
	AnalysisModel    model.ChatModelConfig
	VizModel         model.ChatModelConfig
	Conversation     model.ConversationConfig
	Query            model.QueryConfig
	Chart            model.ChartConfig
	ConversationRepo model.ConversationRepository
	Databases        model.DatabaseProvider
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	Databases       model.DatabaseProvider
	Query           model.QueryConfig
	Chart           model.ChartConfig
}

// GraphBuilder handles the construction of the query graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *model.Answer]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *model.Answer]
	mm       *conversations.MessagesManager
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.Answer, error) {
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	in.Query = strings.TrimSpace(in.Query)
	if in.ConversationID == "" {
		return nil, errx.Invalid(errors.New("conversation id is required"))
	}
	if in.Query == "" {
		return nil, errx.Invalid(errors.New("query is required"))
	}

	start := time.Now()
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err == nil && out == nil {
		err = errors.New("graph returned no answer")
	}
	observability.ObserveQuestion(err, time.Since(start))
	if err != nil {
		err = classify(err)
		logx.Error().Err(err).
			Str("conversation_id", in.ConversationID).
			Int("status", errx.StatusOf(err)).
			Msg("Query failed")
		if saveErr := r.mm.SaveError(context.WithoutCancel(ctx), in.ConversationID, err); saveErr != nil {
			logx.Error().Err(saveErr).Str("conversation_id", in.ConversationID).Msg("Failed to save error message")
		}
		return nil, err
	}

	logx.Info().
		Str("conversation_id", in.ConversationID).
		Float64("cost_usd", out.CostUSD).
		Bool("chart", out.Chart != nil).
		Dur("elapsed", time.Since(start)).
		Msg("Query answered")
	return out, nil
}

// classify strips graph wrapping and maps the cause to an AppError.
func classify(err error) error {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	cause := rootCause(err)
	if errx.IsLLMError(err) {
		return errx.WrapLLM(cause)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errx.New(cause, http.StatusGatewayTimeout, errx.SystemErrorMessage)
	}
	return errx.New(cause, http.StatusInternalServerError, errx.SystemErrorMessage)
}

// rootCause returns the innermost error of a single-wrap chain.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// BuildQueryGraph composes ChatModels, MessagesManager, builds the graph, and returns a Runner.
func BuildQueryGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		SQL:      cfg.SQLModel,
		Analysis: cfg.AnalysisModel,
		Viz:      cfg.VizModel,
	})
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation),
		Databases:       cfg.Databases,
		Query:           cfg.Query,
		Chart:           cfg.Chart,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Query graph built successfully")
	return runner, nil
}

// NewRunner compiles the graph over already constructed models.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable, mm: config.MessagesManager}, nil
}

// BuildGraph constructs and returns the compiled query graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *model.Answer], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if err := config.ChatModels.Validate(); err != nil {
		return nil, err
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Databases == nil {
		return nil, fmt.Errorf("database provider is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *model.Answer](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cms := b.config.ChatModels
	mm := b.config.MessagesManager
	q := b.config.Query

	steps := []error{
		b.graph.AddLambdaNode(nodes.NodeInputConverter,
			nodes.NewInputConverterNode(mm, b.config.Databases, q.ReadOnly),
			compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
			compose.WithNodeName(nodes.NodeInputConverter),
		),
		b.graph.AddChatModelNode(nodes.NodeSQLChatModel, cms.SQL,
			compose.WithStatePostHandler(nodes.NewChatModelPostHandler(nodes.NodeSQLChatModel, cms.SQLModelName)),
			compose.WithNodeName(nodes.NodeSQLChatModel),
		),
		b.graph.AddLambdaNode(nodes.NodeSQLParser,
			nodes.NewSQLParserNode(q.ReadOnly),
			compose.WithStatePostHandler(nodes.NewSQLParserPostHandler()),
			compose.WithNodeName(nodes.NodeSQLParser),
		),
		b.graph.AddLambdaNode(nodes.NodeQueryExecutor,
			nodes.NewQueryExecutorNode(),
			compose.WithStatePostHandler(nodes.NewQueryExecutorPostHandler()),
			compose.WithNodeName(nodes.NodeQueryExecutor),
		),
		b.graph.AddLambdaNode(nodes.NodeAnalysisAssembler,
			nodes.NewAnalysisAssemblerNode(q.PromptRows),
			compose.WithNodeName(nodes.NodeAnalysisAssembler),
		),
		b.graph.AddLambdaNode(nodes.NodeAnalysisChatModel,
			nodes.NewAnalysisModelNode(cms.Analysis),
			compose.WithStatePostHandler(nodes.NewAnalysisChatModelPostHandler(cms.AnalysisModelName)),
			compose.WithNodeName(nodes.NodeAnalysisChatModel),
		),
		b.graph.AddLambdaNode(nodes.NodeVizAssembler,
			nodes.NewVizAssemblerNode(q.PromptRows),
			compose.WithNodeName(nodes.NodeVizAssembler),
		),
		b.graph.AddLambdaNode(nodes.NodeVizChatModel,
			nodes.NewVizModelNode(cms.Viz),
			compose.WithStatePostHandler(nodes.NewChatModelPostHandler(nodes.NodeVizChatModel, cms.VizModelName)),
			compose.WithNodeName(nodes.NodeVizChatModel),
		),
		b.graph.AddLambdaNode(nodes.NodeVizParser,
			nodes.NewVizParserNode(),
			compose.WithNodeName(nodes.NodeVizParser),
		),
		b.graph.AddLambdaNode(nodes.NodeFinalizer,
			nodes.NewFinalizerNode(mm, b.config.Chart),
			compose.WithNodeName(nodes.NodeFinalizer),
		),
	}
	if err := errors.Join(steps...); err != nil {
		logx.Error().Err(err).Msg("Error adding graph nodes")
		return fmt.Errorf("error adding graph nodes: %w", err)
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeSQLChatModel},
		{nodes.NodeSQLChatModel, nodes.NodeSQLParser},
		{nodes.NodeSQLParser, nodes.NodeQueryExecutor},
		{nodes.NodeQueryExecutor, nodes.NodeAnalysisAssembler},
		{nodes.NodeAnalysisAssembler, nodes.NodeAnalysisChatModel},
		{nodes.NodeVizAssembler, nodes.NodeVizChatModel},
		{nodes.NodeVizChatModel, nodes.NodeVizParser},
		{nodes.NodeVizParser, nodes.NodeFinalizer},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	vizBranch := compose.NewGraphBranch(
		nodes.NewVizCondition(),
		map[string]bool{
			nodes.NodeVizAssembler: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAnalysisChatModel, vizBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding visualization branch")
		return fmt.Errorf("error adding visualization branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *model.Answer], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
