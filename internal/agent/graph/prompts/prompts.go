package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/sql-assistant/server/internal/agent/model"
)

//go:embed template/sql_prompt.txt
var sqlSystemPrompt string

//go:embed template/analysis_prompt.txt
var analysisPrompt string

//go:embed template/viz_prompt.txt
var vizPrompt string

// RenderSQLSystem renders the SQL generation system prompt via the Eino
// prompt component, which also emits prompt callbacks.
func RenderSQLSystem(ctx context.Context, schemaText, history string, readOnly bool) (string, error) {
	return render(ctx, "sql", sqlSystemPrompt, map[string]any{
		"Schema":   schemaText,
		"History":  history,
		"ReadOnly": readOnly,
	})
}

// RenderAnalysis renders the analyst prompt for an executed query.
func RenderAnalysis(ctx context.Context, sql, schemaText, results string) (string, error) {
	return render(ctx, "analysis", analysisPrompt, map[string]any{
		"SQL":     sql,
		"Schema":  schemaText,
		"Results": results,
	})
}

// RenderVisualization renders the chart recommendation prompt.
func RenderVisualization(ctx context.Context, columns []string, data string) (string, error) {
	types := make([]string, len(model.SupportedVisualizations))
	for i, t := range model.SupportedVisualizations {
		types[i] = string(t)
	}
	return render(ctx, "visualization", vizPrompt, map[string]any{
		"Types":   strings.Join(types, ", "),
		"Columns": strings.Join(columns, ", "),
		"Data":    data,
	})
}

func render(ctx context.Context, name, text string, vars map[string]any) (string, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: name, Component: components.ComponentOfPrompt})
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(text),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
