package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sql-assistant/server/internal/agent/model"
)

func revenueResult() *model.QueryResult {
	return &model.QueryResult{
		Columns: []string{"category", "revenue", "orders"},
		Rows: [][]any{
			{"Books", 120.5, int64(3)},
			{"Sports", int64(80), int64(2)},
		},
	}
}

func TestParseVisualization(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *model.VizConfig
	}{
		{
			name:    "exact",
			content: `{"viz_type": "pie", "x_column": "category", "y_column": "revenue", "title": "Revenue share"}`,
			want:    &model.VizConfig{Type: model.VizPie, XColumn: "category", YColumn: "revenue", Title: "Revenue share"},
		},
		{
			name:    "fenced with prose",
			content: "Sure!\n```json\n{\"viz_type\": \"line\", \"x_column\": \"category\", \"y_column\": \"orders\", \"title\": \"Orders\"}\n```",
			want:    &model.VizConfig{Type: model.VizLine, XColumn: "category", YColumn: "orders", Title: "Orders"},
		},
		{
			name:    "unsupported type falls back to bar",
			content: `{"viz_type": "histogram", "x_column": "category", "y_column": "revenue", "title": "t"}`,
			want:    &model.VizConfig{Type: model.VizBar, XColumn: "category", YColumn: "revenue", Title: "t"},
		},
		{
			name:    "case insensitive columns and default title",
			content: `{"viz_type": "BAR", "x_column": "CATEGORY", "y_column": "Revenue", "title": ""}`,
			want:    &model.VizConfig{Type: model.VizBar, XColumn: "category", YColumn: "revenue", Title: model.DefaultVizTitle},
		},
		{
			name:    "unknown columns repaired",
			content: `{"viz_type": "scatter", "x_column": "name", "y_column": "total"}`,
			want:    &model.VizConfig{Type: model.VizScatter, XColumn: "category", YColumn: "revenue", Title: model.DefaultVizTitle},
		},
		{
			name:    "non numeric y repaired",
			content: `{"viz_type": "bar", "x_column": "revenue", "y_column": "category"}`,
			want:    &model.VizConfig{Type: model.VizBar, XColumn: "revenue", YColumn: "orders", Title: model.DefaultVizTitle},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVisualization(tt.content, revenueResult())
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVisualizationSwapsWhenOnlyXIsNumeric(t *testing.T) {
	res := &model.QueryResult{
		Columns: []string{"status", "total"},
		Rows:    [][]any{{"shipped", int64(10)}, {"pending", int64(4)}},
	}
	got := ParseVisualization(`{"viz_type":"pie","x_column":"total","y_column":"status"}`, res)
	require.NotNil(t, got)
	assert.Equal(t, "status", got.XColumn)
	assert.Equal(t, "total", got.YColumn)
}

func TestParseVisualizationNoChart(t *testing.T) {
	assert.Nil(t, ParseVisualization("I recommend a bar chart.", revenueResult()))
	assert.Nil(t, ParseVisualization(`{"viz_type": "bar",`, revenueResult()))
	assert.Nil(t, ParseVisualization(`{"viz_type":"bar"}`, nil))

	single := &model.QueryResult{Columns: []string{"count"}, Rows: [][]any{{int64(5)}}}
	assert.Nil(t, ParseVisualization(`{"viz_type":"bar","x_column":"count","y_column":"count"}`, single))

	text := &model.QueryResult{Columns: []string{"a", "b"}, Rows: [][]any{{"x", "y"}}}
	assert.Nil(t, ParseVisualization(`{"viz_type":"bar","x_column":"a","y_column":"b"}`, text))
}
