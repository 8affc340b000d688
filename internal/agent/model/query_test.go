package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func salesResult() *QueryResult {
	return &QueryResult{
		Columns: []string{"category", "revenue", "orders"},
		Rows: [][]any{
			{"Books", 1250.5, int64(12)},
			{"Sports", nil, int64(4)},
			{"Clothing", 310.0, int64(7)},
		},
	}
}

func TestQueryResultColumns(t *testing.T) {
	r := salesResult()
	assert.Equal(t, 1, r.ColumnIndex("revenue"))
	assert.Equal(t, -1, r.ColumnIndex("missing"))
	assert.Equal(t, []int{1, 2}, r.NumericColumns())
	assert.False(t, r.IsNumericColumn(0))
	assert.True(t, r.Chartable())
}

func TestQueryResultChartable(t *testing.T) {
	var nilResult *QueryResult
	assert.True(t, nilResult.Empty())
	assert.False(t, nilResult.Chartable())

	single := &QueryResult{Columns: []string{"n"}, Rows: [][]any{{int64(3)}}}
	assert.False(t, single.Chartable(), "one column cannot be plotted on two axes")

	text := &QueryResult{Columns: []string{"a", "b"}, Rows: [][]any{{"x", "y"}}}
	assert.False(t, text.Chartable())

	allNull := &QueryResult{Columns: []string{"a", "b"}, Rows: [][]any{{"x", nil}}}
	assert.False(t, allNull.Chartable())
}

func TestAsFloat(t *testing.T) {
	for _, v := range []any{int64(2), 2, int32(2), uint64(2), 2.0, float32(2), json.Number("2")} {
		f, ok := AsFloat(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 2.0, f)
	}
	_, ok := AsFloat("2")
	assert.False(t, ok)
	_, ok = AsFloat(time.Now())
	assert.False(t, ok)
}

func TestVizTypeValid(t *testing.T) {
	assert.True(t, VizPie.Valid())
	assert.False(t, VizType("heatmap").Valid())
	assert.Len(t, SupportedVisualizations, 4)
}

func TestComputeCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	in, out, total := ComputeCost(usage, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 1.25, out, 1e-9)
	assert.InDelta(t, 1.55, total, 1e-9)

	_, _, total = ComputeCost(usage, ResolvePricing("unknown-model"))
	assert.Zero(t, total)

	_, _, total = ComputeCost(nil, ResolvePricing("gemini-2.5-flash"))
	assert.Zero(t, total)
}

func TestDefaultQueryOptions(t *testing.T) {
	opts := DefaultQueryOptions()
	assert.True(t, opts.EnableViz)
	assert.False(t, opts.ShowSQL)
}
