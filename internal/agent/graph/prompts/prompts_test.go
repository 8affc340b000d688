package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSQLSystem(t *testing.T) {
	out, err := RenderSQLSystem(context.Background(),
		"CREATE TABLE `orders` (`order_id` int)",
		"<conversation_context>\nUserMessage(How many orders?)\n</conversation_context>",
		true)
	require.NoError(t, err)

	assert.Contains(t, out, "MySQL-compatible SQL queries")
	assert.Contains(t, out, "enclosed in backticks (`)")
	assert.Contains(t, out, "Schema:\nCREATE TABLE `orders` (`order_id` int)")
	assert.Contains(t, out, "UserMessage(How many orders?)")
	assert.Contains(t, out, "Write exactly one SELECT statement")
	assert.Contains(t, out, "Generate only the SQL query.")
}

func TestRenderSQLSystemWritable(t *testing.T) {
	out, err := RenderSQLSystem(context.Background(), "s", "h", false)
	require.NoError(t, err)
	assert.NotContains(t, out, "exactly one SELECT")
}

func TestRenderAnalysis(t *testing.T) {
	out, err := RenderAnalysis(context.Background(), "SELECT COUNT(*) FROM orders", "schema text", "| 1000 |")
	require.NoError(t, err)

	assert.Contains(t, out, "As a data analyst")
	assert.Contains(t, out, "5. Suggest follow-up questions")
	assert.Contains(t, out, "SQL Query: SELECT COUNT(*) FROM orders")
	assert.Contains(t, out, "Results:\n| 1000 |")
}

func TestRenderVisualization(t *testing.T) {
	out, err := RenderVisualization(context.Background(), []string{"category", "revenue"}, "data table")
	require.NoError(t, err)

	assert.Contains(t, out, "Choose from: bar, line, scatter, pie")
	assert.Contains(t, out, "Available columns: category, revenue")
	assert.Contains(t, out, `{"viz_type": "", "x_column": "", "y_column": "", "title": ""}`)
}
