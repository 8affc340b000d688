package parsers

import (
	"encoding/json"
	"strings"

	"github.com/sql-assistant/server/internal/agent/model"
	logx "github.com/sql-assistant/server/pkg/logger"
)

type rawVizConfig struct {
	VizType string `json:"viz_type"`
	XColumn string `json:"x_column"`
	YColumn string `json:"y_column"`
	Title   string `json:"title"`
}

// ParseVisualization turns the visualisation model output into a chart
// config that is valid for result. It returns nil when the output is not a
// JSON recommendation or the result cannot back a chart.
func ParseVisualization(content string, result *model.QueryResult) (cfg *model.VizConfig) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "viz_parser").Msgf("panic recovered: %v", r)
			cfg = nil
		}
	}()

	if !result.Chartable() {
		return nil
	}

	raw, ok := extractJSON(content)
	if !ok {
		logx.Debug().Str("component", "viz_parser").Str("content", safeSnippet(content)).Msg("no visualization json found")
		return nil
	}
	var rec rawVizConfig
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logx.Debug().Err(err).Str("component", "viz_parser").Msg("invalid visualization json")
		return nil
	}

	vt := model.VizType(strings.ToLower(strings.TrimSpace(rec.VizType)))
	if !vt.Valid() {
		vt = model.VizBar
	}

	x, y := resolveColumns(result, rec.XColumn, rec.YColumn)
	if y < 0 {
		return nil
	}

	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = model.DefaultVizTitle
	}
	cfg = &model.VizConfig{Type: vt, XColumn: result.Columns[x], YColumn: result.Columns[y], Title: title}
	return cfg
}

func extractJSON(content string) (string, bool) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	body := stripFences(content)
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end <= start {
		return "", false
	}
	raw := body[start : end+1]
	if len(raw) > maxJSONLen {
		return "", false
	}
	return raw, true
}

func findColumn(result *model.QueryResult, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	if i := result.ColumnIndex(name); i >= 0 {
		return i
	}
	for i, c := range result.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// resolveColumns maps the recommended columns onto result. Unknown columns
// fall back to the first non-numeric column for x and the first numeric
// column for y.
func resolveColumns(result *model.QueryResult, xName, yName string) (x, y int) {
	y = findColumn(result, yName)
	if y >= 0 && !result.IsNumericColumn(y) {
		y = -1
	}
	x = findColumn(result, xName)
	if x == y {
		x = -1
	}

	if y < 0 {
		numeric := result.NumericColumns()
		for _, i := range numeric {
			if i != x {
				y = i
				break
			}
		}
		if y < 0 && len(numeric) > 0 {
			y, x = numeric[0], -1
		}
	}
	if y < 0 {
		return -1, -1
	}

	if x < 0 {
		for i := range result.Columns {
			if i != y && !result.IsNumericColumn(i) {
				x = i
				break
			}
		}
	}
	if x < 0 {
		for i := range result.Columns {
			if i != y {
				x = i
				break
			}
		}
	}
	return x, y
}
