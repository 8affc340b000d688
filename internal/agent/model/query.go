package model

import (
	"encoding/json"
	"time"
)

// GeneratedSQL is the cleaned statement produced by the SQL model.
type GeneratedSQL struct {
	Query string `json:"query"`
}

// QueryResult holds the rows returned by one statement. Values are
// normalised to int64, float64, string, bool, time.Time or nil.
type QueryResult struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated,omitempty"`
	Elapsed   time.Duration `json:"-"`
}

func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// ColumnIndex returns the position of name, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	if r == nil {
		return -1
	}
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// IsNumericColumn reports whether every non-nil value in column i is a number
// and at least one is present.
func (r *QueryResult) IsNumericColumn(i int) bool {
	if r == nil || i < 0 || i >= len(r.Columns) {
		return false
	}
	seen := false
	for _, row := range r.Rows {
		if i >= len(row) || row[i] == nil {
			continue
		}
		if _, ok := AsFloat(row[i]); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// NumericColumns lists the indexes of numeric columns.
func (r *QueryResult) NumericColumns() []int {
	if r == nil {
		return nil
	}
	var out []int
	for i := range r.Columns {
		if r.IsNumericColumn(i) {
			out = append(out, i)
		}
	}
	return out
}

// Chartable reports whether the result can back a two-axis chart.
func (r *QueryResult) Chartable() bool {
	return !r.Empty() && len(r.Columns) >= 2 && len(r.NumericColumns()) > 0
}

// AsFloat converts numeric values produced by the database layer.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// VizType is a supported chart kind.
type VizType string

const (
	VizBar     VizType = "bar"
	VizLine    VizType = "line"
	VizScatter VizType = "scatter"
	VizPie     VizType = "pie"
)

// SupportedVisualizations lists chart kinds in recommendation order.
var SupportedVisualizations = []VizType{VizBar, VizLine, VizScatter, VizPie}

func (v VizType) Valid() bool {
	for _, s := range SupportedVisualizations {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultVizTitle is used when the model gives no title.
const DefaultVizTitle = "Data Visualization"

// VizConfig is the model's chart recommendation.
type VizConfig struct {
	Type    VizType `json:"viz_type"`
	XColumn string  `json:"x_column"`
	YColumn string  `json:"y_column"`
	Title   string  `json:"title"`
}

// Chart is a rendered visualisation. PNG is base64 encoded in JSON.
type Chart struct {
	VizConfig
	PNG []byte `json:"png"`
}
