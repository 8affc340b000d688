package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sql-assistant/server/internal/agent/model"
)

// FormatValue renders a normalised value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func truncateCell(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// FormatResult renders res as a plain-text table with at most maxRows rows.
// A note is appended when rows were left out.
func FormatResult(res *model.QueryResult, maxRows int) string {
	if res == nil || len(res.Columns) == 0 {
		return "(no result set)"
	}
	if len(res.Rows) == 0 {
		return "(0 rows) columns: " + strings.Join(res.Columns, ", ")
	}

	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	shown := res.Rows
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for _, row := range shown {
		cells := make([]string, len(res.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = truncateCell(FormatValue(row[i]), 80)
			}
		}
		table.Append(cells)
	}
	table.Render()

	if omitted := len(res.Rows) - len(shown); omitted > 0 {
		fmt.Fprintf(&b, "(%d more rows not shown)\n", omitted)
	}
	if res.Truncated {
		b.WriteString("(result truncated by row limit)\n")
	}
	return b.String()
}
