package database

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sql-assistant/server/internal/agent/model"
)

func scanRows(rows *sqlx.Rows, maxRows int) (*model.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	typeNames := make([]string, len(cols))
	for i := range cols {
		if i < len(types) && types[i] != nil {
			typeNames[i] = types[i].DatabaseTypeName()
		}
	}

	res := &model.QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			break
		}
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = normalizeValue(vals[i], typeNames[i])
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindFloat
)

func kindOf(dbType string) columnKind {
	t := strings.TrimPrefix(strings.ToUpper(dbType), "UNSIGNED ")
	switch t {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return kindInt
	case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL":
		return kindFloat
	}
	return kindText
}

// normalizeValue turns driver values into JSON- and chart-friendly types.
// The text protocol returns most columns as []byte; the column type decides
// whether they become numbers.
func normalizeValue(v any, dbType string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return convertText(string(val), kindOf(dbType))
	case string:
		return convertText(val, kindOf(dbType))
	case int64, float64, bool, time.Time:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

func convertText(s string, kind columnKind) any {
	switch kind {
	case kindInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case kindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
