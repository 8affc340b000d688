package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

const listTablesQuery = `SELECT table_name FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`

var autoIncrementRe = regexp.MustCompile(`\s+AUTO_INCREMENT=\d+`)

// quoteIdent wraps a MySQL identifier in backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// loadSchema renders every base table as its CREATE TABLE statement followed
// by a comment block holding up to sampleRows rows.
func loadSchema(ctx context.Context, db *sqlx.DB, sampleRows int) (string, error) {
	var tables []string
	if err := db.SelectContext(ctx, &tables, listTablesQuery); err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		block, err := describeTable(ctx, db, table, sampleRows)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), nil
}

func describeTable(ctx context.Context, db *sqlx.DB, table string, sampleRows int) (string, error) {
	var name, ddl string
	if err := db.QueryRowxContext(ctx, "SHOW CREATE TABLE "+quoteIdent(table)).Scan(&name, &ddl); err != nil {
		return "", fmt.Errorf("show create table %s: %w", table, err)
	}

	var b strings.Builder
	b.WriteString(autoIncrementRe.ReplaceAllString(strings.TrimSpace(ddl), ""))
	if sampleRows <= 0 {
		return b.String(), nil
	}

	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), sampleRows))
	if err != nil {
		return "", fmt.Errorf("sample rows %s: %w", table, err)
	}
	defer rows.Close()

	sample, err := scanRows(rows, sampleRows)
	if err != nil {
		return "", fmt.Errorf("sample rows %s: %w", table, err)
	}

	fmt.Fprintf(&b, "\n\n/*\n%d rows from %s table:\n", len(sample.Rows), table)
	b.WriteString(strings.Join(sample.Columns, "\t"))
	b.WriteByte('\n')
	for _, row := range sample.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = truncateCell(FormatValue(v), 100)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	b.WriteString("*/")
	return b.String(), nil
}
