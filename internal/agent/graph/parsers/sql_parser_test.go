package parsers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/sql-assistant/server/internal/core/error"
)

func TestParseSQLCleansModelOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"fenced", "```sql\nSELECT * FROM `orders`;\n```", "SELECT * FROM `orders`"},
		{"fenced with prose", "Here you go:\n```mysql\nSELECT COUNT(*) FROM customers\n```\nThis counts customers.", "SELECT COUNT(*) FROM customers"},
		{"bare fence", "```\nSHOW TABLES\n```", "SHOW TABLES"},
		{"inline fence", "```SELECT 2```", "SELECT 2"},
		{"unterminated fence", "```sql\nSELECT 3", "SELECT 3"},
		{"prefix", "SQL: SELECT name FROM products", "SELECT name FROM products"},
		{"query prefix", "SQL Query:  SELECT 4", "SELECT 4"},
		{"trailing semicolons", "  SELECT name FROM customers;; \n", "SELECT name FROM customers"},
		{"semicolon before line comment", "SELECT 1; -- total", "SELECT 1"},
		{"semicolon before block comment", "SELECT 1;\n/* done */", "SELECT 1"},
		{"semicolon before hash comment", "SELECT name FROM products; # list", "SELECT name FROM products"},
		{"literal at end", "SELECT * FROM t WHERE note = 'x;'", "SELECT * FROM t WHERE note = 'x;'"},
		{"semicolon in literal", "SELECT ';' AS sep", "SELECT ';' AS sep"},
		{"union in parens", "(SELECT 1) UNION (SELECT 2)", "(SELECT 1) UNION (SELECT 2)"},
		{"leading comment", "-- top products\nSELECT product_name FROM products", "-- top products\nSELECT product_name FROM products"},
		{"replace function", "SELECT REPLACE(product_name, 'a', 'b') FROM products", "SELECT REPLACE(product_name, 'a', 'b') FROM products"},
		{"cte", "WITH t AS (SELECT customer_id FROM orders) SELECT COUNT(*) FROM t", "WITH t AS (SELECT customer_id FROM orders) SELECT COUNT(*) FROM t"},
		{"describe", "DESCRIBE orders", "DESCRIBE orders"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSQL(tt.in, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Query)
		})
	}
}

func TestParseSQLRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "```sql\n```", ";", "; -- nothing"} {
		_, err := ParseSQL(in, true)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, errx.ErrEmptySQL)
		assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
	}
}

func TestParseSQLRejectsMultipleStatements(t *testing.T) {
	_, err := ParseSQL("SELECT 1; DROP TABLE orders", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrMultipleStatements)
	assert.Equal(t, http.StatusUnprocessableEntity, errx.StatusOf(err))
	assert.True(t, errx.IsPermanentQueryError(err))
}

func TestParseSQLReadOnly(t *testing.T) {
	rejected := []string{
		"DELETE FROM orders",
		"UPDATE products SET price = 0",
		"DROP TABLE customers",
		"INSERT INTO categories (category_name) VALUES ('x')",
		"WITH old AS (SELECT order_id FROM orders) DELETE FROM orders WHERE order_id IN (SELECT order_id FROM old)",
		"SELECT * FROM orders INTO OUTFILE '/tmp/orders.csv'",
	}
	for _, in := range rejected {
		_, err := ParseSQL(in, true)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, errx.ErrWriteStatement, in)
	}

	got, err := ParseSQL("DELETE FROM orders WHERE status = 'cancelled'", false)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM orders WHERE status = 'cancelled'", got.Query)
}

func TestParseSQLTruncatesHugeContent(t *testing.T) {
	in := "SELECT " + strings.Repeat("1", maxContentLen)
	got, err := ParseSQL(in, true)
	require.NoError(t, err)
	assert.Len(t, got.Query, maxContentLen)
}

func TestBlankLiterals(t *testing.T) {
	pad := func(n int) string { return strings.Repeat(" ", n) }

	assert.Equal(t, "SELECT "+pad(5)+" AS x", blankLiterals("SELECT 'a;b' AS x"))
	assert.Equal(t, "SELECT "+pad(8)+" AS x", blankLiterals("SELECT 'it''s;' AS x"))
	assert.Equal(t, "SELECT 1 "+pad(13)+"\nFROM t", blankLiterals("SELECT 1 -- note; here\nFROM t"))
	assert.Equal(t, "SELECT "+pad(7)+" 1", blankLiterals("SELECT /* ; */ 1"))
	assert.Equal(t, 1, countStatements(blankLiterals(`SELECT "x;y";`)))
}
