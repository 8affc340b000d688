package parsers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
	logx "github.com/sql-assistant/server/pkg/logger"
)

var (
	sqlPrefixRe = regexp.MustCompile(`(?i)^\s*(sql\s*query|sql|query)\s*:\s*`)
	// a WITH clause may precede UPDATE or DELETE in MySQL 8
	cteWriteRe = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE)\b`)
	intoFileRe = regexp.MustCompile(`(?i)\bINTO\s+(OUTFILE|DUMPFILE)\b`)
)

var readStatements = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
}

// ParseSQL cleans the SQL model output into a single executable statement.
// Markdown fences, "SQL:" prefixes and trailing semicolons are removed.
// With readOnly set, anything but a read statement is rejected.
func ParseSQL(content string, readOnly bool) (model.GeneratedSQL, error) {
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "sql_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	query := strings.TrimSpace(stripFences(content))
	query = sqlPrefixRe.ReplaceAllString(query, "")
	query = trimStatementEnd(query)
	if query == "" {
		return model.GeneratedSQL{}, errx.New(errx.ErrEmptySQL, http.StatusBadGateway, errx.RejectedQueryMessage)
	}

	code := blankLiterals(query)
	if countStatements(code) > 1 {
		return model.GeneratedSQL{}, errx.New(
			fmt.Errorf("%w: %s", errx.ErrMultipleStatements, safeSnippet(query)),
			http.StatusUnprocessableEntity, errx.RejectedQueryMessage)
	}

	if readOnly {
		if err := checkReadOnly(code); err != nil {
			return model.GeneratedSQL{}, errx.New(
				fmt.Errorf("%w: %s", err, safeSnippet(query)),
				http.StatusUnprocessableEntity, errx.RejectedQueryMessage)
		}
	}
	return model.GeneratedSQL{Query: query}, nil
}

func checkReadOnly(code string) error {
	first := firstKeyword(code)
	if !readStatements[first] {
		return fmt.Errorf("%w (got %s)", errx.ErrWriteStatement, first)
	}
	if first == "WITH" {
		if m := cteWriteRe.FindString(code); m != "" {
			return fmt.Errorf("%w (contains %s)", errx.ErrWriteStatement, strings.ToUpper(m))
		}
	}
	if intoFileRe.MatchString(code) {
		return fmt.Errorf("%w (writes a file)", errx.ErrWriteStatement)
	}
	return nil
}

func firstKeyword(code string) string {
	code = strings.TrimLeft(code, " \t\r\n(")
	end := strings.IndexFunc(code, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	})
	if end < 0 {
		end = len(code)
	}
	return strings.ToUpper(code[:end])
}

// countStatements counts non-blank statements separated by semicolons.
func countStatements(code string) int {
	n := 0
	for _, part := range strings.Split(code, ";") {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// trimStatementEnd drops trailing semicolons together with any comments
// after them.
func trimStatementEnd(query string) string {
	code := blankSQL(strings.TrimSpace(query), false)
	end := len(strings.TrimRight(code, "; \t\r\n"))
	return strings.TrimSpace(strings.TrimSpace(query)[:end])
}

// blankLiterals replaces string literals, quoted identifiers and comments
// with spaces so keyword and separator checks only see SQL code.
func blankLiterals(s string) string {
	return blankSQL(s, true)
}

// blankSQL blanks comments, and string literals and quoted identifiers too
// when literals is set. Byte offsets are preserved.
func blankSQL(s string, literals bool) string {
	out := []byte(s)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(s) {
				if s[j] == '\\' && c != '`' {
					j += 2
					continue
				}
				if s[j] == c {
					if j+1 < len(s) && s[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if literals {
				blank(i, j+1)
			}
			i = j + 1
		case c == '#' || (c == '-' && strings.HasPrefix(s[i:], "-- ")):
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				j = len(s) - i
			}
			blank(i, i+j)
			i += j
		case c == '/' && strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			end := len(s)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			blank(i, end)
			i = end
		default:
			i++
		}
	}
	return string(out)
}
