package parsers

import (
	"regexp"
	"strings"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxJSONLen    = 4 * 1024  // 4KB viz recommendation
	maxErrSnippet = 200
)

var (
	fenceRe    = regexp.MustCompile("(?s)```(?:[a-zA-Z]+[ \t]*\n|\n)?(.*?)```")
	fenceTagRe = regexp.MustCompile(`^[a-zA-Z]*[ \t]*$`)
)

// stripFences returns the body of the first markdown code fence, or content.
func stripFences(content string) string {
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	// unterminated fence
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && fenceTagRe.MatchString(rest[:nl]) {
			return rest[nl+1:]
		}
		return rest
	}
	return content
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
