package adapter

import (
	"regexp"
	"strings"
)

// colonRegex identifies parameter placeholders in the format ":name" (e.g., :id, :user-id).
var colonRegex = regexp.MustCompile(`:([a-zA-Z0-9_-]+)`)

// TranslatePath converts colon-style path parameters (:param) into the
// brace-style placeholders ({param}) go-chi expects. A trailing "*name"
// becomes chi's catch-all and its name is returned so the match can be
// reported under it; a bare "*" is reported as "*".
func TranslatePath(path string) (string, string) {
	wildcard := ""
	if idx := strings.LastIndex(path, "*"); idx != -1 && !strings.Contains(path[idx:], "/") {
		wildcard = path[idx+1:]
		path = path[:idx] + "*"
	}

	path = colonRegex.ReplaceAllStringFunc(path, func(m string) string {
		return "{" + strings.TrimPrefix(m, ":") + "}"
	})
	return path, wildcard
}
