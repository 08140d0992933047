package data

import (
	"errors"
	"strings"
)

// ExtractJSON pulls the outermost JSON-looking object out of free-form model
// output. Models wrap their JSON in prose and code fences often enough that
// callers must not assume the whole string parses.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON object found in answer")
	}
	return s[start : end+1], nil
}
