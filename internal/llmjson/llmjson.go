// Package llmjson extracts JSON objects from loosely formatted LLM output.
//
// Completion models routinely wrap their JSON in markdown fences or surround
// it with prose. The pipeline here is: strip known wrappers, try a strict
// parse, fall back to the first-'{'-to-last-'}' span, and report failure
// instead of raising so callers can apply their own typed defaults.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unmarshal parses the first JSON object found in raw into v.
func Unmarshal(raw string, v any) error {
	cleaned := stripFences(raw)

	if json.Unmarshal([]byte(cleaned), v) == nil {
		return nil
	}

	span, ok := objectSpan(cleaned)
	if !ok {
		return fmt.Errorf("no JSON object found in output (%d bytes)", len(raw))
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("parse extracted JSON: %w", err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// objectSpan locates the outermost {...} span in s.
func objectSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
