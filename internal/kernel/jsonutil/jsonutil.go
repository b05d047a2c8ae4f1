// Package jsonutil parses strict-JSON LLM classifier output. Every
// IntentTools/KnowledgeGraph/EmotionAnalyzer/TaskGraph call that expects a
// JSON object or array from a model response routes through
// StrictUnmarshal so that code-fenced replies are stripped the same way
// everywhere (prose around the JSON is not stripped and fails the
// parse), and callers degrade to a neutral
// value on failure instead of retrying.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding ```json ... ``` or ``` ... ```
// fence, if present, and trims whitespace. Text without a fence is
// returned unchanged (after trimming).
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine == "" || isLangTag(firstLine) {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "\n\t "), "```")
	return strings.TrimSpace(s)
}

func isLangTag(s string) bool {
	switch strings.ToLower(s) {
	case "json", "js", "javascript":
		return true
	default:
		return false
	}
}

// StrictUnmarshal strips any code fence from raw and unmarshals the
// remainder into v. Callers that must never fail a turn on a malformed
// classifier response should call this and fall back to a neutral value
// on error rather than propagate it further.
func StrictUnmarshal(raw string, v any) error {
	clean := StripCodeFence(raw)
	if clean == "" {
		return fmt.Errorf("empty classifier response")
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("unmarshal classifier response: %w", err)
	}
	return nil
}
