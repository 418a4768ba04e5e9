package supervisor

import (
	"encoding/json"
	"strings"
)

// decodeJSON parses untrusted collaborator output into v.
// It tries: 1) direct parse, 2) a ```json fenced block, 3) a bare ``` fenced
// block. Returns false when no attempt yields valid JSON.
func decodeJSON(content string, v any) bool {
	if tryDecode(content, v) {
		return true
	}

	if idx := strings.Index(content, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(content[start:], "```"); end != -1 {
			block := strings.TrimSpace(content[start : start+end])
			if tryDecode(block, v) {
				return true
			}
		}
	}

	if idx := strings.Index(content, "```"); idx != -1 {
		start := idx + len("```")
		// Skip a language tag on the same line, if any.
		if nlIdx := strings.Index(content[start:], "\n"); nlIdx != -1 {
			start = start + nlIdx + 1
		}
		if end := strings.Index(content[start:], "```"); end != -1 {
			block := strings.TrimSpace(content[start : start+end])
			if tryDecode(block, v) {
				return true
			}
		}
	}

	return false
}

func tryDecode(raw string, v any) bool {
	return json.Unmarshal([]byte(strings.TrimSpace(raw)), v) == nil
}

// questionLines splits collaborator output into lines and keeps those that
// contain a question mark, up to limit.
func questionLines(content string, limit int) []string {
	var questions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		questions = append(questions, line)
		if len(questions) == limit {
			break
		}
	}
	return questions
}
