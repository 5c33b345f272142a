package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkBlockPattern matches <think>...</think> blocks emitted by reasoning models.
var thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// codeFencePattern matches an opening fence with an optional language tag.
var codeFencePattern = regexp.MustCompile("(?i)```[a-z]*")

// sqlLabelPattern matches a leading "SQL:" label.
var sqlLabelPattern = regexp.MustCompile(`(?i)^\s*sql\s*:\s*`)

// sqlTagPattern matches a stray language tag left in front of the statement.
var sqlTagPattern = regexp.MustCompile(`(?i)^sql\s+((?:select|with)\b)`)

// StripThinking removes every <think> block.
func StripThinking(response string) string {
	return strings.TrimSpace(thinkBlockPattern.ReplaceAllString(response, ""))
}

// CleanSQL turns a raw completion into a bare statement: thinking blocks,
// code fences and a leading "SQL:" label are removed. If the completion
// contains a fenced block, only the first block is kept.
func CleanSQL(response string) string {
	s := StripThinking(response)

	if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") {
			// drop the language tag line
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		s = body
	}

	s = codeFencePattern.ReplaceAllString(s, "")
	s = sqlLabelPattern.ReplaceAllString(s, "")
	s = sqlTagPattern.ReplaceAllString(strings.TrimSpace(s), "$1")
	return strings.TrimSpace(s)
}

// ExtractJSON extracts JSON content from an LLM response that may contain
// <think> tags, markdown code blocks, or other formatting.
func ExtractJSON(response string) (string, error) {
	cleaned := StripThinking(response)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalancedJSON finds the first balanced JSON structure starting with openChar.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
