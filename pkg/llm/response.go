package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Reasoning models served by Ollama prefix their answer with <think>...</think>.
var thinkBlockPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// codeFencePattern matches a reply wrapped entirely in one markdown code block.
var codeFencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// CleanText removes a leading reasoning block and an enclosing markdown code
// fence from a reply, leaving the text a user would paste into a letter.
func CleanText(response string) string {
	cleaned := thinkBlockPattern.ReplaceAllString(response, "")
	if m := codeFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	return strings.TrimSpace(cleaned)
}

// ExtractJSON returns the first complete JSON object in a reply that may
// contain reasoning, prose or code fences around it.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkBlockPattern.ReplaceAllString(response, "")

	for start := strings.IndexByte(cleaned, '{'); start >= 0; {
		if candidate, ok := balancedObject(cleaned[start:]); ok && gjson.Valid(candidate) {
			return candidate, nil
		}
		next := strings.IndexByte(cleaned[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return "", fmt.Errorf("no JSON object found in response")
}

// balancedObject returns the prefix of s up to the brace closing s[0],
// ignoring braces inside JSON strings.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts the JSON object from a reply and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	raw, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}
