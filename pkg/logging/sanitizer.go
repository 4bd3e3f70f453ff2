package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxPromptLogLength is the maximum length of a prompt excerpt to log
	MaxPromptLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Query parameter API keys, as used by the Gemini REST endpoints (?key=AIza...)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Header-style API keys that end up in wrapped transport errors
	headerKeyPattern = regexp.MustCompile(`(?i)(x-goog-api-key|authorization):\s*\S+`)

	// Bearer tokens
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	// user:pass@host in endpoint URLs
	userInfoPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`)
)

// SanitizeURL removes embedded credentials from an endpoint URL before logging.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	sanitized := userInfoPattern.ReplaceAllString(rawURL, "://"+RedactedText+"@")
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error returned by an AI provider.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := apiKeyPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = headerKeyPattern.ReplaceAllString(sanitized, "${1}: "+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = userInfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")

	return sanitized
}

// TruncateString truncates s to maxLen runes and adds an ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
