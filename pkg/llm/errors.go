package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/applytrack/applytrack/pkg/models"
)

// ErrorType classifies a provider failure by what the user has to fix.
type ErrorType string

const (
	ErrorTypeEndpoint ErrorType = "endpoint" // Unreachable server, timeouts, 5xx
	ErrorTypeAuth     ErrorType = "auth"     // Missing or rejected API key
	ErrorTypeModel    ErrorType = "model"    // Unknown model
	ErrorTypeEmpty    ErrorType = "empty"    // Provider answered with no text
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error represents a structured provider error with classification.
// Provider errors are never retried here; the caller decides.
type Error struct {
	Type       ErrorType         // Classification of the error
	Provider   models.AIProvider // Provider that failed
	Message    string            // Human-readable message
	Cause      error             // Underlying error
	StatusCode int               // HTTP status code if applicable
	Model      string            // Model name if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, string(e.Provider))
	}
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured provider error.
func NewError(provider models.AIProvider, errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Cause:    cause,
	}
}

// statusPattern finds status codes in messages such as "status code: 404"
// (go-openai) or "Error 400, Message: ..." (genai).
var statusPattern = regexp.MustCompile(`(?i)\b(?:status code:?|error|http)\s*([45]\d\d)\b`)

// statusCode pulls the HTTP status from go-openai errors, falling back to
// the error message.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}

	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// ClassifyError categorizes an error from provider and returns a structured Error.
func ClassifyError(provider models.AIProvider, model string, err error) *Error {
	if err == nil {
		return nil
	}

	// Check if already an *Error
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())
	code := statusCode(err)

	classified := func(errType ErrorType, message string) *Error {
		e := NewError(provider, errType, message, err)
		e.StatusCode = code
		e.Model = model
		return e
	}

	switch {
	case code == 401 || code == 403 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "api key not valid") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "permission_denied"):
		return classified(ErrorTypeAuth, "authentication failed")

	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")):
		return classified(ErrorTypeModel, "model not found")

	case code == 404:
		return classified(ErrorTypeEndpoint, "endpoint not found")

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return classified(ErrorTypeEndpoint, "connection failed")

	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled"):
		return classified(ErrorTypeEndpoint, "request timeout")

	case code == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "resource_exhausted"):
		return classified(ErrorTypeUnknown, "rate limited")

	case code >= 500:
		return classified(ErrorTypeEndpoint, "server error")
	}

	return classified(ErrorTypeUnknown, "request failed")
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

func emptyResponseError(provider models.AIProvider, model string) *Error {
	e := NewError(provider, ErrorTypeEmpty, "provider returned no text", nil)
	e.Model = model
	return e
}
