package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/applytrack/applytrack/pkg/models"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Provider:   models.AIProviderOllama,
		Message:    "server error",
		StatusCode: 503,
		Model:      "llama3.2",
		Cause:      errors.New("boom"),
	}

	result := err.Error()
	for _, want := range []string{"Ollama", "endpoint", "HTTP 503", "model=llama3.2", "server error", "boom"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected error message to contain %q, got: %s", want, result)
		}
	}
}

func TestError_Error_Minimal(t *testing.T) {
	err := &Error{Type: ErrorTypeEmpty, Message: "provider returned no text"}
	if got := err.Error(); got != "empty provider returned no text" {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(models.AIProviderGemini, ErrorTypeUnknown, "failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
	}{
		{"openai 401", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, ErrorTypeAuth, 401},
		{"request error 503", &openai.RequestError{HTTPStatusCode: http.StatusServiceUnavailable, Err: errors.New("unavailable")}, ErrorTypeEndpoint, 503},
		{"gemini bad key", errors.New("Error 400, Message: API key not valid. Please pass a valid API key."), ErrorTypeAuth, 400},
		{"permission denied", errors.New("PERMISSION_DENIED: caller lacks access"), ErrorTypeAuth, 0},
		{"model missing", errors.New(`model "llama9" not found, try pulling it first`), ErrorTypeModel, 0},
		{"model 404", &openai.APIError{HTTPStatusCode: 404, Message: "model 'x' does not exist"}, ErrorTypeModel, 404},
		{"plain 404", &openai.APIError{HTTPStatusCode: 404, Message: "page missing"}, ErrorTypeEndpoint, 404},
		{"refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), ErrorTypeEndpoint, 0},
		{"timeout", fmt.Errorf("wrapped: %w", errors.New("context deadline exceeded")), ErrorTypeEndpoint, 0},
		{"rate limit", errors.New("RESOURCE_EXHAUSTED"), ErrorTypeUnknown, 0},
		{"server 500", &openai.APIError{HTTPStatusCode: 500, Message: "oops"}, ErrorTypeEndpoint, 500},
		{"other", errors.New("something odd"), ErrorTypeUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(models.AIProviderOllama, "llama3.2", tt.err)
			if got.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, got.Type)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got.StatusCode)
			}
			if got.Provider != models.AIProviderOllama {
				t.Errorf("expected provider Ollama, got %s", got.Provider)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected cause to be preserved")
			}
		})
	}
}

func TestClassifyError_NilAndExisting(t *testing.T) {
	if ClassifyError(models.AIProviderOllama, "", nil) != nil {
		t.Error("expected nil for nil error")
	}

	existing := NewError(models.AIProviderGemini, ErrorTypeAuth, "no key", nil)
	wrapped := fmt.Errorf("call: %w", existing)
	if got := ClassifyError(models.AIProviderOllama, "", wrapped); got != existing {
		t.Errorf("expected existing *Error to be returned, got %v", got)
	}
}

func TestGetErrorType(t *testing.T) {
	if got := GetErrorType(emptyResponseError(models.AIProviderOllama, "m")); got != ErrorTypeEmpty {
		t.Errorf("expected empty, got %s", got)
	}
	if got := GetErrorType(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("expected unknown, got %s", got)
	}
}
