package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/models"
)

func TestGeminiClient_MissingKey(t *testing.T) {
	client, err := NewGeminiClient(context.Background(), &GeminiConfig{APIKey: "  "}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGeminiModel, client.Model())
	assert.Equal(t, models.AIProviderGemini, client.Provider())

	_, err = client.Generate(context.Background(), &Request{Prompt: "Write"})
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorTypeAuth, llmErr.Type)
	assert.Equal(t, models.AIProviderGemini, llmErr.Provider)

	_, err = client.ListModels(context.Background())
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
}

func TestGeminiClient_Generate(t *testing.T) {
	var hits atomic.Int32
	var path, requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		path = r.URL.Path
		requestID = r.Header.Get(requestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "Dear team,"}]}, "finishReason": "STOP"}]}`)
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), &GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
	}, zap.NewNop())
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), &Request{Prompt: "Write"})
	require.NoError(t, err)
	assert.Equal(t, "Dear team,", text)
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, strings.HasSuffix(path, "models/gemini-2.0-flash:generateContent"), path)
	assert.NotEmpty(t, requestID)
}
