package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/metrics"
	"github.com/applytrack/applytrack/pkg/models"
)

func TestFactory_ForConfig_Ollama(t *testing.T) {
	factory := NewFactory(FactoryConfig{RequestTimeout: time.Second}, zap.NewNop())

	client, err := factory.ForConfig(context.Background(), models.DefaultAIProviderConfig())
	require.NoError(t, err)

	ollama, ok := client.(*OllamaClient)
	require.True(t, ok, "expected *OllamaClient, got %T", client)
	assert.Equal(t, models.DefaultOllamaModel, ollama.Model())
}

func TestFactory_ForConfig_Gemini(t *testing.T) {
	factory := NewFactory(FactoryConfig{}, zap.NewNop())

	cfg := models.DefaultAIProviderConfig()
	cfg.SelectedProvider = models.AIProviderGemini
	cfg.GeminiModel = "gemini-2.0-flash"
	cfg.GeminiAPIKey = "test-key"

	client, err := factory.ForConfig(context.Background(), cfg)
	require.NoError(t, err)

	gemini, ok := client.(*GeminiClient)
	require.True(t, ok, "expected *GeminiClient, got %T", client)
	assert.Equal(t, "gemini-2.0-flash", gemini.Model())
}

func TestFactory_ForConfig_UnknownProvider(t *testing.T) {
	factory := NewFactory(FactoryConfig{}, zap.NewNop())

	cfg := models.DefaultAIProviderConfig()
	cfg.SelectedProvider = "OpenAI"

	_, err := factory.ForConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, apperrors.ErrUnknownProvider)

	_, err = factory.ForConfig(context.Background(), nil)
	assert.Error(t, err)
}

func TestFactory_ForConfig_InvalidOllamaSettings(t *testing.T) {
	factory := NewFactory(FactoryConfig{}, zap.NewNop())

	cfg := models.DefaultAIProviderConfig()
	cfg.OllamaURL = ""

	_, err := factory.ForConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create Ollama client")
}

func TestFactory_ForConfig_CountsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatCompletionBody("Hello"))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	factory := NewFactory(FactoryConfig{Metrics: m}, zap.NewNop())

	cfg := models.DefaultAIProviderConfig()
	cfg.OllamaURL = server.URL

	client, err := factory.ForConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.AIProviderOllama, client.Provider())

	_, err = client.Generate(context.Background(), &Request{Prompt: "hi"})
	require.NoError(t, err)

	gemini := models.DefaultAIProviderConfig()
	gemini.SelectedProvider = models.AIProviderGemini
	failing, err := factory.ForConfig(context.Background(), gemini)
	require.NoError(t, err)
	_, err = failing.Generate(context.Background(), &Request{Prompt: "hi"})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "applytrack_ai_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()

	var streamed string
	text, err := mock.Generate(context.Background(), &Request{Prompt: "x", OnChunk: func(c string) { streamed += c }})
	require.NoError(t, err)
	assert.Equal(t, "mock response", text)
	assert.Equal(t, "mock response", streamed)
	assert.Equal(t, 1, mock.GenerateCalls)
	assert.Equal(t, "x", mock.LastRequest.Prompt)

	mock.GenerateFunc = func(ctx context.Context, req *Request) (string, error) {
		return "", NewError(models.AIProviderOllama, ErrorTypeEmpty, "empty", nil)
	}
	_, err = mock.Generate(context.Background(), &Request{})
	assert.Equal(t, ErrorTypeEmpty, GetErrorType(err))
	assert.Equal(t, 2, mock.GenerateCalls)
}
