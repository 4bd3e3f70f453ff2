package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/metrics"
	"github.com/applytrack/applytrack/pkg/models"
)

// ClientFactory is the interface for creating provider clients.
// Use this interface for dependency injection and testing.
type ClientFactory interface {
	ForConfig(ctx context.Context, cfg *models.AIProviderConfig) (Client, error)
}

// FactoryConfig holds settings shared by every client the factory creates.
type FactoryConfig struct {
	RequestTimeout time.Duration // Zero means no timeout
	GeminiBaseURL  string        // Optional endpoint override
	Metrics        *metrics.Metrics
}

// Factory creates provider clients from the stored AI settings.
type Factory struct {
	httpClient    *http.Client
	geminiBaseURL string
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

var _ ClientFactory = (*Factory)(nil)

// NewFactory creates a new factory.
func NewFactory(cfg FactoryConfig, logger *zap.Logger) *Factory {
	return &Factory{
		httpClient:    NewHTTPClient(cfg.RequestTimeout),
		geminiBaseURL: cfg.GeminiBaseURL,
		metrics:       cfg.Metrics,
		logger:        logger,
	}
}

// ForConfig creates the client for cfg.SelectedProvider.
func (f *Factory) ForConfig(ctx context.Context, cfg *models.AIProviderConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ai config is nil")
	}

	var (
		client Client
		err    error
	)
	switch cfg.SelectedProvider {
	case models.AIProviderOllama:
		client, err = NewOllamaClient(&OllamaConfig{
			URL:         cfg.OllamaURL,
			Model:       cfg.DefaultOllamaModel,
			Temperature: cfg.Temperature,
			HTTPClient:  f.httpClient,
		}, f.logger)
	case models.AIProviderGemini:
		client, err = NewGeminiClient(ctx, &GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			BaseURL:     f.geminiBaseURL,
			HTTPClient:  f.httpClient,
		}, f.logger)
	default:
		return nil, fmt.Errorf("provider %q: %w", cfg.SelectedProvider, apperrors.ErrUnknownProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.SelectedProvider, err)
	}

	if f.metrics == nil {
		return client, nil
	}
	return &instrumentedClient{Client: client, metrics: f.metrics}, nil
}

// instrumentedClient counts every provider call.
type instrumentedClient struct {
	Client
	metrics *metrics.Metrics
}

func (c *instrumentedClient) Generate(ctx context.Context, req *Request) (string, error) {
	text, err := c.Client.Generate(ctx, req)
	c.metrics.AIRequest(string(c.Provider()), err)
	return text, err
}
