package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/llm"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/repositories"
)

// AIConfigService defines the interface for AI provider settings.
type AIConfigService interface {
	// Get returns the stored settings, creating defaults on first use.
	Get(ctx context.Context) (*models.AIProviderConfig, error)

	// Save validates and stores the settings.
	Save(ctx context.Context, config *models.AIProviderConfig) error

	// Client returns a client for the currently selected provider.
	Client(ctx context.Context) (llm.Client, error)

	// ListModels lists the models of the currently selected provider.
	ListModels(ctx context.Context) ([]string, error)
}

type aiConfigService struct {
	repo    repositories.AIConfigRepository
	factory llm.ClientFactory
	logger  *zap.Logger
}

// NewAIConfigService creates a new AI config service with dependencies.
func NewAIConfigService(
	repo repositories.AIConfigRepository,
	factory llm.ClientFactory,
	logger *zap.Logger,
) AIConfigService {
	return &aiConfigService{
		repo:    repo,
		factory: factory,
		logger:  logger.Named("ai_config"),
	}
}

var _ AIConfigService = (*aiConfigService)(nil)

func (s *aiConfigService) Get(ctx context.Context) (*models.AIProviderConfig, error) {
	return s.repo.Get(ctx)
}

func (s *aiConfigService) Save(ctx context.Context, cfg *models.AIProviderConfig) error {
	if err := validateAIConfig(cfg); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, cfg); err != nil {
		return err
	}

	s.logger.Info("AI config saved",
		zap.String("provider", string(cfg.SelectedProvider)),
		zap.String("gemini_api_key", models.MaskedAPIKey(cfg.GeminiAPIKey)),
	)
	return nil
}

func validateAIConfig(cfg *models.AIProviderConfig) error {
	if cfg == nil {
		return fmt.Errorf("ai config is nil")
	}

	switch cfg.SelectedProvider {
	case models.AIProviderOllama:
		if cfg.DefaultOllamaModel == "" {
			return fmt.Errorf("default Ollama model is required")
		}
		u, err := url.Parse(cfg.OllamaURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid Ollama url %q", cfg.OllamaURL)
		}
	case models.AIProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return fmt.Errorf("gemini API key is required")
		}
	default:
		return fmt.Errorf("provider %q: %w", cfg.SelectedProvider, apperrors.ErrUnknownProvider)
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", cfg.Temperature)
	}
	return nil
}

func (s *aiConfigService) Client(ctx context.Context) (llm.Client, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ai config: %w", err)
	}
	client, err := s.factory.ForConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create ai client: %w", err)
	}
	return client, nil
}

func (s *aiConfigService) ListModels(ctx context.Context) ([]string, error) {
	client, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListModels(ctx)
}
