package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/crypto"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/llm"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/repositories"
	"github.com/applytrack/applytrack/pkg/testhelpers"
)

// serviceTestContext holds a migrated store and the repositories over it.
type serviceTestContext struct {
	db           *database.DB
	profiles     repositories.ProfileRepository
	applications repositories.ApplicationRepository
	templates    repositories.TemplateRepository
	aiRepo       repositories.AIConfigRepository
	client       *llm.MockClient
	factory      *llm.MockClientFactory
	aiConfig     AIConfigService
}

func setupServiceTest(t *testing.T) *serviceTestContext {
	t.Helper()

	db := testhelpers.NewStore(t)
	client := llm.NewMockClient()
	factory := &llm.MockClientFactory{Client: client}
	aiRepo := repositories.NewAIConfigRepository(db, nil)

	return &serviceTestContext{
		db:           db,
		profiles:     repositories.NewProfileRepository(db),
		applications: repositories.NewApplicationRepository(db),
		templates:    repositories.NewTemplateRepository(db),
		aiRepo:       aiRepo,
		client:       client,
		factory:      factory,
		aiConfig:     NewAIConfigService(aiRepo, factory, zap.NewNop()),
	}
}

func TestAIConfigService_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.NewStore(t)
	enc, err := crypto.NewSecretEncryptor("service-test-key")
	require.NoError(t, err)
	service := NewAIConfigService(repositories.NewAIConfigRepository(db, enc), &llm.MockClientFactory{}, zap.NewNop())

	defaults, err := service.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AIProviderOllama, defaults.SelectedProvider)

	cfg := models.DefaultAIProviderConfig()
	cfg.SelectedProvider = models.AIProviderGemini
	cfg.GeminiAPIKey = "AIzaSyServiceTest"
	cfg.Temperature = 1.2
	require.NoError(t, service.Save(ctx, cfg))

	got, err := service.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AIProviderGemini, got.SelectedProvider)
	assert.Equal(t, "AIzaSyServiceTest", got.GeminiAPIKey)
	assert.InDelta(t, 1.2, got.Temperature, 1e-9)
}

func TestAIConfigService_SaveValidation(t *testing.T) {
	tc := setupServiceTest(t)

	tests := []struct {
		name   string
		modify func(cfg *models.AIProviderConfig)
		target error
	}{
		{"unknown provider", func(cfg *models.AIProviderConfig) { cfg.SelectedProvider = "OpenAI" }, apperrors.ErrUnknownProvider},
		{"gemini without key", func(cfg *models.AIProviderConfig) { cfg.SelectedProvider = models.AIProviderGemini }, nil},
		{"ollama without model", func(cfg *models.AIProviderConfig) { cfg.DefaultOllamaModel = "" }, nil},
		{"ollama bad url", func(cfg *models.AIProviderConfig) { cfg.OllamaURL = "localhost:11434" }, nil},
		{"ollama empty url", func(cfg *models.AIProviderConfig) { cfg.OllamaURL = "" }, nil},
		{"temperature too high", func(cfg *models.AIProviderConfig) { cfg.Temperature = 2.5 }, nil},
		{"temperature negative", func(cfg *models.AIProviderConfig) { cfg.Temperature = -0.1 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultAIProviderConfig()
			tt.modify(cfg)

			err := tc.aiConfig.Save(context.Background(), cfg)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	assert.Error(t, tc.aiConfig.Save(context.Background(), nil))

	// Nothing invalid was stored.
	got, err := tc.aiConfig.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAIProviderConfig().OllamaURL, got.OllamaURL)
}

func TestAIConfigService_ClientUsesStoredConfig(t *testing.T) {
	tc := setupServiceTest(t)
	ctx := context.Background()

	cfg := models.DefaultAIProviderConfig()
	cfg.DefaultOllamaModel = "mistral"
	require.NoError(t, tc.aiConfig.Save(ctx, cfg))

	client, err := tc.aiConfig.Client(ctx)
	require.NoError(t, err)
	assert.Same(t, tc.client, client)
	require.NotNil(t, tc.factory.LastConfig)
	assert.Equal(t, "mistral", tc.factory.LastConfig.DefaultOllamaModel)
}

func TestAIConfigService_ListModels(t *testing.T) {
	tc := setupServiceTest(t)
	tc.client.ListModelsFunc = func(ctx context.Context) ([]string, error) {
		return []string{"llama3.2", "mistral"}, nil
	}

	names, err := tc.aiConfig.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "mistral"}, names)
	assert.Equal(t, 1, tc.client.ListModelsCalls)
}

func TestAIConfigService_FactoryError(t *testing.T) {
	tc := setupServiceTest(t)
	tc.factory.Err = errors.New("no provider")

	_, err := tc.aiConfig.ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create ai client")
}
