package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/llm"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/prompts"
	"github.com/applytrack/applytrack/pkg/repositories"
)

// LetterService drafts cover letters with the configured AI provider.
type LetterService interface {
	// GenerateLetter drafts the letter body for an application and stores it
	// as RawLetterText. onChunk is optional; when set the draft is streamed.
	GenerateLetter(ctx context.Context, applicationID int64, onChunk func(string)) (string, error)
}

type letterService struct {
	aiConfig     AIConfigService
	profiles     repositories.ProfileRepository
	applications repositories.ApplicationRepository
	logger       *zap.Logger
}

// NewLetterService creates a new letter service.
func NewLetterService(
	aiConfig AIConfigService,
	profiles repositories.ProfileRepository,
	applications repositories.ApplicationRepository,
	logger *zap.Logger,
) LetterService {
	return &letterService{
		aiConfig:     aiConfig,
		profiles:     profiles,
		applications: applications,
		logger:       logger.Named("letters"),
	}
}

var _ LetterService = (*letterService)(nil)

func (s *letterService) GenerateLetter(ctx context.Context, applicationID int64, onChunk func(string)) (string, error) {
	app, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return "", fmt.Errorf("get application: %w", err)
	}
	profile, err := s.profiles.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}

	client, err := s.aiConfig.Client(ctx)
	if err != nil {
		return "", err
	}

	raw, err := client.Generate(ctx, &llm.Request{
		Prompt:  prompts.BuildCoverLetterPrompt(profile, app),
		OnChunk: onChunk,
	})
	if err != nil {
		return "", fmt.Errorf("generate letter: %w", err)
	}

	letter := llm.CleanText(raw)
	app.RawLetterText = models.StringPtr(letter)
	if err := s.applications.Update(ctx, app); err != nil {
		return "", fmt.Errorf("store letter: %w", err)
	}

	s.logger.Info("Generated cover letter",
		zap.Int64("application_id", applicationID),
		zap.String("provider", string(client.Provider())),
		zap.Int("letter_len", len(letter)))
	return letter, nil
}
