package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/llm"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/prompts"
	"github.com/applytrack/applytrack/pkg/render"
	"github.com/applytrack/applytrack/pkg/repositories"
)

// TemplateDesignService creates templates from screenshots of existing documents.
type TemplateDesignService interface {
	// DesignFromImage asks the AI provider to recreate the design shown in
	// image and stores the result as a new template.
	DesignFromImage(ctx context.Context, image []byte, hint string) (*models.HtmlTemplate, error)
}

type templateDesignService struct {
	aiConfig  AIConfigService
	templates repositories.TemplateRepository
	logger    *zap.Logger
}

// NewTemplateDesignService creates a new template design service.
func NewTemplateDesignService(aiConfig AIConfigService, templates repositories.TemplateRepository, logger *zap.Logger) TemplateDesignService {
	return &templateDesignService{
		aiConfig:  aiConfig,
		templates: templates,
		logger:    logger.Named("template_design"),
	}
}

var _ TemplateDesignService = (*templateDesignService)(nil)

func (s *templateDesignService) DesignFromImage(ctx context.Context, image []byte, hint string) (*models.HtmlTemplate, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unsupported image type %q", mimeType)
	}

	client, err := s.aiConfig.Client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := client.Generate(ctx, &llm.Request{
		Prompt: prompts.BuildTemplateDesignPrompt(render.Tokens(), hint),
		Image:  &llm.InlineImage{Data: image, MIMEType: mimeType},
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate template design: %w", err)
	}

	design, err := llm.ParseJSONResponse[prompts.TemplateDesignResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("parse template design: %w", err)
	}

	tmpl := models.NewHtmlTemplate()
	if name := strings.TrimSpace(design.Name); name != "" {
		tmpl.Name = name
	}
	tmpl.HtmlCoverPage = design.HtmlCoverPage
	tmpl.HtmlCoverLetter = design.HtmlCoverLetter
	tmpl.HtmlResume = design.HtmlResume
	tmpl.CustomCSS = design.CustomCSS

	if _, err := s.templates.Upsert(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}

	s.logger.Info("Created template from image",
		zap.Int64("template_id", tmpl.ID),
		zap.String("provider", string(client.Provider())),
		zap.String("mime_type", mimeType))
	return tmpl, nil
}
