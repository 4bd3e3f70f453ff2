package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/metrics"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/render"
	"github.com/applytrack/applytrack/pkg/repositories"
)

// Template part labels used in metrics and file names.
const (
	PartCover  = "cover"
	PartLetter = "letter"
	PartResume = "resume"
)

// RenderedDocuments holds the rendered parts of one template for one application.
type RenderedDocuments struct {
	TemplateID    int64
	ApplicationID int64
	CoverPage     string
	CoverLetter   string
	Resume        string
	CSS           string
}

// HTML returns a standalone page with all three parts and the stylesheet.
func (d *RenderedDocuments) HTML() string {
	return "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>\n" + d.CSS + "\n</style>\n</head>\n<body>\n" +
		"<section class=\"cover\">\n" + d.CoverPage + "\n</section>\n" +
		"<section class=\"letter\">\n" + d.CoverLetter + "\n</section>\n" +
		"<section class=\"resume\">\n" + d.Resume + "\n</section>\n" +
		"</body>\n</html>\n"
}

// DocumentService renders templates against the stored profile and an application.
type DocumentService interface {
	// RenderApplication renders every part of the template. The profile may be
	// absent, in which case personal placeholders use their fallbacks.
	RenderApplication(ctx context.Context, templateID, applicationID int64) (*RenderedDocuments, error)

	// ApplyTemplate renders like RenderApplication and stores the result on
	// the application record.
	ApplyTemplate(ctx context.Context, templateID, applicationID int64) (*RenderedDocuments, error)
}

type documentService struct {
	templates    repositories.TemplateRepository
	profiles     repositories.ProfileRepository
	applications repositories.ApplicationRepository
	renderer     render.Renderer
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewDocumentService creates a new document service. m may be nil.
func NewDocumentService(
	templates repositories.TemplateRepository,
	profiles repositories.ProfileRepository,
	applications repositories.ApplicationRepository,
	renderer render.Renderer,
	m *metrics.Metrics,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		templates:    templates,
		profiles:     profiles,
		applications: applications,
		renderer:     renderer,
		metrics:      m,
		logger:       logger.Named("documents"),
	}
}

var _ DocumentService = (*documentService)(nil)

func (s *documentService) RenderApplication(ctx context.Context, templateID, applicationID int64) (*RenderedDocuments, error) {
	docs, _, err := s.render(ctx, templateID, applicationID)
	return docs, err
}

func (s *documentService) render(ctx context.Context, templateID, applicationID int64) (*RenderedDocuments, *models.ApplicationRecord, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, nil, fmt.Errorf("get template: %w", err)
	}
	app, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return nil, nil, fmt.Errorf("get application: %w", err)
	}
	profile, err := s.profiles.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}

	docs := &RenderedDocuments{
		TemplateID:    templateID,
		ApplicationID: applicationID,
		CoverPage:     s.renderPart(PartCover, tmpl.HtmlCoverPage, profile, app),
		CoverLetter:   s.renderPart(PartLetter, tmpl.HtmlCoverLetter, profile, app),
		Resume:        s.renderPart(PartResume, tmpl.HtmlResume, profile, app),
		CSS:           tmpl.CustomCSS,
	}

	s.logger.Debug("Rendered template",
		zap.Int64("template_id", templateID),
		zap.Int64("application_id", applicationID),
		zap.Bool("profile", profile != nil))
	return docs, app, nil
}

func (s *documentService) renderPart(part, tmpl string, profile *models.ResumeProfile, app *models.ApplicationRecord) string {
	out := s.renderer.Render(tmpl, profile, app)
	s.metrics.DocumentRendered(part)
	return out
}

func (s *documentService) ApplyTemplate(ctx context.Context, templateID, applicationID int64) (*RenderedDocuments, error) {
	docs, app, err := s.render(ctx, templateID, applicationID)
	if err != nil {
		return nil, err
	}

	app.HtmlCover = models.StringPtr(docs.CoverPage)
	app.HtmlLetter = models.StringPtr(docs.CoverLetter)
	app.HtmlResume = models.StringPtr(docs.Resume)
	app.AppliedCss = models.StringPtr(docs.CSS)

	if err := s.applications.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("store rendered documents: %w", err)
	}

	s.logger.Info("Applied template",
		zap.Int64("template_id", templateID),
		zap.Int64("application_id", applicationID))
	return docs, nil
}
