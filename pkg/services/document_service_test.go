package services

import (
	"context"
	"strings"
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
	"github.com/applytrack/applytrack/pkg/render"
)

func fixedRenderer() render.Renderer {
	return render.Renderer{Now: func() time.Time { return time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC) }}
}

func seedDocuments(t *testing.T, tc *serviceTestContext) (templateID, applicationID int64) {
	t.Helper()
	ctx := context.Background()

	templateID, err := tc.templates.Upsert(ctx, &models.HtmlTemplate{
		Name:            "Plain",
		HtmlCoverPage:   "<h1>{{Name}}</h1><p>{{JobTitle}} at {{Company}}</p>",
		HtmlCoverLetter: "<p>{{City}}, {{Date}}</p><p>{{LetterText}}</p>",
		HtmlResume:      "{{CV_Experience}}{{Skills_Content}}",
		CustomCSS:       "h1 { color: navy; }",
	})
	require.NoError(t, err)

	applicationID, err = tc.applications.Create(ctx, &models.ApplicationRecord{
		JobTitle:      "Platform Engineer",
		Company:       "Globex",
		City:          models.StringPtr("Berlin"),
		RawLetterText: models.StringPtr("I would like to apply."),
	})
	require.NoError(t, err)
	return templateID, applicationID
}

func TestDocumentService_RenderApplication(t *testing.T) {
	ctx := context.Background()
	tc := setupServiceTest(t)
	templateID, applicationID := seedDocuments(t, tc)

	require.NoError(t, tc.profiles.Save(ctx, &models.ResumeProfile{
		Personal:    models.PersonalData{Name: "Alex Example"},
		Skills:      []models.Skill{{Name: "Go", Level: "Expert"}},
		Experiences: []models.Experience{{Company: "Acme", Role: "Engineer", Period: "2020"}},
	}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	service := NewDocumentService(tc.templates, tc.profiles, tc.applications, fixedRenderer(), m, zap.NewNop())

	docs, err := service.RenderApplication(ctx, templateID, applicationID)
	require.NoError(t, err)

	assert.Equal(t, "<h1>Alex Example</h1><p>Platform Engineer at Globex</p>", docs.CoverPage)
	assert.Equal(t, "<p>Berlin, 17.05.2024</p><p>I would like to apply.</p>", docs.CoverLetter)
	assert.Contains(t, docs.Resume, "Acme")
	assert.Contains(t, docs.Resume, "Go")
	assert.Equal(t, "h1 { color: navy; }", docs.CSS)

	count, err := testutil.GatherAndCount(reg, "applytrack_render_documents_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Rendering does not modify the record.
	app, err := tc.applications.Get(ctx, applicationID)
	require.NoError(t, err)
	assert.Equal(t, "", models.Text(app.HtmlCover))
}

func TestDocumentService_RenderWithoutProfile(t *testing.T) {
	ctx := context.Background()
	tc := setupServiceTest(t)
	templateID, applicationID := seedDocuments(t, tc)
	service := NewDocumentService(tc.templates, tc.profiles, tc.applications, fixedRenderer(), nil, zap.NewNop())

	docs, err := service.RenderApplication(ctx, templateID, applicationID)
	require.NoError(t, err)

	assert.Equal(t, "<h1>Name</h1><p>Platform Engineer at Globex</p>", docs.CoverPage)
	assert.Equal(t, render.NoExperience+render.NoSkills, docs.Resume)
}

func TestDocumentService_ApplyTemplate(t *testing.T) {
	ctx := context.Background()
	tc := setupServiceTest(t)
	templateID, applicationID := seedDocuments(t, tc)
	service := NewDocumentService(tc.templates, tc.profiles, tc.applications, fixedRenderer(), nil, zap.NewNop())

	docs, err := service.ApplyTemplate(ctx, templateID, applicationID)
	require.NoError(t, err)

	app, err := tc.applications.Get(ctx, applicationID)
	require.NoError(t, err)
	assert.Equal(t, docs.CoverPage, models.Text(app.HtmlCover))
	assert.Equal(t, docs.CoverLetter, models.Text(app.HtmlLetter))
	assert.Equal(t, docs.Resume, models.Text(app.HtmlResume))
	assert.Equal(t, "h1 { color: navy; }", models.Text(app.AppliedCss))
	assert.Equal(t, "I would like to apply.", models.Text(app.RawLetterText))
}

func TestDocumentService_NotFound(t *testing.T) {
	ctx := context.Background()
	tc := setupServiceTest(t)
	templateID, applicationID := seedDocuments(t, tc)
	service := NewDocumentService(tc.templates, tc.profiles, tc.applications, fixedRenderer(), nil, zap.NewNop())

	_, err := service.RenderApplication(ctx, templateID+10, applicationID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = service.ApplyTemplate(ctx, templateID, applicationID+10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRenderedDocuments_HTML(t *testing.T) {
	docs := &RenderedDocuments{CoverPage: "<h1>A</h1>", CoverLetter: "<p>B</p>", Resume: "<p>C</p>", CSS: "p {}"}
	html := docs.HTML()

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<style>\np {}\n</style>")
	assert.Less(t, strings.Index(html, "<h1>A</h1>"), strings.Index(html, "<p>B</p>"))
	assert.Less(t, strings.Index(html, "<p>B</p>"), strings.Index(html, "<p>C</p>"))
}
