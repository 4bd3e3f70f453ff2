package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/models"
)

// TemplateRepository defines the interface for HTML document templates.
// Column names are the legacy German ones; fields are mapped to English names.
type TemplateRepository interface {
	List(ctx context.Context) ([]*models.HtmlTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.HtmlTemplate, error)
	// Upsert inserts when ID is zero, otherwise updates. Returns the template id.
	Upsert(ctx context.Context, tmpl *models.HtmlTemplate) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type templateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *database.DB) TemplateRepository {
	return &templateRepository{db: db}
}

var _ TemplateRepository = (*templateRepository)(nil)

const selectTemplate = `
	SELECT Id, COALESCE(Name, ''), COALESCE(HtmlDeckblatt, ''), COALESCE(HtmlAnschreiben, ''),
	       COALESCE(HtmlLebenslauf, ''), COALESCE(CustomCss, '')
	FROM Templates`

func scanTemplate(row rowScanner) (*models.HtmlTemplate, error) {
	var t models.HtmlTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.HtmlCoverPage, &t.HtmlCoverLetter, &t.HtmlResume, &t.CustomCSS); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*models.HtmlTemplate, error) {
	rows, err := r.db.QueryContext(ctx, selectTemplate+` ORDER BY Id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.HtmlTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.HtmlTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, selectTemplate+` WHERE Id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("query template: %w", err)
	}
	return t, nil
}

func (r *templateRepository) Upsert(ctx context.Context, tmpl *models.HtmlTemplate) (int64, error) {
	if tmpl == nil {
		return 0, fmt.Errorf("upsert template: template is nil")
	}

	if tmpl.ID == 0 {
		id, err := insertRow(ctx, r.db, `
			INSERT INTO Templates (Name, HtmlDeckblatt, HtmlAnschreiben, HtmlLebenslauf, CustomCss)
			VALUES (?, ?, ?, ?, ?)`,
			tmpl.Name, tmpl.HtmlCoverPage, tmpl.HtmlCoverLetter, tmpl.HtmlResume, tmpl.CustomCSS)
		if err != nil {
			return 0, fmt.Errorf("insert template: %w", err)
		}
		tmpl.ID = id
		return id, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE Templates
		SET Name = ?, HtmlDeckblatt = ?, HtmlAnschreiben = ?, HtmlLebenslauf = ?, CustomCss = ?
		WHERE Id = ?`,
		tmpl.Name, tmpl.HtmlCoverPage, tmpl.HtmlCoverLetter, tmpl.HtmlResume, tmpl.CustomCSS, tmpl.ID)
	if err != nil {
		return 0, fmt.Errorf("update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update template: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("template %d: %w", tmpl.ID, apperrors.ErrNotFound)
	}
	return tmpl.ID, nil
}

func (r *templateRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM Templates WHERE Id = ?`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
