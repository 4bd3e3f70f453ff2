package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/codec"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/models"
)

// ApplicationRepository defines the interface for job application records.
type ApplicationRepository interface {
	// Upsert inserts the record when its ID is zero and updates it otherwise.
	// Returns the record id. Updating an id that does not exist returns apperrors.ErrNotFound.
	Upsert(ctx context.Context, app *models.ApplicationRecord) (int64, error)

	// Create inserts a new record regardless of its ID.
	Create(ctx context.Context, app *models.ApplicationRecord) (int64, error)

	// Update overwrites the record with app.ID.
	Update(ctx context.Context, app *models.ApplicationRecord) error

	// Get returns the record or apperrors.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.ApplicationRecord, error)

	// List returns all records, most recently created first.
	List(ctx context.Context) ([]*models.ApplicationRecord, error)

	// Delete removes the record. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id int64) error
}

type applicationRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewApplicationRepository creates a new application repository.
func NewApplicationRepository(db *database.DB) ApplicationRepository {
	return &applicationRepository{db: db, now: time.Now}
}

var _ ApplicationRepository = (*applicationRepository)(nil)

// timestampLayout is fixed width so stored values sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// legacyTimestampLayouts are zone-less formats written by earlier versions,
// interpreted in local time.
var legacyTimestampLayouts = []string{
	"2006-01-02 15:04:05.9999999",
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}

// parseTimestamp accepts RFC 3339 and the legacy zone-less formats. Returns
// false for blank or unrecognised text.
func parseTimestamp(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return t.UTC(), true
	}
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseOptionalTimestamp(text sql.NullString) *time.Time {
	if !text.Valid {
		return nil
	}
	t, ok := parseTimestamp(text.String)
	if !ok {
		return nil
	}
	return &t
}

// Optional text columns in the order returned by ApplicationRecord.OptionalText.
var optionalTextColumns = []string{
	"ContactPerson",
	"Street",
	"ZipCode",
	"City",
	"FullAddress",
	"SalaryInfo",
	"WorkTimeModel",
	"FullJobDescription",
	"JobSummary",
	"HtmlCover",
	"HtmlLetter",
	"HtmlResume",
	"HtmlAttachments",
	"AppliedCss",
	"RawLetterText",
}

// writeColumns are set on insert and update, in bind order.
var writeColumns = append([]string{
	"CreatedAt", "AppliedAt", "StatusChangedAt", "Status", "JobTitle", "Company",
	"Requirements", "Benefits",
}, optionalTextColumns...)

var selectApplication = func() string {
	cols := []string{
		"Id", "CreatedAt", "AppliedAt", "StatusChangedAt",
		"COALESCE(Status, '')", "COALESCE(JobTitle, '')", "COALESCE(Company, '')",
		"COALESCE(Requirements, '[]')", "COALESCE(Benefits, '[]')",
	}
	for _, c := range optionalTextColumns {
		cols = append(cols, "COALESCE("+c+", '')")
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM Applications"
}()

// normalize fills defaults so nothing nil or empty reaches the store.
func (r *applicationRepository) normalize(app *models.ApplicationRecord) {
	for _, field := range app.OptionalText() {
		if *field == nil {
			*field = models.StringPtr("")
		}
	}
	if app.Status == "" {
		app.Status = models.StatusDraft
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = r.now()
	}
}

func writeArgs(app *models.ApplicationRecord) []any {
	args := []any{
		formatTimestamp(app.CreatedAt),
		formatOptionalTimestamp(app.AppliedAt),
		formatOptionalTimestamp(app.StatusChangedAt),
		string(app.Status),
		app.JobTitle,
		app.Company,
		codec.EncodeList(app.Requirements),
		codec.EncodeList(app.Benefits),
	}
	for _, field := range app.OptionalText() {
		args = append(args, models.Text(*field))
	}
	return args
}

func (r *applicationRepository) Upsert(ctx context.Context, app *models.ApplicationRecord) (int64, error) {
	if app == nil {
		return 0, fmt.Errorf("upsert application: record is nil")
	}
	if app.ID == 0 {
		return r.Create(ctx, app)
	}
	if err := r.Update(ctx, app); err != nil {
		return 0, err
	}
	return app.ID, nil
}

func (r *applicationRepository) Create(ctx context.Context, app *models.ApplicationRecord) (int64, error) {
	if app == nil {
		return 0, fmt.Errorf("create application: record is nil")
	}
	r.normalize(app)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(writeColumns)), ", ")
	query := "INSERT INTO Applications (" + strings.Join(writeColumns, ", ") + ") VALUES (" + placeholders + ")"

	id, err := insertRow(ctx, r.db, query, writeArgs(app)...)
	if err != nil {
		return 0, fmt.Errorf("insert application: %w", err)
	}
	app.ID = id
	return id, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *models.ApplicationRecord) error {
	if app == nil {
		return fmt.Errorf("update application: record is nil")
	}
	r.normalize(app)

	sets := make([]string, len(writeColumns))
	for i, c := range writeColumns {
		sets[i] = c + " = ?"
	}
	query := "UPDATE Applications SET " + strings.Join(sets, ", ") + " WHERE Id = ?"

	result, err := r.db.ExecContext(ctx, query, append(writeArgs(app), app.ID)...)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %d: %w", app.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *applicationRepository) Get(ctx context.Context, id int64) (*models.ApplicationRecord, error) {
	row := r.db.QueryRowContext(ctx, selectApplication+" WHERE Id = ?", id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("query application: %w", err)
	}
	return app, nil
}

func (r *applicationRepository) List(ctx context.Context) ([]*models.ApplicationRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectApplication+" ORDER BY Id DESC")
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.ApplicationRecord{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	// Legacy rows mix timestamp formats, so order on the parsed value.
	// Rows arrive by id descending and the sort is stable, which breaks ties.
	slices.SortStableFunc(apps, func(a, b *models.ApplicationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return apps, nil
}

func (r *applicationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM Applications WHERE Id = ?`, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.ApplicationRecord, error) {
	var (
		app                        models.ApplicationRecord
		createdAt                  sql.NullString
		appliedAt, statusChangedAt sql.NullString
		status                     string
		requirements, benefits     string
	)

	optional := make([]string, len(optionalTextColumns))
	dest := []any{
		&app.ID, &createdAt, &appliedAt, &statusChangedAt,
		&status, &app.JobTitle, &app.Company, &requirements, &benefits,
	}
	for i := range optional {
		dest = append(dest, &optional[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if t, ok := parseTimestamp(createdAt.String); ok {
		app.CreatedAt = t
	}
	app.AppliedAt = parseOptionalTimestamp(appliedAt)
	app.StatusChangedAt = parseOptionalTimestamp(statusChangedAt)

	app.Status = models.ApplicationStatus(status)
	if app.Status == "" {
		app.Status = models.StatusDraft
	}
	app.Requirements = codec.DecodeList(requirements)
	app.Benefits = codec.DecodeList(benefits)

	for i, field := range app.OptionalText() {
		*field = models.StringPtr(optional[i])
	}
	return &app, nil
}
