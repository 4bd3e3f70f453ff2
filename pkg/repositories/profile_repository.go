package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/pkg/codec"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/models"
)

// ProfileRepository defines the interface for the singleton résumé profile.
// The profile and its skills, experiences and education are one aggregate:
// Save replaces all children in a single transaction.
type ProfileRepository interface {
	// Load returns the stored profile with all children, or nil, nil if none exists.
	Load(ctx context.Context) (*models.ResumeProfile, error)

	// Save creates the profile or overwrites the existing one, replacing every
	// child collection. The stored profile id is kept and written back onto
	// profile, together with the ids of the new child rows.
	Save(ctx context.Context, profile *models.ResumeProfile) error
}

type profileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *database.DB) ProfileRepository {
	return &profileRepository{db: db}
}

var _ ProfileRepository = (*profileRepository)(nil)

const profileColumns = `Id, COALESCE(Name, ''), COALESCE(Title, ''), COALESCE(Email, ''),
	COALESCE(Phone, ''), COALESCE(Location, ''), COALESCE(Website, ''),
	COALESCE(ProfilePictureBase64, ''), COALESCE(Competences, '[]')`

func (r *profileRepository) Load(ctx context.Context) (*models.ResumeProfile, error) {
	var (
		profile     models.ResumeProfile
		competences string
	)
	p := &profile.Personal
	err := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM Profiles ORDER BY Id LIMIT 1`).
		Scan(&profile.ID, &p.Name, &p.Title, &p.Email, &p.Phone, &p.Location, &p.Website,
			&p.ProfilePictureData, &competences)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.ID = profile.ID
	profile.Competences = codec.DecodeList(competences)

	if profile.Skills, err = r.loadSkills(ctx, profile.ID); err != nil {
		return nil, err
	}
	if profile.Experiences, err = r.loadExperiences(ctx, profile.ID); err != nil {
		return nil, err
	}
	if profile.EducationHistory, err = r.loadEducation(ctx, profile.ID); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) loadSkills(ctx context.Context, profileID int64) ([]models.Skill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT Id, COALESCE(Name, ''), COALESCE(Level, '') FROM Skills WHERE ProfileId = ? ORDER BY Id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	skills := []models.Skill{}
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Level); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}
	return skills, nil
}

func (r *profileRepository) loadExperiences(ctx context.Context, profileID int64) ([]models.Experience, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT Id, COALESCE(Company, ''), COALESCE(Period, ''), COALESCE(Role, ''), COALESCE(Description, '')
		 FROM Experiences WHERE ProfileId = ? ORDER BY Id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query experiences: %w", err)
	}
	defer rows.Close()

	experiences := []models.Experience{}
	for rows.Next() {
		var e models.Experience
		if err := rows.Scan(&e.ID, &e.Company, &e.Period, &e.Role, &e.Description); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		experiences = append(experiences, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiences: %w", err)
	}
	return experiences, nil
}

func (r *profileRepository) loadEducation(ctx context.Context, profileID int64) ([]models.Education, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT Id, COALESCE(School, ''), COALESCE(Period, ''), COALESCE(Degree, ''), COALESCE(Notes, '')
		 FROM EducationHistory WHERE ProfileId = ? ORDER BY Id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query education: %w", err)
	}
	defer rows.Close()

	education := []models.Education{}
	for rows.Next() {
		var e models.Education
		if err := rows.Scan(&e.ID, &e.School, &e.Period, &e.Degree, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		education = append(education, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate education: %w", err)
	}
	return education, nil
}

// savedIDs collects ids assigned inside the transaction. They are copied onto
// the caller's profile only after commit, so a failed save leaves it untouched.
type savedIDs struct {
	profile     int64
	skills      []int64
	experiences []int64
	education   []int64
}

func (r *profileRepository) Save(ctx context.Context, profile *models.ResumeProfile) error {
	if profile == nil {
		return fmt.Errorf("save profile: profile is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on defer is best-effort

	var ids savedIDs
	if ids.profile, err = upsertProfileRow(ctx, tx, profile); err != nil {
		return err
	}

	for _, table := range []string{"Skills", "Experiences", "EducationHistory"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE ProfileId = ?`, ids.profile); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, s := range profile.Skills {
		id, err := insertRow(ctx, tx, `INSERT INTO Skills (ProfileId, Name, Level) VALUES (?, ?, ?)`,
			ids.profile, s.Name, s.Level)
		if err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
		ids.skills = append(ids.skills, id)
	}

	for _, e := range profile.Experiences {
		id, err := insertRow(ctx, tx,
			`INSERT INTO Experiences (ProfileId, Company, Period, Role, Description) VALUES (?, ?, ?, ?, ?)`,
			ids.profile, e.Company, e.Period, e.Role, e.Description)
		if err != nil {
			return fmt.Errorf("insert experience: %w", err)
		}
		ids.experiences = append(ids.experiences, id)
	}

	for _, e := range profile.EducationHistory {
		id, err := insertRow(ctx, tx,
			`INSERT INTO EducationHistory (ProfileId, School, Period, Degree, Notes) VALUES (?, ?, ?, ?, ?)`,
			ids.profile, e.School, e.Period, e.Degree, e.Notes)
		if err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
		ids.education = append(ids.education, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	profile.ID = ids.profile
	profile.Personal.ID = ids.profile
	for i := range profile.Skills {
		profile.Skills[i].ID = ids.skills[i]
	}
	for i := range profile.Experiences {
		profile.Experiences[i].ID = ids.experiences[i]
	}
	for i := range profile.EducationHistory {
		profile.EducationHistory[i].ID = ids.education[i]
	}
	return nil
}

// upsertProfileRow updates the existing profile row in place, or inserts the
// first one. The incoming profile id is ignored.
func upsertProfileRow(ctx context.Context, tx *sql.Tx, profile *models.ResumeProfile) (int64, error) {
	p := profile.Personal
	competences := codec.EncodeList(profile.Competences)

	var existingID int64
	err := tx.QueryRowContext(ctx, `SELECT Id FROM Profiles ORDER BY Id LIMIT 1`).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := insertRow(ctx, tx, `
			INSERT INTO Profiles (Name, Title, Email, Phone, Location, Website, ProfilePictureBase64, Competences)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Title, p.Email, p.Phone, p.Location, p.Website, p.ProfilePictureData, competences)
		if err != nil {
			return 0, fmt.Errorf("insert profile: %w", err)
		}
		return id, nil
	case err != nil:
		return 0, fmt.Errorf("query profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE Profiles
		SET Name = ?, Title = ?, Email = ?, Phone = ?, Location = ?, Website = ?,
		    ProfilePictureBase64 = ?, Competences = ?
		WHERE Id = ?`,
		p.Name, p.Title, p.Email, p.Phone, p.Location, p.Website, p.ProfilePictureData, competences, existingID)
	if err != nil {
		return 0, fmt.Errorf("update profile: %w", err)
	}
	return existingID, nil
}

func insertRow(ctx context.Context, q database.Querier, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
