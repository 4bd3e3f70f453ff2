package database

import (
	"context"
	"database/sql"
	"fmt"
)

// baseSchema is the oldest shape of the store. Later migrations extend it;
// running it against an existing file is a no-op.
const baseSchema = `
CREATE TABLE IF NOT EXISTS Profiles (
	Id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	Name                 TEXT NOT NULL DEFAULT '',
	Title                TEXT NOT NULL DEFAULT '',
	Email                TEXT NOT NULL DEFAULT '',
	Phone                TEXT NOT NULL DEFAULT '',
	Location             TEXT NOT NULL DEFAULT '',
	Website              TEXT NOT NULL DEFAULT '',
	ProfilePictureBase64 TEXT NOT NULL DEFAULT '',
	Competences          TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS Skills (
	Id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ProfileId INTEGER NOT NULL REFERENCES Profiles(Id) ON DELETE CASCADE,
	Name      TEXT NOT NULL DEFAULT '',
	Level     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS Experiences (
	Id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ProfileId   INTEGER NOT NULL REFERENCES Profiles(Id) ON DELETE CASCADE,
	Company     TEXT NOT NULL DEFAULT '',
	Period      TEXT NOT NULL DEFAULT '',
	Role        TEXT NOT NULL DEFAULT '',
	Description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS EducationHistory (
	Id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ProfileId INTEGER NOT NULL REFERENCES Profiles(Id) ON DELETE CASCADE,
	School    TEXT NOT NULL DEFAULT '',
	Period    TEXT NOT NULL DEFAULT '',
	Degree    TEXT NOT NULL DEFAULT '',
	Notes     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS Applications (
	Id              INTEGER PRIMARY KEY AUTOINCREMENT,
	CreatedAt       TEXT NOT NULL,
	ContactPerson   TEXT,
	Street          TEXT,
	ZipCode         TEXT,
	City            TEXT,
	FullAddress     TEXT,
	Requirements    TEXT NOT NULL DEFAULT '[]',
	Benefits        TEXT NOT NULL DEFAULT '[]',
	GeneratedLetter TEXT
);

CREATE TABLE IF NOT EXISTS AiSettings (
	Id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	SelectedProvider   TEXT NOT NULL DEFAULT 'Ollama',
	OllamaUrl          TEXT NOT NULL DEFAULT 'http://localhost:11434',
	DefaultOllamaModel TEXT NOT NULL DEFAULT 'llama3.2',
	GeminiApiKey       TEXT NOT NULL DEFAULT '',
	Temperature        REAL NOT NULL DEFAULT 0.7
);
`

const templatesDDL = `
CREATE TABLE IF NOT EXISTS Templates (
	Id              INTEGER PRIMARY KEY AUTOINCREMENT,
	Name            TEXT,
	HtmlDeckblatt   TEXT,
	HtmlAnschreiben TEXT,
	HtmlLebenslauf  TEXT,
	CustomCss       TEXT
)`

const indexesDDL = `
CREATE INDEX IF NOT EXISTS IX_Applications_CreatedAt ON Applications(CreatedAt);
CREATE INDEX IF NOT EXISTS IX_Skills_ProfileId ON Skills(ProfileId);
CREATE INDEX IF NOT EXISTS IX_Experiences_ProfileId ON Experiences(ProfileId);
CREATE INDEX IF NOT EXISTS IX_EducationHistory_ProfileId ON EducationHistory(ProfileId);
`

// Migrations returns the ordered migration list. Append only: never edit or
// reorder a released step.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "base_tables",
			Apply:   createBaseTables,
		},
		{
			Version: 2,
			Name:    "rename_generated_letter",
			Apply:   renameGeneratedLetter,
		},
		{
			Version: 3,
			Name:    "application_documents",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				return ensureColumns(ctx, tx, "Applications",
					columnSpec{"HtmlCover", "TEXT"},
					columnSpec{"HtmlResume", "TEXT"},
					columnSpec{"HtmlAttachments", "TEXT"},
					columnSpec{"AppliedCss", "TEXT"},
					columnSpec{"RawLetterText", "TEXT"},
				)
			},
		},
		{
			Version: 4,
			Name:    "application_listing",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				return ensureColumns(ctx, tx, "Applications",
					columnSpec{"JobTitle", "TEXT"},
					columnSpec{"Company", "TEXT"},
					columnSpec{"Status", "TEXT DEFAULT 'Draft'"},
					columnSpec{"SalaryInfo", "TEXT"},
					columnSpec{"WorkTimeModel", "TEXT"},
					columnSpec{"FullJobDescription", "TEXT"},
				)
			},
		},
		{
			Version: 5,
			Name:    "application_timeline",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				return ensureColumns(ctx, tx, "Applications",
					columnSpec{"AppliedAt", "TEXT"},
					columnSpec{"StatusChangedAt", "TEXT"},
					columnSpec{"JobSummary", "TEXT"},
				)
			},
		},
		{
			Version: 6,
			Name:    "ai_settings_gemini_model",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				return ensureColumns(ctx, tx, "AiSettings",
					columnSpec{"GeminiModel", "TEXT DEFAULT 'gemini-1.5-flash'"},
				)
			},
		},
		{
			Version: 7,
			Name:    "templates",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, templatesDDL); err != nil {
					return err
				}
				return ensureColumns(ctx, tx, "Templates", templateColumns...)
			},
		},
		{
			Version: 8,
			Name:    "indexes",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, indexesDDL)
				return err
			},
		},
	}
}

// Columns added to base tables that predate them. ADD COLUMN cannot carry
// NOT NULL without a default, so legacy-added keys stay nullable.
var baseColumns = []struct {
	table   string
	columns []columnSpec
}{
	{"Profiles", []columnSpec{
		{"Name", "TEXT NOT NULL DEFAULT ''"},
		{"Title", "TEXT NOT NULL DEFAULT ''"},
		{"Email", "TEXT NOT NULL DEFAULT ''"},
		{"Phone", "TEXT NOT NULL DEFAULT ''"},
		{"Location", "TEXT NOT NULL DEFAULT ''"},
		{"Website", "TEXT NOT NULL DEFAULT ''"},
		{"ProfilePictureBase64", "TEXT NOT NULL DEFAULT ''"},
		{"Competences", "TEXT NOT NULL DEFAULT '[]'"},
	}},
	{"Skills", []columnSpec{
		{"ProfileId", "INTEGER REFERENCES Profiles(Id) ON DELETE CASCADE"},
		{"Name", "TEXT NOT NULL DEFAULT ''"},
		{"Level", "TEXT NOT NULL DEFAULT ''"},
	}},
	{"Experiences", []columnSpec{
		{"ProfileId", "INTEGER REFERENCES Profiles(Id) ON DELETE CASCADE"},
		{"Company", "TEXT NOT NULL DEFAULT ''"},
		{"Period", "TEXT NOT NULL DEFAULT ''"},
		{"Role", "TEXT NOT NULL DEFAULT ''"},
		{"Description", "TEXT NOT NULL DEFAULT ''"},
	}},
	{"EducationHistory", []columnSpec{
		{"ProfileId", "INTEGER REFERENCES Profiles(Id) ON DELETE CASCADE"},
		{"School", "TEXT NOT NULL DEFAULT ''"},
		{"Period", "TEXT NOT NULL DEFAULT ''"},
		{"Degree", "TEXT NOT NULL DEFAULT ''"},
		{"Notes", "TEXT NOT NULL DEFAULT ''"},
	}},
	{"Applications", []columnSpec{
		{"CreatedAt", "TEXT"},
		{"ContactPerson", "TEXT"},
		{"Street", "TEXT"},
		{"ZipCode", "TEXT"},
		{"City", "TEXT"},
		{"FullAddress", "TEXT"},
		{"Requirements", "TEXT NOT NULL DEFAULT '[]'"},
		{"Benefits", "TEXT NOT NULL DEFAULT '[]'"},
	}},
	{"AiSettings", []columnSpec{
		{"SelectedProvider", "TEXT NOT NULL DEFAULT 'Ollama'"},
		{"OllamaUrl", "TEXT NOT NULL DEFAULT 'http://localhost:11434'"},
		{"DefaultOllamaModel", "TEXT NOT NULL DEFAULT 'llama3.2'"},
		{"GeminiApiKey", "TEXT NOT NULL DEFAULT ''"},
		{"Temperature", "REAL NOT NULL DEFAULT 0.7"},
	}},
}

var templateColumns = []columnSpec{
	{"Name", "TEXT"},
	{"HtmlDeckblatt", "TEXT"},
	{"HtmlAnschreiben", "TEXT"},
	{"HtmlLebenslauf", "TEXT"},
	{"CustomCss", "TEXT"},
}

// createBaseTables creates missing tables and fills in base columns that
// older tables may lack.
func createBaseTables(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, baseSchema); err != nil {
		return err
	}
	for _, t := range baseColumns {
		if err := ensureColumns(ctx, tx, t.table, t.columns...); err != nil {
			return err
		}
	}
	return nil
}

// renameGeneratedLetter moves the legacy letter column to HtmlLetter. When the
// legacy column is gone, or both exist, it only makes sure HtmlLetter exists.
func renameGeneratedLetter(ctx context.Context, tx *sql.Tx) error {
	hasLegacy, err := ColumnExists(ctx, tx, "Applications", "GeneratedLetter")
	if err != nil {
		return err
	}
	hasTarget, err := ColumnExists(ctx, tx, "Applications", "HtmlLetter")
	if err != nil {
		return err
	}

	if hasLegacy && !hasTarget {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE Applications RENAME COLUMN GeneratedLetter TO HtmlLetter`); err != nil {
			return fmt.Errorf("rename GeneratedLetter: %w", err)
		}
		return nil
	}

	return ensureColumns(ctx, tx, "Applications", columnSpec{"HtmlLetter", "TEXT"})
}
