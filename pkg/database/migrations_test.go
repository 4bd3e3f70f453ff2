package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
)

func openTestStore(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(context.Background(), &Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	return db
}

// openRaw opens the file without running migrations, for building legacy shapes.
func openRaw(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func schemaSnapshot(t *testing.T, q Querier) map[string][]string {
	t.Helper()
	ctx := context.Background()
	snapshot := map[string][]string{}
	for _, table := range []string{"Profiles", "Skills", "Experiences", "EducationHistory", "Applications", "AiSettings", "Templates"} {
		cols, err := TableColumns(ctx, q, table)
		require.NoError(t, err)
		snapshot[table] = cols
	}
	return snapshot
}

func TestOpen_FreshStore(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t, filepath.Join(t.TempDir(), "fresh.db"))
	defer db.Close()

	for _, table := range []string{"Profiles", "Skills", "Experiences", "EducationHistory", "Applications", "AiSettings", "Templates", "SchemaVersion"} {
		exists, err := TableExists(ctx, db, table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	for _, col := range []string{"HtmlLetter", "HtmlCover", "Status", "AppliedAt", "JobSummary", "RawLetterText"} {
		exists, err := ColumnExists(ctx, db, "Applications", col)
		require.NoError(t, err)
		assert.True(t, exists, "column %s should exist", col)
	}
	legacy, err := ColumnExists(ctx, db, "Applications", "GeneratedLetter")
	require.NoError(t, err)
	assert.False(t, legacy)

	hasModel, err := ColumnExists(ctx, db, "AiSettings", "GeminiModel")
	require.NoError(t, err)
	assert.True(t, hasModel)

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations()), version)

	var userVersion int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&userVersion))
	assert.Equal(t, version, userVersion)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first := openTestStore(t, path)
	before := schemaSnapshot(t, first)
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	defer second.Close()
	after := schemaSnapshot(t, second)

	assert.Equal(t, before, after)

	var rows int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM SchemaVersion").Scan(&rows))
	assert.Equal(t, len(Migrations()), rows)
}

func TestMigrations_VersionsAscending(t *testing.T) {
	migrations := Migrations()
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version, "migration %s", migrations[i].Name)
	}
}

func TestOpen_LegacyLetterColumnRenamed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	raw := openRaw(t, path)
	_, err := raw.Exec(`
		CREATE TABLE Applications (
			Id INTEGER PRIMARY KEY AUTOINCREMENT,
			CreatedAt TEXT NOT NULL,
			ContactPerson TEXT,
			Requirements TEXT NOT NULL DEFAULT '[]',
			Benefits TEXT NOT NULL DEFAULT '[]',
			GeneratedLetter TEXT
		);
		INSERT INTO Applications (CreatedAt, GeneratedLetter) VALUES ('2023-05-01 10:00:00', '<p>Dear team</p>');
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db := openTestStore(t, path)
	defer db.Close()

	legacy, err := ColumnExists(ctx, db, "Applications", "GeneratedLetter")
	require.NoError(t, err)
	assert.False(t, legacy)

	var letter, status sql.NullString
	require.NoError(t, db.QueryRowContext(ctx, "SELECT HtmlLetter, Status FROM Applications").Scan(&letter, &status))
	assert.Equal(t, "<p>Dear team</p>", letter.String)
	assert.Equal(t, "Draft", status.String)

	// Columns missing from the legacy table are added.
	for _, col := range []string{"Street", "ZipCode", "JobTitle", "StatusChangedAt", "HtmlAttachments"} {
		exists, err := ColumnExists(ctx, db, "Applications", col)
		require.NoError(t, err)
		assert.True(t, exists, "column %s should exist", col)
	}
}

func TestOpen_LegacyBothLetterColumnsKept(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "both.db")

	raw := openRaw(t, path)
	_, err := raw.Exec(`
		CREATE TABLE Applications (
			Id INTEGER PRIMARY KEY AUTOINCREMENT,
			CreatedAt TEXT NOT NULL,
			Requirements TEXT NOT NULL DEFAULT '[]',
			Benefits TEXT NOT NULL DEFAULT '[]',
			GeneratedLetter TEXT,
			HtmlLetter TEXT
		);
		INSERT INTO Applications (CreatedAt, GeneratedLetter, HtmlLetter) VALUES ('2023-05-01 10:00:00', 'old', 'new');
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db := openTestStore(t, path)
	defer db.Close()

	var oldLetter, newLetter string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT GeneratedLetter, HtmlLetter FROM Applications").Scan(&oldLetter, &newLetter))
	assert.Equal(t, "old", oldLetter)
	assert.Equal(t, "new", newLetter)
}

func TestOpen_PartiallyMigratedWithoutLedger(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "partial.db")

	raw := openRaw(t, path)
	_, err := raw.Exec(`
		CREATE TABLE AiSettings (
			Id INTEGER PRIMARY KEY AUTOINCREMENT,
			SelectedProvider TEXT NOT NULL DEFAULT 'Ollama',
			OllamaUrl TEXT NOT NULL DEFAULT 'http://localhost:11434',
			DefaultOllamaModel TEXT NOT NULL DEFAULT 'llama3.2',
			GeminiApiKey TEXT NOT NULL DEFAULT '',
			Temperature REAL NOT NULL DEFAULT 0.7,
			GeminiModel TEXT DEFAULT 'gemini-2.0-flash'
		);
		INSERT INTO AiSettings (SelectedProvider) VALUES ('Gemini');
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db := openTestStore(t, path)
	defer db.Close()

	var provider, model string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT SelectedProvider, GeminiModel FROM AiSettings").Scan(&provider, &model))
	assert.Equal(t, "Gemini", provider)
	assert.Equal(t, "gemini-2.0-flash", model)
}

func TestOpen_LegacyProfileTablesGainColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy-profile.db")

	raw := openRaw(t, path)
	_, err := raw.Exec(`
		CREATE TABLE Profiles (Id INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT, Title TEXT, Email TEXT, Phone TEXT, Location TEXT, Website TEXT);
		CREATE TABLE Skills (Id INTEGER PRIMARY KEY AUTOINCREMENT, ProfileId INTEGER, Name TEXT);
		CREATE TABLE Experiences (Id INTEGER PRIMARY KEY AUTOINCREMENT, ProfileId INTEGER, Company TEXT);
		CREATE TABLE EducationHistory (Id INTEGER PRIMARY KEY AUTOINCREMENT, ProfileId INTEGER, School TEXT);
		CREATE TABLE Templates (Id INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT);
		INSERT INTO Profiles (Name) VALUES ('Alex');
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db := openTestStore(t, path)
	defer db.Close()

	fresh := openTestStore(t, filepath.Join(t.TempDir(), "fresh.db"))
	defer fresh.Close()

	want := schemaSnapshot(t, fresh)
	got := schemaSnapshot(t, db)
	for _, table := range []string{"Profiles", "Skills", "Experiences", "EducationHistory", "Templates"} {
		assert.ElementsMatch(t, want[table], got[table], table)
	}

	_, err = db.ExecContext(ctx, `UPDATE Profiles SET ProfilePictureBase64 = 'data:', Competences = '["Go"]'`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO Skills (ProfileId, Name, Level) VALUES (1, 'Go', 'Expert')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO Templates (Name, HtmlDeckblatt, HtmlAnschreiben, HtmlLebenslauf, CustomCss) VALUES ('t', '', '', '', '')`)
	require.NoError(t, err)

	var name, picture, competences string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT Name, ProfilePictureBase64, Competences FROM Profiles`).Scan(&name, &picture, &competences))
	assert.Equal(t, "Alex", name)
	assert.Equal(t, "data:", picture)
	assert.Equal(t, `["Go"]`, competences)
}

func TestEnsureSchema_StepErrorIsFatal(t *testing.T) {
	ctx := context.Background()
	raw := openRaw(t, filepath.Join(t.TempDir(), "broken.db"))

	boom := errors.New("boom")
	m := NewMigrator(raw, zap.NewNop())
	m.migrations = []Migration{
		{Version: 1, Name: "ok", Apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS Ok (Id INTEGER)")
			return err
		}},
		{Version: 2, Name: "fails", Apply: func(context.Context, *sql.Tx) error { return boom }},
		{Version: 3, Name: "never", Apply: func(context.Context, *sql.Tx) error {
			t.Fatal("step after a failure must not run")
			return nil
		}},
	}

	err := m.EnsureSchema(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migration 2 (fails)")

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestOpen_ReadOnlyStore(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ro.db")
	db := openTestStore(t, path)
	require.NoError(t, db.Close())

	require.NoError(t, os.Chmod(path, 0o444))
	t.Cleanup(func() { os.Chmod(path, 0o644) }) //nolint:errcheck

	_, err := Open(context.Background(), &Config{Path: path}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreReadOnly)
}

func TestOpen_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does", "not", "exist", "store.db")

	_, err := Open(context.Background(), &Config{Path: path}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreReadOnly)
}

func TestOpen_PathWithURIDelimiters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "my store?v=1#draft 100%.db")

	db := openTestStore(t, path)
	_, err := db.ExecContext(ctx, `INSERT INTO Templates (Name) VALUES ('kept')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "store must be created at the literal path")

	reopened := openTestStore(t, path)
	defer reopened.Close()
	var name string
	require.NoError(t, reopened.QueryRowContext(ctx, `SELECT Name FROM Templates`).Scan(&name))
	assert.Equal(t, "kept", name)
}

func TestDSN_EscapesPath(t *testing.T) {
	got := dsn(&Config{Path: "/data/a?b#c.db"})
	assert.True(t, strings.HasPrefix(got, "file:/data/a%3Fb%23c.db?"), got)
	assert.Contains(t, got, "_foreign_keys=on")
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), &Config{}, zap.NewNop())
	require.Error(t, err)
}
