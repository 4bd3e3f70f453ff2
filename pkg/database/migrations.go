package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/metrics"
)

// Migration is one named, idempotent schema step. Apply runs inside a
// transaction together with the ledger row that records it.
type Migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// Migrator applies pending migrations in version order. Versions at or below
// the highest recorded in SchemaVersion are skipped. Each step also checks the
// live schema before changing it, so files written before the ledger existed
// converge to the same shape.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewMigrator creates a migrator over the built-in migration list.
func NewMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: Migrations(),
		logger:     logger.Named("migrator"),
	}
}

// SetMetrics enables the applied-migrations counter.
func (m *Migrator) SetMetrics(mt *metrics.Metrics) {
	m.metrics = mt
}

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS SchemaVersion (
	Version   INTEGER PRIMARY KEY,
	Name      TEXT NOT NULL,
	AppliedAt TEXT NOT NULL
)`

// EnsureSchema brings the store to the current schema. It is safe to call on
// a new file, a legacy file, or an up-to-date file; it never drops anything.
func (m *Migrator) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, ledgerDDL); err != nil {
		return wrapWriteError("create schema ledger", err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
		applied++
		current = mig.Version
	}

	// Mirror the version into the file header. This is also the write probe
	// that turns a read-only store into a fatal open error.
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", current)); err != nil {
		return wrapWriteError("stamp schema version", err)
	}

	if applied == 0 {
		m.logger.Info("No migrations to apply (store up-to-date)", zap.Int("version", current))
		return nil
	}

	m.logger.Info("Applied migrations successfully",
		zap.Int("applied", applied),
		zap.Int("version", current))
	return nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteError(fmt.Sprintf("begin migration %d", mig.Version), err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on defer is best-effort

	if err := mig.Apply(ctx, tx); err != nil {
		return wrapWriteError(fmt.Sprintf("migration %d (%s)", mig.Version, mig.Name), err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO SchemaVersion (Version, Name, AppliedAt) VALUES (?, ?, ?)`,
		mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return wrapWriteError(fmt.Sprintf("record migration %d", mig.Version), err)
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteError(fmt.Sprintf("commit migration %d", mig.Version), err)
	}

	m.logger.Info("Applied migration",
		zap.Int("version", mig.Version),
		zap.String("name", mig.Name))
	if m.metrics != nil {
		m.metrics.MigrationApplied()
	}
	return nil
}

// Version returns the highest applied migration version, or 0 for a new store.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(Version), 0) FROM SchemaVersion`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// TableExists reports whether a table is present in the store.
func TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// TableColumns returns the column names of a table in declaration order.
func TableColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	return columns, nil
}

// ColumnExists reports whether table has column. Comparison is case-insensitive
// like SQLite identifiers.
func ColumnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	columns, err := TableColumns(ctx, q, table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if strings.EqualFold(c, column) {
			return true, nil
		}
	}
	return false, nil
}

// columnSpec is a column to add when missing, e.g. {"Status", "TEXT DEFAULT 'Draft'"}.
type columnSpec struct {
	Name string
	Decl string
}

func ensureColumns(ctx context.Context, tx *sql.Tx, table string, columns ...columnSpec) error {
	for _, col := range columns {
		exists, err := ColumnExists(ctx, tx, table, col.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(col.Name), col.Decl)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
