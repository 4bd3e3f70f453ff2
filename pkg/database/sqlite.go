// Package database opens the local SQLite store and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/apperrors"
	"github.com/applytrack/applytrack/pkg/metrics"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// DB wraps the single-writer connection to the store file.
type DB struct {
	*sql.DB
	Path string
}

// Config holds store configuration.
type Config struct {
	Path        string
	BusyTimeout time.Duration
	Metrics     *metrics.Metrics // Optional
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the store file and brings its schema up to
// date. No repository may use the store before Open returns successfully.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	sqlDB, err := sql.Open(DriverName, dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// One local writer; a single connection also keeps per-connection pragmas stable.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, wrapWriteError("open store "+cfg.Path, err)
	}

	migrator := NewMigrator(sqlDB, logger)
	if cfg.Metrics != nil {
		migrator.SetMetrics(cfg.Metrics)
	}
	if err := migrator.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{DB: sqlDB, Path: cfg.Path}, nil
}

// SchemaVersion returns the highest migration version recorded in the store.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return NewMigrator(db.DB, zap.NewNop()).Version(ctx)
}

func dsn(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy == 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", fmt.Sprintf("%d", busy.Milliseconds()))
	params.Set("_txlock", "immediate")

	// SQLite decodes %XX in URI paths; '?' and '#' in the path must not
	// reach it raw.
	path := (&url.URL{Path: cfg.Path}).EscapedPath()
	return "file:" + path + "?" + params.Encode()
}

// isReadOnly reports whether err is SQLite refusing a write to the file.
func isReadOnly(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrReadonly || sqliteErr.Code == sqlite3.ErrCantOpen
	}
	return false
}

func wrapWriteError(op string, err error) error {
	if isReadOnly(err) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrStoreReadOnly, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
