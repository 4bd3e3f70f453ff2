// Package testhelpers provides fixtures shared by package tests.
package testhelpers

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/database"
)

// NewStore opens a fresh, fully migrated store in a temporary directory.
// The store is closed when the test finishes.
func NewStore(t *testing.T) *database.DB {
	t.Helper()
	return OpenStore(t, filepath.Join(t.TempDir(), "applytrack-test.db"))
}

// OpenStore opens (and migrates) the store file at path. Use it to reopen a
// store created earlier in the same test.
func OpenStore(t *testing.T, path string) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), &database.Config{Path: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
