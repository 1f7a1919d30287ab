package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/FranksOps/qaharvest/internal/storage/storagetest"
)

func TestSQLiteBackend(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "visits.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	storagetest.Run(t, b)
}

func TestSQLiteBackend_DuplicateID(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "dup.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	v := &storage.Visit{ID: "same", RunID: "r", URL: "https://example.com", Status: storage.StatusOK}
	if err := b.Save(ctx, v); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := b.Save(ctx, v); err == nil {
		t.Errorf("Expected primary key violation on duplicate ID")
	}
}
