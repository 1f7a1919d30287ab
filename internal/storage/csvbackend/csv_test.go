package csvbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/FranksOps/qaharvest/internal/storage/storagetest"
)

func TestCSVBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "visits.csv")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}
	defer b.Close()

	storagetest.Run(t, b)
}

func TestCSVBackend_HeaderWrittenOnce(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "visits.csv")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		b, err := New(filePath)
		if err != nil {
			t.Fatalf("Failed to open CSV backend: %v", err)
		}
		if err := b.Save(ctx, &storage.Visit{ID: "x", URL: "https://example.com", Status: storage.StatusOK}); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		b.Close()
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if n := strings.Count(string(data), "run_id"); n != 1 {
		t.Errorf("Expected header once, found %d times", n)
	}
}

func TestCSVBackend_Empty(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "empty.csv"))
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}
	defer b.Close()

	got, err := b.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no visits, got %d", len(got))
	}
}
