// Package storagetest holds the behavior every storage.Backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
)

// Run saves a small fixed set of visits into b and checks filtering, ordering
// and paging. b must be empty.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	visits := []*storage.Visit{
		{
			ID:         "v1",
			RunID:      "run-a",
			URL:        "https://example.com/one",
			Status:     storage.StatusOK,
			Records:    12,
			TextLength: 4096,
			Duration:   1500 * time.Millisecond,
			CreatedAt:  now.Add(-3 * time.Hour),
		},
		{
			ID:           "v2",
			RunID:        "run-a",
			URL:          "https://example.com/two",
			Status:       storage.StatusBlocked,
			Duration:     200 * time.Millisecond,
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
			CreatedAt:    now.Add(-2 * time.Hour),
		},
		{
			ID:        "v3",
			RunID:     "run-b",
			URL:       "https://example.com/three",
			Status:    storage.StatusFailed,
			Error:     "navigate: context deadline exceeded",
			Duration:  30 * time.Second,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	for _, v := range visits {
		if err := b.Save(ctx, v); err != nil {
			t.Fatalf("Failed to save visit %s: %v", v.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 visits, got %d", len(all))
	}
	if all[0].ID != "v3" || all[2].ID != "v1" {
		t.Errorf("Expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}

	first := all[2]
	if first.URL != "https://example.com/one" || first.Records != 12 || first.TextLength != 4096 {
		t.Errorf("Round trip mismatch: %+v", first)
	}
	if first.Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", first.Duration)
	}
	if !first.CreatedAt.Equal(now.Add(-3 * time.Hour)) {
		t.Errorf("Expected created_at %v, got %v", now.Add(-3*time.Hour), first.CreatedAt)
	}

	byRun, err := b.Query(ctx, storage.Filter{RunID: "run-a"})
	if err != nil {
		t.Fatalf("Failed to query by run: %v", err)
	}
	if len(byRun) != 2 {
		t.Fatalf("Expected 2 visits for run-a, got %d", len(byRun))
	}

	blocked, err := b.Query(ctx, storage.Filter{Status: storage.StatusBlocked})
	if err != nil {
		t.Fatalf("Failed to query by status: %v", err)
	}
	if len(blocked) != 1 || !blocked[0].DetectedBot || blocked[0].DetectionSrc != "Cloudflare" {
		t.Fatalf("Unexpected blocked visits: %+v", blocked)
	}

	failed, err := b.Query(ctx, storage.Filter{URL: "https://example.com/three"})
	if err != nil {
		t.Fatalf("Failed to query by URL: %v", err)
	}
	if len(failed) != 1 || failed[0].Error == "" {
		t.Fatalf("Expected the failed visit with its error, got %+v", failed)
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query by since: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "v3" {
		t.Fatalf("Expected only v3 since %v, got %d visits", since, len(recent))
	}

	paged, err := b.Query(ctx, storage.Filter{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query page: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "v2" {
		t.Fatalf("Expected [v2] for offset 1 limit 1, got %d visits", len(paged))
	}
}
