package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
)

func sampleVisits(now time.Time) []*storage.Visit {
	return []*storage.Visit{
		{
			RunID:      "run-a",
			URL:        "https://a.example/",
			Status:     storage.StatusOK,
			Records:    4,
			TextLength: 300,
			Duration:   500 * time.Millisecond,
			CreatedAt:  now,
		},
		{
			RunID:        "run-a",
			URL:          "https://b.example/",
			Status:       storage.StatusBlocked,
			TextLength:   20,
			Duration:     time.Second,
			CreatedAt:    now.Add(time.Second),
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
			Error:        "bot challenge page",
		},
		{
			RunID:     "run-b",
			URL:       "https://c.example/<script>",
			Status:    storage.StatusFailed,
			Duration:  500 * time.Millisecond,
			CreatedAt: now.Add(2 * time.Second),
			Error:     "timeout",
		},
	}
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(sampleVisits(time.Now()))

	if summary.TotalVisits != 3 || summary.Runs != 2 {
		t.Errorf("expected 3 visits over 2 runs, got %d over %d", summary.TotalVisits, summary.Runs)
	}
	if summary.ByStatus[storage.StatusOK] != 1 || summary.ByStatus[storage.StatusBlocked] != 1 || summary.ByStatus[storage.StatusFailed] != 1 {
		t.Errorf("unexpected status counts %v", summary.ByStatus)
	}
	if summary.TotalRecords != 4 {
		t.Errorf("expected 4 records, got %d", summary.TotalRecords)
	}
	if summary.TotalDetections != 1 || summary.DetectionsBySrc["Cloudflare"] != 1 {
		t.Errorf("expected 1 Cloudflare detection, got %v", summary.DetectionsBySrc)
	}
	if summary.TotalTextBytes != 320 {
		t.Errorf("expected 320 text bytes, got %d", summary.TotalTextBytes)
	}
	if summary.VisitTime != 2*time.Second {
		t.Errorf("expected 2s visit time, got %v", summary.VisitTime)
	}
	// Last visit starts at +2s and lasts 500ms.
	if summary.Duration != 2500*time.Millisecond {
		t.Errorf("expected 2.5s duration, got %v", summary.Duration)
	}
	if len(summary.Failures) != 2 || summary.Failures[0].URL != "https://b.example/" {
		t.Errorf("unexpected failures %+v", summary.Failures)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.TotalVisits != 0 || summary.ByStatus == nil || summary.DetectionsBySrc == nil {
		t.Errorf("unexpected empty summary %+v", summary)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "JSON", "html"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Summary{TotalVisits: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"total_visits": 5`) {
		t.Errorf("expected JSON to contain total_visits: 5, got %s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	summary := GenerateSummary(sampleVisits(time.Now()))

	var buf bytes.Buffer
	if err := Write(&buf, FormatText, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Pages:         3 visited", "Records:       4", "ok: 1", "Cloudflare: 1", "[failed] https://c.example/<script>: timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q:\n%s", want, out)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	summary := GenerateSummary(sampleVisits(time.Now()))

	var buf bytes.Buffer
	if err := Write(&buf, FormatHTML, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>qaharvest report</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, "Cloudflare") {
		t.Errorf("expected HTML to contain Cloudflare")
	}
	if strings.Contains(out, "c.example/<script>") {
		t.Errorf("expected URLs to be escaped")
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("pdf"), Summary{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
