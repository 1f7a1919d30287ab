package storage

import (
	"context"
	"time"
)

// Status is the outcome of a single page visit.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"  // navigation, timeout or text read error
	StatusBlocked Status = "blocked" // bot protection challenge page
	StatusSkipped Status = "skipped" // disallowed by robots.txt
)

// Visit records what happened when one result URL was harvested.
type Visit struct {
	ID           string        `json:"id"`
	RunID        string        `json:"run_id"`
	URL          string        `json:"url"`
	Status       Status        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Records      int           `json:"records"`
	TextLength   int           `json:"text_length"`
	Duration     time.Duration `json:"duration"`
	DetectedBot  bool          `json:"detected_bot"`
	DetectionSrc string        `json:"detection_src,omitempty"` // e.g. "Cloudflare", "Google"
	CreatedAt    time.Time     `json:"created_at"`
}

// Filter allows querying for specific Visits.
type Filter struct {
	RunID  string
	URL    string
	Status Status
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether v passes every non-zero field of f except paging.
func (f Filter) Match(v *Visit) bool {
	if f.RunID != "" && v.RunID != f.RunID {
		return false
	}
	if f.URL != "" && v.URL != f.URL {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Since != nil && v.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies newest-first ordering, Offset and Limit to visits that are in
// insertion (oldest-first) order. File backends use it after filtering in memory.
func (f Filter) Page(visits []*Visit) []*Visit {
	for i, j := 0, len(visits)-1; i < j; i, j = i+1, j-1 {
		visits[i], visits[j] = visits[j], visits[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(visits) {
			return []*Visit{}
		}
		visits = visits[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(visits) {
		visits = visits[:f.Limit]
	}
	return visits
}

// Backend stores visit audit records across runs.
type Backend interface {
	Save(ctx context.Context, v *Visit) error
	Query(ctx context.Context, filter Filter) ([]*Visit, error)
	Close() error
}
