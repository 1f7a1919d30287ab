package storage

import (
	"testing"
	"time"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	v := &Visit{RunID: "run1", URL: "https://example.com", Status: StatusFailed, CreatedAt: now}

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"run match", Filter{RunID: "run1"}, true},
		{"run mismatch", Filter{RunID: "run2"}, false},
		{"url mismatch", Filter{URL: "https://other.com"}, false},
		{"status match", Filter{Status: StatusFailed}, true},
		{"status mismatch", Filter{Status: StatusOK}, false},
		{"since past", Filter{Since: &past}, true},
		{"since future", Filter{Since: &future}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(v); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFilter_Page(t *testing.T) {
	mk := func() []*Visit {
		return []*Visit{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	}

	got := Filter{}.Page(mk())
	if len(got) != 3 || got[0].ID != "3" || got[2].ID != "1" {
		t.Errorf("expected newest first, got %v, %v, %v", got[0].ID, got[1].ID, got[2].ID)
	}

	got = Filter{Offset: 1, Limit: 1}.Page(mk())
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("expected [2], got %d items", len(got))
	}

	if got = (Filter{Offset: 5}).Page(mk()); len(got) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(got))
	}
}
