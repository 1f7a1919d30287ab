package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/FranksOps/qaharvest/internal/bypass"
	"github.com/FranksOps/qaharvest/internal/qa"
	"github.com/FranksOps/qaharvest/internal/storage"
)

type fakePage struct {
	text string
	err  error
}

type fakeSource struct {
	pages   map[string]fakePage
	visited []string
	onVisit func(url string)
}

func (f *fakeSource) PageText(ctx context.Context, url string) (string, error) {
	f.visited = append(f.visited, url)
	if f.onVisit != nil {
		f.onVisit(url)
	}
	p, ok := f.pages[url]
	if !ok {
		return "", errors.New("navigation timeout")
	}
	return p.text, p.err
}

type memBackend struct {
	mu     sync.Mutex
	visits []*storage.Visit
}

func (m *memBackend) Save(ctx context.Context, v *storage.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits = append(m.visits, v)
	return nil
}

func (m *memBackend) Query(ctx context.Context, f storage.Filter) ([]*storage.Visit, error) {
	return nil, nil
}

func (m *memBackend) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const goodPage = "What is X?\nX is a thing. Used widely.\nWhat is Y?\nY is quite unrelated."

func TestHarvester_RunContinuesPastFailures(t *testing.T) {
	src := &fakeSource{pages: map[string]fakePage{
		"https://a.example/": {text: goodPage},
		"https://c.example/": {text: "Why would anyone ask this?\nBecause it comes up in every single interview."},
	}}
	backend := &memBackend{}

	h := NewHarvester(HarvestConfig{RunID: "run-1", Variant: qa.VariantPairs, Backend: backend}, src, quietLogger())
	urls := []string{"https://a.example/", "https://b.example/", "https://c.example/"}

	results, err := h.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, u := range urls {
		if src.visited[i] != u || results[i].Visit.URL != u {
			t.Errorf("result %d out of order: visited %s, result %s", i, src.visited[i], results[i].Visit.URL)
		}
		if results[i].Visit.RunID != "run-1" || results[i].Visit.ID == "" {
			t.Errorf("result %d missing ids: %+v", i, results[i].Visit)
		}
	}

	if results[0].Visit.Status != storage.StatusOK || len(results[0].Records) != 2 || results[0].Visit.Records != 2 {
		t.Errorf("unexpected first result: %+v %+v", results[0].Visit, results[0].Records)
	}
	if results[0].Records[0].Source != "https://a.example/" {
		t.Errorf("records must carry their source url, got %q", results[0].Records[0].Source)
	}
	if results[1].Visit.Status != storage.StatusFailed || results[1].Visit.Error == "" || len(results[1].Records) != 0 {
		t.Errorf("expected failed visit, got %+v", results[1].Visit)
	}
	if results[2].Visit.Status != storage.StatusOK || len(results[2].Records) != 1 {
		t.Errorf("expected the run to continue after a failure, got %+v", results[2].Visit)
	}
	if len(backend.visits) != 3 {
		t.Errorf("expected 3 saved visits, got %d", len(backend.visits))
	}
}

func TestHarvester_QuestionsVariant(t *testing.T) {
	src := &fakeSource{pages: map[string]fakePage{"https://j.example/": {text: goodPage}}}
	h := NewHarvester(HarvestConfig{Variant: qa.VariantQuestions}, src, quietLogger())

	results, _ := h.Run(context.Background(), []string{"https://j.example/"})
	// Neither question is longer than 10 characters.
	if len(results) != 1 || len(results[0].Records) != 0 {
		t.Fatalf("unexpected results: %+v", results)
	}

	src.pages["https://j.example/"] = fakePage{text: "How does the HashMap work internally?\nIt hashes keys into buckets."}
	results, _ = h.Run(context.Background(), []string{"https://j.example/"})
	if len(results[0].Records) != 1 || results[0].Records[0].Answer != "" {
		t.Errorf("expected one question-only record, got %+v", results[0].Records)
	}
}

func TestHarvester_DetectsChallengeText(t *testing.T) {
	src := &fakeSource{pages: map[string]fakePage{
		"https://www.google.com/sorry/index": {text: "Our systems have detected unusual traffic from your computer network. What is this?"},
	}}
	h := NewHarvester(HarvestConfig{}, src, quietLogger())

	results, _ := h.Run(context.Background(), []string{"https://www.google.com/sorry/index"})
	v := results[0].Visit
	if v.Status != storage.StatusBlocked || !v.DetectedBot || v.DetectionSrc != "Google" {
		t.Errorf("expected blocked visit detected as Google, got %+v", v)
	}
	if len(results[0].Records) != 0 {
		t.Errorf("challenge pages must not produce records")
	}
}

func TestHarvester_PageMentioningChallengeKeepsRecords(t *testing.T) {
	const page = "What is an HTTP 403 Access Denied error?\nThe server refuses the request. CDNs show a Reference # you can quote to support when this happens.\nWhat does a Cloudflare challenge look like?\nA page with a cf-turnstile widget that asks you to Verify you are human by completing the action below."
	src := &fakeSource{pages: map[string]fakePage{"https://blog.example/http-errors": {text: page}}}
	h := NewHarvester(HarvestConfig{Variant: qa.VariantPairs}, src, quietLogger())

	results, err := h.Run(context.Background(), []string{"https://blog.example/http-errors"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := results[0].Visit
	if v.Status != storage.StatusOK || v.DetectedBot {
		t.Fatalf("content page must not be treated as a challenge, got %+v", v)
	}
	if want := len(qa.ExtractPairs(page)); want != 2 || len(results[0].Records) != want {
		t.Errorf("expected the extractor's 2 records, got %d", len(results[0].Records))
	}
}

func TestHarvester_DetectsChallengeStatus(t *testing.T) {
	challenge := &StatusError{
		URL:        "https://cf.example/",
		StatusCode: http.StatusServiceUnavailable,
		Response: &bypass.Response{
			StatusCode: http.StatusServiceUnavailable,
			Headers:    map[string][]string{"Server": {"cloudflare"}},
			Body:       []byte("Just a moment..."),
		},
	}
	src := &fakeSource{pages: map[string]fakePage{"https://cf.example/": {err: challenge}}}
	h := NewHarvester(HarvestConfig{}, src, quietLogger())

	results, _ := h.Run(context.Background(), []string{"https://cf.example/"})
	v := results[0].Visit
	if v.Status != storage.StatusBlocked || v.DetectionSrc != "Cloudflare" {
		t.Errorf("expected blocked by Cloudflare, got %+v", v)
	}
}

func TestHarvester_RespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	src := &fakeSource{pages: map[string]fakePage{
		ts.URL + "/public": {text: goodPage},
	}}
	h := NewHarvester(HarvestConfig{
		RespectRobots: true,
		Robots:        NewRobotsTxtAuditor(testFetcher(t), quietLogger()),
	}, src, quietLogger())

	results, err := h.Run(context.Background(), []string{ts.URL + "/private/page", ts.URL + "/public"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Visit.Status != storage.StatusSkipped {
		t.Errorf("expected skipped visit, got %+v", results[0].Visit)
	}
	if len(src.visited) != 1 || src.visited[0] != ts.URL+"/public" {
		t.Errorf("disallowed page must not be loaded, visited %v", src.visited)
	}
}

func TestHarvester_CancelStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{
		pages: map[string]fakePage{
			"https://1.example/": {text: goodPage},
			"https://2.example/": {text: goodPage},
		},
		onVisit: func(url string) {
			if url == "https://1.example/" {
				cancel()
			}
		},
	}
	h := NewHarvester(HarvestConfig{}, src, quietLogger())

	results, err := h.Run(ctx, []string{"https://1.example/", "https://2.example/"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(src.visited) != 1 {
		t.Errorf("expected the run to stop after the first visit, visited %v", src.visited)
	}
	if len(results) != 1 {
		t.Errorf("expected the finished visit to be returned, got %d results", len(results))
	}
}
