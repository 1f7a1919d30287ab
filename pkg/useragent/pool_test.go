package useragent

import (
	"sync"
	"testing"
)

func TestPool_Next(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	for i, want := range []string{"A", "B", "C", "A"} {
		if got := p.Next(); got != want {
			t.Errorf("call %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestPool_Default(t *testing.T) {
	p := NewPool(nil)
	if len(p.All()) != len(DefaultPool) {
		t.Errorf("expected pool length %d, got %d", len(DefaultPool), len(p.All()))
	}
	if got := p.Next(); got != DefaultPool[0] {
		t.Errorf("expected %s, got %s", DefaultPool[0], got)
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := p.Random()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected UA: %s", got)
		}
		seen[got] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected to see both A and B, saw %v", seen)
	}
}

func TestPool_Concurrent(t *testing.T) {
	uas := []string{"X", "Y", "Z"}
	p := NewPool(uas)

	var wg sync.WaitGroup
	const routines = 50
	const iterations = 300

	results := make(chan string, routines*iterations)
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				results <- p.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for r := range results {
		counts[r]++
	}
	want := routines * iterations / len(uas)
	for _, k := range uas {
		if counts[k] != want {
			t.Errorf("expected %d hits for %s, got %d", want, k, counts[k])
		}
	}
}

func TestPool_Empty(t *testing.T) {
	p := &Pool{}
	if got := p.Next(); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
	if got := p.Random(); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestOf(t *testing.T) {
	cases := map[string]Family{
		DefaultPool[0]: Chrome,
		DefaultPool[4]: Firefox,
		DefaultPool[6]: Safari,
		"curl/8.0":     "",
	}
	for ua, want := range cases {
		if got := Of(ua); got != want {
			t.Errorf("Of(%q) = %q, want %q", ua, got, want)
		}
	}
}

func TestForFamily(t *testing.T) {
	p := ForFamily(Chrome, nil)
	if len(p.All()) == 0 {
		t.Fatal("expected chrome entries in the default pool")
	}
	for _, ua := range p.All() {
		if Of(ua) != Chrome {
			t.Errorf("non-chrome UA in chrome pool: %s", ua)
		}
	}

	// No firefox in the custom list, so the defaults fill in.
	p = ForFamily(Firefox, []string{DefaultPool[0]})
	for _, ua := range p.All() {
		if Of(ua) != Firefox {
			t.Errorf("expected firefox fallback, got %s", ua)
		}
	}
}
