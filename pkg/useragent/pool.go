package useragent

import (
	"math/rand/v2"
	"strings"
	"sync/atomic"
)

// Family is the browser a User-Agent string claims to be.
type Family string

const (
	Chrome  Family = "chrome"
	Firefox Family = "firefox"
	Safari  Family = "safari"
)

// DefaultPool is a set of current desktop User-Agents.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:141.0) Gecko/20100101 Firefox/141.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:141.0) Gecko/20100101 Firefox/141.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.5 Safari/605.1.15",
}

// Pool hands out User-Agents round-robin or at random.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool copies uas into a pool. An empty slice means DefaultPool.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied}
}

// ForFamily returns a pool restricted to one browser family so the claimed
// browser matches the TLS fingerprint in use. If nothing in uas matches, the
// family's entries from DefaultPool are used.
func ForFamily(f Family, uas []string) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	matched := filter(f, uas)
	if len(matched) == 0 {
		matched = filter(f, DefaultPool)
	}
	return NewPool(matched)
}

// Of reports which family a User-Agent claims.
func Of(ua string) Family {
	switch {
	case strings.Contains(ua, "Firefox/"):
		return Firefox
	case strings.Contains(ua, "Chrome/"):
		return Chrome
	case strings.Contains(ua, "Safari/"):
		return Safari
	}
	return ""
}

func filter(f Family, uas []string) []string {
	var out []string
	for _, ua := range uas {
		if Of(ua) == f {
			out = append(out, ua)
		}
	}
	return out
}

// Next returns the next User-Agent in round-robin order.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a User-Agent picked at random.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	return p.uas[rand.IntN(len(p.uas))]
}

// All returns a copy of the pool.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
