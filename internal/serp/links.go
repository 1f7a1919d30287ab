package serp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkSet is an insertion-ordered set of URLs. URLs that differ only by
// fragment are the same entry.
type LinkSet struct {
	seen  map[string]struct{}
	order []string
}

// NewLinkSet returns an empty set.
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]struct{})}
}

// Add inserts links that are HTTP(S) URLs and not yet present, returning how
// many were new.
func (s *LinkSet) Add(links ...string) int {
	added := 0
	for _, l := range links {
		u, ok := normalize(l)
		if !ok {
			continue
		}
		if _, dup := s.seen[u]; dup {
			continue
		}
		s.seen[u] = struct{}{}
		s.order = append(s.order, u)
		added++
	}
	return added
}

// Len is the number of distinct links.
func (s *LinkSet) Len() int { return len(s.order) }

// Links returns up to limit links (all of them when limit <= 0).
func (s *LinkSet) Links(limit int) []string {
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	copy(out, s.order[:n])
	return out
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	_, ok := normalize(raw)
	return ok
}

func normalize(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// ResultLinks extracts organic result links from a results page: anchors
// wrapping an h3 heading. Relative hrefs are resolved against base and
// redirect wrappers (/url?q=...) are unwrapped. Only HTTP(S) links are kept.
func ResultLinks(base, page string) ([]string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var links []string
	doc.Find("a h3").Each(func(_ int, h3 *goquery.Selection) {
		href, ok := h3.Closest("a").Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := unwrap(baseURL.ResolveReference(ref))
		if u, ok := normalize(resolved); ok {
			links = append(links, u)
		}
	})
	return links, nil
}

// unwrap returns the target of a search engine redirect link.
func unwrap(u *url.URL) string {
	if u.Path == "/url" {
		q := u.Query()
		for _, key := range []string{"q", "url"} {
			if target := q.Get(key); IsHTTPURL(target) {
				return target
			}
		}
	}
	return u.String()
}
