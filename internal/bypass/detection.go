package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is what a detector gets to look at. Pages rendered by a browser
// carry only their text in Body and a zero StatusCode.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	// URL is where the response was read from, when known.
	URL string
}

// maxRenderedChallenge bounds the text of a rendered page that can still be
// a challenge interstitial. Those are a few short lines; anything longer is
// content, whatever it mentions.
const maxRenderedChallenge = 2000

// Detector examines a response to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(res *Response) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogle,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs the response through all provided detectors and returns the
// first source that triggered.
func Analyze(res *Response, detectors []Detector) (bool, string) {
	if res == nil {
		return false, ""
	}
	for _, d := range detectors {
		if detected, source := d(res); detected {
			return true, source
		}
	}
	return false, ""
}

func getHeader(headers map[string][]string, key string) string {
	if vals, ok := headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	lowerKey := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// rendered reports whether res is browser-rendered text without a status.
func rendered(res *Response) bool {
	return res.StatusCode == 0
}

func statusIs(res *Response, codes ...int) bool {
	for _, c := range codes {
		if res.StatusCode == c {
			return true
		}
	}
	return false
}

func bodyContains(res *Response, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(res.Body, []byte(n)) {
			return true
		}
	}
	return false
}

// textOpensWith reports whether a short rendered body has a line starting
// with one of phrases. Markup tokens never show up in rendered text, and a
// phrase quoted inside a sentence is not an interstitial.
func textOpensWith(res *Response, phrases ...string) bool {
	if len(res.Body) > maxRenderedChallenge {
		return false
	}
	for _, line := range bytes.Split(res.Body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		for _, p := range phrases {
			if bytes.HasPrefix(line, []byte(p)) {
				return true
			}
		}
	}
	return false
}

// detectGoogle looks for the search engine's "unusual traffic" interstitial.
func detectGoogle(res *Response) (bool, string) {
	const phrase = "Our systems have detected unusual traffic from your computer network"
	if strings.Contains(res.URL, "google.com/sorry/") {
		return true, "Google"
	}
	if rendered(res) {
		ok := textOpensWith(res, phrase)
		return ok, sourceIf(ok, "Google")
	}
	if !statusIs(res, http.StatusTooManyRequests, http.StatusForbidden, http.StatusServiceUnavailable, http.StatusOK) {
		return false, ""
	}
	if bodyContains(res, phrase, "/sorry/index", "google.com/sorry/") {
		return true, "Google"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(res *Response) (bool, string) {
	if rendered(res) {
		ok := textOpensWith(res,
			"Checking if the site connection is secure",
			"Verify you are human by completing the action below")
		return ok, sourceIf(ok, "Cloudflare")
	}
	if !statusIs(res, http.StatusForbidden, http.StatusServiceUnavailable) {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(res.Headers, "Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bodyContains(res,
		"cf-browser-verification",
		"cloudflare-nginx",
		"cf-turnstile",
		"Attention Required! | Cloudflare",
		"Checking if the site connection is secure",
		"Verify you are human by completing the action below") {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures. Its block page is
// generic, so rendered text alone never counts.
func detectAkamai(res *Response) (bool, string) {
	if !statusIs(res, http.StatusForbidden) {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(res.Headers, "Server")), "akamai") {
		return true, "Akamai"
	}
	if bodyContains(res, "Reference #") && bodyContains(res, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures. Its
// challenge is a captcha frame with no text of its own, so rendered text
// never counts.
func detectDataDome(res *Response) (bool, string) {
	if !statusIs(res, http.StatusForbidden) {
		return false, ""
	}
	if strings.Contains(strings.ToLower(getHeader(res.Headers, "Server")), "datadome") {
		return true, "DataDome"
	}
	if getHeader(res.Headers, "X-DataDome") != "" || getHeader(res.Headers, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bodyContains(res, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(res *Response) (bool, string) {
	if rendered(res) {
		ok := textOpensWith(res, "Press & Hold to confirm you are")
		return ok, sourceIf(ok, "PerimeterX")
	}
	if !statusIs(res, http.StatusForbidden) {
		return false, ""
	}
	if getHeader(res.Headers, "X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bodyContains(res, "client.perimeterx.net", "px-captcha", "_pxBlock", "Press & Hold to confirm you are") {
		return true, "PerimeterX"
	}
	return false, ""
}

func sourceIf(ok bool, src string) string {
	if ok {
		return src
	}
	return ""
}
