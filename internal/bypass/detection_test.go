package bypass

import (
	"strings"
	"testing"
)

func TestDetectCloudflare(t *testing.T) {
	res := &Response{
		StatusCode: 200,
		Headers:    map[string][]string{"Server": {"cloudflare"}},
		Body:       []byte("OK"),
	}
	if detected, _ := detectCloudflare(res); detected {
		t.Errorf("expected not detected on 200")
	}

	res = &Response{
		StatusCode: 403,
		Headers:    map[string][]string{"Server": {"cloudflare"}},
		Body:       []byte("Access Denied"),
	}
	if detected, src := detectCloudflare(res); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	res = &Response{
		StatusCode: 503,
		Body:       []byte("<html>... cf-turnstile ...</html>"),
	}
	if detected, src := detectCloudflare(res); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestDetect_RenderedText(t *testing.T) {
	// Browser-rendered pages have no status; a short page whose line opens
	// with an interstitial phrase is a challenge.
	challenges := map[string]string{
		"www.example.com\nVerify you are human by completing the action below.\nwww.example.com needs to review the security of your connection.": "Cloudflare",
		"About this page\nOur systems have detected unusual traffic from your computer network.":                                                 "Google",
		"Press & Hold to confirm you are\na human (and not a bot).":                                                                               "PerimeterX",
	}
	for text, want := range challenges {
		res := &Response{Body: []byte(text)}
		if detected, src := Analyze(res, DefaultDetectors()); !detected || src != want {
			t.Errorf("expected %s detection on %q, got %v %q", want, text, detected, src)
		}
	}

	res := &Response{Body: []byte("What is a delegate?\nA delegate is a type-safe function pointer.")}
	if detected, src := Analyze(res, DefaultDetectors()); detected {
		t.Errorf("expected clean page, got %q", src)
	}
}

func TestDetect_RenderedTextMentioningSignatures(t *testing.T) {
	pages := []string{
		"What is an HTTP 403 Access Denied error?\nThe server refuses the request. CDNs show a Reference # you can quote to support when this happens.",
		"How does Cloudflare Turnstile work?\nThe widget is rendered into a div with the class cf-turnstile and posts a token back.",
		"What does a bot challenge say?\nCloudflare shows \"Verify you are human by completing the action below\" before letting you through.",
		"Why did Google block my scraper?\nIt redirected every request to /sorry/index and google.com/sorry/ with a captcha.",
		"How do you detect PerimeterX?\nLook for client.perimeterx.net, px-captcha or _pxBlock in the markup.",
	}
	for _, text := range pages {
		res := &Response{URL: "https://blog.example/interview", Body: []byte(text)}
		if detected, src := Analyze(res, DefaultDetectors()); detected {
			t.Errorf("content page flagged as %s: %q", src, text)
		}
	}

	// A long page is content even when a line opens with a challenge phrase.
	long := "Verify you are human by completing the action below is what the widget says.\n" + strings.Repeat("An answer line about interview questions. ", 60)
	if detected, src := Analyze(&Response{Body: []byte(long)}, DefaultDetectors()); detected {
		t.Errorf("long page flagged as %s", src)
	}
}

func TestDetectGoogle_SorryURL(t *testing.T) {
	res := &Response{URL: "https://www.google.com/sorry/index?continue=x", Body: []byte("About this page")}
	if detected, src := detectGoogle(res); !detected || src != "Google" {
		t.Errorf("expected Google detection by url, got %v %q", detected, src)
	}
}

func TestDetectGoogle(t *testing.T) {
	res := &Response{
		StatusCode: 429,
		Body:       []byte("Our systems have detected unusual traffic from your computer network."),
	}
	if detected, src := detectGoogle(res); !detected || src != "Google" {
		t.Errorf("expected Google detection")
	}

	res = &Response{StatusCode: 404, Body: []byte("/sorry/index")}
	if detected, _ := detectGoogle(res); detected {
		t.Errorf("expected no detection on 404")
	}
}

func TestDetectAkamai(t *testing.T) {
	res := &Response{
		StatusCode: 403,
		Headers:    map[string][]string{"Server": {"AkamaiGHost"}},
	}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}

	res = &Response{
		StatusCode: 403,
		Body:       []byte("Access Denied... Reference #123.456"),
	}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	res := &Response{
		StatusCode: 403,
		Headers:    map[string][]string{"x-datadome": {"protected"}},
	}
	if detected, src := detectDataDome(res); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by header")
	}

	// Rendered text mentioning datadome is not enough without a 403.
	res = &Response{Body: []byte("We compared datadome with other vendors.")}
	if detected, _ := detectDataDome(res); detected {
		t.Errorf("expected no detection on a bare mention")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	res := &Response{
		StatusCode: 403,
		Body:       []byte(`<div id="px-captcha"></div>`),
	}
	if detected, src := detectPerimeterX(res); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestAnalyze_Nil(t *testing.T) {
	if detected, _ := Analyze(nil, DefaultDetectors()); detected {
		t.Errorf("expected nil response to be clean")
	}
}
