package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newLinkServer serves /ok with 200, /missing with 404, /error with 500 and /slow
// only once release is closed.
func newLinkServer(t *testing.T) (*httptest.Server, chan struct{}) {
	t.Helper()
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv, release
}

func TestCollectLinks(t *testing.T) {
	doc := newDocument(t, `<html><head>
		<link rel="stylesheet" href="/css/site.css">
		<meta http-equiv="refresh" content="30; url=/refreshed">
		<style>.hero { background: url('/img/hero.jpg'); }</style>
		<script src="https://cdn.example.org/app.js"></script>
	</head><body>
		<a href="page.html">relative</a>
		<a href="/page.html#section">same page, other fragment</a>
		<a href="//other.example.net/x">protocol relative</a>
		<a href="mailto:team@example.com">mail</a>
		<a href="  ">blank</a>
		<div style="background-image: url(/img/bg.png)"></div>
		<form action="/search"></form>
		<img src="/img/logo.png">
		<blockquote cite="https://quotes.example.org/q/1">quote</blockquote>
	</body></html>`)

	got := CollectLinks("https://example.com/docs/", doc)
	want := []string{
		"https://example.com/css/site.css",
		"https://example.com/refreshed",
		"https://example.com/img/hero.jpg",
		"https://cdn.example.org/app.js",
		"https://example.com/docs/page.html",
		"https://example.com/page.html",
		"https://other.example.net/x",
		"mailto:team@example.com",
		"https://example.com/img/bg.png",
		"https://example.com/search",
		"https://example.com/img/logo.png",
		"https://quotes.example.org/q/1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectLinks() =\n%q\nwant\n%q", got, want)
	}
}

func TestCheckLinks(t *testing.T) {
	srv, _ := newLinkServer(t)
	doc := newDocument(t, `<html><body>
		<a href="/ok">fine</a>
		<a href="/missing">gone</a>
		<a href="/ok#again">fine again</a>
		<img src="/ok">
		<a href="/error">broken</a>
		<a href="javascript:void(0)">script</a>
	</body></html>`)

	auditor := NewLinkAuditor(&http.Client{}, "seolint-test", 4)
	got := auditor.CheckLinks(context.Background(), srv.URL+"/", doc, 5*time.Second)

	want := []LinkResult{
		{URL: srv.URL + "/missing", Code: 404, Status: "404"},
		{URL: srv.URL + "/error", Code: 500, Status: "500"},
		{URL: "javascript:void(0)", Status: StatusUnknown},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckLinks() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestCheckLinksOneHealthyOneBroken(t *testing.T) {
	srv, _ := newLinkServer(t)
	doc := newDocument(t, fmt.Sprintf(`<a href="%s/ok">ok</a><a href="%s/missing">missing</a>`, srv.URL, srv.URL))

	got := NewLinkAuditor(nil, "", 0).CheckLinks(context.Background(), srv.URL, doc, 5*time.Second)
	if len(got) != 1 || got[0].URL != srv.URL+"/missing" || got[0].Code != http.StatusNotFound {
		t.Errorf("Expected only the 404 link, got %+v", got)
	}
}

func TestCheckLinksTimeout(t *testing.T) {
	srv, _ := newLinkServer(t)

	var b strings.Builder
	b.WriteString(`<a href="/ok">ok</a>`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `<a href="/slow?page=%d">slow</a>`, i)
	}
	doc := newDocument(t, b.String())

	auditor := NewLinkAuditor(&http.Client{}, "", 5)
	timeout := 300 * time.Millisecond

	start := time.Now()
	got := auditor.CheckLinks(context.Background(), srv.URL, doc, timeout)
	elapsed := time.Since(start)

	if elapsed > timeout+time.Second {
		t.Errorf("CheckLinks blocked for %v with a timeout of %v", elapsed, timeout)
	}
	if len(got) != 25 {
		t.Fatalf("Expected 25 unhealthy links, got %d: %+v", len(got), got)
	}
	for _, res := range got {
		if res.Status != StatusTimeout || res.Code != 0 {
			t.Errorf("Expected %s for %s, got %+v", StatusTimeout, res.URL, res)
		}
	}
}

func TestCheckLinksUnreachable(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	deadURL := closed.URL + "/gone"
	closed.Close()

	doc := newDocument(t, `<a href="`+deadURL+`">dead</a>`)
	got := NewLinkAuditor(nil, "", 1).CheckLinks(context.Background(), deadURL, doc, 5*time.Second)

	want := []LinkResult{{URL: deadURL, Status: StatusUnreachable}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckLinks() = %+v, want %+v", got, want)
	}
}

func TestCheckLinksBoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, `<a href="/item/%d">item</a>`, i)
	}
	doc := newDocument(t, b.String())

	got := NewLinkAuditor(&http.Client{}, "", 3).CheckLinks(context.Background(), srv.URL, doc, 10*time.Second)

	if len(got) != 12 {
		t.Errorf("Expected 12 non-200 results, got %d", len(got))
	}
	for _, res := range got {
		if res.Code != http.StatusNoContent {
			t.Errorf("Expected 204 for %s, got %+v", res.URL, res)
		}
	}
	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Errorf("Expected at most 3 probes in flight, saw %d", p)
	}
}

func TestCheckLinksNoLinks(t *testing.T) {
	doc := newDocument(t, `<p>nothing to see</p>`)
	got := NewLinkAuditor(nil, "", 0).CheckLinks(context.Background(), "https://example.com", doc, time.Second)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected an empty result, got %#v", got)
	}
}

func TestCollectLinksBaseHref(t *testing.T) {
	doc := newDocument(t, `<html><head>
		<base href="https://static.example.org/assets/">
	</head><body>
		<a href="guide.html">guide</a>
		<img src="/logo.png">
	</body></html>`)

	got := CollectLinks("https://example.com/docs/", doc)
	want := []string{
		"https://static.example.org/assets/guide.html",
		"https://static.example.org/logo.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectLinks() = %q, want %q", got, want)
	}
}

func TestCheckLinksNonHTTPWithBusyPool(t *testing.T) {
	srv, _ := newLinkServer(t)
	doc := newDocument(t, `<a href="/slow?n=1">a</a><a href="/slow?n=2">b</a><a href="/slow?n=3">c</a>
		<a href="mailto:team@example.com">mail</a>`)

	got := NewLinkAuditor(&http.Client{}, "", 2).CheckLinks(context.Background(), srv.URL, doc, 300*time.Millisecond)

	if len(got) != 4 {
		t.Fatalf("Expected 4 unhealthy links, got %+v", got)
	}
	mail := got[3]
	if mail.URL != "mailto:team@example.com" || mail.Status != StatusUnknown {
		t.Errorf("Expected %s for the mailto link, got %+v", StatusUnknown, mail)
	}
	for _, res := range got[:3] {
		if res.Status != StatusTimeout {
			t.Errorf("Expected %s for %s, got %+v", StatusTimeout, res.URL, res)
		}
	}
}

func TestJoinOutcomesKeepsBufferedResults(t *testing.T) {
	outcomes := make(chan outcome, 3)
	outcomes <- outcome{index: 0, result: LinkResult{URL: "https://example.com/a", Code: 404, Status: "404"}}
	outcomes <- outcome{index: 2, result: LinkResult{URL: "https://example.com/c", Code: 200, Status: "200"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, received := joinOutcomes(ctx, outcomes, 3)

	if want := []bool{true, false, true}; !reflect.DeepEqual(received, want) {
		t.Errorf("received = %v, want %v", received, want)
	}
	if results[0].Code != 404 || results[2].Code != 200 {
		t.Errorf("Buffered results lost: %+v", results)
	}
}

func TestCheckLinksResultJustBeforeDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	doc := newDocument(t, `<a href="/late">late</a>`)
	got := NewLinkAuditor(&http.Client{}, "", 1).CheckLinks(context.Background(), srv.URL, doc, 400*time.Millisecond)

	want := []LinkResult{{URL: srv.URL + "/late", Code: 404, Status: "404"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CheckLinks() = %+v, want %+v", got, want)
	}
}
