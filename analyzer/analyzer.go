package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seo-optimizer/seolint/metrics"
)

var (
	// ErrInvalidURL is returned for page URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url: missing http(s)://")
	// ErrBadStatus is returned when the page itself does not answer with a 2xx status.
	ErrBadStatus = errors.New("bad status code")
)

// maxPageSize caps how much of a page body is read.
const maxPageSize = 10 << 20

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Config tunes an Analyzer. Zero values fall back to defaults.
type Config struct {
	UserAgent       string
	FetchTimeout    time.Duration
	LinkTimeout     time.Duration
	LinkConcurrency int
}

// Recorder receives operational counters of finished analyses
type Recorder interface {
	RecordAnalysis(failed bool)
	RecordLinks(probed, unhealthy int)
}

// Page is a fetched and parsed webpage
type Page struct {
	URL      string
	Status   int
	Size     int
	Document *goquery.Document
}

// Analyzer performs on-page SEO analysis of a given URL
type Analyzer struct {
	client      *http.Client
	links       *LinkAuditor
	userAgent   string
	linkTimeout time.Duration
	recorder    Recorder
}

// New creates a new Analyzer instance. recorder may be nil.
func New(cfg Config, recorder Recorder) *Analyzer {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "SEOAnalyzer/1.0"
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.LinkTimeout <= 0 {
		cfg.LinkTimeout = DefaultLinkTimeout
	}

	// Shared by page fetches and link probes: pooled keep-alive connections
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Analyzer{
		client: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: transport,
		},
		// Link probes are bounded by the batch deadline only
		links:       NewLinkAuditor(&http.Client{Transport: transport}, cfg.UserAgent, cfg.LinkConcurrency),
		userAgent:   cfg.UserAgent,
		linkTimeout: cfg.LinkTimeout,
		recorder:    recorder,
	}
}

// Fetch downloads and parses the page at rawURL.
func (a *Analyzer) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxPageSize)); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	doc.Url = resp.Request.URL

	slog.Debug("Fetched page", "url", rawURL, "final_url", resp.Request.URL.String(), "size", buf.Len())
	return &Page{
		URL:      resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Size:     buf.Len(),
		Document: doc,
	}, nil
}

// Analyze fetches the page at rawURL and runs every check on it. progress, when not
// nil, is called synchronously as the analysis advances.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, progress func(Progress)) (*Report, error) {
	start := time.Now()
	report := func(status int, msg string) {
		if progress != nil {
			progress(Progress{Status: status, Msg: msg})
		}
	}

	report(10, "opening url")
	page, err := a.Fetch(ctx, rawURL)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("fetch_error").Inc()
		if a.recorder != nil {
			a.recorder.RecordAnalysis(true)
		}
		return nil, err
	}

	result := a.AnalyzeDocument(ctx, rawURL, page.Document, report)

	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if a.recorder != nil {
		a.recorder.RecordAnalysis(false)
	}
	slog.Info("Analysis finished",
		"url", rawURL,
		"duration_ms", time.Since(start).Milliseconds(),
		"unhealthy_links", len(result.CheckLinks))
	return result, nil
}

// AnalyzeDocument runs every check on an already parsed page. Links are resolved
// against baseURL.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, baseURL string, doc *goquery.Document, report func(int, string)) *Report {
	if report == nil {
		report = func(int, string) {}
	}
	result := &Report{URL: baseURL}

	report(30, "getting tags")
	result.Tags = Tags(doc)

	report(40, "getting frequency")
	result.Frequency = Frequency(doc, 1)

	report(50, "getting digrams and trigrams")
	result.Digrams = Frequency(doc, 2)
	result.Trigrams = Frequency(doc, 3)

	report(70, "checking links")
	result.CheckLinks = a.CheckLinks(ctx, baseURL, doc)

	report(80, "getting text and metadata")
	result.Article = ExtractArticle(doc)

	report(100, "done")
	return result
}

// CheckLinks audits the links of doc with the analyzer's configured timeout.
func (a *Analyzer) CheckLinks(ctx context.Context, baseURL string, doc *goquery.Document) []LinkResult {
	links := CollectLinks(baseURL, doc)
	unhealthy := a.links.checkURLs(ctx, links, a.linkTimeout)
	if a.recorder != nil {
		a.recorder.RecordLinks(len(links), len(unhealthy))
	}
	return unhealthy
}
