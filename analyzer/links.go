package analyzer

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/seolint/metrics"
)

const (
	// DefaultLinkTimeout bounds a whole batch of link probes when no timeout is given.
	DefaultLinkTimeout = 20 * time.Second
	// DefaultLinkConcurrency is the number of probes allowed in flight at once.
	DefaultLinkConcurrency = 10
)

// linkAttrs are the attributes whose values are URLs.
var linkAttrs = []string{
	"href", "src", "action", "formaction", "cite", "data", "background",
	"longdesc", "lowsrc", "dynsrc", "usemap", "codebase", "classid", "profile", "poster",
}

var (
	cssURL      = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)
	metaRefresh = regexp.MustCompile(`(?i)^\s*[\d.]*\s*[;,]?\s*url\s*=\s*['"]?([^'"\s]+)`)
)

// LinkAuditor probes the links of a page and reports the unhealthy ones
type LinkAuditor struct {
	client         *http.Client
	userAgent      string
	maxConcurrency int
}

// NewLinkAuditor creates a LinkAuditor. The client must not carry its own timeout:
// the deadline passed to CheckLinks bounds every probe of a batch.
func NewLinkAuditor(client *http.Client, userAgent string, maxConcurrency int) *LinkAuditor {
	if client == nil {
		client = &http.Client{}
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultLinkConcurrency
	}
	return &LinkAuditor{
		client:         client,
		userAgent:      userAgent,
		maxConcurrency: maxConcurrency,
	}
}

// CollectLinks resolves every link of the document against baseURL and returns the
// distinct absolute URLs in the order they were first found. Fragments are dropped.
// A <base href> in the document takes precedence over baseURL and is not itself a link.
func CollectLinks(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}
	if href, exists := doc.Find("base[href]").First().Attr("href"); exists {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	seen := make(map[string]struct{})
	var links []string
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		link := raw
		if ref, err := url.Parse(raw); err == nil {
			abs := base.ResolveReference(ref)
			abs.Fragment = ""
			abs.RawFragment = ""
			link = abs.String()
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "base" {
			return
		}
		for _, attr := range linkAttrs {
			if val, exists := s.Attr(attr); exists {
				add(val)
			}
		}
		if archive, exists := s.Attr("archive"); exists {
			for _, part := range strings.FieldsFunc(archive, func(r rune) bool { return r == ',' || r == ' ' }) {
				add(part)
			}
		}
		if style, exists := s.Attr("style"); exists {
			for _, m := range cssURL.FindAllStringSubmatch(style, -1) {
				add(m[1])
			}
		}

		switch goquery.NodeName(s) {
		case "style":
			for _, m := range cssURL.FindAllStringSubmatch(s.Text(), -1) {
				add(m[1])
			}
		case "meta":
			if equiv, _ := s.Attr("http-equiv"); strings.EqualFold(equiv, "refresh") {
				content, _ := s.Attr("content")
				if m := metaRefresh.FindStringSubmatch(content); m != nil {
					add(m[1])
				}
			}
		}
	})

	slog.Debug("Collected page links", "base_url", baseURL, "count", len(links))
	return links
}

// CheckLinks probes every distinct link of the document concurrently and returns the
// links that did not answer 200 OK, in discovery order. The whole batch is bounded by
// timeout: probes still running at the deadline are reported as TIMEOUT.
func (la *LinkAuditor) CheckLinks(ctx context.Context, baseURL string, doc *goquery.Document, timeout time.Duration) []LinkResult {
	return la.checkURLs(ctx, CollectLinks(baseURL, doc), timeout)
}

// outcome is the result of the probe for the link at index.
type outcome struct {
	index  int
	result LinkResult
}

func (la *LinkAuditor) checkURLs(ctx context.Context, links []string, timeout time.Duration) []LinkResult {
	unhealthy := []LinkResult{}
	if len(links) == 0 {
		return unhealthy
	}

	if timeout <= 0 {
		timeout = DefaultLinkTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Links that cannot be probed are settled up front and never take a pool slot.
	var probeable []int
	settled := make([]outcome, 0, len(links))
	for i, link := range links {
		if httpLink(link) {
			probeable = append(probeable, i)
		} else {
			settled = append(settled, outcome{index: i, result: LinkResult{URL: link, Status: StatusUnknown}})
		}
	}

	// Buffered so that probes finishing after the deadline never block.
	outcomes := make(chan outcome, len(links))
	for _, o := range settled {
		outcomes <- o
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(la.maxConcurrency)
		for _, i := range probeable {
			if ctx.Err() != nil {
				break
			}
			i := i
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				start := time.Now()
				res := la.probe(ctx, links[i])
				metrics.LinkProbeDuration.Observe(time.Since(start).Seconds())
				outcomes <- outcome{index: i, result: res}
				return nil
			})
		}
		_ = g.Wait()
	}()

	results, received := joinOutcomes(ctx, outcomes, len(links))

	timedOut := 0
	for i, link := range links {
		res := results[i]
		if !received[i] {
			res = LinkResult{URL: link, Status: StatusTimeout}
			timedOut++
		}
		metrics.LinkProbesTotal.WithLabelValues(probeOutcome(res)).Inc()
		if !res.Healthy() {
			unhealthy = append(unhealthy, res)
		}
	}

	slog.Debug("Link check finished",
		"links", len(links), "unhealthy", len(unhealthy), "timed_out", timedOut)
	return unhealthy
}

// joinOutcomes collects up to n outcomes until ctx is done. Outcomes already
// buffered when the deadline fires are kept.
func joinOutcomes(ctx context.Context, outcomes <-chan outcome, n int) ([]LinkResult, []bool) {
	results := make([]LinkResult, n)
	received := make([]bool, n)
	store := func(o outcome) {
		results[o.index] = o.result
		received[o.index] = true
	}

	for pending := n; pending > 0; pending-- {
		select {
		case o := <-outcomes:
			store(o)
		case <-ctx.Done():
			for {
				select {
				case o := <-outcomes:
					store(o)
				default:
					return results, received
				}
			}
		}
	}
	return results, received
}

func httpLink(link string) bool {
	u, err := url.Parse(link)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// probe issues a single status request for link.
func (la *LinkAuditor) probe(ctx context.Context, link string) LinkResult {
	if !httpLink(link) {
		return LinkResult{URL: link, Status: StatusUnknown}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return LinkResult{URL: link, Status: StatusUnknown}
	}
	if la.userAgent != "" {
		req.Header.Set("User-Agent", la.userAgent)
	}

	resp, err := la.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return LinkResult{URL: link, Status: StatusTimeout}
		}
		slog.Debug("Link probe failed", "url", link, "error", err)
		return LinkResult{URL: link, Status: StatusUnreachable}
	}
	resp.Body.Close()

	return LinkResult{URL: link, Code: resp.StatusCode, Status: strconv.Itoa(resp.StatusCode)}
}

func probeOutcome(res LinkResult) string {
	switch {
	case res.Healthy():
		return "ok"
	case res.Code != 0:
		return "bad_status"
	default:
		return strings.ToLower(res.Status)
	}
}
