// Command seolint checks the on-page SEO factors of a single URL and prints the result
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/seo-optimizer/seolint/analyzer"
	"github.com/seo-optimizer/seolint/config"
	"github.com/seo-optimizer/seolint/logging"
)

var actions = []string{"tags", "frequency", "digrams", "trigrams", "check-links", "article", "all"}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: seolint [flags] <action> <url>\n\nChecks on-page factors of a single page.\n\nActions: %v\n\nFlags:\n", actions)
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}

func main() {
	var (
		timeout     int
		verbose     bool
		concurrency int
	)
	flag.IntVar(&timeout, "t", 20, "timeout in seconds for checking links")
	flag.BoolVar(&verbose, "v", false, "print detailed log output to stderr")
	flag.IntVar(&concurrency, "c", analyzer.DefaultLinkConcurrency, "maximum number of links probed at once")
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logging.Setup(logging.Options{Level: level, Output: os.Stderr})
	config.LoadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, flag.Arg(0), flag.Arg(1), time.Duration(timeout)*time.Second, concurrency)
	if err != nil {
		slog.Error("seolint failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, action, rawURL string, timeout time.Duration, concurrency int) (interface{}, error) {
	if !slices.Contains(actions, action) {
		return nil, fmt.Errorf("unknown action %q, expected one of %v", action, actions)
	}

	a := analyzer.New(analyzer.Config{
		UserAgent:       os.Getenv("USER_AGENT"),
		LinkTimeout:     timeout,
		LinkConcurrency: concurrency,
	}, nil)

	page, err := a.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc := page.Document

	switch action {
	case "tags":
		return analyzer.Tags(doc), nil
	case "frequency":
		return analyzer.Frequency(doc, 1), nil
	case "digrams":
		return analyzer.Frequency(doc, 2), nil
	case "trigrams":
		return analyzer.Frequency(doc, 3), nil
	case "check-links":
		return a.CheckLinks(ctx, rawURL, doc), nil
	case "article":
		return analyzer.ExtractArticle(doc), nil
	default:
		return a.AnalyzeDocument(ctx, rawURL, doc, nil), nil
	}
}
