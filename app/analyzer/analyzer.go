package analyzer

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNetwork  ErrorKind = "network_error"
	KindParse    ErrorKind = "parse_error"
	KindAnalysis ErrorKind = "analysis_error"
	KindTimeout  ErrorKind = "timeout"
)

// Error is a classified analysis failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Result holds everything extracted from one URL.
type Result struct {
	Title    string
	Keywords []string
	Summary  string
	Hashtags []string
	FullText string
}

// ProgressFunc receives coarse progress hints ("fetching", "analyzing").
// Hints are advisory; implementations may call it zero or more times.
type ProgressFunc func(hint string)

// Analyzer turns a URL into structured result data. Analyze blocks for the
// duration of the fetch and analysis; failures are always *Error values.
type Analyzer interface {
	Analyze(ctx context.Context, url string, progress ProgressFunc) (*Result, error)
}

// Extractor is the production Analyzer: it fetches the page, extracts the
// readable article and asks an LLM for title, keywords, summary and
// hashtags in a single structured call.
type Extractor struct {
	fetcher  *Fetcher
	agent    *Agent
	settings *Settings
}

func NewExtractor(apiKey, userAgent string, timeoutSeconds int, settings *Settings) *Extractor {
	return &Extractor{
		fetcher:  NewFetcher(userAgent, timeoutSeconds),
		agent:    NewAgent(apiKey, settings),
		settings: settings,
	}
}

func (e *Extractor) Analyze(ctx context.Context, url string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	progress("fetching")
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, newError(KindTimeout, "analysis cancelled: %v", ctx.Err())
	default:
	}

	progress("analyzing")
	digest, err := e.agent.Digest(page.Markdown)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(KindTimeout, "analysis timed out: %v", err)
		}
		return nil, newError(KindAnalysis, "analysis failed: %v", err)
	}

	title := digest.Title
	if title == "" {
		title = page.Title
	}

	return &Result{
		Title:    title,
		Keywords: digest.Keywords,
		Summary:  digest.Summary,
		Hashtags: digest.Hashtags,
		FullText: page.Markdown,
	}, nil
}
