package analyzer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Page is the fetched and cleaned-up article content of a URL.
type Page struct {
	Title    string
	Markdown string
}

// Fetcher downloads a URL and extracts its readable article as markdown.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(userAgent string, timeoutSeconds int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		userAgent: userAgent,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newError(KindNetwork, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, newError(KindTimeout, "fetch timed out: %v", err)
		}
		return nil, newError(KindNetwork, "failed to fetch URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindNetwork, "HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, newError(KindParse, "content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, newError(KindTimeout, "fetch timed out: %v", err)
		}
		return nil, newError(KindNetwork, "failed to read response body: %v", err)
	}

	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, newError(KindParse, "failed to extract content: %v", err)
	}
	if article.Content == "" {
		return nil, newError(KindParse, "no content extracted from HTML data")
	}

	// The converter is stateful, so build a fresh one per fetch rather than
	// sharing it across workers.
	markdown, err := md.NewConverter("", true, nil).ConvertString(article.Content)
	if err != nil {
		return nil, newError(KindParse, "failed to convert content to markdown: %v", err)
	}

	return &Page{
		Title:    article.Title,
		Markdown: strings.TrimSpace(markdown),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
