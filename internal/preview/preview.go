// Package preview extracts a short, readable summary of an article.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const maxExcerptRunes = 280

// Preview is what gets shown next to a chosen article.
type Preview struct {
	Title    string
	Excerpt  string
	SiteName string
}

// Fetcher downloads pages and runs them through readability.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: timeout}, slog.Default())
}

// NewFetcherWithClient creates a Fetcher with a custom HTTP client and logger.
func NewFetcherWithClient(client *http.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger.With("component", "preview.fetcher"),
	}
}

// Fetch downloads rawURL and extracts its title, excerpt and site name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Preview{}, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Preview{}, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "dayflow/1.0")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Preview{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	f.logger.DebugContext(ctx, "Fetched article",
		"url", rawURL,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return Preview{}, fmt.Errorf("fetching %s returned status %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return Preview{}, fmt.Errorf("extracting content from %s: %w", rawURL, err)
	}

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(article.TextContent)
	}

	return Preview{
		Title:    strings.TrimSpace(article.Title),
		Excerpt:  truncate(strings.Join(strings.Fields(excerpt), " "), maxExcerptRunes),
		SiteName: strings.TrimSpace(article.SiteName),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
