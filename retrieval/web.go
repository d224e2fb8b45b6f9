package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

const (
	defaultSearchEndpoint = "https://html.duckduckgo.com/html/"
	defaultMaxResults     = 5
	defaultUserAgent      = "Mozilla/5.0 (compatible; health-agent/1.0)"
)

// DuckDuckGo implements WebSearcher against the DuckDuckGo HTML endpoint.
// No API key is needed; results are scraped from the result list markup.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	maxResults int
	logger     *slog.Logger
}

// DuckDuckGoOption configures the searcher.
type DuckDuckGoOption func(*DuckDuckGo)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if client != nil {
			d.client = client
		}
	}
}

// WithEndpoint overrides the search endpoint (used by tests and mirrors).
func WithEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

// WithMaxResults caps the number of returned documents.
func WithMaxResults(n int) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithSearchLogger overrides the default package logger.
func WithSearchLogger(logger *slog.Logger) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDuckDuckGo builds a web searcher with a 10s default timeout.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		client:     &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultSearchEndpoint,
		maxResults: defaultMaxResults,
		logger:     logging.WithComponent("web_search"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search runs a query and returns the scraped result snippets.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Document, error) {
	reqURL := fmt.Sprintf("%s?q=%s", d.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search status %d: %w", resp.StatusCode, errorskg.ErrUnavailable)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	docs := make([]Document, 0, d.maxResults)
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(docs) >= d.maxResults {
			return false
		}
		title := strings.TrimSpace(s.Find("a.result__a").Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())
		if title == "" && snippet == "" {
			return true
		}

		content := snippet
		if title != "" && snippet != "" {
			content = title + "\n" + snippet
		} else if snippet == "" {
			content = title
		}

		meta := map[string]string{}
		if href, ok := s.Find("a.result__a").Attr("href"); ok {
			meta["url"] = href
		}
		docs = append(docs, Document{
			ID:      fmt.Sprintf("web_%d", i+1),
			Title:   title,
			Content: RemoveWebNoise(CleanText(content)),
			Source:  SourceWeb,
			Meta:    meta,
		})
		return true
	})

	if len(docs) == 0 {
		return nil, fmt.Errorf("no web results for %q: %w", query, errorskg.ErrNotFound)
	}
	d.logger.Debug("web search completed", "query", query, "results", len(docs))
	return docs, nil
}

var _ WebSearcher = (*DuckDuckGo)(nil)
