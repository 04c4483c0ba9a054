// Package duckduckgo implements websearch.Provider on the keyless
// DuckDuckGo Lite HTML endpoint. It only serves link search; image and
// video search need a keyed provider and come back empty here.
package duckduckgo

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/websearch"
)

const (
	defaultBaseURL = "https://lite.duckduckgo.com/lite/"
	defaultTimeout = 10 * time.Second

	// Minimum gap between searches. The endpoint has no documented rate
	// limit but blocks clients that hammer it.
	minSearchInterval = 500 * time.Millisecond
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// Provider is a websearch.Provider backed by DuckDuckGo Lite.
type Provider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu         sync.Mutex
	lastSearch time.Time
}

var _ websearch.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the search endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for searches.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithLogger sets the logger used for search events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// New creates a DuckDuckGo Lite provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default().With("component", "duckduckgo"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks provider reachability with a minimal query.
func (p *Provider) Probe(ctx context.Context) bool {
	results := p.SearchLinks(ctx, "test", 1)
	return results != nil
}

// SearchLinks returns up to n web results for the query.
func (p *Provider) SearchLinks(ctx context.Context, query string, n int) []*core.WebSource {
	p.throttle()

	searchURL := p.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("search request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("search request rejected", "query", query, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Warn("reading search response failed", "query", query, "error", err)
		return nil
	}

	results, err := parseLiteResults(string(body), n)
	if err != nil {
		p.logger.Warn("parsing search response failed", "query", query, "error", err)
		return nil
	}
	if results == nil {
		results = []*core.WebSource{}
	}
	return results
}

// SearchImages is unsupported on the Lite endpoint.
func (p *Provider) SearchImages(ctx context.Context, query string, n int) []string {
	return nil
}

// SearchVideos is unsupported on the Lite endpoint.
func (p *Provider) SearchVideos(ctx context.Context, query string, n int) []string {
	return nil
}

// throttle enforces the minimum gap between searches, with jitter so bursts
// from concurrent callers spread out.
func (p *Provider) throttle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	minGap := minSearchInterval + time.Duration(rand.IntN(500))*time.Millisecond
	elapsed := time.Since(p.lastSearch)
	if elapsed < minGap {
		time.Sleep(minGap - elapsed)
	}
	p.lastSearch = time.Now()
}
