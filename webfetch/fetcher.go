package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/weave/cache"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxBytes    = 2 << 20 // 2 MiB
	defaultMaxTextLen  = 10000
	defaultMaxURLs     = 5
	defaultMaxParallel = 3
	defaultRateLimit   = 2 // requests per second
	defaultUserAgent   = "Mozilla/5.0 (compatible; weave/1.0)"

	// Elements stripped before text extraction.
	strippedSelectors = "script, style, header, footer, nav, aside, noscript, iframe"
)

// defaultBlacklist holds hosts that are never fetched. They are either
// login-walled or serve no extractable text.
var defaultBlacklist = []string{
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
}

// Fetcher retrieves web pages and reduces them to plain text suitable for
// prompt context. Fetches are rate limited, size capped, and cached.
type Fetcher struct {
	client     *http.Client
	pageCache  *cache.Cache[string]
	limiter    *rate.Limiter
	pool       *ants.Pool
	blacklist  []string
	timeout    time.Duration
	maxBytes   int64
	maxTextLen int
	maxURLs    int
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithClient sets the HTTP client used for page requests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) error {
		if client == nil {
			return fmt.Errorf("client cannot be nil")
		}
		f.client = client
		return nil
	}
}

// WithPageCache sets the cache for scraped page text.
func WithPageCache(c *cache.Cache[string]) Option {
	return func(f *Fetcher) error {
		f.pageCache = c
		return nil
	}
}

// WithTimeout sets the per-page fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d <= 0 {
			return ErrInvalidLimit
		}
		f.timeout = d
		return nil
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		f.maxBytes = n
		return nil
	}
}

// WithMaxTextLen caps the extracted text length in characters.
func WithMaxTextLen(n int) Option {
	return func(f *Fetcher) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		f.maxTextLen = n
		return nil
	}
}

// WithMaxURLs caps how many URLs one FetchMany call will visit.
func WithMaxURLs(n int) Option {
	return func(f *Fetcher) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		f.maxURLs = n
		return nil
	}
}

// WithBlacklist replaces the default host skip list.
func WithBlacklist(hosts []string) Option {
	return func(f *Fetcher) error {
		f.blacklist = hosts
		return nil
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *Fetcher) error {
		if perSecond <= 0 || burst <= 0 {
			return ErrInvalidLimit
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithLogger sets the logger used for fetch events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			return ErrNilLogger
		}
		f.logger = logger
		return nil
	}
}

// NewFetcher creates a Fetcher with the given options.
// Call Close when done to release the worker pool.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client:     &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultMaxParallel),
		blacklist:  defaultBlacklist,
		timeout:    defaultTimeout,
		maxBytes:   defaultMaxBytes,
		maxTextLen: defaultMaxTextLen,
		maxURLs:    defaultMaxURLs,
		userAgent:  defaultUserAgent,
		logger:     slog.Default().With("component", "webfetch"),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(defaultMaxParallel)
	if err != nil {
		return nil, err
	}
	f.pool = pool

	return f, nil
}

// Close releases the fetcher's worker pool.
func (f *Fetcher) Close() {
	f.pool.Release()
}

// Fetch retrieves one page and returns its extracted text.
// Blacklisted hosts are rejected before any network traffic. A cached page
// is returned without refetching.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", pageURL, err)
	}
	if f.isBlacklisted(parsed.Hostname()) {
		return "", fmt.Errorf("%w: %s", ErrBlacklisted, parsed.Hostname())
	}

	cacheKey := cache.Key(normalizeURL(parsed))
	if f.pageCache != nil {
		if text, ok := f.pageCache.Lookup(cacheKey); ok {
			f.logger.Debug("page cache hit", "url", pageURL)
			return text, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	text, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if f.pageCache != nil && text != "" {
		f.pageCache.Store(cacheKey, text)
	}

	return text, nil
}

// normalizeURL lowercases the host and drops the fragment so equivalent
// forms of one page URL share a single cache entry.
func normalizeURL(parsed *url.URL) string {
	normalized := *parsed
	normalized.Host = strings.ToLower(normalized.Host)
	normalized.Fragment = ""
	return normalized.String()
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %q: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %q: status %d", pageURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextContent(contentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	body, err := f.readCapped(resp.Body, start)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", pageURL, err)
	}

	var text string
	if strings.Contains(contentType, "text/plain") {
		text = string(body)
	} else {
		text, err = extractText(body)
		if err != nil {
			return "", fmt.Errorf("parsing %q: %w", pageURL, err)
		}
	}

	text = collapseWhitespace(text)
	if runes := []rune(text); len(runes) > f.maxTextLen {
		text = string(runes[:f.maxTextLen])
	}
	return text, nil
}

// readCapped reads the body in chunks, aborting when the byte budget is
// exhausted or when the transfer has dragged on past twice the fetch timeout.
// A slow server trickling bytes would otherwise hold a worker indefinitely.
func (f *Fetcher) readCapped(body io.Reader, start time.Time) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 32*1024)
	for {
		if time.Since(start) > 2*f.timeout {
			return nil, ErrFetchTimeout
		}
		n, err := body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if int64(len(buf)) > f.maxBytes {
			return nil, ErrResponseTooLarge
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (f *Fetcher) isBlacklisted(host string) bool {
	host = strings.ToLower(host)
	for _, blocked := range f.blacklist {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

// isTextContent reports whether the content type carries extractable text.
func isTextContent(contentType string) bool {
	for _, accepted := range []string{"text/html", "text/plain", "application/xhtml+xml"} {
		if strings.Contains(contentType, accepted) {
			return true
		}
	}
	return false
}

// extractText strips non-content elements from an HTML document and returns
// the remaining body text.
func extractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", err
	}

	doc.Find(strippedSelectors).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text(), nil
	}
	return body.Text(), nil
}

// collapseWhitespace reduces all whitespace runs to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FetchMany retrieves up to maxURLs pages in parallel and concatenates their
// text, each block prefixed with its source URL. Pages that fail or come back
// empty are skipped; blocks appear in completion order.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string) string {
	if len(urls) > f.maxURLs {
		urls = urls[:f.maxURLs]
	}

	var mu sync.Mutex
	var sb strings.Builder
	var wg sync.WaitGroup

	for _, pageURL := range urls {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			text, err := f.Fetch(ctx, pageURL)
			if err != nil {
				f.logger.Debug("skipping page", "url", pageURL, "error", err)
				return
			}
			if text == "" {
				return
			}
			mu.Lock()
			sb.WriteString("Source: " + pageURL + "\n")
			sb.WriteString(text)
			sb.WriteString("\n\n")
			mu.Unlock()
		}
		if err := f.pool.Submit(task); err != nil {
			// Pool saturated or released; do the work on this goroutine.
			task()
		}
	}

	wg.Wait()
	return strings.TrimSpace(sb.String())
}
