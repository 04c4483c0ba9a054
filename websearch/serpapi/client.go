// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package serpapi implements websearch.Provider on the SerpAPI JSON API.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/websearch"
)

const (
	defaultBaseURL = "https://serpapi.com/search.json"
	defaultTimeout = 10 * time.Second
)

// ErrMissingAPIKey indicates no SerpAPI key was provided.
var ErrMissingAPIKey = errors.New("serpapi api key is required")

// videoIDPattern extracts the video identifier from a YouTube watch URL.
var videoIDPattern = regexp.MustCompile(`v=([\w-]+)`)

// Client is a websearch.Provider backed by SerpAPI.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ websearch.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the SerpAPI endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithLogger sets the logger used for search events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a SerpAPI client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default().With("component", "serpapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type organicResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type imageResult struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

type videoResult struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	ImagesResults  []imageResult   `json:"images_results"`
	VideoResults   []videoResult   `json:"video_results"`
}

// Probe checks provider reachability with a minimal one-result query.
func (c *Client) Probe(ctx context.Context) bool {
	_, err := c.search(ctx, "google", "test", 1)
	if err != nil {
		c.logger.Debug("probe failed", "error", err)
		return false
	}
	return true
}

// SearchLinks returns up to n organic web results for the query.
func (c *Client) SearchLinks(ctx context.Context, query string, n int) []*core.WebSource {
	resp, err := c.search(ctx, "google", query, n)
	if err != nil {
		c.logger.Warn("link search failed", "query", query, "error", err)
		return nil
	}

	results := make([]*core.WebSource, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if r.Link == "" {
			continue
		}
		results = append(results, &core.WebSource{
			URL:     r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
		})
		if len(results) >= n {
			break
		}
	}
	return results
}

// SearchImages returns up to n image URLs for the query.
func (c *Client) SearchImages(ctx context.Context, query string, n int) []string {
	resp, err := c.search(ctx, "google_images", query, n)
	if err != nil {
		c.logger.Warn("image search failed", "query", query, "error", err)
		return nil
	}

	urls := make([]string, 0, len(resp.ImagesResults))
	for _, r := range resp.ImagesResults {
		u := r.Original
		if u == "" {
			u = r.Thumbnail
		}
		if u == "" {
			continue
		}
		urls = append(urls, u)
		if len(urls) >= n {
			break
		}
	}
	return urls
}

// SearchVideos returns up to n YouTube video identifiers for the query.
func (c *Client) SearchVideos(ctx context.Context, query string, n int) []string {
	resp, err := c.search(ctx, "youtube", query, n)
	if err != nil {
		c.logger.Warn("video search failed", "query", query, "error", err)
		return nil
	}

	ids := make([]string, 0, len(resp.VideoResults))
	for _, r := range resp.VideoResults {
		m := videoIDPattern.FindStringSubmatch(r.Link)
		if m == nil {
			continue
		}
		ids = append(ids, m[1])
		if len(ids) >= n {
			break
		}
	}
	return ids
}

func (c *Client) search(ctx context.Context, engine, query string, n int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("engine", engine)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(n))
	if engine == "youtube" {
		params.Set("search_query", query)
	} else {
		params.Set("q", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}
	return &parsed, nil
}
