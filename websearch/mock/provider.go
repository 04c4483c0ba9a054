// Package mock provides a test double for websearch.Provider.
package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/websearch"
)

// MockProvider is a test double for websearch.Provider.
// It allows custom behavior injection via function fields.
type MockProvider struct {
	// Available controls the default Probe answer.
	Available bool

	// ProbeFunc is called by Probe if set.
	ProbeFunc func(ctx context.Context) bool

	// SearchLinksFunc is called by SearchLinks if set.
	// If nil, uses default deterministic behavior.
	SearchLinksFunc func(ctx context.Context, query string, n int) []*core.WebSource

	// SearchImagesFunc is called by SearchImages if set.
	SearchImagesFunc func(ctx context.Context, query string, n int) []string

	// SearchVideosFunc is called by SearchVideos if set.
	SearchVideosFunc func(ctx context.Context, query string, n int) []string

	callCount int
}

var _ websearch.Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider that reports itself available.
func NewMockProvider() *MockProvider {
	return &MockProvider{Available: true}
}

// Probe reports the configured availability.
func (m *MockProvider) Probe(ctx context.Context) bool {
	m.callCount++
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx)
	}
	return m.Available
}

// SearchLinks returns deterministic placeholder results.
func (m *MockProvider) SearchLinks(ctx context.Context, query string, n int) []*core.WebSource {
	m.callCount++
	if m.SearchLinksFunc != nil {
		return m.SearchLinksFunc(ctx, query, n)
	}

	results := make([]*core.WebSource, n)
	for i := range results {
		results[i] = &core.WebSource{
			URL:     fmt.Sprintf("https://example.com/%s/%d", query, i),
			Title:   fmt.Sprintf("Result %d for %s", i, query),
			Snippet: fmt.Sprintf("Snippet %d about %s", i, query),
		}
	}
	return results
}

// SearchImages returns deterministic placeholder image URLs.
func (m *MockProvider) SearchImages(ctx context.Context, query string, n int) []string {
	m.callCount++
	if m.SearchImagesFunc != nil {
		return m.SearchImagesFunc(ctx, query, n)
	}

	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://img.example.com/%s/%d.jpg", query, i)
	}
	return urls
}

// SearchVideos returns deterministic placeholder video identifiers.
func (m *MockProvider) SearchVideos(ctx context.Context, query string, n int) []string {
	m.callCount++
	if m.SearchVideosFunc != nil {
		return m.SearchVideosFunc(ctx, query, n)
	}

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("video-%s-%d", query, i)
	}
	return ids
}

// CallCount returns the number of times any method was called.
func (m *MockProvider) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockProvider) Reset() {
	m.callCount = 0
	m.ProbeFunc = nil
	m.SearchLinksFunc = nil
	m.SearchImagesFunc = nil
	m.SearchVideosFunc = nil
}
