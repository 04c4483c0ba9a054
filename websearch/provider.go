// Package websearch defines the search provider abstraction used by the
// retrieval pipeline, with SerpAPI and DuckDuckGo Lite implementations in
// subpackages.
package websearch

import (
	"context"

	"github.com/poiesic/weave/core"
)

// Provider performs web searches. Implementations degrade softly: a failed
// or empty search yields an empty result, never an error, because retrieval
// treats the web as an optional enrichment.
type Provider interface {
	// Probe reports whether the provider is currently reachable.
	// It must return quickly; callers bound it with a short context.
	Probe(ctx context.Context) bool

	// SearchLinks returns up to n web results for the query.
	SearchLinks(ctx context.Context, query string, n int) []*core.WebSource

	// SearchImages returns up to n image URLs for the query.
	SearchImages(ctx context.Context, query string, n int) []string

	// SearchVideos returns up to n video identifiers for the query.
	SearchVideos(ctx context.Context, query string, n int) []string
}
