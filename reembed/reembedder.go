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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of fragments to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of fragments)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the fragment vectors of an owner's documents,
// for example after switching to a different embedding model.
type Reembedder struct {
	docs     storage.DocumentRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(docs storage.DocumentRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		docs:     docs,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run reembeds every fragment of every document owned by ownerID.
// Each document is written back once all of its fragments carry new vectors,
// so a failure mid-run leaves documents either fully old or fully new.
func (r *Reembedder) Run(ctx context.Context, ownerID int64) error {
	docs, err := r.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	totalFragments := 0
	for _, doc := range docs {
		totalFragments += len(doc.Fragments)
	}
	if totalFragments == 0 {
		fmt.Fprintf(r.progress, "No fragments found for owner %d (0 documents)\n", ownerID)
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d fragments across %d documents (batch size: %d)\n",
		totalFragments, len(docs), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, totalFragments, r.config.ReportInterval)
	tracker.Start()

	for _, doc := range docs {
		if err := r.reembedDocument(ctx, doc, tracker); err != nil {
			return fmt.Errorf("failed to reembed %q: %w", doc.Name, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d fragments in %v (%.1f fragments/sec)\n",
		totalFragments, elapsed.Round(time.Second), float64(totalFragments)/elapsed.Seconds())

	return nil
}

// reembedDocument regenerates all vectors of one document in batches and
// stores the updated document.
func (r *Reembedder) reembedDocument(ctx context.Context, doc *core.Document, tracker *ProgressTracker) error {
	for start := 0; start < len(doc.Fragments); start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > len(doc.Fragments) {
			end = len(doc.Fragments)
		}
		batch := doc.Fragments[start:end]

		texts := make([]string, len(batch))
		for i, frag := range batch {
			texts[i] = frag.Text
		}

		var embeddings [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			embeddings, err = r.embedder.EmbedTexts(ctx, texts)
			return err
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
		}

		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		for i := range batch {
			batch[i].Vector = NormalizeVector(embeddings[i])
		}

		tracker.Increment(len(batch))
	}

	if _, err := r.docs.PutDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}
