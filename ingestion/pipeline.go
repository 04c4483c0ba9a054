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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// Source is one document to ingest.
type Source struct {
	Name string
	Text string
}

// Pipeline embeds and stores documents. Multiple sources are processed
// concurrently through a worker pool.
type Pipeline struct {
	docs      storage.DocumentRepository
	embedder  ai.Embedder
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithChunkSize sets the maximum fragment length in runes.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		p.chunkSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(docs storage.DocumentRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		docs:      docs,
		embedder:  provider.Embedder(),
		pool:      pool,
		chunkSize: defaultChunkSize,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestDocument chunks, embeds, and stores a single source as a document
// owned by ownerID. An existing document with the same name is replaced.
func (p *Pipeline) IngestDocument(ctx context.Context, ownerID int64, src Source) (*core.Document, error) {
	chunks := chunkText(src.Text, p.chunkSize)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, src.Name)
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %q: %w", src.Name, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch for %q: expected %d, got %d",
			src.Name, len(chunks), len(embeddings))
	}

	fragments := make([]core.FragmentVector, len(chunks))
	for i, chunk := range chunks {
		fragments[i] = core.FragmentVector{
			Vector: embeddings[i],
			Text:   chunk,
			Page:   i + 1,
		}
	}

	doc, err := p.docs.PutDocument(ctx, &core.Document{
		Name:      src.Name,
		OwnerID:   ownerID,
		Fragments: fragments,
		Summary:   summarize(chunks[0]),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store %q: %w", src.Name, err)
	}

	p.logger.Info("document ingested", "name", src.Name, "owner", ownerID, "fragments", len(fragments))
	return doc, nil
}

// IngestAll processes sources concurrently and returns the stored documents
// in input order. Failed sources leave a nil entry in the result slice and
// their errors are joined into the returned error.
func (p *Pipeline) IngestAll(ctx context.Context, ownerID int64, sources ...Source) ([]*core.Document, error) {
	docs := make([]*core.Document, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			docs[i], errs[i] = p.IngestDocument(ctx, ownerID, src)
		}
		if err := p.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return docs, errors.Join(errs...)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
