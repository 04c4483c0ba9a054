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


package weave

import (
	"log/slog"
	"time"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/ai/openai"
	"github.com/poiesic/weave/answer"
	"github.com/poiesic/weave/cache"
	"github.com/poiesic/weave/retrieve"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/storage/badger"
	"github.com/poiesic/weave/webfetch"
	"github.com/poiesic/weave/websearch"
	"github.com/poiesic/weave/websearch/duckduckgo"
	"github.com/poiesic/weave/websearch/serpapi"
)

const (
	inferenceCacheTTL = time.Hour
	pageCacheTTL      = 48 * time.Hour
)

// Engine wires the storage backend, caches, AI provider, search provider
// and fetch pipeline into one unit with a shared lifecycle. Construct it
// once at process start and share it across queries.
type Engine struct {
	backend        *badger.Backend
	docRepo        storage.DocumentRepository
	historyRepo    storage.HistoryRepository
	inferenceCache *cache.Cache[string]
	pageCache      *cache.Cache[string]
	provider       ai.AIProvider
	search         websearch.Provider
	fetcher        *webfetch.Fetcher
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig   *ai.Config
	serpAPIKey string
	search     websearch.Provider
}

// WithAIConfig overrides the default AI service configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithSerpAPIKey selects SerpAPI as the search provider.
// Without a key the engine falls back to DuckDuckGo Lite, which supports
// link search only.
func WithSerpAPIKey(key string) EngineOption {
	return func(o *engineOptions) {
		o.serpAPIKey = key
	}
}

// WithSearchProvider injects a search provider directly, overriding both
// the SerpAPI key and the DuckDuckGo fallback.
func WithSearchProvider(p websearch.Provider) EngineOption {
	return func(o *engineOptions) {
		o.search = p
	}
}

// NewEngine opens the storage backend at filePath and assembles every
// component on top of it.
func NewEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	// Create document repository
	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create history repository
	historyRepo, err := badger.NewHistoryRepository(backend)
	if err != nil {
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	// Both caches share the backend; each keeps its own key prefix and TTL.
	inferenceCache, err := cache.New[string]("inference", backend, cache.StringCodec{},
		cache.WithTTL[string](inferenceCacheTTL))
	if err != nil {
		historyRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}
	pageCache, err := cache.New[string]("pages", backend, cache.StringCodec{},
		cache.WithTTL[string](pageCacheTTL))
	if err != nil {
		historyRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		historyRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	search := options.search
	if search == nil {
		if options.serpAPIKey != "" {
			search, err = serpapi.New(options.serpAPIKey)
			if err != nil {
				provider.Close()
				historyRepo.Close()
				docRepo.Close()
				backend.Close()
				return nil, err
			}
		} else {
			search = duckduckgo.New()
		}
	}

	fetcher, err := webfetch.NewFetcher(webfetch.WithPageCache(pageCache))
	if err != nil {
		provider.Close()
		historyRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:        backend,
		docRepo:        docRepo,
		historyRepo:    historyRepo,
		inferenceCache: inferenceCache,
		pageCache:      pageCache,
		provider:       provider,
		search:         search,
		fetcher:        fetcher,
		logger:         slog.Default(),
	}, nil
}

func (e *Engine) Close() error {
	e.fetcher.Close()

	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := e.historyRepo.Close(); err != nil {
		e.logger.Error("error closing history repository", "err", err)
		return err
	}
	if err := e.docRepo.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.docRepo
}

func (e *Engine) HistoryRepository() storage.HistoryRepository {
	return e.historyRepo
}

func (e *Engine) AIProvider() ai.AIProvider {
	return e.provider
}

func (e *Engine) NewOrchestrator(opts ...retrieve.Option) (*retrieve.Orchestrator, error) {
	opts = append([]retrieve.Option{retrieve.WithInferenceCache(e.inferenceCache)}, opts...)
	return retrieve.NewOrchestrator(e.docRepo, e.provider, e.search, e.fetcher, opts...)
}

func (e *Engine) NewComposer(opts ...answer.Option) (*answer.Composer, error) {
	opts = append([]answer.Option{answer.WithInferenceCache(e.inferenceCache)}, opts...)
	return answer.NewComposer(e.provider, opts...)
}

// FlushCaches drops every cached inference result and fetched page.
func (e *Engine) FlushCaches() error {
	if err := e.inferenceCache.Flush(); err != nil {
		return err
	}
	return e.pageCache.Flush()
}
