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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/weave"
	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/ai/openai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/ingestion"
	"github.com/poiesic/weave/reembed"
	"github.com/poiesic/weave/retrieve"
	"github.com/poiesic/weave/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "weave",
		Usage: "Context retrieval engine over private documents and the web",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Answer a query from stored documents and the web",
				Action:    queryCommand,
				ArgsUsage: "<query text>",
				Flags: append(engineFlags(),
					&cli.Int64Flag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner ID whose documents are searched",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "chat",
						Usage: "Chat ID for conversation continuity (new chat when omitted)",
					},
				),
			},
			{
				Name:      "seed",
				Usage:     "Embed a text file and store it as a document",
				Action:    seedCommand,
				ArgsUsage: "<file>...",
				Flags: append(engineFlags(),
					&cli.Int64Flag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner ID the documents belong to",
						Required: true,
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate fragment vectors with the current embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Int64Flag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner ID whose documents are reembedded",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of fragments to embed per batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Progress report frequency in fragments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: time.Second,
					},
				},
			},
			{
				Name:   "flush-cache",
				Usage:  "Drop all cached inference results and fetched pages",
				Action: flushCacheCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:    "serpapi-key",
			Usage:   "SerpAPI key (DuckDuckGo Lite fallback when omitted)",
			EnvVars: []string{"SERPAPI_KEY"},
		},
	}
}

func openEngine(c *cli.Context) (*weave.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return weave.NewEngine(c.String("db"),
		weave.WithAIConfig(aiConfig),
		weave.WithSerpAPIKey(c.String("serpapi-key")),
	)
}

func queryCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	orchestrator, err := engine.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Close()

	composer, err := engine.NewComposer()
	if err != nil {
		return fmt.Errorf("failed to create composer: %w", err)
	}

	chatID := c.String("chat")
	if chatID == "" {
		chatID = uuid.NewString()
	}

	ctx := context.Background()
	start := time.Now()

	result, err := orchestrator.RetrieveContext(ctx, &retrieve.Request{
		Query:   query,
		OwnerID: c.Int64("owner"),
		ChatID:  chatID,
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	history, err := engine.HistoryRepository().RecentTurns(ctx, chatID, 6)
	if err != nil {
		slog.Warn("could not load chat history", "chatID", chatID, "err", err)
	}

	response := composer.Compose(ctx, query, result.Context, history)

	if err := engine.HistoryRepository().AppendTurns(ctx, chatID,
		&core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: query},
		&core.ChatTurn{Speaker: core.SpeakerTypeAI, Contents: response},
	); err != nil {
		slog.Warn("could not record chat turns", "chatID", chatID, "err", err)
	}

	fmt.Printf("Chat: %s (%s)\n\n", result.ChatName, chatID)
	fmt.Println(response)

	if len(result.References) > 0 {
		fmt.Println("\nReferences:")
		for _, ref := range result.References {
			fmt.Printf("  %s pages %v (similarity %.2f)\n", ref.Name, ref.Pages, ref.BestSimilarity)
		}
	}
	if len(result.Sources) > 0 {
		fmt.Println("\nOnline sources:")
		for _, src := range result.Sources {
			fmt.Printf("  %s (%s)\n", src.Title, src.URL)
		}
	}
	if len(result.RelatedQueries) > 0 {
		fmt.Println("\nRelated queries:")
		for _, q := range result.RelatedQueries {
			fmt.Printf("  %s\n", q)
		}
	}

	slog.Debug("query answered", "elapsed", time.Since(start))
	return nil
}

func seedCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	sources := make([]ingestion.Source, 0, c.Args().Len())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources = append(sources, ingestion.Source{
			Name: documentName(path),
			Text: string(data),
		})
	}

	pipeline, err := ingestion.NewPipeline(engine.DocumentRepository(), engine.AIProvider())
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	docs, err := pipeline.IngestAll(context.Background(), c.Int64("owner"), sources...)
	for _, doc := range docs {
		if doc != nil {
			fmt.Fprintf(os.Stderr, "%s: %d fragments stored\n", doc.Name, len(doc.Fragments))
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	docs, err := badger.NewDocumentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer docs.Close()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	reembedder := reembed.NewReembedder(docs, embedder, reembedConfig, os.Stderr)
	if err := reembedder.Run(ctx, c.Int64("owner")); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func flushCacheCommand(c *cli.Context) error {
	engine, err := weave.NewEngine(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	if err := engine.FlushCaches(); err != nil {
		return fmt.Errorf("failed to flush caches: %w", err)
	}
	fmt.Fprintln(os.Stderr, "caches flushed")
	return nil
}

// documentName returns the last path segment, used as the stored document name.
func documentName(path string) string {
	parts := strings.Split(path, string(os.PathSeparator))
	return parts[len(parts)-1]
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
