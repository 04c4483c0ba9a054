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


// Package answer turns assembled context into a cited answer for the user.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/cache"
	"github.com/poiesic/weave/core"
)

// Composer generates user-facing answers from retrieved context and prior
// conversation turns. Generation failures surface as a fixed apology
// message, never as a raw error.
type Composer struct {
	generator ai.Generator
	inference *cache.Cache[string]
	logger    *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer) error

// WithInferenceCache routes answer generation through the given cache.
func WithInferenceCache(c *cache.Cache[string]) Option {
	return func(cp *Composer) error {
		cp.inference = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cp *Composer) error {
		if logger == nil {
			logger = slog.Default()
		}
		cp.logger = logger
		return nil
	}
}

// NewComposer creates a new composer.
func NewComposer(provider ai.AIProvider, opts ...Option) (*Composer, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	c := &Composer{
		generator: provider.Generator(),
		logger:    slog.Default().With("component", "answer"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Compose produces the answer to a query given its retrieved context and
// the chat's recent turns. It always returns displayable text: if the
// model is unreachable the result is a fixed apology message.
func (c *Composer) Compose(ctx context.Context, query, contextStr string, history []*core.ChatTurn) string {
	systemPrompt := fmt.Sprintf(composePromptTemplate, contextStr, formatHistory(history))

	generate := func(ctx context.Context) (string, error) {
		return c.generator.Generate(ctx, systemPrompt, query)
	}

	var response string
	var err error
	if c.inference != nil {
		key := cache.Key(systemPrompt, query, c.generator.Model())
		response, err = c.inference.GetOrCompute(ctx, key, generate)
	} else {
		response, err = generate(ctx)
	}
	if err != nil {
		c.logger.Error("error generating answer", "err", err)
		return apologyMessage
	}

	return strings.TrimSpace(response)
}

// formatHistory renders prior turns for the prompt, oldest first.
func formatHistory(history []*core.ChatTurn) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Previous conversation context:\n")
	for _, turn := range history {
		if turn == nil {
			continue
		}
		switch turn.Speaker {
		case core.SpeakerTypeHuman:
			sb.WriteString("\nUser: " + turn.Contents + "\n")
		case core.SpeakerTypeAI:
			sb.WriteString("Assistant: " + turn.Contents + "\n")
		}
	}
	return sb.String()
}
