package mock

import (
	"context"
	"fmt"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses default deterministic behavior.
	GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateJSONFunc is called by GenerateJSON if set.
	// If nil, falls back to GenerateFunc, then to default behavior.
	GenerateJSONFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	callCount int
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{ModelName: "mock-model"}
}

// Generate returns a deterministic completion derived from the prompts.
func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, userPrompt)
	}

	return fmt.Sprintf("mock response to: %s", userPrompt), nil
}

// GenerateJSON returns a deterministic JSON completion.
func (m *MockGenerator) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.callCount++

	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, systemPrompt, userPrompt)
	}
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, userPrompt)
	}

	return "{}", nil
}

// Model returns the configured model name.
func (m *MockGenerator) Model() string {
	return m.ModelName
}

// CallCount returns the number of times any generate method was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
	m.GenerateJSONFunc = nil
}
