package mock

import (
	"context"
	"sync"

	"github.com/poiesic/minutia/core"
)

// MockInsightsGenerator is a test double for ai.InsightsGenerator.
type MockInsightsGenerator struct {
	// GenerateInsightsFunc is called by GenerateInsights if set.
	GenerateInsightsFunc func(ctx context.Context, transcript, systemPrompt string) (*core.Insights, error)

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

// NewMockInsightsGenerator creates a mock generator with default behavior.
func NewMockInsightsGenerator() *MockInsightsGenerator {
	return &MockInsightsGenerator{}
}

// GenerateInsights records the system prompt and returns canned insights.
func (m *MockInsightsGenerator) GenerateInsights(ctx context.Context, transcript, systemPrompt string) (*core.Insights, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = systemPrompt
	fn := m.GenerateInsightsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, transcript, systemPrompt)
	}
	return &core.Insights{
		Overview: "Mock overview: " + core.Prefix(transcript, 40),
		ToDoList: []core.ToDoItem{},
	}, nil
}

// LastPrompt returns the system prompt of the most recent call.
func (m *MockInsightsGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// CallCount returns the number of times GenerateInsights was called.
func (m *MockInsightsGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count, recorded prompt and custom functions.
func (m *MockInsightsGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastPrompt = ""
	m.GenerateInsightsFunc = nil
}
