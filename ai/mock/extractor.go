package mock

import (
	"context"
	"sync"

	"github.com/poiesic/minutia/core"
)

// MockMetadataExtractor is a test double for ai.MetadataExtractor.
type MockMetadataExtractor struct {
	// ExtractMetadataFunc is called by ExtractMetadata if set.
	// If nil, returns empty metadata.
	ExtractMetadataFunc func(ctx context.Context, transcript string) (*core.Metadata, error)

	mu        sync.Mutex
	callCount int
}

// NewMockMetadataExtractor creates a mock metadata extractor with default behavior.
func NewMockMetadataExtractor() *MockMetadataExtractor {
	return &MockMetadataExtractor{}
}

// ExtractMetadata returns the configured metadata, or an empty value.
func (m *MockMetadataExtractor) ExtractMetadata(ctx context.Context, transcript string) (*core.Metadata, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractMetadataFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, transcript)
	}
	return &core.Metadata{}, nil
}

// CallCount returns the number of times ExtractMetadata was called.
func (m *MockMetadataExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockMetadataExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractMetadataFunc = nil
}
