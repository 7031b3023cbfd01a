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


package mock

import "github.com/poiesic/minutia/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates the mock services.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockInsightsGenerator
	extractor *MockMetadataExtractor
	closed    bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use the GetMock accessors to reach concrete types for test assertions.
func NewMockProvider() ai.Provider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockInsightsGenerator(), NewMockMetadataExtractor())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockInsightsGenerator, extractor *MockMetadataExtractor) ai.Provider {
	return &MockProvider{
		embedder:  embedder,
		generator: generator,
		extractor: extractor,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// InsightsGenerator returns the mock insights generator.
func (p *MockProvider) InsightsGenerator() ai.InsightsGenerator {
	return p.generator
}

// MetadataExtractor returns the mock metadata extractor.
func (p *MockProvider) MetadataExtractor() ai.MetadataExtractor {
	return p.extractor
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the underlying mock insights generator.
func (p *MockProvider) GetMockGenerator() *MockInsightsGenerator {
	return p.generator
}

// GetMockExtractor returns the underlying mock metadata extractor.
func (p *MockProvider) GetMockExtractor() *MockMetadataExtractor {
	return p.extractor
}
