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


package openai

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
)

// Provider implements ai.Provider using OpenAI or Azure OpenAI services.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	generator *InsightsGenerator
	extractor *MetadataExtractor
	logger    *slog.Logger
}

// NewProvider creates a new AI provider for the azure and openai kinds.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Kind != ai.KindAzure && config.Kind != ai.KindOpenAI {
		return nil, fmt.Errorf("%w: openai provider cannot serve kind %q", core.ErrConfiguration, config.Kind)
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	generator, err := newInsightsGenerator(config)
	if err != nil {
		return nil, err
	}

	extractor, err := newMetadataExtractor(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		generator: generator,
		extractor: extractor,
		logger:    slog.Default().With("component", "openai-provider", "kind", config.Kind),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// InsightsGenerator returns the insights generation service.
func (p *Provider) InsightsGenerator() ai.InsightsGenerator {
	return p.generator
}

// MetadataExtractor returns the metadata extraction service.
func (p *Provider) MetadataExtractor() ai.MetadataExtractor {
	return p.extractor
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
