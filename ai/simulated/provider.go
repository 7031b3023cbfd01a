package simulated

import (
	"log/slog"

	"github.com/poiesic/minutia/ai"
)

// Provider implements ai.Provider without any external service.
type Provider struct {
	embedder  *Embedder
	generator InsightsGenerator
	extractor MetadataExtractor
	logger    *slog.Logger
}

// NewProvider creates a simulated provider producing Dim-length embeddings.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider() ai.Provider {
	return newProvider(Dim)
}

func newProvider(dim int) *Provider {
	return &Provider{
		embedder: newEmbedder(dim),
		logger:   slog.Default().With("component", "simulated-provider"),
	}
}

// Embedder returns the feature hashing embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// InsightsGenerator returns the heuristic insights generator.
func (p *Provider) InsightsGenerator() ai.InsightsGenerator {
	return p.generator
}

// MetadataExtractor returns the keyword metadata extractor.
func (p *Provider) MetadataExtractor() ai.MetadataExtractor {
	return p.extractor
}

// Close is a no-op.
func (p *Provider) Close() error {
	p.logger.Debug("closing simulated provider")
	return nil
}
