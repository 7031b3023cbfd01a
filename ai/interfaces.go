package ai

import (
	"context"

	"github.com/poiesic/minutia/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates one embedding per input text.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// InsightsGenerator produces structured insights from a meeting transcript.
// Implementations must be thread-safe for concurrent use.
type InsightsGenerator interface {
	// GenerateInsights analyzes the transcript under the given system prompt.
	// The prompt usually embeds retrieved historical context.
	// Implementations must use a constrained output mode so that the overview
	// and to-do list are always present and typed.
	GenerateInsights(ctx context.Context, transcript, systemPrompt string) (*core.Insights, error)
}

// MetadataExtractor derives the project, department and search string of a transcript.
// Implementations must be thread-safe for concurrent use.
type MetadataExtractor interface {
	// ExtractMetadata returns the model's view of the transcript's metadata.
	// Fields may be empty; callers fill defaults.
	ExtractMetadata(ctx context.Context, transcript string) (*core.Metadata, error)
}

// Provider aggregates the capabilities of one AI backend.
// A provider is chosen once at configuration time.
type Provider interface {
	// Embedder returns the primary text embedding service.
	Embedder() Embedder

	// InsightsGenerator returns the insights generation service.
	InsightsGenerator() InsightsGenerator

	// MetadataExtractor returns the metadata extraction service.
	MetadataExtractor() MetadataExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
