// Package extraction scopes a transcript to a project, department and
// search string.
package extraction

import (
	"context"
	"log/slog"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
)

// Extractor wraps an ai.MetadataExtractor and never fails: without a
// model, or when the model call fails, it falls back to defaults.
type Extractor struct {
	extractor ai.MetadataExtractor
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "metadata-extractor")
	}
}

// NewExtractor creates an extractor. A nil extractor is allowed and
// yields default metadata for every transcript.
func NewExtractor(extractor ai.MetadataExtractor, opts ...Option) *Extractor {
	e := &Extractor{
		extractor: extractor,
		logger:    slog.Default().With("component", "metadata-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns fully populated metadata for transcript. Fields the
// model leaves empty get the defaults: "General Discussion", "General" and
// the first 200 characters of the transcript.
func (e *Extractor) Extract(ctx context.Context, transcript string) core.Metadata {
	if e.extractor == nil {
		e.logger.Debug("no metadata model configured, using defaults")
		return core.DefaultMetadata(transcript)
	}

	md, err := e.extractor.ExtractMetadata(ctx, transcript)
	if err != nil {
		e.logger.Warn("metadata extraction failed, using defaults", "err", err)
		return core.DefaultMetadata(transcript)
	}

	out := core.FillMetadataDefaults(md, transcript)
	e.logger.Debug("extracted metadata", "project", out.ProjectName, "department", out.Department)
	return out
}
