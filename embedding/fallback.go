// Package embedding combines a primary remote embedder with a local
// fallback model.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/metrics"
)

// ErrAllEmbeddersFailed is returned when both the primary and the fallback fail.
var ErrAllEmbeddersFailed = errors.New("primary and fallback embedders failed")

// Result is the outcome of one embedding attempt.
type Result struct {
	Vectors [][]float32
	Err     error
}

// OK reports whether the attempt produced vectors.
func (r Result) OK() bool {
	return r.Err == nil
}

// Attempt runs e over texts and captures the outcome.
func Attempt(ctx context.Context, e ai.Embedder, texts []string) Result {
	vectors, err := e.EmbedTexts(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return Result{Vectors: vectors, Err: err}
}

// FallbackEmbedder implements ai.Embedder. Each batch goes to the primary
// embedder first; on any failure the whole batch is embedded by the
// fallback instead. Items are never retried individually.
type FallbackEmbedder struct {
	primary  ai.Embedder
	fallback ai.Embedder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a FallbackEmbedder.
type Option func(*FallbackEmbedder)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *FallbackEmbedder) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "fallback-embedder")
	}
}

// WithMetrics counts fallbacks in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *FallbackEmbedder) {
		f.metrics = m
	}
}

// NewFallbackEmbedder creates an embedder that degrades from primary to
// fallback. A nil fallback disables degradation.
func NewFallbackEmbedder(primary, fallback ai.Embedder, opts ...Option) *FallbackEmbedder {
	f := &FallbackEmbedder{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default().With("component", "fallback-embedder"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Embed returns the explicit outcome of embedding texts.
func (f *FallbackEmbedder) Embed(ctx context.Context, texts []string) Result {
	if len(texts) == 0 {
		return Result{Vectors: [][]float32{}}
	}

	primary := Attempt(ctx, f.primary, texts)
	if primary.OK() {
		return primary
	}
	if f.fallback == nil {
		return primary
	}
	if ctx.Err() != nil {
		return Result{Err: ctx.Err()}
	}

	f.logger.Warn("primary embedder failed, using local model", "texts", len(texts), "err", primary.Err)
	f.metrics.EmbeddingFallback()

	local := Attempt(ctx, f.fallback, texts)
	if local.OK() {
		return local
	}

	f.logger.Error("fallback embedder failed", "err", local.Err)
	return Result{Err: fmt.Errorf("%w: primary: %w; fallback: %w", ErrAllEmbeddersFailed, primary.Err, local.Err)}
}

// EmbedTexts implements ai.Embedder.
func (f *FallbackEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	r := f.Embed(ctx, texts)
	return r.Vectors, r.Err
}

// EmbedText implements ai.Embedder.
func (f *FallbackEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	r := f.Embed(ctx, []string{text})
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Vectors[0], nil
}
