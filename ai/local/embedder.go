package local

import (
	"context"
	"fmt"

	"github.com/poiesic/minutia/core"
)

// Embedder implements ai.Embedder on top of a Handle.
type Embedder struct {
	handle *Handle
}

// NewEmbedder wraps h. The model is not loaded until the first embedding.
func NewEmbedder(h *Handle) *Embedder {
	return &Embedder{handle: h}
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds the whole batch in one model call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	model, err := e.handle.Model(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := model.Embed(texts)
	if err != nil {
		return nil, fmt.Errorf("local embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: local model returned %d vectors for %d texts", core.ErrMalformedResponse, len(vectors), len(texts))
	}
	return vectors, nil
}
