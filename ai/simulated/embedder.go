package simulated

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/poiesic/minutia/vector"
)

// Dim is the length of simulated embeddings.
const Dim = 384

// Embedder hashes lowercase word tokens into a fixed number of signed
// buckets. Texts sharing words land close together under cosine similarity.
type Embedder struct {
	dim int
}

func newEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = Dim
	}
	return &Embedder{dim: dim}
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make([]float32, e.dim)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Zero vectors have no direction; token-less text shares one bucket.
		v[0] = 1
		return v, nil
	}
	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		if sum&(1<<63) != 0 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}
	return vector.Normalize(v), nil
}

// EmbedTexts embeds each text in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
