package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/chunking"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/vector"
)

// Indexer turns chunks into index records.
type Indexer struct {
	embedder ai.Embedder
	store    storage.VectorStore
	adapter  *vector.Adapter
	chunker  *chunking.Chunker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithAdapter sets the dimension adapter.
// Default adapts to the store's dimension with vector.TruncatePad.
func WithAdapter(adapter *vector.Adapter) Option {
	return func(ix *Indexer) error {
		if adapter != nil {
			ix.adapter = adapter
		}
		return nil
	}
}

// WithChunker sets the chunker used by IndexTranscript.
func WithChunker(chunker *chunking.Chunker) Option {
	return func(ix *Indexer) error {
		if chunker != nil {
			ix.chunker = chunker
		}
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) error {
		ix.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "indexer")
		return nil
	}
}

// NewIndexer creates an indexer writing to store.
func NewIndexer(embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Indexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	ix := &Indexer{
		embedder: embedder,
		store:    store,
		adapter:  vector.NewAdapter(store.Dim(), vector.TruncatePad),
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	if ix.chunker == nil {
		chunker, err := chunking.New(chunking.WithLogger(ix.logger))
		if err != nil {
			return nil, err
		}
		ix.chunker = chunker
	}
	return ix, nil
}

// Index embeds chunks and upserts one record per chunk, grouped by project
// namespace. It returns the number of records written.
func (ix *Indexer) Index(ctx context.Context, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i := range chunks {
		if err := core.ValidateChunk(&chunks[i]); err != nil {
			return 0, err
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	ix.logger.Debug("embedding chunks", "chunks", len(texts))
	embeddings, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ix.logger.Error("error generating embeddings", "err", err)
		return 0, err
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: embedding result mismatch. expected %d, received %d",
			core.ErrMalformedResponse, len(chunks), len(embeddings))
	}

	vectors, err := ix.adapter.AdaptAll(embeddings)
	if err != nil {
		return 0, err
	}

	byNamespace := make(map[string][]*core.IndexRecord)
	for i, chunk := range chunks {
		record := core.NewIndexRecord(chunk, vectors[i])
		byNamespace[record.Namespace] = append(byNamespace[record.Namespace], record)
	}

	written := 0
	for _, ns := range slices.Sorted(maps.Keys(byNamespace)) {
		records := byNamespace[ns]
		if err := ix.store.Upsert(ctx, ns, records...); err != nil {
			ix.logger.Error("error upserting records", "namespace", ns, "err", err)
			return written, err
		}
		written += len(records)
	}

	ix.metrics.RecordsIndexed(written)
	ix.logger.Info("indexed records", "records", written)
	return written, nil
}

// IndexTexts indexes each text as one chunk, numbered from zero.
func (ix *Indexer) IndexTexts(ctx context.Context, texts []string, projectName, department string, date time.Time) (int, error) {
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			Text:        text,
			Index:       i,
			ProjectName: projectName,
			Department:  department,
			Date:        date,
		}
	}
	return ix.Index(ctx, chunks)
}

// IndexTranscript chunks the transcript and indexes the chunks.
func (ix *Indexer) IndexTranscript(ctx context.Context, transcript string, meta chunking.Meta) (int, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return 0, err
	}
	return ix.Index(ctx, slices.Collect(ix.chunker.Chunks(transcript, meta)))
}
