package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/vector"
)

// Config holds the knobs of a reindex run.
type Config struct {
	// BatchSize is the number of records embedded per call.
	BatchSize int

	// ReportInterval is how often progress is printed, in records.
	ReportInterval int

	// MaxAttempts bounds embedding attempts per batch.
	MaxAttempts int

	// RetryDelay is the first backoff delay; it doubles on each retry.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
	}
}

// Stats summarizes a finished run.
type Stats struct {
	Namespaces int
	Records    int
	Elapsed    time.Duration
}

// Store is a vector store that can enumerate its records.
type Store interface {
	storage.VectorStore
	storage.RecordScanner
}

// Reindexer re-embeds the contents of a store.
type Reindexer struct {
	store    Store
	embedder ai.Embedder
	adapter  *vector.Adapter
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReindexer creates a reindexer. progress receives the status line,
// typically os.Stderr; nil discards it. A nil config uses DefaultConfig.
func NewReindexer(store Store, embedder ai.Embedder, config *Config, progress io.Writer) (*Reindexer, error) {
	if store == nil {
		return nil, ErrScannerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reindexer{
		store:    store,
		embedder: embedder,
		adapter:  vector.NewAdapter(store.Dim(), vector.TruncatePad),
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindexer"),
	}, nil
}

// WithAdapter overrides the dimension adapter and returns r.
func (r *Reindexer) WithAdapter(adapter *vector.Adapter) *Reindexer {
	if adapter != nil {
		r.adapter = adapter
	}
	return r
}

// Run re-embeds every record of every namespace.
func (r *Reindexer) Run(ctx context.Context) (*Stats, error) {
	namespaces, err := r.store.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	total, err := r.store.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in index (0 records)\n")
		return &Stats{Namespaces: len(namespaces)}, nil
	}

	fmt.Fprintf(r.progress, "Reindexing %d records in %d namespaces (batch size: %d)\n",
		total, len(namespaces), r.config.BatchSize)

	tracker := NewProgress(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	for _, ns := range namespaces {
		err := r.store.ForEach(ctx, ns, r.config.BatchSize, func(batch []*core.IndexRecord) error {
			if err := r.reembed(ctx, ns, batch); err != nil {
				return fmt.Errorf("namespace %s: %w", ns, err)
			}
			tracker.Add(len(batch))
			return nil
		})
		if err != nil {
			r.logger.Error("reindex failed", "namespace", ns, "processed", tracker.Processed(), "err", err)
			return nil, err
		}
		r.logger.Debug("namespace reindexed", "namespace", ns)
	}

	tracker.Done()
	stats := &Stats{
		Namespaces: len(namespaces),
		Records:    tracker.Processed(),
		Elapsed:    tracker.Elapsed(),
	}
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d records in %v\n",
		stats.Records, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}

// reembed embeds one batch with retry and writes it back.
func (r *Reindexer) reembed(ctx context.Context, namespace string, batch []*core.IndexRecord) error {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Metadata.Text
	}

	var embeddings [][]float32
	err := Retry(ctx, r.config.MaxAttempts, r.config.RetryDelay, func(ctx context.Context) error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to embed batch after %d attempts: %w", r.config.MaxAttempts, err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			core.ErrMalformedResponse, len(batch), len(embeddings))
	}

	vectors, err := r.adapter.AdaptAll(embeddings)
	if err != nil {
		return err
	}

	updated := make([]*core.IndexRecord, len(batch))
	for i, record := range batch {
		updated[i] = &core.IndexRecord{
			ID:        record.ID,
			Namespace: namespace,
			Vector:    vectors[i],
			Metadata:  record.Metadata,
		}
	}
	return r.store.Upsert(ctx, namespace, updated...)
}
