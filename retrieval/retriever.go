package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/vector"
)

// contextSeparator joins formatted matches.
const contextSeparator = "\n\n"

// Retriever runs the strategy cascade against a vector store.
type Retriever struct {
	embedder   ai.Embedder
	store      storage.VectorStore
	adapter    *vector.Adapter
	strategies []Strategy
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithAdapter sets the dimension adapter applied to the query vector.
// Default adapts to the store's dimension with vector.TruncatePad.
func WithAdapter(adapter *vector.Adapter) Option {
	return func(r *Retriever) error {
		if adapter != nil {
			r.adapter = adapter
		}
		return nil
	}
}

// WithStrategies replaces the default cascade.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Retriever) error {
		if len(strategies) == 0 {
			return ErrNoStrategies
		}
		r.strategies = strategies
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) error {
		r.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a retriever over store.
func NewRetriever(embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	r := &Retriever{
		embedder:   embedder,
		store:      store,
		adapter:    vector.NewAdapter(store.Dim(), vector.TruncatePad),
		strategies: DefaultStrategies(),
		logger:     slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve returns the winning strategy's matches formatted as
// "Context #i: text" blocks, or "" when nothing matched.
func (r *Retriever) Retrieve(ctx context.Context, q core.RetrievalQuery) (string, error) {
	return r.RetrieveWithMonitor(ctx, q, nil)
}

// RetrieveWithMonitor is Retrieve with cascade callbacks.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, q core.RetrievalQuery, monitor Monitor) (string, error) {
	matches, err := r.MatchesWithMonitor(ctx, q, monitor)
	if err != nil {
		return "", err
	}
	return FormatContext(matches), nil
}

// Matches returns the ranked matches of the first non-empty strategy.
func (r *Retriever) Matches(ctx context.Context, q core.RetrievalQuery) ([]core.Match, error) {
	return r.MatchesWithMonitor(ctx, q, nil)
}

// MatchesWithMonitor is Matches with cascade callbacks.
func (r *Retriever) MatchesWithMonitor(ctx context.Context, q core.RetrievalQuery, monitor Monitor) ([]core.Match, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(q)

	// One embedding serves every strategy.
	embedding, err := r.embedder.EmbedText(ctx, q.SearchQuery)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	queryVector, err := r.adapter.Adapt(embedding)
	if err != nil {
		return nil, err
	}

	winner, matches, err := FirstNonEmpty(ctx, r.strategies, func(ctx context.Context, s Strategy) ([]core.Match, error) {
		req, ok := s.Request(q, queryVector)
		if !ok {
			r.logger.Debug("strategy not applicable", "strategy", s.Name)
			monitor.StrategyAttempted(s.Name, nil)
			return nil, nil
		}
		found, err := r.store.Query(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
		r.logger.Debug("strategy attempted", "strategy", s.Name, "matches", len(found))
		monitor.StrategyAttempted(s.Name, found)
		return found, nil
	})
	if err != nil {
		r.logger.Error("error querying for context", "project", q.ProjectName, "err", err)
		return nil, err
	}

	if winner < 0 {
		r.logger.Info("no context found", "project", q.ProjectName, "department", q.Department)
		monitor.Finish("", nil)
		return []core.Match{}, nil
	}

	name := r.strategies[winner].Name
	r.metrics.StrategyHit(name)
	r.logger.Info("context found", "strategy", name, "matches", len(matches))
	monitor.Finish(name, matches)
	return matches, nil
}

// FormatContext renders matches as 1-indexed "Context #i: text" blocks.
func FormatContext(matches []core.Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("Context #%d: %s", i+1, m.Metadata.Text)
	}
	return strings.Join(blocks, contextSeparator)
}
