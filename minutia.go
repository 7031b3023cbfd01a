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
// Package minutia wires the meeting analysis components into an Engine.
//
// An Engine owns the AI provider, the vector store and the lazily loaded
// local fallback model, and hands out the indexer, retriever, extractor
// and pipeline built on top of them.
package minutia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/ai/local"
	"github.com/poiesic/minutia/ai/openai"
	"github.com/poiesic/minutia/ai/simulated"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/embedding"
	"github.com/poiesic/minutia/extraction"
	"github.com/poiesic/minutia/indexing"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/pipeline"
	"github.com/poiesic/minutia/reindex"
	"github.com/poiesic/minutia/retrieval"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/storage/badger"
	"github.com/poiesic/minutia/storage/chromem"
	"github.com/poiesic/minutia/storage/qdrant"
	"github.com/poiesic/minutia/vector"
)

// Engine owns the AI provider, the vector store and the local model, and
// wires them into the indexer, retriever, extractor and pipeline. Create it
// with NewEngine and release it with Close.
type Engine struct {
	provider  ai.Provider
	store     storage.VectorStore
	handle    *local.Handle
	embedder  *embedding.FallbackEmbedder
	adapter   *vector.Adapter
	indexer   *indexing.Indexer
	retriever *retrieval.Retriever
	extractor *extraction.Extractor
	pipeline  *pipeline.Pipeline
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewProvider builds the provider named by cfg.Kind.
func NewProvider(cfg *ai.Config) (ai.Provider, error) {
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	kind, err := ai.ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	if kind == ai.KindSimulated {
		return simulated.NewProvider(), nil
	}
	return openai.NewProvider(cfg)
}

// OpenStore opens the configured vector store.
func OpenStore(ctx context.Context, cfg StoreConfig) (storage.VectorStore, error) {
	kind, err := ParseStoreKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", core.ErrConfiguration, cfg.Dim)
	}

	switch kind {
	case StoreBadger:
		var s *badger.Store
		if cfg.Path == "" {
			s, err = badger.NewMemoryStore(cfg.Dim)
		} else {
			s, err = badger.Open(cfg.Path, cfg.Dim)
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreQdrant:
		s, err := qdrant.Open(ctx, qdrant.Config{
			Address:    cfg.Host,
			APIKey:     cfg.APIKey,
			Collection: cfg.Index,
			Dim:        cfg.Dim,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := chromem.Open(cfg.Path, cfg.Dim)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// NewEngine builds every component. Configuration errors surface here,
// before any transcript is processed.
func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	m := o.metrics
	if m == nil {
		m = metrics.Default()
	}

	provider := o.provider
	if provider == nil {
		p, err := NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	store := o.vectorStore
	if store == nil {
		s, err := OpenStore(ctx, o.store)
		if err != nil {
			provider.Close()
			return nil, err
		}
		store = s
	}

	loader := o.localLoader
	if loader == nil {
		loader = local.FastEmbedLoader(o.modelCacheDir)
	}
	handle := local.NewHandle(loader, local.WithLogger(logger))

	e := &Engine{
		provider: provider,
		store:    store,
		handle:   handle,
		adapter:  vector.NewAdapter(store.Dim(), o.policy),
		metrics:  m,
		logger:   logger.With("component", "engine"),
	}
	e.embedder = embedding.NewFallbackEmbedder(
		provider.Embedder(),
		local.NewEmbedder(handle),
		embedding.WithLogger(logger),
		embedding.WithMetrics(m),
	)

	if err := e.build(o); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(o *options) error {
	var err error
	e.indexer, err = indexing.NewIndexer(e.embedder, e.store,
		indexing.WithAdapter(e.adapter),
		indexing.WithMetrics(e.metrics),
		indexing.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}

	e.retriever, err = retrieval.NewRetriever(e.embedder, e.store,
		retrieval.WithAdapter(e.adapter),
		retrieval.WithMetrics(e.metrics),
		retrieval.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}

	e.extractor = extraction.NewExtractor(e.provider.MetadataExtractor(), extraction.WithLogger(o.logger))

	pipelineOpts := []pipeline.Option{
		pipeline.WithTopK(o.topK),
		pipeline.WithMetrics(e.metrics),
		pipeline.WithLogger(o.logger),
	}
	if o.systemPrompt != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithSystemPrompt(o.systemPrompt))
	}
	if o.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithPoolSize(o.poolSize))
	}
	e.pipeline, err = pipeline.NewPipeline(e.extractor, e.indexer, e.retriever, e.provider.InsightsGenerator(), pipelineOpts...)
	return err
}

// Close releases the provider, the store and the local model. All errors
// are reported.
func (e *Engine) Close() error {
	var errs []error
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
		errs = append(errs, err)
	}
	if err := e.handle.Close(); err != nil {
		e.logger.Error("error closing local model", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Analyze runs the full pipeline on one transcript.
func (e *Engine) Analyze(ctx context.Context, transcript string) (*pipeline.Result, error) {
	return e.pipeline.Run(ctx, transcript)
}

// Store returns the vector store the engine owns.
func (e *Engine) Store() storage.VectorStore {
	return e.store
}

// Embedder returns the fallback embedder shared by every component.
func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

// Indexer returns the indexer.
func (e *Engine) Indexer() *indexing.Indexer {
	return e.indexer
}

// Retriever returns the context retriever.
func (e *Engine) Retriever() *retrieval.Retriever {
	return e.retriever
}

// Extractor returns the metadata extractor.
func (e *Engine) Extractor() *extraction.Extractor {
	return e.extractor
}

// Pipeline returns the analysis pipeline.
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

// Metrics returns the metrics the components report to.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// NewReindexer returns a reindexer over the engine's store, which must be
// able to enumerate its records.
func (e *Engine) NewReindexer(cfg *reindex.Config, progress io.Writer) (*reindex.Reindexer, error) {
	scannable, ok := e.store.(reindex.Store)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot enumerate records", reindex.ErrScannerRequired, e.store)
	}
	r, err := reindex.NewReindexer(scannable, e.embedder, cfg, progress)
	if err != nil {
		return nil, err
	}
	return r.WithAdapter(e.adapter), nil
}
