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
package minutia

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/ai/local"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/vector"
)

// StoreKind selects the vector store backend.
type StoreKind string

const (
	StoreChromem StoreKind = "chromem"
	StoreBadger  StoreKind = "badger"
	StoreQdrant  StoreKind = "qdrant"
)

// DefaultIndexName names the qdrant collection when none is configured.
const DefaultIndexName = "meeting-context-index"

// ParseStoreKind converts a configured store name.
func ParseStoreKind(s string) (StoreKind, error) {
	switch k := StoreKind(strings.ToLower(strings.TrimSpace(s))); k {
	case StoreChromem, StoreBadger, StoreQdrant:
		return k, nil
	case "":
		return StoreChromem, nil
	}
	return "", fmt.Errorf("%w: %w: %q (want chromem, badger or qdrant)", core.ErrConfiguration, storage.ErrUnknownBackend, s)
}

// StoreConfig locates the vector store.
type StoreConfig struct {
	Kind StoreKind
	// Path is the on-disk location for chromem and badger. Empty keeps the
	// store in memory.
	Path string
	// Index is the qdrant collection name.
	Index string
	// Host is the qdrant address.
	Host string
	// APIKey authenticates against qdrant.
	APIKey string
	// Dim is the vector dimension every record is adapted to.
	Dim int
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	aiConfig      *ai.Config
	provider      ai.Provider
	store         StoreConfig
	vectorStore   storage.VectorStore
	policy        vector.Policy
	topK          int
	systemPrompt  string
	poolSize      int
	modelCacheDir string
	localLoader   local.Loader
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func defaultOptions() *options {
	return &options{
		aiConfig: ai.DefaultConfig(),
		store: StoreConfig{
			Kind:  StoreChromem,
			Index: DefaultIndexName,
			Dim:   vector.DefaultDim,
		},
		policy: vector.TruncatePad,
		topK:   core.DefaultTopK,
	}
}

// WithAIConfig sets the provider configuration.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider uses an already constructed provider instead of building
// one from the AI config. The engine takes ownership and closes it.
func WithProvider(p ai.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithStoreConfig selects and locates the vector store.
func WithStoreConfig(cfg StoreConfig) Option {
	return func(o *options) {
		if cfg.Kind == "" {
			cfg.Kind = StoreChromem
		}
		if cfg.Index == "" {
			cfg.Index = DefaultIndexName
		}
		if cfg.Dim <= 0 {
			cfg.Dim = vector.DefaultDim
		}
		o.store = cfg
	}
}

// WithVectorStore uses an already opened store. The engine takes
// ownership and closes it.
func WithVectorStore(s storage.VectorStore) Option {
	return func(o *options) {
		o.vectorStore = s
	}
}

// WithPolicy sets the dimension adaptation policy.
// Default is vector.TruncatePad.
func WithPolicy(p vector.Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithTopK sets the number of context matches per retrieval strategy.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithSystemPrompt replaces the pipeline's default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) {
		o.systemPrompt = prompt
	}
}

// WithPoolSize sets the number of concurrent batch runs.
func WithPoolSize(size int) Option {
	return func(o *options) {
		o.poolSize = size
	}
}

// WithModelCache sets the directory the local fallback model is cached in.
func WithModelCache(dir string) Option {
	return func(o *options) {
		o.modelCacheDir = dir
	}
}

// WithLocalLoader replaces the fastembed loader of the fallback model.
func WithLocalLoader(loader local.Loader) Option {
	return func(o *options) {
		o.localLoader = loader
	}
}

// WithMetrics sets the metrics sink. Default is metrics.Default().
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
