package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/minutia/core"
)

// Dependency names the runtime the local model needs.
const Dependency = "fastembed (onnxruntime)"

// Model embeds a batch of passages.
type Model interface {
	Embed(texts []string) ([][]float32, error)
	Close() error
}

// Loader creates the Model. It is called at most once per Handle.
type Loader func() (Model, error)

// Handle is a lazily initialised, shared local model.
type Handle struct {
	loader Loader
	logger *slog.Logger

	once   sync.Once
	model  Model
	err    error
	loaded atomic.Bool

	mu     sync.Mutex
	closed bool
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithLogger sets the handle's logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) HandleOption {
	return func(h *Handle) {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger.With("component", "local-model")
	}
}

// NewHandle returns a handle that defers calling loader until first use.
func NewHandle(loader Loader, opts ...HandleOption) *Handle {
	h := &Handle{
		loader: loader,
		logger: slog.Default().With("component", "local-model"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Model returns the loaded model, loading it on the first call. A failed
// load is remembered and returned to every later caller.
func (h *Handle) Model(ctx context.Context) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: local model handle is closed", core.ErrConfiguration)
	}

	h.once.Do(func() {
		if h.loader == nil {
			h.err = fmt.Errorf("%w: no loader for local dependency %s", core.ErrConfiguration, Dependency)
			return
		}
		h.logger.Info("loading local embedding model")
		h.model, h.err = h.loader()
		if h.err != nil {
			h.logger.Error("failed to load local embedding model", "err", h.err)
			return
		}
		h.loaded.Store(true)
		h.logger.Info("local embedding model ready")
	})
	return h.model, h.err
}

// Loaded reports whether a model has been loaded successfully.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded.Load() && !h.closed
}

// Close releases the model if it was loaded. Later calls to Model fail.
func (h *Handle) Close() error {
	// Wait out an in-flight load so the model is not leaked.
	h.once.Do(func() {})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.model != nil {
		return h.model.Close()
	}
	return nil
}
