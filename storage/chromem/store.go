// Package chromem implements storage.VectorStore on chromem-go, an
// embeddable vector database. Each namespace is one collection.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
)

// Store implements storage.VectorStore and storage.RecordScanner.
type Store struct {
	db     *chromem.DB
	dim    int
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var (
	_ storage.VectorStore   = (*Store)(nil)
	_ storage.RecordScanner = (*Store)(nil)
)

// errNoEmbedding is returned by the collection embedding func. Records
// always arrive embedded, so chromem never needs to embed on its own.
var errNoEmbedding = errors.New("chromem: documents must be embedded before upsert")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// NewMemoryStore creates a non-persistent store of dimension dim.
func NewMemoryStore(dim int) *Store {
	return newStore(chromem.NewDB(), dim)
}

// Open opens a store persisted under path. An empty path gives an
// in-memory store.
func Open(path string, dim int) (*Store, error) {
	if path == "" {
		return NewMemoryStore(dim), nil
	}
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
	}
	return newStore(db, dim), nil
}

func newStore(db *chromem.DB, dim int) *Store {
	return &Store{
		db:     db,
		dim:    dim,
		logger: slog.Default().With("component", "chromem-store"),
	}
}

// Dim returns the configured vector dimension.
func (s *Store) Dim() int {
	return s.dim
}

// Close marks the store closed. Persistent databases write through on
// every upsert, so nothing is flushed here.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Upsert adds or replaces records by ID in the namespace's collection.
func (s *Store) Upsert(ctx context.Context, namespace string, records ...*core.IndexRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrEmptyProject)
	}
	if err := storage.ValidateRecords(s.dim, records); err != nil {
		return err
	}

	collection, err := s.db.GetOrCreateCollection(namespace, nil, noEmbedding)
	if err != nil {
		return err
	}

	for _, r := range records {
		doc := chromem.Document{
			ID:        r.ID,
			Metadata:  storage.MetadataFields(r.Metadata),
			Embedding: slices.Clone(r.Vector),
			Content:   r.Metadata.Text,
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	s.logger.Debug("upserted records", "namespace", namespace, "count", len(records))
	return nil
}

// Query searches one collection, or every collection when AllNamespaces
// is set, and merges the results.
func (s *Store) Query(ctx context.Context, req storage.QueryRequest) ([]core.Match, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := storage.ValidateQuery(req, s.dim); err != nil {
		return nil, err
	}

	var collections []*chromem.Collection
	if req.AllNamespaces {
		all := s.db.ListCollections()
		for _, name := range slices.Sorted(maps.Keys(all)) {
			collections = append(collections, all[name])
		}
	} else if c := s.db.GetCollection(req.Namespace, noEmbedding); c != nil {
		collections = append(collections, c)
	}

	matches := []core.Match{}
	for _, c := range collections {
		found, err := s.queryCollection(ctx, c, req.Vector, req.TopK, req.Filter)
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	return storage.RankMatches(matches, req.TopK), nil
}

func (s *Store) queryCollection(ctx context.Context, c *chromem.Collection, v []float32, topK int, filter map[string]string) ([]core.Match, error) {
	// chromem rejects requests for more results than documents.
	n := min(topK, c.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, v, n, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", c.Name, err)
	}

	matches := make([]core.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, core.Match{
			ID:       r.ID,
			Score:    r.Similarity,
			Metadata: storage.ParseMetadataFields(r.Metadata),
		})
	}
	return matches, nil
}

// Count returns the size of the namespace's collection, or of every
// collection when namespace is empty.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if namespace != "" {
		c := s.db.GetCollection(namespace, noEmbedding)
		if c == nil {
			return 0, nil
		}
		return c.Count(), nil
	}

	total := 0
	for _, c := range s.db.ListCollections() {
		total += c.Count()
	}
	return total, nil
}

// Namespaces lists collections holding documents, sorted by name.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var names []string
	for name, c := range s.db.ListCollections() {
		if c.Count() > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// ForEach reads every document of namespace, in ID order, and hands them
// to fn in batches. chromem has no listing call, so the collection is read
// with a query that asks for all of its documents.
func (s *Store) ForEach(ctx context.Context, namespace string, batchSize int, fn func(batch []*core.IndexRecord) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	c := s.db.GetCollection(namespace, noEmbedding)
	if c == nil || c.Count() == 0 {
		return nil
	}

	probe := make([]float32, s.dim)
	probe[0] = 1
	results, err := c.QueryEmbedding(ctx, probe, c.Count(), nil, nil)
	if err != nil {
		return fmt.Errorf("reading collection %s: %w", namespace, err)
	}

	records := make([]*core.IndexRecord, 0, len(results))
	for _, r := range results {
		records = append(records, &core.IndexRecord{
			ID:        r.ID,
			Namespace: namespace,
			Vector:    r.Embedding,
			Metadata:  storage.ParseMetadataFields(r.Metadata),
		})
	}
	slices.SortFunc(records, func(a, b *core.IndexRecord) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	for batch := range slices.Chunk(records, batchSize) {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
