package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/vector"
)

// Store implements storage.VectorStore and storage.RecordScanner on BadgerDB.
// Queries are exact: every record in scope is scored by cosine similarity.
type Store struct {
	backend *Backend
	dim     int
	logger  *slog.Logger
}

var (
	_ storage.VectorStore   = (*Store)(nil)
	_ storage.RecordScanner = (*Store)(nil)
)

// Open opens a persistent store at path holding vectors of length dim.
func Open(path string, dim int) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend, dim), nil
}

func newStore(backend *Backend, dim int) *Store {
	return &Store{
		backend: backend,
		dim:     dim,
		logger:  slog.Default().With("component", "badger-store"),
	}
}

// Dim returns the configured vector dimension.
func (s *Store) Dim() int {
	return s.dim
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Upsert writes records in one transaction. The record's namespace is
// overwritten with namespace.
func (s *Store) Upsert(ctx context.Context, namespace string, records ...*core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrEmptyProject)
	}
	if err := storage.ValidateRecords(s.dim, records); err != nil {
		return err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := *r
			rec.Namespace = namespace
			if err := tx.Set(makeRecordKey(namespace, rec.ID), storage.MarshalIndexRecord(&rec)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	s.logger.Debug("upserted records", "namespace", namespace, "count", len(records))
	return nil
}

// Query scores every record in scope and returns the best TopK.
func (s *Store) Query(ctx context.Context, req storage.QueryRequest) ([]core.Match, error) {
	if err := storage.ValidateQuery(req, s.dim); err != nil {
		return nil, err
	}

	prefix := []byte(recordPrefix)
	if !req.AllNamespaces {
		prefix = makeNamespacePrefix(req.Namespace)
	}

	matches := []core.Match{}
	err := s.backend.scanPrefix(ctx, prefix, true, func(_, val []byte) error {
		record, err := storage.UnmarshalIndexRecord(val)
		if err != nil {
			return err
		}
		if !storage.MatchesFilter(record.Metadata, req.Filter) {
			return nil
		}
		matches = append(matches, core.Match{
			ID:       record.ID,
			Score:    vector.Cosine(req.Vector, record.Vector),
			Metadata: record.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return storage.RankMatches(matches, req.TopK), nil
}

// Count returns the number of records in namespace, or in the store when
// namespace is empty.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	prefix := []byte(recordPrefix)
	if namespace != "" {
		prefix = makeNamespacePrefix(namespace)
	}

	count := 0
	err := s.backend.scanPrefix(ctx, prefix, false, func(_, _ []byte) error {
		count++
		return nil
	})
	return count, err
}

// Namespaces lists namespaces in key order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	err := s.backend.scanPrefix(ctx, []byte(recordPrefix), false, func(key, _ []byte) error {
		ns, ok := namespaceFromKey(key)
		if ok && (len(namespaces) == 0 || namespaces[len(namespaces)-1] != ns) {
			namespaces = append(namespaces, ns)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Compact(namespaces), nil
}

// ForEach streams the records of namespace in batches.
func (s *Store) ForEach(ctx context.Context, namespace string, batchSize int, fn func(batch []*core.IndexRecord) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	// Records are collected first so fn may write to the store.
	var all []*core.IndexRecord
	err := s.backend.scanPrefix(ctx, makeNamespacePrefix(namespace), true, func(_, val []byte) error {
		record, err := storage.UnmarshalIndexRecord(val)
		if err != nil {
			return err
		}
		all = append(all, record)
		return nil
	})
	if err != nil {
		return err
	}

	for batch := range slices.Chunk(all, batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
