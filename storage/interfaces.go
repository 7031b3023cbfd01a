package storage

import (
	"context"

	"github.com/poiesic/minutia/core"
)

// Metadata keys usable in QueryRequest.Filter.
const (
	FieldProjectName = "projectName"
	FieldDepartment  = "department"
	FieldDate        = "date"
	FieldChunkIndex  = "chunkIndex"
	FieldText        = "text"
)

// QueryRequest describes a similarity search.
type QueryRequest struct {
	// Namespace restricts the search to one namespace.
	// Ignored when AllNamespaces is set.
	Namespace string

	// AllNamespaces searches every namespace of the store.
	AllNamespaces bool

	// Vector is the query embedding. Its length must equal the store's dimension.
	Vector []float32

	// TopK is the maximum number of matches.
	TopK int

	// Filter keeps only records whose metadata equals every given value.
	Filter map[string]string
}

// VectorStore holds namespaced, dimension-checked index records.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Upsert inserts or replaces records by ID within namespace.
	// Upserting the same IDs twice leaves the record count unchanged.
	Upsert(ctx context.Context, namespace string, records ...*core.IndexRecord) error

	// Query returns up to TopK matches ordered by similarity, highest first.
	// Ties are broken by ID. No match is an empty slice, not an error.
	Query(ctx context.Context, req QueryRequest) ([]core.Match, error)

	// Count returns the number of records in namespace, or in the whole
	// store when namespace is empty.
	Count(ctx context.Context, namespace string) (int, error)

	// Dim returns the configured vector dimension.
	Dim() int

	// Close closes the store and releases resources.
	Close() error
}

// RecordScanner walks stored records. It is implemented by backends that
// can enumerate their contents, and drives re-indexing.
type RecordScanner interface {
	// Namespaces lists the namespaces holding at least one record.
	Namespaces(ctx context.Context) ([]string, error)

	// ForEach calls fn with batches of at most batchSize records from
	// namespace. Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, namespace string, batchSize int, fn func(batch []*core.IndexRecord) error) error
}
