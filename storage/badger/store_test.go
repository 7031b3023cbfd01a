package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func record(project, department string, idx int, vec ...float32) *core.IndexRecord {
	return core.NewIndexRecord(core.Chunk{
		Text:        fmt.Sprintf("%s chunk %d", project, idx),
		Index:       idx,
		ProjectName: project,
		Department:  department,
		Date:        testDate,
	}, vec)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemoryStore(3)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*core.IndexRecord{
		record("Apollo", "Engineering", 0, 1, 0, 0),
		record("Apollo", "Engineering", 1, 0, 1, 0),
	}
	require.NoError(t, s.Upsert(ctx, "Apollo", records...))
	require.NoError(t, s.Upsert(ctx, "Apollo", records...))

	count, err := s.Count(ctx, "Apollo")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_RejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, "Apollo", record("Apollo", "Engineering", 0, 1, 0))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = s.Query(ctx, storage.QueryRequest{Namespace: "Apollo", Vector: []float32{1}, TopK: 1})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestStore_QueryScopes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "Apollo",
		record("Apollo", "Engineering", 0, 1, 0, 0),
		record("Apollo", "Finance", 1, 0.9, 0.1, 0),
	))
	require.NoError(t, s.Upsert(ctx, "Zeus",
		record("Zeus", "Engineering", 0, 0, 0, 1),
	))

	q := []float32{1, 0, 0}

	t.Run("namespace", func(t *testing.T) {
		matches, err := s.Query(ctx, storage.QueryRequest{Namespace: "Apollo", Vector: q, TopK: 5})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "Apollo chunk 0", matches[0].Metadata.Text)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	})

	t.Run("namespace with filter", func(t *testing.T) {
		matches, err := s.Query(ctx, storage.QueryRequest{
			Namespace: "Apollo", Vector: q, TopK: 5,
			Filter: map[string]string{storage.FieldDepartment: "Finance"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Finance", matches[0].Metadata.Department)
	})

	t.Run("all namespaces with filter", func(t *testing.T) {
		matches, err := s.Query(ctx, storage.QueryRequest{
			AllNamespaces: true, Vector: q, TopK: 5,
			Filter: map[string]string{storage.FieldDepartment: "Engineering"},
		})
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("unknown namespace is empty", func(t *testing.T) {
		matches, err := s.Query(ctx, storage.QueryRequest{Namespace: "Hermes", Vector: q, TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("topK caps results", func(t *testing.T) {
		matches, err := s.Query(ctx, storage.QueryRequest{AllNamespaces: true, Vector: q, TopK: 1})
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	total, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStore_NamespacesAndForEach(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Upsert(ctx, "Apollo", record("Apollo", "General", i, 1, 0, 0)))
	}
	require.NoError(t, s.Upsert(ctx, "Apollo2", record("Apollo2", "General", 0, 1, 0, 0)))

	namespaces, err := s.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apollo", "Apollo2"}, namespaces)

	var sizes []int
	seen := 0
	err = s.ForEach(ctx, "Apollo", 2, func(batch []*core.IndexRecord) error {
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			assert.Equal(t, "Apollo", r.Namespace)
			seen++
		}
		// Writing during iteration is allowed
		return s.Upsert(ctx, "Apollo", batch...)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 5, seen)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, 3)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "Apollo", record("Apollo", "General", 0, 1, 0, 0)))
	require.NoError(t, s.Close())

	s, err = Open(dir, 3)
	require.NoError(t, err)
	defer s.Close()
	count, err := s.Count(ctx, "Apollo")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
