package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdfchat-be/types"
)

func record(id, text string, page int, vec ...float32) types.VectorRecord {
	return types.VectorRecord{
		ID:       id,
		Vector:   vec,
		Metadata: types.ChunkMetadata{Text: text, PageNumber: page},
	}
}

func TestMemoryIndexQueryOrdersByScore(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, "ns_a", []types.VectorRecord{
		record("far", "far text", 1, 0, 1),
		record("near", "near text", 2, 1, 0.1),
		record("mid", "mid text", 3, 1, 1),
	}))

	matches, err := idx.Query(ctx, "ns_a", []float32{1, 0}, 10, true)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{matches[0].ID, matches[1].ID, matches[2].ID})
	assert.Equal(t, "near text", matches[0].Metadata.Text)
	assert.Equal(t, 2, matches[0].Metadata.PageNumber)

	top, err := idx.Query(ctx, "ns_a", []float32{1, 0}, 1, false)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Nil(t, top[0].Metadata)
}

func TestMemoryIndexUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(0)
	records := []types.VectorRecord{record("a", "one", 1, 1, 0), record("b", "two", 1, 0, 1)}

	require.NoError(t, idx.Upsert(ctx, "ns", records))
	require.NoError(t, idx.Upsert(ctx, "ns", records))
	assert.Equal(t, 2, idx.Count("ns"))

	require.NoError(t, idx.Upsert(ctx, "ns", []types.VectorRecord{record("a", "one v2", 5, 1, 0)}))
	matches, err := idx.Query(ctx, "ns", []float32{1, 0}, 1, true)
	require.NoError(t, err)
	assert.Equal(t, "one v2", matches[0].Metadata.Text)
	assert.Equal(t, 2, idx.Count("ns"))
}

func TestMemoryIndexNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, "ns_a", []types.VectorRecord{record("same", "from A", 1, 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, "ns_b", []types.VectorRecord{record("same", "from B", 7, 1, 0)}))

	matches, err := idx.Query(ctx, "ns_a", []float32{1, 0}, 10, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "from A", matches[0].Metadata.Text)

	require.NoError(t, idx.DeleteNamespace(ctx, "ns_b"))
	assert.Equal(t, 0, idx.Count("ns_b"))
	assert.Equal(t, 1, idx.Count("ns_a"))
}

func TestMemoryIndexUnknownNamespaceIsEmpty(t *testing.T) {
	matches, err := NewMemoryIndex(2).Query(context.Background(), "ns_never", []float32{1, 0}, 10, true)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryIndexRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	err := idx.Upsert(ctx, "ns", []types.VectorRecord{record("a", "x", 1, 1, 0), record("b", "y", 1, 1, 0, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Count("ns"), "a failed batch writes nothing")

	require.NoError(t, idx.Upsert(ctx, "ns", []types.VectorRecord{record("a", "x", 1, 1, 0)}))
	_, err = idx.Query(ctx, "ns", []float32{1, 0, 0}, 3, false)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
