package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmem/internal/memerr"
)

func openTestVectorStore(t *testing.T) *VectorStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "memories.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vs, err := NewVectorStore(db, filepath.Join(dir, "vectors.db"), 4)
	require.NoError(t, err)
	return vs
}

func TestVectorStoreUpsertAndTopK(t *testing.T) {
	vs := openTestVectorStore(t)

	require.NoError(t, vs.Upsert("a", []float32{1, 0, 0, 0}))
	require.NoError(t, vs.Upsert("b", []float32{0, 1, 0, 0}))
	require.NoError(t, vs.Upsert("c", []float32{0.9, 0.1, 0, 0}))

	results, err := vs.TopK([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "c", results[1].ID)
}

func TestVectorStoreUpsertRejectsWrongDimensions(t *testing.T) {
	vs := openTestVectorStore(t)
	err := vs.Upsert("a", []float32{1, 2, 3})
	require.Error(t, err)
	kind, ok := memerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, memerr.KindDimensionMismatch, kind)
}

func TestVectorStoreUpsertReplacesExisting(t *testing.T) {
	vs := openTestVectorStore(t)
	require.NoError(t, vs.Upsert("a", []float32{1, 0, 0, 0}))
	require.NoError(t, vs.Upsert("a", []float32{0, 0, 0, 1}))

	results, err := vs.TopK([]float32{0, 0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestVectorStoreDelete(t *testing.T) {
	vs := openTestVectorStore(t)
	require.NoError(t, vs.Upsert("a", []float32{1, 0, 0, 0}))
	require.NoError(t, vs.Delete("a"))

	results, err := vs.TopK([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// deleting an absent id is not an error
	require.NoError(t, vs.Delete("absent"))
}

func TestVectorStoreStats(t *testing.T) {
	vs := openTestVectorStore(t)
	require.NoError(t, vs.Upsert("a", []float32{1, 0, 0, 0}))

	stats := vs.Stats()
	assert.True(t, stats.Available)
	assert.Equal(t, 4, stats.Dimensions)
	assert.NotEmpty(t, stats.Path)
}

func TestVecBlobRoundTrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.125}
	blob := vecToBlob(vec)
	assert.Equal(t, vec, blobToVec(blob))
}
