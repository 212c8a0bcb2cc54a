package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmem/internal/config"
	"agentmem/internal/embedding"
	"agentmem/internal/memory"
	"agentmem/internal/scorer"
	"agentmem/internal/store"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (embedding.Result, error) {
	if f.err != nil {
		return embedding.Result{}, f.err
	}
	return embedding.Result{Vector: f.vectors[text]}, nil
}
func (f *fakeEmbedder) Dimensions() int { return 4 }
func (f *fakeEmbedder) Name() string    { return "fake" }

func newTestHybrid(t *testing.T, embedder embedding.Provider) (*Hybrid, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	memStore := store.NewMemoryStore(db)
	vecStore, err := store.NewVectorStore(db, filepath.Join(dir, "vectors.db"), 4)
	require.NoError(t, err)

	cfg := config.SearchConfig{Alpha: 0.7, TopK: 20, MinScore: 0.0}
	clock := scorer.FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := New(memStore, vecStore, embedder, cfg, clock)
	return h, memStore
}

func insertMem(t *testing.T, ms *store.MemoryStore, content string) string {
	t.Helper()
	id, err := ms.Insert(memory.Memory{Content: content, Who: "tester", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	return id
}

func TestHybridSearchAlphaOneMatchesVectorOrder(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"query":  {1, 0, 0, 0},
		"alpha":  {1, 0, 0, 0},
		"gamma":  {0, 1, 0, 0},
		"beta":   {0.8, 0.2, 0, 0},
	}}
	h, ms := newTestHybrid(t, embedder)

	idAlpha := insertMem(t, ms, "alpha content about search")
	idBeta := insertMem(t, ms, "beta content about search")
	_ = insertMem(t, ms, "gamma content about search")

	require.NoError(t, h.vecStore.Upsert(idAlpha, embedder.vectors["alpha"]))
	require.NoError(t, h.vecStore.Upsert(idBeta, embedder.vectors["beta"]))

	results, err := h.Search(context.Background(), "query", 10, 1.0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, idAlpha, results[0].Memory.ID)
}

func TestHybridSearchFallsBackToKeywordOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: assert.AnError}
	h, ms := newTestHybrid(t, embedder)
	insertMem(t, ms, "ripgrep is a fast recursive search tool")

	results, err := h.Search(context.Background(), "ripgrep", 10, 0.7)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, SourceKeyword, results[0].Source)
}

func TestHybridSearchEmptyStoreReturnsNoResults(t *testing.T) {
	h, _ := newTestHybrid(t, &fakeEmbedder{vectors: map[string][]float32{}})
	results, err := h.Search(context.Background(), "nothing here", 10, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMinMaxNormalizeConstantSetMapsToOne(t *testing.T) {
	scores := map[string]float64{"a": 0.5, "b": 0.5}
	norm := minMaxNormalize(scores)
	assert.Equal(t, 1.0, norm["a"])
	assert.Equal(t, 1.0, norm["b"])
}

func TestMinMaxNormalizeEmptyIsEmpty(t *testing.T) {
	assert.Empty(t, minMaxNormalize(nil))
}
