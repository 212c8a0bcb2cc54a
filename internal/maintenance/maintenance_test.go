package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmem/internal/embedding"
	"agentmem/internal/memory"
	"agentmem/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) (embedding.Result, error) {
	return embedding.Result{Vector: []float32{1, 2, 3, 4}}, nil
}
func (fakeEmbedder) Dimensions() int { return 4 }
func (fakeEmbedder) Name() string    { return "fake" }

func newTestMaintenance(t *testing.T, withEmbedder bool) (*Maintenance, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ms := store.NewMemoryStore(db)
	vs, err := store.NewVectorStore(db, filepath.Join(dir, "vectors.db"), 4)
	require.NoError(t, err)

	var m *Maintenance
	if withEmbedder {
		m = New(ms, vs, fakeEmbedder{})
	} else {
		m = New(ms, vs, nil)
	}
	return m, ms
}

func TestPruneDeletesOldLowValueAutoMemories(t *testing.T) {
	m, ms := newTestMaintenance(t, false)
	m.clock = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := ms.Insert(memory.Memory{
		Content: "stale auto fact", Who: "agentmem", Why: "auto-fact",
		Importance: 0.2, CreatedAt: old,
	})
	require.NoError(t, err)

	result, err := m.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	ids, err := ms.AllIds()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPruneKeepsPinnedMemories(t *testing.T) {
	m, ms := newTestMaintenance(t, false)
	m.clock = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := ms.Insert(memory.Memory{
		Content: "pinned auto fact", Who: "agentmem", Why: "auto-fact",
		Importance: 0.2, Pinned: true, CreatedAt: old,
	})
	require.NoError(t, err)

	result, err := m.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)
}

func TestPruneKeepsRecentMemories(t *testing.T) {
	m, ms := newTestMaintenance(t, false)
	m.clock = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	_, err := ms.Insert(memory.Memory{
		Content: "recent auto fact", Who: "agentmem", Why: "auto-fact",
		Importance: 0.2, CreatedAt: time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	result, err := m.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)
}

func TestReindexEmbedsEveryMemory(t *testing.T) {
	m, ms := newTestMaintenance(t, true)
	for i := 0; i < 3; i++ {
		_, err := ms.Insert(memory.Memory{Content: "fact", Who: "tester"})
		require.NoError(t, err)
	}

	result, err := m.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 0, result.Failed)
}

func TestReindexNoopWithoutEmbedder(t *testing.T) {
	m, ms := newTestMaintenance(t, false)
	_, err := ms.Insert(memory.Memory{Content: "fact", Who: "tester"})
	require.NoError(t, err)

	result, err := m.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 0, result.Failed)
}
