package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmem/internal/memory"
	"agentmem/internal/scorer"
	"agentmem/internal/store"
)

func newTestLoader(t *testing.T) (*Loader, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ms := store.NewMemoryStore(db)
	clock := scorer.FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(ms, clock), ms
}

func TestSessionStartIncludesPrelude(t *testing.T) {
	loader, _ := newTestLoader(t)
	out, err := loader.SessionStart("proj", "")
	require.NoError(t, err)
	assert.Contains(t, out, sessionPrelude)
}

func TestSessionStartTruncatesMemoryDoc(t *testing.T) {
	loader, _ := newTestLoader(t)
	dir := t.TempDir()
	docPath := filepath.Join(dir, "MEMORY.md")
	require.NoError(t, os.WriteFile(docPath, []byte(strings.Repeat("x", 10001)), 0644))

	out, err := loader.SessionStart("proj", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, truncatedMarker)
}

func TestSessionStartExactBoundaryIsNotTruncated(t *testing.T) {
	loader, _ := newTestLoader(t)
	dir := t.TempDir()
	docPath := filepath.Join(dir, "MEMORY.md")
	require.NoError(t, os.WriteFile(docPath, []byte(strings.Repeat("x", 10000)), 0644))

	out, err := loader.SessionStart("proj", docPath)
	require.NoError(t, err)
	assert.NotContains(t, out, truncatedMarker)
}

func TestSessionStartSurfacesHighValueMemory(t *testing.T) {
	loader, ms := newTestLoader(t)
	_, err := ms.Insert(memory.Memory{
		Content: "pinned fact", Who: "tester", Project: "proj",
		Importance: 0.9, Pinned: true, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	out, err := loader.SessionStart("proj", "")
	require.NoError(t, err)
	assert.Contains(t, out, "pinned fact")
}

func TestSessionStartExcludesLowImportanceUnpinned(t *testing.T) {
	loader, ms := newTestLoader(t)
	_, err := ms.Insert(memory.Memory{
		Content: "low value fact", Who: "tester", Project: "proj",
		Importance: 0.05, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	out, err := loader.SessionStart("proj", "")
	require.NoError(t, err)
	assert.NotContains(t, out, "low value fact")
}

func TestPerPromptEmitsHeaderOnMatch(t *testing.T) {
	loader, ms := newTestLoader(t)
	_, err := ms.Insert(memory.Memory{
		Content: "use ripgrep for recursive search", Who: "tester", Project: "proj",
		Importance: 0.8, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	out, err := loader.PerPrompt("proj", []byte(`{"user_prompt": "how do I search recursively with ripgrep"}`))
	require.NoError(t, err)
	assert.Contains(t, out, relevantHeader)
	assert.Contains(t, out, "ripgrep")
}

func TestPerPromptReturnsEmptyOnNoMatch(t *testing.T) {
	loader, _ := newTestLoader(t)
	out, err := loader.PerPrompt("proj", []byte(`{"user_prompt": "completely unrelated query text"}`))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPerPromptMalformedJSONIsSilent(t *testing.T) {
	loader, _ := newTestLoader(t)
	out, err := loader.PerPrompt("proj", []byte(`not json`))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := tokenize("a to search the recursive ripgrep tool")
	assert.NotContains(t, tokens, "a")
	assert.NotContains(t, tokens, "to")
	assert.Contains(t, tokens, "search")
}
