package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmem/internal/memory"
	"agentmem/internal/store"
)

type stubExtractor struct {
	candidates []Candidate
	err        error
}

func (s stubExtractor) Extract(ctx context.Context, transcript string) ([]Candidate, error) {
	return s.candidates, s.err
}

func newTestPipeline(t *testing.T, extractor Extractor) (*Pipeline, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ms := store.NewMemoryStore(db)
	p := New(ms, nil, nil, extractor)
	return p, ms
}

func TestSaveExplicitCriticalPrefix(t *testing.T) {
	p, ms := newTestPipeline(t, nil)
	res, err := p.SaveExplicit(context.Background(), "critical: always use lowercase commit messages", "tester", "proj")
	require.NoError(t, err)
	assert.Equal(t, "always use lowercase commit messages", res.Content)

	m, err := ms.FindById(res.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.Importance)
	assert.True(t, m.Pinned)
	assert.Equal(t, "explicit-critical", m.Why)
	assert.Equal(t, memory.TypeFact, m.Type)
}

func TestSaveExplicitTaggedContent(t *testing.T) {
	p, ms := newTestPipeline(t, nil)
	res, err := p.SaveExplicit(context.Background(), "[go,testing]: prefer table-driven tests", "tester", "proj")
	require.NoError(t, err)

	m, err := ms.FindById(res.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "prefer table-driven tests", m.Content)
	assert.Equal(t, "go,testing", m.Tags)
	assert.Equal(t, memory.TypePreference, m.Type)
	assert.Equal(t, 0.8, m.Importance)
	assert.Equal(t, "explicit", m.Why)
}

func TestSaveExplicitWithoutEmbedderReportsNotEmbedded(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	res, err := p.SaveExplicit(context.Background(), "a plain fact", "tester", "proj")
	require.NoError(t, err)
	assert.False(t, res.Embedded)
}

func TestSaveAutoAbortsOnClearReason(t *testing.T) {
	p, _ := newTestPipeline(t, stubExtractor{})
	env, _ := json.Marshal(AutoEnvelope{Reason: "clear"})
	n, err := p.SaveAuto(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSaveAutoAbortsOnShortTranscript(t *testing.T) {
	p, _ := newTestPipeline(t, stubExtractor{})
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.txt")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0644))

	env, _ := json.Marshal(AutoEnvelope{TranscriptPath: path})
	n, err := p.SaveAuto(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSaveAutoCapsImportanceAndDropsBelowThreshold(t *testing.T) {
	extractor := stubExtractor{candidates: []Candidate{
		{Content: "the team standardized on trunk based development for releases", Type: "decision", Importance: 0.9},
		{Content: "a minor detail nobody will care about later at all", Type: "fact", Importance: 0.2},
	}}
	p, ms := newTestPipeline(t, extractor)

	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 600)), 0644))

	env, _ := json.Marshal(AutoEnvelope{TranscriptPath: path, Cwd: "proj", SessionID: "sess-1"})
	n, err := p.SaveAuto(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := ms.AllIds()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	m, err := ms.FindById(ids[0])
	require.NoError(t, err)
	assert.Equal(t, 0.4, m.Importance)
	assert.Equal(t, "auto-decision", m.Why)
	assert.Equal(t, "proj", m.Project)
	assert.Equal(t, "sess-1", m.SessionID)
}

func TestSaveAutoRejectsContainmentDuplicate(t *testing.T) {
	p, ms := newTestPipeline(t, stubExtractor{})
	_, err := ms.Insert(memory.Memory{Content: "use ripgrep for recursive search", Who: "tester"})
	require.NoError(t, err)

	dup, err := p.isDuplicate("Use ripgrep for recursive search.")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestSaveAutoDistinctContentIsNotDuplicate(t *testing.T) {
	p, ms := newTestPipeline(t, stubExtractor{})
	_, err := ms.Insert(memory.Memory{Content: "use ripgrep for recursive search", Who: "tester"})
	require.NoError(t, err)

	dup, err := p.isDuplicate("the deployment pipeline now runs integration tests nightly")
	require.NoError(t, err)
	assert.False(t, dup)
}
