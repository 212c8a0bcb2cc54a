// Package search implements the hybrid BM25/cosine retrieval fusion behind
// the `query` CLI command. The session-start and per-prompt context loaders
// do not use it; they query the relational store directly.
package search

import (
	"context"
	"math"
	"sort"

	"agentmem/internal/config"
	"agentmem/internal/embedding"
	"agentmem/internal/logging"
	"agentmem/internal/memory"
	"agentmem/internal/scorer"
	"agentmem/internal/store"
)

// Source classifies which retrieval path contributed to a result.
type Source string

const (
	SourceHybrid  Source = "hybrid"
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
)

// Result is one hydrated, scored hit.
type Result struct {
	Memory      memory.Memory
	HybridScore float64
	EffScore    float64
	Source      Source
}

// Hybrid fuses the relational and vector stores into ranked results.
// memStore and vecStore may be used concurrently with other callers;
// vecStore may be nil, in which case every query runs BM25-only.
type Hybrid struct {
	memStore *store.MemoryStore
	vecStore *store.VectorStore
	embedder embedding.Provider
	cfg      config.SearchConfig
	clock    scorer.Clock
}

// New constructs a Hybrid searcher. vecStore and embedder may be nil to run
// permanently in BM25-only mode (e.g. no embedding provider configured).
func New(memStore *store.MemoryStore, vecStore *store.VectorStore, embedder embedding.Provider, cfg config.SearchConfig, clock scorer.Clock) *Hybrid {
	if clock == nil {
		clock = scorer.SystemClock{}
	}
	return &Hybrid{memStore: memStore, vecStore: vecStore, embedder: embedder, cfg: cfg, clock: clock}
}

// Search runs the §4.6 fusion procedure: embed the query, fetch vector and
// keyword candidates, normalize both score sets per-call, fuse by alpha,
// sort with a deterministic tie-break, filter by min_score, truncate to
// limit, hydrate, and update access counters. Any failure along the vector
// path degrades to keyword-only scoring rather than failing the call.
func (h *Hybrid) Search(ctx context.Context, query string, limit int, alpha float64) ([]Result, error) {
	if limit <= 0 {
		limit = h.cfg.TopK
	}
	topK := h.cfg.TopK
	if topK <= 0 {
		topK = 20
	}

	vecScores := h.vectorScores(ctx, query, topK)
	bm25Scores := h.keywordScores(query, topK)

	normVec := minMaxNormalize(vecScores)
	normBM25 := minMaxNormalize(bm25Scores)

	ids := unionKeys(normVec, normBM25)
	candidates := make([]scoredID, 0, len(ids))
	for _, id := range ids {
		v, hasV := normVec[id]
		b, hasB := normBM25[id]
		hybrid := alpha*v + (1-alpha)*b
		src := SourceHybrid
		switch {
		case hasV && !hasB:
			src = SourceVector
		case hasB && !hasV:
			src = SourceKeyword
		}
		candidates = append(candidates, scoredID{id: id, score: hybrid, source: src})
	}

	kept := sortFilterTruncate(candidates, h.cfg.MinScore, limit)

	results, err := h.hydrate(kept)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 || len(candidates) == 0 {
		return results, nil
	}

	// Fallback: degrade to keyword-only scoring, per §4.6's fallback clause.
	logging.SearchWarn("hybrid search produced no hydratable results, falling back to keyword-only")
	return h.keywordOnlyFallback(bm25Scores, limit)
}

// scoredID pairs a memory id with a retrieval score and the source that
// produced it, the common shape threaded through sorting, filtering, and
// hydration.
type scoredID struct {
	id     string
	score  float64
	source Source
}

// sortFilterTruncate implements §4.6 steps 6-8: sort descending with a
// deterministic id tie-break, drop anything under minScore, then truncate
// to limit.
func sortFilterTruncate(candidates []scoredID, minScore float64, limit int) []scoredID {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	var kept []scoredID
	for _, c := range candidates {
		if c.score < minScore {
			continue
		}
		kept = append(kept, c)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

func (h *Hybrid) vectorScores(ctx context.Context, query string, topK int) map[string]float64 {
	if h.vecStore == nil || h.embedder == nil {
		return nil
	}
	res, err := h.embedder.Embed(ctx, query)
	if err != nil {
		logging.SearchWarn("embedding provider unavailable, falling back to keyword-only: %v", err)
		return nil
	}
	hits, err := h.vecStore.TopK(res.Vector, topK)
	if err != nil {
		logging.SearchWarn("vector store unavailable, falling back to keyword-only: %v", err)
		return nil
	}
	out := make(map[string]float64, len(hits))
	for _, hit := range hits {
		out[hit.ID] = hit.Score
	}
	return out
}

func (h *Hybrid) keywordScores(query string, topK int) map[string]float64 {
	ranked, err := h.memStore.FtsSearch(query, topK)
	if err != nil {
		logging.SearchWarn("fts search failed: %v", err)
		return nil
	}
	out := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		out[r.ID] = r.Score
	}
	return out
}

func (h *Hybrid) keywordOnlyFallback(bm25Scores map[string]float64, limit int) ([]Result, error) {
	candidates := make([]scoredID, 0, len(bm25Scores))
	for id, score := range bm25Scores {
		candidates = append(candidates, scoredID{id: id, score: score, source: SourceKeyword})
	}
	kept := sortFilterTruncate(candidates, h.cfg.MinScore, limit)
	return h.hydrate(kept)
}

// hydrate loads each candidate's Memory row, skipping any id that no longer
// exists (e.g. deleted between scoring and hydration), attaches the
// informational effective score, and updates access counters on the ids
// actually returned.
func (h *Hybrid) hydrate(candidates []scoredID) ([]Result, error) {
	results := make([]Result, 0, len(candidates))
	var accessed []string
	for _, c := range candidates {
		m, err := h.memStore.FindById(c.id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		results = append(results, Result{
			Memory:      *m,
			HybridScore: c.score,
			EffScore:    scorer.Effective(*m, h.clock),
			Source:      c.source,
		})
		accessed = append(accessed, c.id)
	}
	if len(accessed) > 0 {
		if err := h.memStore.UpdateAccess(accessed); err != nil {
			logging.SearchWarn("failed to update access counters: %v", err)
		}
	}
	return results, nil
}

// minMaxNormalize scales scores into [0,1]. An empty or constant set maps
// every member to 1.0, per §4.6 step 4.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return map[string]float64{}
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make(map[string]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	for id, v := range scores {
		out[id] = (v - min) / (max - min)
	}
	return out
}

func unionKeys(a, b map[string]float64) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
