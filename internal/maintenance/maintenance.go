// Package maintenance implements the two background jobs that keep
// agentmem's stores small and its vector index consistent: Prune and
// Reindex (spec §4.9).
package maintenance

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"agentmem/internal/embedding"
	"agentmem/internal/logging"
	"agentmem/internal/store"
)

const pruneAge = 60 * 24 * time.Hour

// reindexConcurrency bounds how many re-embed calls run in flight at once,
// so Reindex doesn't open an unbounded number of connections against the
// embedding provider on a large store.
const reindexConcurrency = 4

// Maintenance bundles the stores a background job needs.
type Maintenance struct {
	memStore *store.MemoryStore
	vecStore *store.VectorStore
	embedder embedding.Provider
	clock    func() time.Time
}

// New constructs a Maintenance runner. vecStore and embedder may be nil;
// Reindex then becomes a no-op reporting zero success and zero failure.
func New(memStore *store.MemoryStore, vecStore *store.VectorStore, embedder embedding.Provider) *Maintenance {
	return &Maintenance{memStore: memStore, vecStore: vecStore, embedder: embedder, clock: time.Now}
}

// PruneResult reports how many rows were removed.
type PruneResult struct {
	Deleted int
}

// Prune deletes rows matching every condition in spec §4.9: auto-sourced,
// unpinned, low-importance, stale, and never accessed. Vector deletion is
// best-effort per row - a vector store outage must not block the relational
// delete.
func (m *Maintenance) Prune(ctx context.Context) (PruneResult, error) {
	cutoff := m.clock().UTC().Add(-pruneAge)

	ids, err := m.memStore.PruneCandidates(cutoff)
	if err != nil {
		return PruneResult{}, err
	}

	deleted := 0
	for _, id := range ids {
		if err := m.memStore.DeleteById(id); err != nil {
			logging.MaintenanceDebug("prune: failed to delete %s: %v", id, err)
			continue
		}
		if m.vecStore != nil {
			if err := m.vecStore.Delete(id); err != nil {
				logging.MaintenanceDebug("prune: failed to delete vector for %s: %v", id, err)
			}
		}
		deleted++
	}

	logging.Maintenance("prune: deleted %d of %d candidate(s)", deleted, len(ids))
	return PruneResult{Deleted: deleted}, nil
}

// ReindexResult reports how many memories were successfully re-embedded.
type ReindexResult struct {
	Success int
	Failed  int
}

// Reindex walks every memory, re-embeds its content, and upserts the result
// into the vector store, rebuilding the auxiliary index from the
// authoritative relational store. Embed calls for distinct memories run
// concurrently, bounded by reindexConcurrency; one memory's failure doesn't
// stop the rest.
func (m *Maintenance) Reindex(ctx context.Context) (ReindexResult, error) {
	if m.embedder == nil || m.vecStore == nil {
		return ReindexResult{}, nil
	}

	ids, err := m.memStore.AllIds()
	if err != nil {
		return ReindexResult{}, err
	}

	var successCount, failedCount int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.reindexOne(gctx, id); err != nil {
				logging.MaintenanceDebug("reindex: failed for %s: %v", id, err)
				atomic.AddInt32(&failedCount, 1)
				return nil
			}
			atomic.AddInt32(&successCount, 1)
			return nil
		})
	}
	// errgroup's goroutines never return a non-nil error above, so Wait
	// always returns nil; it is called only to block until all finish.
	_ = g.Wait()

	logging.Maintenance("reindex: %d succeeded, %d failed", successCount, failedCount)
	return ReindexResult{Success: int(successCount), Failed: int(failedCount)}, nil
}

func (m *Maintenance) reindexOne(ctx context.Context, id string) error {
	mem, err := m.memStore.FindById(id)
	if err != nil {
		return err
	}
	if mem == nil {
		return nil
	}
	res, err := m.embedder.Embed(ctx, mem.Content)
	if err != nil {
		return err
	}
	return m.vecStore.Upsert(id, res.Vector)
}
