package store

import (
	"database/sql"
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"agentmem/internal/embedding"
	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

// VectorStore is the auxiliary (id -> embedding) index backing semantic
// search. It is rebuildable from the relational store via Maintenance.Reindex
// and must never be the only place a memory's content lives (spec §9).
//
// Vectors live in the same SQLite database as the memories table, in the
// vector_collection table (one row per memory id, with an "embedding" BLOB
// column), serialized as little-endian float32 (spec §6). A single
// writer mutex enforces the at-most-one-active-writer discipline from
// spec §5; SQLite's own locking already serializes at the file level, but
// the mutex avoids spurious SQLITE_BUSY under our 5s busy timeout.
type VectorStore struct {
	db         *sql.DB
	path       string
	dimensions int
	mu         sync.Mutex
}

// NewVectorStore wraps db's vector_collection table, created by
// migrations/001_init.sql. dimensions is the configured embedding width;
// vectors of any other length are rejected by Upsert.
func NewVectorStore(db *sql.DB, path string, dimensions int) (*VectorStore, error) {
	return &VectorStore{db: db, path: path, dimensions: dimensions}, nil
}

// Upsert replaces any prior vector for id. Rejects vectors whose length
// doesn't match the configured dimensionality.
func (v *VectorStore) Upsert(id string, vec []float32) error {
	if len(vec) != v.dimensions {
		return memerr.New(memerr.KindDimensionMismatch, "VectorStore.Upsert",
			"vector length does not match configured dimensions")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	blob := vecToBlob(vec)
	_, err := v.db.Exec(`
		INSERT INTO vector_collection (id, embedding, dimensions) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, dimensions = excluded.dimensions`,
		id, blob, len(vec))
	if err != nil {
		return memerr.Wrap(memerr.KindVectorUnavailable, "VectorStore.Upsert", "upsert failed", err)
	}
	logging.VectorDebug("upserted vector for %s (dimensions=%d)", id, len(vec))
	return nil
}

// Delete removes the vector for id, if any. Not finding one is not an error.
func (v *VectorStore) Delete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.db.Exec(`DELETE FROM vector_collection WHERE id = ?`, id); err != nil {
		return memerr.Wrap(memerr.KindVectorUnavailable, "VectorStore.Delete", "delete failed", err)
	}
	return nil
}

// ScoredID is a vector search hit.
type ScoredID struct {
	ID    string
	Score float64 // cosine similarity, higher is more similar
}

// TopK returns the k most similar vectors to query by cosine similarity,
// descending, ties broken by id ascending for determinism.
func (v *VectorStore) TopK(query []float32, k int) ([]ScoredID, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := v.db.Query(`SELECT id, embedding FROM vector_collection`)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindVectorUnavailable, "VectorStore.TopK", "scan failed", err)
	}
	defer rows.Close()

	var results []ScoredID
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, memerr.Wrap(memerr.KindVectorUnavailable, "VectorStore.TopK", "row scan failed", err)
		}
		vec := blobToVec(blob)
		sim, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			logging.VectorWarn("TopK: skipping %s: %v", id, err)
			continue
		}
		results = append(results, ScoredID{ID: id, Score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, memerr.Wrap(memerr.KindVectorUnavailable, "VectorStore.TopK", "row iteration failed", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats reports the configured vectors path (paths.vectors, as passed to
// NewVectorStore; the rows themselves are stored in the wrapped database),
// the configured dimensionality, and whether the collection is currently
// reachable.
type Stats struct {
	Path       string
	Dimensions int
	Available  bool
}

// Stats implements the §4.2 stats() contract.
func (v *VectorStore) Stats() Stats {
	var count int
	err := v.db.QueryRow(`SELECT COUNT(*) FROM vector_collection`).Scan(&count)
	return Stats{
		Path:       v.path,
		Dimensions: v.dimensions,
		Available:  err == nil,
	}
}

// =============================================================================
// BLOB SERIALIZATION
// =============================================================================

// vecToBlob serializes a []float32 as little-endian float32, per spec §6.
func vecToBlob(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// blobToVec is the inverse of vecToBlob.
func blobToVec(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
