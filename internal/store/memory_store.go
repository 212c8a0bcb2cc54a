package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentmem/internal/logging"
	"agentmem/internal/memerr"
	"agentmem/internal/memory"
)

// MemoryStore is the relational store of memory rows, mirrored into an
// FTS5 shadow table by triggers (see migrations/001_init.sql). All operations are
// synchronous, per spec §4.3.
type MemoryStore struct {
	db *sql.DB
}

// NewMemoryStore wraps an already-open database handle.
func NewMemoryStore(db *sql.DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// RankedID pairs a memory id with a retrieval-path score.
type RankedID struct {
	ID    string
	Score float64
}

// Insert validates and persists a new memory, assigning an id if one
// wasn't already set, and returns the id used. content must be non-empty
// after trimming (spec §3 invariant 1); importance is clamped into [0,1]
// defensively, though callers are expected to have already validated it.
func (s *MemoryStore) Insert(m memory.Memory) (string, error) {
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return "", memerr.New(memerr.KindInvalidInput, "MemoryStore.Insert", "content must not be empty")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Importance < 0 {
		m.Importance = 0
	}
	if m.Importance > 1 {
		m.Importance = 1
	}
	if m.Type == "" {
		m.Type = memory.TypeFact
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO memories (id, content, who, why, created_at, project, session_id, importance, type, tags, pinned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, content, m.Who, m.Why, m.CreatedAt, nullable(m.Project), nullable(m.SessionID),
		m.Importance, string(m.Type), nullable(m.Tags), boolToInt(m.Pinned),
	)
	if err != nil {
		return "", memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.Insert", "insert failed", err)
	}
	logging.StoreDebug("inserted memory %s (why=%s, importance=%.2f)", m.ID, m.Why, m.Importance)
	return m.ID, nil
}

// DeleteById removes a memory row. The FTS shadow row is removed by the
// AFTER DELETE trigger.
func (s *MemoryStore) DeleteById(id string) error {
	_, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.DeleteById", "delete failed", err)
	}
	return nil
}

// FindById returns the memory with the given id, or nil if absent.
func (s *MemoryStore) FindById(id string) (*memory.Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, content, who, why, created_at, project, session_id,
		       importance, last_accessed, access_count, type, tags, pinned
		FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.FindById", "query failed", err)
	}
	return m, nil
}

// FtsSearch runs an FTS5 MATCH query and returns ids ranked by BM25, best
// first. The raw SQLite `rank` column is lower-is-better; FtsSearch negates
// it so higher is better, matching every other score in this system.
func (s *MemoryStore) FtsSearch(query string, limit int) ([]RankedID, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT m.id, -fts.rank AS score
		FROM memories_fts fts
		JOIN memories m ON fts.rowid = m.rowid
		WHERE memories_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, query, limit)
	if err != nil {
		logging.StoreWarn("FtsSearch: query failed (query=%q): %v", query, err)
		return nil, memerr.Wrap(memerr.KindFTSUnavailable, "MemoryStore.FtsSearch", "fts query failed", err)
	}
	defer rows.Close()

	var out []RankedID
	for rows.Next() {
		var r RankedID
		if err := rows.Scan(&r.ID, &r.Score); err != nil {
			return nil, memerr.Wrap(memerr.KindFTSUnavailable, "MemoryStore.FtsSearch", "scan failed", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FtsSearchProject runs an FTS5 MATCH query scoped to memories visible to
// project (own project, 'global', or projectless), ranked by BM25 best
// first. Used by the per-prompt context loader (spec §4.7).
func (s *MemoryStore) FtsSearchProject(query, project string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT m.id
		FROM memories_fts fts
		JOIN memories m ON fts.rowid = m.rowid
		WHERE memories_fts MATCH ?
		  AND (m.project = ? OR m.project = 'global' OR m.project IS NULL)
		ORDER BY fts.rank
		LIMIT ?`, query, nullable(project), limit)
	if err != nil {
		logging.StoreWarn("FtsSearchProject: query failed (query=%q): %v", query, err)
		return nil, memerr.Wrap(memerr.KindFTSUnavailable, "MemoryStore.FtsSearchProject", "fts query failed", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, memerr.Wrap(memerr.KindFTSUnavailable, "MemoryStore.FtsSearchProject", "scan failed", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TagSearch finds memories whose tags contain substring, ordered by
// importance descending.
func (s *MemoryStore) TagSearch(substring string, limit int) ([]memory.Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, content, who, why, created_at, project, session_id,
		       importance, last_accessed, access_count, type, tags, pinned
		FROM memories
		WHERE LOWER(tags) LIKE ?
		ORDER BY importance DESC
		LIMIT ?`, "%"+strings.ToLower(substring)+"%", limit)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.TagSearch", "query failed", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// UpdateAccess sets last_accessed=now and increments access_count for the
// given ids. Safe to call with an empty slice.
func (s *MemoryStore) UpdateAccess(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids)+1)
	args[0] = time.Now().UTC()
	for i, id := range ids {
		placeholders[i] = "?"
		args[i+1] = id
	}
	query := fmt.Sprintf(`
		UPDATE memories
		SET last_accessed = ?, access_count = access_count + 1
		WHERE id IN (%s)`, strings.Join(placeholders, ","))

	if _, err := s.db.Exec(query, args...); err != nil {
		return memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.UpdateAccess", "update failed", err)
	}
	return nil
}

// HighValue returns pinned or high-importance memories (importance >= 0.7),
// pinned first, then by importance descending.
func (s *MemoryStore) HighValue(limit int) ([]memory.Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, content, who, why, created_at, project, session_id,
		       importance, last_accessed, access_count, type, tags, pinned
		FROM memories
		WHERE pinned = 1 OR importance >= 0.7
		ORDER BY pinned DESC, importance DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.HighValue", "query failed", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ProjectVisible returns every memory visible to project - scoped to that
// project, marked 'global', or projectless - for the context loader to
// filter and rank by effective score (spec §4.7). The effective-score
// filter and LIMIT live in Go, not SQL, since effective score depends on
// the injectable clock.
func (s *MemoryStore) ProjectVisible(project string) ([]memory.Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, content, who, why, created_at, project, session_id,
		       importance, last_accessed, access_count, type, tags, pinned
		FROM memories
		WHERE (project = ? OR project = 'global' OR project IS NULL)`, nullable(project))
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.ProjectVisible", "query failed", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// PruneCandidate is a row eligible for deletion by Maintenance.Prune.
type PruneCandidate struct {
	ID string
}

// PruneCandidates returns ids satisfying every condition in spec §4.9:
// why starts with "auto-", not pinned, importance < 0.3, older than
// cutoff, and never accessed.
func (s *MemoryStore) PruneCandidates(cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM memories
		WHERE why LIKE 'auto-%'
		  AND pinned = 0
		  AND importance < 0.3
		  AND created_at < ?
		  AND access_count = 0`, cutoff)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.PruneCandidates", "query failed", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.PruneCandidates", "scan failed", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllIds returns every memory id, used by Maintenance.Reindex.
func (s *MemoryStore) AllIds() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM memories`)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.AllIds", "query failed", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, memerr.Wrap(memerr.KindStoreBusy, "MemoryStore.AllIds", "scan failed", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*memory.Memory, error) {
	var m memory.Memory
	var why, project, sessionID, tags sql.NullString
	var lastAccessed sql.NullTime
	var pinned int
	var typ string

	err := row.Scan(&m.ID, &m.Content, &m.Who, &why, &m.CreatedAt, &project, &sessionID,
		&m.Importance, &lastAccessed, &m.AccessCount, &typ, &tags, &pinned)
	if err != nil {
		return nil, err
	}

	m.Why = why.String
	m.Project = project.String
	m.SessionID = sessionID.String
	m.Tags = tags.String
	m.Type = memory.Type(typ)
	m.Pinned = pinned != 0
	if lastAccessed.Valid {
		t := lastAccessed.Time
		m.LastAccessed = &t
	}
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]memory.Memory, error) {
	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, memerr.Wrap(memerr.KindStoreBusy, "store.scanMemories", "scan failed", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
