// Package store implements agentmem's two on-disk indexes: the relational
// MemoryStore (SQLite + FTS5) and the auxiliary VectorStore. The relational
// store is authoritative; the vector store is a rebuildable index that
// readers must tolerate being partially or wholly absent for (spec §5, §9).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

const busyTimeoutMillis = 5000

// bootstrapDDL creates only the schema_migrations bookkeeping table. It
// must exist before RunMigrations can record anything, so it is applied
// directly rather than through a migration file - a chicken-and-egg the
// reference migrator resolves the same way (ensure_migrations_table).
// Everything else - the memories table, indexes, FTS shadow, triggers, and
// vector collection - lives in migrations/001_init.sql.
const bootstrapDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL,
	checksum   TEXT NOT NULL
);
`

// Open creates (if needed) and opens the memories database at path,
// applying the WAL/busy-timeout/synchronous discipline from spec §4.3.
func Open(path string) (*sql.DB, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "store.Open", "cannot create database directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, memerr.Wrap(memerr.KindStoreBusy, "store.Open", "cannot open database", err)
	}

	// A single SQLite file only tolerates one writer; serialize all access
	// through a single connection so WAL readers never race the busy
	// timeout against Go's own connection pool.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, memerr.Wrap(memerr.KindStoreBusy, "store.Open", "cannot set "+p, err)
		}
	}

	if _, err := db.Exec(bootstrapDDL); err != nil {
		db.Close()
		return nil, memerr.Wrap(memerr.KindFTSUnavailable, "store.Open", "cannot bootstrap schema_migrations", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("opened database at %s", path)
	return db, nil
}
