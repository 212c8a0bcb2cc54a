package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"agentmem/internal/config"
	"agentmem/internal/context"
	"agentmem/internal/embedding"
	"agentmem/internal/ingest"
	"agentmem/internal/logging"
	"agentmem/internal/maintenance"
	"agentmem/internal/memerr"
	"agentmem/internal/scorer"
	"agentmem/internal/search"
	"agentmem/internal/store"
)

// app bundles every wired component a CLI command needs. Embedder and
// VecStore may be nil - every downstream component tolerates that and
// degrades to BM25-only operation, per spec §5/§7.
type app struct {
	cfg       config.Config
	db        *sql.DB
	memStore  *store.MemoryStore
	vecStore  *store.VectorStore
	embedder  embedding.Provider
	hybrid    *search.Hybrid
	loader    *context.Loader
	pipeline  *ingest.Pipeline
	maint     *maintenance.Maintenance
}

// resolveHome applies the --home flag, then AGENTMEM_HOME, then
// ./.agentmem, matching the teacher's .nerd workspace-directory
// convention (internal/config/user_config.go's FindWorkspaceRoot).
func resolveHome() (string, error) {
	if homeDir != "" {
		return filepath.Abs(homeDir)
	}
	if env := os.Getenv("AGENTMEM_HOME"); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ".agentmem"), nil
}

// bootstrap resolves agents-home, loads config, opens the relational store
// (applying pending migrations), opens the vector store, and constructs an
// embedding provider on a best-effort basis: a provider construction
// failure (e.g. missing API key) is logged and the app proceeds in
// BM25-only mode rather than failing the command, per spec §7's retrieval
// degradation policy.
func bootstrap() (*app, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, memerr.Wrap(memerr.KindConfigInvalid, "bootstrap", "cannot create agents-home", err)
	}
	if err := logging.Initialize(home); err != nil {
		fmt.Fprintln(os.Stderr, "agentmem: warning: logging init failed: "+err.Error())
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	vecStore, err := store.NewVectorStore(db, cfg.VectorsPath(), cfg.Embeddings.Dimensions)
	if err != nil {
		logging.BootDebug("vector store unavailable, continuing BM25-only: %v", err)
		vecStore = nil
	}

	embedder, err := embedding.New(cfg)
	if err != nil {
		logging.BootDebug("embedding provider unavailable, continuing BM25-only: %v", err)
		embedder = nil
	}

	memStore := store.NewMemoryStore(db)
	clock := scorer.SystemClock{}

	a := &app{
		cfg:      cfg,
		db:       db,
		memStore: memStore,
		vecStore: vecStore,
		embedder: embedder,
		hybrid:   search.New(memStore, vecStore, embedder, cfg.Search, clock),
		loader:   context.New(memStore, clock),
		pipeline: ingest.New(memStore, vecStore, embedder, ingest.NoopExtractor{}),
		maint:    maintenance.New(memStore, vecStore, embedder),
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	logging.CloseAll()
}

// memoryDocPath returns the conventional location of the working-memory
// digest (MEMORY.md), consumed by SessionStart.
func (a *app) memoryDocPath() string {
	return filepath.Join(a.cfg.Home(), "MEMORY.md")
}
