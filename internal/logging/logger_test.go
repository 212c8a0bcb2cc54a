package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeCreatesLogsDir(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Fatalf("expected logs directory to exist: %v", err)
	}
}

func TestGetReturnsNoOpLoggerWhenDisabled(t *testing.T) {
	logsDir = ""
	configLoaded = false
	config = loggingConfig{}

	l := Get(CategoryStore)
	// Must not panic even though no file is backing it.
	l.Info("hello %s", "world")
	l.Debug("hello %s", "world")
	l.Warn("hello %s", "world")
	l.Error("hello %s", "world")
}

func TestSetLevelFiltersMessages(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	SetLevel("error")
	if logLevel != LevelError {
		t.Fatalf("expected LevelError, got %d", logLevel)
	}
	SetLevel("debug")
	if logLevel != LevelDebug {
		t.Fatalf("expected LevelDebug, got %d", logLevel)
	}
}

func TestCategoryToggle(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	configMu.Lock()
	config.Categories = map[string]bool{string(CategoryStore): false}
	configMu.Unlock()

	if IsCategoryEnabled(CategoryStore) {
		t.Fatalf("expected CategoryStore to be disabled")
	}
	if !IsCategoryEnabled(CategoryEmbedding) {
		t.Fatalf("expected CategoryEmbedding to default to enabled")
	}
}
