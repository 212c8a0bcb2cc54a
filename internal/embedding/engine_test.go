package embedding

import (
	"math"
	"testing"

	"agentmem/internal/config"
	"agentmem/internal/memerr"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{1, 2, 3}
	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Fatalf("expected similarity 1.0, got %v", sim)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Fatalf("expected similarity 0, got %v", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if kind, ok := memerr.KindOf(err); !ok || kind != memerr.KindDimensionMismatch {
		t.Fatalf("expected KindDimensionMismatch, got %v", kind)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim != 0 {
		t.Fatalf("expected 0 similarity for zero-magnitude vector, got %v", sim)
	}
}

func TestContentHashIsFunctionOfTrimmedInput(t *testing.T) {
	a := ContentHash("hello world")
	b := ContentHash("  hello world  ")
	if a != b {
		t.Fatalf("content hash should be stable under trimming: %s != %s", a, b)
	}
	c := ContentHash("hello world!")
	if a == c {
		t.Fatal("different content should hash differently")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embeddings.Provider = "bogus"
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if kind, ok := memerr.KindOf(err); !ok || kind != memerr.KindConfigInvalid {
		t.Fatalf("expected KindConfigInvalid, got %v", kind)
	}
}

func TestNewOllamaDefaults(t *testing.T) {
	cfg := config.Default()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Dimensions() != cfg.Embeddings.Dimensions {
		t.Fatalf("expected dimensions %d, got %d", cfg.Embeddings.Dimensions, p.Dimensions())
	}
}

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Embeddings.Provider = "openai"
	cfg.Embeddings.APIKey = ""
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error when no api key is configured")
	}
	if kind, ok := memerr.KindOf(err); !ok || kind != memerr.KindProviderAuthMissing {
		t.Fatalf("expected KindProviderAuthMissing, got %v", kind)
	}
}
