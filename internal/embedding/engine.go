// Package embedding provides vector embedding generation for agentmem's
// hybrid search. Supports two backends: Ollama (local) and any
// OpenAI-compatible HTTP API. Both sides of the provider boundary are kept
// deliberately thin - the HTTP clients that talk to Ollama/OpenAI are
// pluggable, as specified, and nothing in the store or search layers knows
// which one is in use.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"agentmem/internal/config"
	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

// Result is the output of an embed call: the dense vector plus a content
// hash usable for dedup/caching.
type Result struct {
	Vector      []float32
	ContentHash string
	Model       string
}

// Provider maps text to a fixed-length embedding vector. Implementations
// must be side-effect-free from the store's perspective: calling Embed
// twice with the same trimmed input is expected to be (eventually)
// idempotent in ContentHash even if the vector itself varies by provider.
type Provider interface {
	// Embed generates an embedding for a single non-empty trimmed string.
	Embed(ctx context.Context, text string) (Result, error)

	// Dimensions returns the configured dimensionality of embeddings.
	Dimensions() int

	// Name identifies the backend, e.g. "ollama:nomic-embed-text".
	Name() string
}

// HealthChecker is an optional capability: providers that can cheaply probe
// availability implement it so callers can skip a doomed embed call.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// New constructs a Provider from the full configuration (the embeddings
// section plus whatever is needed to resolve the API key fallback).
func New(cfg config.Config) (Provider, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "New")
	defer timer.Stop()

	ec := cfg.Embeddings
	logging.Embedding("creating embedding provider: provider=%s model=%s dimensions=%d",
		ec.Provider, ec.Model, ec.Dimensions)

	switch ec.Provider {
	case "ollama":
		return NewOllamaProvider(ec.BaseURL, ec.Model, ec.Dimensions)
	case "openai":
		return NewOpenAIProvider(ec.BaseURL, ec.Model, cfg.APIKey(), ec.Dimensions)
	default:
		return nil, memerr.New(memerr.KindConfigInvalid, "embedding.New",
			fmt.Sprintf("unsupported embeddings.provider %q", ec.Provider))
	}
}

// ContentHash returns SHA-256(utf8(trimmed text)) as lowercase hex, per the
// provider contract in spec §4.1.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns DimensionMismatch if lengths differ.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, memerr.New(memerr.KindDimensionMismatch, "embedding.CosineSimilarity",
			fmt.Sprintf("vector length mismatch: %d != %d", len(a), len(b)))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
