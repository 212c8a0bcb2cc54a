package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

// embedTimeout is the per-request ceiling from spec §5: embedding calls
// carry a 30s ceiling regardless of backend.
const embedTimeout = 30 * time.Second

// OllamaProvider generates embeddings via a local Ollama server's
// /api/embeddings endpoint.
type OllamaProvider struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(endpoint, model string, dimensions int) (*OllamaProvider, error) {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dimensions <= 0 {
		dimensions = 768
	}

	logging.Embedding("creating ollama provider: endpoint=%s model=%s dimensions=%d", endpoint, model, dimensions)

	return &OllamaProvider{
		endpoint:   endpoint,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: embedTimeout},
	}, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Provider.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "Ollama.Embed")
	defer timer.Stop()

	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return Result{}, memerr.Wrap(memerr.KindProviderProtocol, "Ollama.Embed", "failed to marshal request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return Result{}, memerr.Wrap(memerr.KindProviderProtocol, "Ollama.Embed", "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	apiStart := time.Now()
	resp, err := p.client.Do(httpReq)
	apiLatency := time.Since(apiStart)
	if err != nil {
		logging.EmbeddingWarn("Ollama.Embed: request failed after %v: %v", apiLatency, err)
		return Result{}, memerr.Wrap(memerr.KindProviderUnavailable, "Ollama.Embed", "ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Result{}, memerr.New(memerr.KindProviderProtocol, "Ollama.Embed",
			fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, memerr.Wrap(memerr.KindProviderProtocol, "Ollama.Embed", "failed to decode response", err)
	}

	logging.EmbeddingDebug("Ollama.Embed: completed, dimensions=%d, latency=%v", len(result.Embedding), apiLatency)

	return Result{
		Vector:      result.Embedding,
		ContentHash: ContentHash(text),
		Model:       p.model,
	}, nil
}

// Dimensions implements Provider.
func (p *OllamaProvider) Dimensions() int { return p.dimensions }

// Name implements Provider.
func (p *OllamaProvider) Name() string { return fmt.Sprintf("ollama:%s", p.model) }

// HealthCheck implements HealthChecker by probing the Ollama base URL.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.endpoint+"/api/tags", nil)
	if err != nil {
		return memerr.Wrap(memerr.KindProviderUnavailable, "Ollama.HealthCheck", "failed to build request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return memerr.Wrap(memerr.KindProviderUnavailable, "Ollama.HealthCheck", "ollama unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return memerr.New(memerr.KindProviderUnavailable, "Ollama.HealthCheck",
			fmt.Sprintf("ollama returned status %d", resp.StatusCode))
	}
	return nil
}
