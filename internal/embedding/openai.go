package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

// OpenAIProvider generates embeddings via any OpenAI-compatible /embeddings
// endpoint, authenticated with a bearer token.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIProvider creates a new OpenAI-compatible embedding provider.
// baseURL overrides the default OpenAI API host so self-hosted
// OpenAI-compatible servers (vLLM, LiteLLM, ...) work unchanged.
func NewOpenAIProvider(baseURL, model, apiKey string, dimensions int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, memerr.New(memerr.KindProviderAuthMissing, "OpenAI.New",
			"no api key configured (set embeddings.api_key or OPENAI_API_KEY)")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	logging.Embedding("creating openai provider: base_url=%s model=%s dimensions=%d", baseURL, model, dimensions)

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "OpenAI.Embed")
	defer timer.Stop()

	reqCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: []string{text},
	})
	if err != nil {
		logging.EmbeddingWarn("OpenAI.Embed: request failed: %v", err)
		return Result{}, classifyOpenAIError(err)
	}
	if len(resp.Data) == 0 {
		return Result{}, memerr.New(memerr.KindProviderProtocol, "OpenAI.Embed", "no embedding returned")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)

	return Result{
		Vector:      vec,
		ContentHash: ContentHash(text),
		Model:       p.model,
	}, nil
}

// Dimensions implements Provider.
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return fmt.Sprintf("openai:%s", p.model) }

// HealthCheck implements HealthChecker with a minimal embed probe.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: []string{"ok"},
	})
	if err != nil {
		return classifyOpenAIError(err)
	}
	return nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return memerr.Wrap(memerr.KindProviderAuthMissing, "OpenAI", "authentication rejected", err)
		}
		return memerr.Wrap(memerr.KindProviderProtocol, "OpenAI", "api error", err)
	}
	return memerr.Wrap(memerr.KindProviderUnavailable, "OpenAI", "request failed", err)
}

func asAPIError(err error, target **openai.APIError) bool {
	if e, ok := err.(*openai.APIError); ok {
		*target = e
		return true
	}
	return false
}
