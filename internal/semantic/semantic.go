// Package semantic computes text similarity via an OpenAI-compatible
// embeddings API. Pointing the base URL at a local server (Ollama,
// llama.cpp) works the same as the hosted API.
package semantic

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vinsol/interviewsim/internal/model"
)

// Client wraps an OpenAI-compatible embeddings client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new embeddings client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Similarity embeds both texts in one request and returns their cosine
// similarity mapped into [0,1].
func (c *Client) Similarity(ctx context.Context, text, reference string) (float64, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text, reference},
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: embeddings: %v", model.ErrExternalTimeout, err)
		}
		return 0, fmt.Errorf("%w: embeddings: %v", model.ErrExternalService, err)
	}
	if len(resp.Data) != 2 {
		return 0, fmt.Errorf("%w: embeddings returned %d vectors, want 2", model.ErrExternalService, len(resp.Data))
	}

	sim, err := cosine(resp.Data[0].Embedding, resp.Data[1].Embedding)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrExternalService, err)
	}
	// Cosine is in [-1,1]; anti-correlated answers are just "not similar".
	return (sim + 1) / 2, nil
}

// Ping verifies the embeddings endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("embeddings endpoint: %w", err)
	}
	return nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("mismatched embedding dimensions: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
