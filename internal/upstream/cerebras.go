package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CerebrasClient wraps the official OpenAI Go SDK pointed at Cerebras's
// base URL. Cerebras exposes an OpenAI-wire-compatible chat completions
// endpoint, so no hand-rolled HTTP client is needed here — this is the
// one upstream client in the gateway built on a vendor SDK rather than
// net/http directly (spec.md §4.3 "cloud SDK's chat.completions.create
// equivalent").
type CerebrasClient struct {
	sdk openai.Client
}

// NewCerebrasClient builds a CerebrasClient. An empty apiKey is an error
// at construction time (spec.md §4.2: "If an API key is required and not
// configured when the provider is exercised, construction of the client
// yields a failure that the provider normalizes to ProviderError").
func NewCerebrasClient(apiKey, baseURL string, timeout time.Duration) (*CerebrasClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cerebras API key is not configured")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &CerebrasClient{sdk: openai.NewClient(opts...)}, nil
}

// ChatCompletion forwards params to Cerebras's chat completions endpoint.
func (c *CerebrasClient) ChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("calling cerebras chat completions: %w", err)
	}
	return resp, nil
}

// ListModels forwards to Cerebras's model listing endpoint.
func (c *CerebrasClient) ListModels(ctx context.Context) (*openai.ModelsPage, error) {
	page, err := c.sdk.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("calling cerebras models.list: %w", err)
	}
	return page, nil
}

// Embeddings forwards to Cerebras's embeddings endpoint.
func (c *CerebrasClient) Embeddings(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("calling cerebras embeddings: %w", err)
	}
	return resp, nil
}
