package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/openai"
)

// CustomProvider is the deterministic echo provider served at the
// gateway's own /v1 namespace (spec.md §4.3). It never makes a network
// call — it exists so development and test clients have a fully
// hermetic target.
type CustomProvider struct {
	logger zerolog.Logger
}

// NewCustomProvider creates a CustomProvider. logger is used only for a
// structured per-request summary — never the request content.
func NewCustomProvider(logger *zerolog.Logger) *CustomProvider {
	if logger == nil {
		return &CustomProvider{logger: log.Logger}
	}
	return &CustomProvider{logger: *logger}
}

func (p *CustomProvider) Name() string { return "custom" }

var customModels = []openai.Model{
	{ID: "custom-echo", Object: "model", Created: 1700000000, OwnedBy: "custom"},
	{ID: "custom-echo-mini", Object: "model", Created: 1700000000, OwnedBy: "custom"},
}

func (p *CustomProvider) ListModels(ctx context.Context) (*openai.ModelList, error) {
	return &openai.ModelList{Object: "list", Data: customModels}, nil
}

func (p *CustomProvider) CreateEmbeddings(ctx context.Context, req *openai.EmbeddingsRequest) (*openai.EmbeddingsResponse, error) {
	dims := 8
	if req.Dimensions != nil && *req.Dimensions > 0 {
		dims = *req.Dimensions
	}

	inputs := req.Input.Strings
	if len(inputs) == 0 {
		// Token-id inputs still get one deterministic vector per item.
		inputs = make([]string, len(req.Input.TokenLists))
	}

	items := make([]openai.EmbeddingItem, 0, len(inputs))
	for i := range inputs {
		vec := make([]float64, dims)
		for j := range vec {
			vec[j] = float64(j+1) / float64(dims)
		}
		items = append(items, openai.EmbeddingItem{Object: "embedding", Index: i, Embedding: vec})
	}

	p.logger.Info().
		Str("model", req.Model).
		Int("input_count", len(inputs)).
		Int("dimensions", dims).
		Msg("custom embeddings request")

	return &openai.EmbeddingsResponse{
		Object: "list",
		Data:   items,
		Model:  req.Model,
		Usage:  ZeroUsage(),
	}, nil
}

func (p *CustomProvider) ChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if req.Stream {
		return nil, apierror.Provider("custom provider received stream=true on the unary endpoint", nil)
	}

	p.logger.Info().
		Str("model", req.Model).
		Int("message_count", len(req.Messages)).
		Msg("custom chat completion request")

	return &openai.ChatCompletionResponse{
		ID:      NewCompletionID(),
		Object:  "chat.completion",
		Created: epochNow(),
		Model:   req.Model,
		Choices: []openai.Choice{
			{
				Index: 0,
				Message: openai.Message{
					Role:    openai.RoleAssistant,
					Content: openai.Content{Text: fmt.Sprintf("This is a deterministic echo response from the custom provider for model %q.", req.Model)},
				},
				FinishReason: openai.FinishStop,
			},
		},
		Usage: ZeroUsage(),
	}, nil
}

func (p *CustomProvider) StreamChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan StreamChunk, error) {
	return nil, apierror.NotImplemented("the custom provider does not support streaming chat completions")
}
