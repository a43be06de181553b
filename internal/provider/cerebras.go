package provider

import (
	"context"

	cerebrasopenai "github.com/openai/openai-go/v3"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/openai"
	"github.com/samirk/openllm-gateway/internal/upstream"
)

// CerebrasProvider adapts the Cerebras cloud client to the gateway's
// Provider interface. Cerebras speaks the OpenAI wire format natively,
// so translation here is mostly type conversion rather than semantic
// remapping (spec.md §4.3).
type CerebrasProvider struct {
	client *upstream.CerebrasClient
}

func NewCerebrasProvider(client *upstream.CerebrasClient) *CerebrasProvider {
	return &CerebrasProvider{client: client}
}

func (p *CerebrasProvider) Name() string { return "cerebras" }

func (p *CerebrasProvider) ListModels(ctx context.Context) (*openai.ModelList, error) {
	page, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, apierror.Provider("listing cerebras models", err)
	}

	models := make([]openai.Model, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, openai.Model{
			ID:      m.ID,
			Object:  "model",
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return &openai.ModelList{Object: "list", Data: models}, nil
}

func (p *CerebrasProvider) CreateEmbeddings(ctx context.Context, req *openai.EmbeddingsRequest) (*openai.EmbeddingsResponse, error) {
	if req.Input.IsTokens {
		return nil, apierror.Validation("the cerebras provider does not accept token-id embeddings input")
	}

	params := cerebrasopenai.EmbeddingNewParams{
		Model: cerebrasopenai.EmbeddingModel(req.Model),
		Input: cerebrasopenai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: req.Input.Strings,
		},
	}

	resp, err := p.client.Embeddings(ctx, params)
	if err != nil {
		return nil, apierror.Provider("calling cerebras embeddings", err)
	}

	items := make([]openai.EmbeddingItem, 0, len(resp.Data))
	for _, d := range resp.Data {
		items = append(items, openai.EmbeddingItem{Object: "embedding", Index: int(d.Index), Embedding: d.Embedding})
	}

	return &openai.EmbeddingsResponse{
		Object: "list",
		Data:   items,
		Model:  string(params.Model),
		Usage: openai.Usage{
			PromptTokens: int(resp.Usage.PromptTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// ChatCompletion forwards a unary request to Cerebras. stream=true is
// rejected here with a ProviderError rather than silently served unary;
// streaming requests go through StreamChatCompletion instead.
func (p *CerebrasProvider) ChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if req.Stream {
		return nil, apierror.Provider("cerebras provider received stream=true on the unary endpoint", nil)
	}

	params := toCerebrasParams(req)
	resp, err := p.client.ChatCompletion(ctx, params)
	if err != nil {
		return nil, apierror.Provider("calling cerebras chat completion", err)
	}

	choices := make([]openai.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, openai.Choice{
			Index: int(c.Index),
			Message: openai.Message{
				Role:    openai.RoleAssistant,
				Content: openai.Content{Text: c.Message.Content},
			},
			FinishReason: mapCerebrasFinishReason(string(c.FinishReason)),
		})
	}

	return &openai.ChatCompletionResponse{
		ID:      NewCompletionID(),
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   resp.Model,
		Choices: choices,
		Usage: openai.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// StreamChatCompletion always returns a NotImplementedError: the chat
// handler calls it for every stream=true request on this namespace, and
// the error becomes the HTTP 501 response.
func (p *CerebrasProvider) StreamChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan StreamChunk, error) {
	return nil, apierror.NotImplemented("the cerebras provider does not support streaming chat completions")
}

func toCerebrasParams(req *openai.ChatCompletionRequest) cerebrasopenai.ChatCompletionNewParams {
	messages := make([]cerebrasopenai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Content.AsText()
		switch m.Role {
		case openai.RoleSystem, openai.RoleDeveloper:
			messages = append(messages, cerebrasopenai.SystemMessage(text))
		case openai.RoleAssistant:
			messages = append(messages, cerebrasopenai.AssistantMessage(text))
		default:
			messages = append(messages, cerebrasopenai.UserMessage(text))
		}
	}

	params := cerebrasopenai.ChatCompletionNewParams{
		Model:    cerebrasopenai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = cerebrasopenai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = cerebrasopenai.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = cerebrasopenai.Int(int64(*req.MaxTokens))
	}
	if req.N != nil {
		params.N = cerebrasopenai.Int(int64(*req.N))
	}
	if req.PresencePenalty != nil {
		params.PresencePenalty = cerebrasopenai.Float(*req.PresencePenalty)
	}
	if req.FrequencyPenalty != nil {
		params.FrequencyPenalty = cerebrasopenai.Float(*req.FrequencyPenalty)
	}
	if req.Seed != nil {
		params.Seed = cerebrasopenai.Int(*req.Seed)
	}
	if req.User != "" {
		params.User = cerebrasopenai.String(req.User)
	}
	if req.Stop != nil && len(req.Stop.Values) > 0 {
		params.Stop = cerebrasopenai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Stop.Values,
		}
	}
	return params
}

func mapCerebrasFinishReason(r string) openai.FinishReason {
	switch r {
	case "length":
		return openai.FinishLength
	case "content_filter":
		return openai.FinishContentFilter
	case "tool_calls":
		return openai.FinishToolCalls
	default:
		return openai.FinishStop
	}
}
