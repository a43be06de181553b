package provider

import (
	"context"
	"errors"
	"io"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/openai"
	"github.com/samirk/openllm-gateway/internal/streamdecode"
	"github.com/samirk/openllm-gateway/internal/upstream"
)

// OllamaProvider adapts the local-runner upstream client to the
// gateway's Provider interface, translating between OpenAI wire shapes
// and Ollama's native /api/chat, /api/embeddings, /api/tags shapes
// (spec.md §4.3).
type OllamaProvider struct {
	client *upstream.OllamaClient
}

func NewOllamaProvider(client *upstream.OllamaClient) *OllamaProvider {
	return &OllamaProvider{client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) ListModels(ctx context.Context) (*openai.ModelList, error) {
	tags, err := p.client.ListTags(ctx)
	if err != nil {
		return nil, apierror.Provider("listing ollama models", err)
	}

	models := make([]openai.Model, 0, len(tags.Models))
	for _, t := range tags.Models {
		models = append(models, openai.Model{
			ID:      t.Name,
			Object:  "model",
			Created: EpochFromRFC3339(t.ModifiedAt),
			OwnedBy: "ollama",
		})
	}
	return &openai.ModelList{Object: "list", Data: models}, nil
}

// CreateEmbeddings issues one /api/embeddings call per input item and
// aggregates the results, since Ollama's embeddings endpoint accepts a
// single prompt at a time. Usage is always zero: the daemon does not
// report token counts for embeddings (spec.md §4.3).
func (p *OllamaProvider) CreateEmbeddings(ctx context.Context, req *openai.EmbeddingsRequest) (*openai.EmbeddingsResponse, error) {
	inputs := req.Input.Strings
	if req.Input.IsTokens {
		return nil, apierror.Validation("the ollama provider does not accept token-id embeddings input")
	}

	items := make([]openai.EmbeddingItem, 0, len(inputs))
	for i, text := range inputs {
		resp, err := p.client.Embeddings(ctx, req.Model, text)
		if err != nil {
			return nil, apierror.Provider("calling ollama embeddings", err)
		}
		items = append(items, openai.EmbeddingItem{Object: "embedding", Index: i, Embedding: resp.Embedding})
	}

	return &openai.EmbeddingsResponse{
		Object: "list",
		Data:   items,
		Model:  req.Model,
		Usage:  ZeroUsage(),
	}, nil
}

func (p *OllamaProvider) ChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if req.Stream {
		return nil, apierror.Provider("ollama provider received stream=true on the unary endpoint", nil)
	}

	ollamaReq := toOllamaChatRequest(req)

	resp, err := p.client.Chat(ctx, ollamaReq)
	if err != nil {
		return nil, apierror.Provider("calling ollama chat completion", err)
	}

	finish := FinishReasonFromDone(resp.Done, resp.DoneReason)
	return &openai.ChatCompletionResponse{
		ID:      NewCompletionID(),
		Object:  "chat.completion",
		Created: EpochFromRFC3339(resp.CreatedAt),
		Model:   resp.Model,
		Choices: []openai.Choice{
			{
				Index: 0,
				Message: openai.Message{
					Role:    openai.RoleAssistant,
					Content: openai.Content{Text: resp.Message.Content},
				},
				FinishReason: finish,
			},
		},
		Usage: openai.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// StreamChatCompletion is the only provider in this gateway that
// implements streaming (spec.md §4.3: Cerebras rejects it, custom
// doesn't offer it). For a localhost base URL it probes for a live
// daemon before opening the stream connection, so the stub-fallback
// decision is made once, up front; the unary path instead falls back
// when its own request fails to dial.
func (p *OllamaProvider) StreamChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan StreamChunk, error) {
	ollamaReq := toOllamaChatRequest(req)
	id := NewCompletionID()
	out := make(chan StreamChunk)

	if !p.client.DialProbe(ctx) {
		lines := p.client.Stub().ChatStreamLines(ollamaReq)
		go streamOllamaLines(id, lines, out)
		return out, nil
	}

	body, err := p.client.ChatStream(ctx, ollamaReq)
	if err != nil {
		return nil, apierror.Provider("opening ollama chat stream", err)
	}

	go streamOllamaBody(id, body, out)
	return out, nil
}

func streamOllamaLines(id string, lines []upstream.OllamaChatResponse, out chan<- StreamChunk) {
	defer close(out)
	var created int64
	for i, line := range lines {
		if i == 0 {
			created = EpochFromRFC3339(line.CreatedAt)
		}
		out <- ollamaLineToChunk(id, created, line)
	}
}

func streamOllamaBody(id string, body io.ReadCloser, out chan<- StreamChunk) {
	defer close(out)
	defer body.Close()

	dec := streamdecode.NewDecoder(body)
	var created int64
	first := true
	for {
		var line upstream.OllamaChatResponse
		err := dec.Next(&line)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			out <- StreamChunk{ID: id, Error: apierror.Provider("decoding ollama chat stream", err)}
			return
		}
		if first {
			created = EpochFromRFC3339(line.CreatedAt)
			first = false
		}
		out <- ollamaLineToChunk(id, created, line)
	}
}

// ollamaLineToChunk maps one native Ollama chat line to a StreamChunk.
// created is fixed by the caller to the first chunk's timestamp so every
// chunk in a stream reports the same creation epoch (spec.md §3).
func ollamaLineToChunk(id string, created int64, line upstream.OllamaChatResponse) StreamChunk {
	chunk := StreamChunk{
		ID:      id,
		Model:   line.Model,
		Created: created,
		Delta:   line.Message.Content,
		Done:    line.Done,
	}
	if line.Done {
		chunk.FinishReason = FinishReasonFromDone(line.Done, line.DoneReason)
		usage := openai.Usage{
			PromptTokens:     line.PromptEvalCount,
			CompletionTokens: line.EvalCount,
			TotalTokens:      line.PromptEvalCount + line.EvalCount,
		}
		chunk.Usage = &usage
	}
	return chunk
}

// toOllamaChatRequest translates an OpenAI chat completion request into
// Ollama's native shape, mapping the option fields spec.md §4.3 lists:
// max_tokens -> num_predict, stop -> a plain list, temperature/top_p/
// top_k/seed copied directly, presence/frequency penalties and
// logit_bias passed through as options, and response_format
// "json_object" mapped to format:"json".
func toOllamaChatRequest(req *openai.ChatCompletionRequest) upstream.OllamaChatRequest {
	messages := make([]upstream.OllamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, upstream.OllamaMessage{
			Role:    string(m.Role),
			Content: m.Content.AsText(),
		})
	}

	options := map[string]interface{}{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		options["top_p"] = *req.TopP
	}
	if req.TopK != nil {
		options["top_k"] = *req.TopK
	}
	if req.MaxTokens != nil {
		options["num_predict"] = *req.MaxTokens
	}
	if req.Seed != nil {
		options["seed"] = *req.Seed
	}
	if req.PresencePenalty != nil {
		options["presence_penalty"] = *req.PresencePenalty
	}
	if req.FrequencyPenalty != nil {
		options["frequency_penalty"] = *req.FrequencyPenalty
	}
	if req.Stop != nil && len(req.Stop.Values) > 0 {
		options["stop"] = req.Stop.Values
	}
	if req.LogitBias != nil {
		options["logit_bias"] = req.LogitBias
	}
	// n, user, logprobs, tools/tool_choice, and functions/function_call
	// have no Ollama equivalent and are intentionally dropped here rather
	// than forwarded (spec.md §4.3 notes these as "accepted, not honored
	// by every provider").

	format := ""
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		format = "json"
		options["structured"] = true
	}

	out := upstream.OllamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Format:   format,
	}
	if len(options) > 0 {
		out.Options = options
	}
	return out
}
