// Package provider defines the Provider capability set and the unified
// request/response shapes every upstream adapter translates to and from
// (spec.md §4.3). The rest of the gateway — router, streaming writer,
// handlers — only ever talks to this package's types, never to a
// provider-specific wire format.
package provider

import (
	"context"

	"github.com/samirk/openllm-gateway/internal/openai"
)

// Provider is the interface every upstream adapter satisfies. Go
// interfaces are implicit: any type with these methods automatically
// satisfies Provider — no "implements" keyword needed.
type Provider interface {
	// Name returns the provider identifier ("custom", "ollama", "cerebras").
	// Used for the X-Provider response header.
	Name() string

	// ListModels returns the provider's model catalog.
	ListModels(ctx context.Context) (*openai.ModelList, error)

	// CreateEmbeddings computes embeddings for the given input.
	CreateEmbeddings(ctx context.Context, req *openai.EmbeddingsRequest) (*openai.EmbeddingsResponse, error)

	// ChatCompletion handles the non-streaming chat path. Implementations
	// reject req.Stream == true with a ProviderError (spec.md §4.3).
	ChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)

	// StreamChatCompletion handles the streaming chat path, returning a
	// channel of chunks. Only the local-runner (ollama) provider
	// implements this for real; others return a NotImplementedError
	// before ever returning a channel.
	StreamChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan StreamChunk, error)
}

// StreamChunk is one piece of a streaming chat completion, flowing from
// a provider's background goroutine to the SSE writer (internal/stream).
type StreamChunk struct {
	ID      string
	Model   string
	Created int64

	// Delta is the incremental text fragment for this chunk. Empty on
	// the terminal chunk.
	Delta string

	// Done is true on the terminal chunk.
	Done bool

	// FinishReason is only set on the terminal chunk.
	FinishReason openai.FinishReason

	// Usage is only populated on the terminal chunk, and may be nil
	// (spec.md §9: treated as optional). Counts the upstream did not
	// report are zero.
	Usage *openai.Usage

	// Error signals a mid-stream failure (spec.md §4.4): the pipeline
	// emits one error event describing it, then the [DONE] sentinel.
	Error error
}
