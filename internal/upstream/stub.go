package upstream

import (
	"strings"
	"time"
)

// localStub answers Ollama wire calls in-process with canned, fully
// deterministic shapes. It exists so a dev machine or CI runner without
// a real Ollama daemon still gets a hermetic gateway (spec.md §4.2).
// Explicit HTTP errors and read timeouts are never routed here — only a
// dial failure against a localhost target triggers this fallback.
type localStub struct {
	startedAt time.Time
}

func newLocalStub() *localStub {
	return &localStub{startedAt: time.Now()}
}

const stubModel = "llama3-stub"

func (s *localStub) ListTags() *OllamaTagsResponse {
	return &OllamaTagsResponse{
		Models: []OllamaTag{
			{Name: stubModel, ModifiedAt: s.startedAt.UTC().Format(time.RFC3339)},
			{Name: "mistral-stub", ModifiedAt: s.startedAt.UTC().Format(time.RFC3339)},
		},
	}
}

func (s *localStub) Embeddings(model, prompt string) *OllamaEmbeddingsResponse {
	// A deterministic, cheap "embedding": one float per byte of the
	// prompt, clamped to between 1 and 32 floats, so tests can assert on
	// vector length without needing a real model.
	dims := len(prompt)
	if dims == 0 {
		dims = 1
	}
	if dims > 32 {
		dims = 32
	}
	vec := make([]float64, dims)
	for i := range vec {
		vec[i] = float64(i+1) / float64(dims)
	}
	return &OllamaEmbeddingsResponse{Embedding: vec}
}

func (s *localStub) Chat(req OllamaChatRequest) *OllamaChatResponse {
	return &OllamaChatResponse{
		Model:     req.Model,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Message: OllamaMessage{
			Role:    "assistant",
			Content: stubReply(req),
		},
		Done:            true,
		DoneReason:      "stop",
		PromptEvalCount: stubPromptTokens(req),
		EvalCount:       4,
	}
}

// ChatStreamLines returns the canned stream events a streaming call
// would have produced: one content chunk per word of the canned reply,
// followed by a final done=true event, matching the JSON-lines framing
// the real daemon uses.
func (s *localStub) ChatStreamLines(req OllamaChatRequest) []OllamaChatResponse {
	now := time.Now().UTC().Format(time.RFC3339)
	words := strings.Fields(stubReply(req))
	if len(words) == 0 {
		words = []string{"ok"}
	}

	var lines []OllamaChatResponse
	for _, w := range words {
		lines = append(lines, OllamaChatResponse{
			Model:     req.Model,
			CreatedAt: now,
			Message:   OllamaMessage{Role: "assistant", Content: w + " "},
			Done:      false,
		})
	}
	lines = append(lines, OllamaChatResponse{
		Model:           req.Model,
		CreatedAt:       now,
		Done:            true,
		DoneReason:      "stop",
		PromptEvalCount: stubPromptTokens(req),
		EvalCount:       len(words),
	})
	return lines
}

func stubReply(req OllamaChatRequest) string {
	return "This is a deterministic stub response for model " + req.Model + "."
}

func stubPromptTokens(req OllamaChatRequest) int {
	total := 0
	for _, m := range req.Messages {
		total += len(strings.Fields(m.Content))
	}
	return total
}
