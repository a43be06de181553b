// Package stream handles SSE writing for streamed chat completions.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/provider"
	"github.com/samirk/openllm-gateway/internal/reqctx"
)

// sseChunk is the top-level JSON object in each SSE event, matching the
// OpenAI chat.completion.chunk wire shape (spec.md §3).
type sseChunk struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Created int64       `json:"created"`
	Model   string      `json:"model"`
	Choices []sseChoice `json:"choices"`

	// Usage is included only on the final chunk, mirroring OpenAI's
	// behavior of attaching usage to the last event only.
	Usage *sseUsage `json:"usage,omitempty"`
}

type sseChoice struct {
	Index int      `json:"index"`
	Delta sseDelta `json:"delta"`

	// FinishReason is null for every chunk but the last.
	FinishReason *string `json:"finish_reason"`
}

type sseDelta struct {
	Content string `json:"content,omitempty"`
}

type sseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type sseErrorEnvelope struct {
	Error sseErrorBody `json:"error"`
}

type sseErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Write reads StreamChunks from the channel and writes them to w as
// OpenAI-compatible Server-Sent Events (spec.md §4.4). It sets SSE
// headers, emits one "data: {json}\n\n" line per chunk, and finishes
// with the "data: [DONE]\n\n" sentinel. A mid-stream provider error is
// rendered as one error event followed by the [DONE] sentinel rather
// than aborting the connection silently, since headers (and likely
// earlier chunks) have already been sent and the status code can no
// longer change.
func Write(ctx context.Context, w http.ResponseWriter, chunks <-chan provider.StreamChunk) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing (http.Flusher)")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if id := reqctx.CorrelationID(ctx); id != "" {
		w.Header().Set(reqctx.HeaderCanonical, id)
	}

	for chunk := range chunks {
		if chunk.Error != nil {
			log.Ctx(ctx).Error().Err(chunk.Error).Str("correlation_id", reqctx.CorrelationID(ctx)).Msg("stream error")
			if writeErr := writeErrorEvent(w, flusher, chunk.Error); writeErr != nil {
				return writeErr
			}
			if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
				return fmt.Errorf("writing SSE done marker: %w", err)
			}
			flusher.Flush()
			return chunk.Error
		}

		event := sseChunk{
			ID:      chunk.ID,
			Object:  "chat.completion.chunk",
			Created: chunk.Created,
			Model:   chunk.Model,
			Choices: []sseChoice{
				{Index: 0, Delta: sseDelta{Content: chunk.Delta}},
			},
		}

		// A final chunk that still carries content (some runners emit text
		// and the done marker in the same event) gets flushed as its own
		// content event before the separate finish event below.
		if chunk.Done && chunk.Delta != "" {
			if err := writeEvent(w, flusher, event); err != nil {
				return err
			}
			event.Choices[0].Delta = sseDelta{}
		}

		if chunk.Done {
			reason := string(chunk.FinishReason)
			if reason == "" {
				reason = "stop"
			}
			event.Choices[0].FinishReason = &reason
			if chunk.Usage != nil {
				event.Usage = &sseUsage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}
		}

		if err := writeEvent(w, flusher, event); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("writing SSE done marker: %w", err)
	}
	flusher.Flush()

	return nil
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event sseChunk) error {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling SSE chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonBytes); err != nil {
		return fmt.Errorf("writing SSE event: %w", err)
	}
	flusher.Flush()
	return nil
}

func writeErrorEvent(w http.ResponseWriter, flusher http.Flusher, cause error) error {
	// Only the typed error's public message is sent; its Cause stays in
	// the log line written by Write.
	env := sseErrorEnvelope{Error: sseErrorBody{Type: "provider_error", Message: apierror.As(cause).Message}}
	jsonBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling SSE error event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonBytes); err != nil {
		return fmt.Errorf("writing SSE error event: %w", err)
	}
	flusher.Flush()
	return nil
}
