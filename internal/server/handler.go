package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/config"
	"github.com/samirk/openllm-gateway/internal/openai"
	"github.com/samirk/openllm-gateway/internal/provider"
	"github.com/samirk/openllm-gateway/internal/reqctx"
	"github.com/samirk/openllm-gateway/internal/stream"
)

// namespaceHandler holds the one Provider a route group dispatches to.
// It exists so the three namespaces (custom/ollama/cerebras) share a
// single set of transport-only handlers instead of duplicating decode/
// validate/encode logic per provider.
type namespaceHandler struct {
	provider provider.Provider
	cfg      *config.Settings
	logger   zerolog.Logger
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *namespaceHandler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.provider.ListModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *namespaceHandler) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req openai.EmbeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.Validation("invalid request body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}

	resp, err := h.provider.CreateEmbeddings(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChatCompletions decodes the request, resolves stream vs unary,
// and dispatches — the only branch in the whole handler (spec.md §4.5).
func (h *namespaceHandler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.Validation("invalid request body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierror.Validation(err.Error()))
		return
	}

	w.Header().Set("X-Provider", h.provider.Name())

	if req.Stream {
		chunks, err := h.provider.StreamChatCompletion(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := stream.Write(r.Context(), w, chunks); err != nil {
			h.logger.Error().Err(err).
				Str("correlation_id", reqctx.CorrelationID(r.Context())).
				Msg("stream write failed")
		}
		return
	}

	resp, err := h.provider.ChatCompletion(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError classifies err into the gateway's typed taxonomy (spec.md
// §4.7/§7) and renders its envelope; any error that wasn't already a
// typed *apierror.Error is treated as InternalError without leaking its
// cause.
func writeError(w http.ResponseWriter, err error) {
	apiErr := apierror.As(err)
	if apiErr.Kind == apierror.KindAuth {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	_, _ = w.Write(apiErr.Body())
}
