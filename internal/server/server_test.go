package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/config"
	"github.com/samirk/openllm-gateway/internal/openai"
	"github.com/samirk/openllm-gateway/internal/provider"
)

// stubProvider is a minimal in-test Provider so server tests don't need
// a real upstream.
type stubProvider struct {
	name         string
	streamErr    error
	streamChunks []provider.StreamChunk
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) ListModels(ctx context.Context) (*openai.ModelList, error) {
	return &openai.ModelList{Object: "list", Data: []openai.Model{{ID: "m1", Object: "model"}}}, nil
}

func (p *stubProvider) CreateEmbeddings(ctx context.Context, req *openai.EmbeddingsRequest) (*openai.EmbeddingsResponse, error) {
	return &openai.EmbeddingsResponse{Object: "list", Model: req.Model}, nil
}

func (p *stubProvider) ChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	return &openai.ChatCompletionResponse{ID: "chatcmpl-1", Object: "chat.completion", Model: req.Model}, nil
}

func (p *stubProvider) StreamChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan provider.StreamChunk, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range p.streamChunks {
			ch <- c
		}
	}()
	return ch, nil
}

func testServer(cfg *config.Settings, p provider.Provider) *Server {
	if cfg == nil {
		cfg = &config.Settings{RequireAuth: false}
	}
	return New(cfg, zerolog.Nop(), []Namespace{{Prefix: "/v1", Provider: p}})
}

func TestHandleHealth_NoAuthRequired(t *testing.T) {
	srv := testServer(&config.Settings{RequireAuth: true, AllowedAPIKeys: []string{"x"}}, &stubProvider{name: "custom"})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleListModels(t *testing.T) {
	srv := testServer(nil, &stubProvider{name: "custom"})
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list openai.ModelList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
}

func TestHandleChatCompletions_ValidationFailure(t *testing.T) {
	srv := testServer(nil, &stubProvider{name: "custom"})
	body := bytes.NewBufferString(`{"model":"","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleChatCompletions_UnarySuccess(t *testing.T) {
	srv := testServer(nil, &stubProvider{name: "custom"})
	body := bytes.NewBufferString(`{"model":"custom-echo","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "custom", w.Header().Get("X-Provider"))
}

func TestHandleChatCompletions_StreamOnNonStreamingProvider(t *testing.T) {
	stub := &stubProvider{name: "cerebras", streamErr: apierror.NotImplemented("the cerebras provider does not support streaming chat completions")}
	srv := testServer(nil, stub)
	body := bytes.NewBufferString(`{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandleChatCompletions_AuthFailure(t *testing.T) {
	cfg := &config.Settings{RequireAuth: true, AllowedAPIKeys: []string{"secret"}}
	srv := testServer(cfg, &stubProvider{name: "custom"})
	body := bytes.NewBufferString(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestHandleChatCompletions_StreamSuccess(t *testing.T) {
	stub := &stubProvider{
		name: "ollama",
		streamChunks: []provider.StreamChunk{
			{Model: "m", Delta: "hi"},
			{Model: "m", Done: true},
		},
	}
	srv := testServer(nil, stub)
	body := bytes.NewBufferString(`{"model":"m","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "data: [DONE]")
}
