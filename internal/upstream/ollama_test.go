package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Chat_AgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req OllamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(OllamaChatResponse{
			Model:      req.Model,
			CreatedAt:  "2026-01-01T00:00:00Z",
			Message:    OllamaMessage{Role: "assistant", Content: "hello back"},
			Done:       true,
			DoneReason: "stop",
			EvalCount:  3,
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, time.Second, srv.Client())

	resp, err := client.Chat(context.Background(), OllamaChatRequest{
		Model:    "llama3",
		Messages: []OllamaMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Message.Content)
	assert.True(t, resp.Done)
}

func TestOllamaClient_FallsBackToStub_OnLocalhostDialFailure(t *testing.T) {
	// Nothing is listening on this port, and the host is loopback, so the
	// client should mask the dial failure with the deterministic stub
	// rather than propagate a transport error.
	client := NewOllamaClient("http://127.0.0.1:1", time.Second, &http.Client{Timeout: 200 * time.Millisecond})

	tags, err := client.ListTags(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tags.Models)
}

func TestOllamaClient_DoesNotMaskNonLocalhostFailures(t *testing.T) {
	client := NewOllamaClient("http://example.invalid", time.Second, &http.Client{Timeout: 200 * time.Millisecond})

	_, err := client.ListTags(context.Background())
	assert.Error(t, err)
}

func TestOllamaClient_DoesNotMaskExplicit5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, time.Second, srv.Client())

	_, err := client.ListTags(context.Background())
	assert.Error(t, err)
}
