package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samirk/openllm-gateway/internal/config"
)

func TestNew_WiresHealthzWithoutCerebrasCredentials(t *testing.T) {
	cfg := &config.Settings{
		RequireAuth:    false,
		OllamaHost:     "http://localhost:11434",
		RequestTimeout: time.Second,
	}

	srv, _ := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_SkipsCerebrasNamespaceWhenAPIKeyMissing(t *testing.T) {
	cfg := &config.Settings{
		RequireAuth:    false,
		OllamaHost:     "http://localhost:11434",
		RequestTimeout: time.Second,
	}

	srv, _ := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/cerebras/v1/models", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNew_WiresCustomNamespace(t *testing.T) {
	cfg := &config.Settings{
		RequireAuth:    false,
		OllamaHost:     "http://localhost:11434",
		RequestTimeout: time.Second,
	}

	srv, _ := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
