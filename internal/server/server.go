// Package server sets up the HTTP router, per-namespace middleware, and
// request handlers for the OpenAI-compatible gateway (spec.md §4.5).
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/samirk/openllm-gateway/internal/config"
	gatewaymw "github.com/samirk/openllm-gateway/internal/middleware"
	"github.com/samirk/openllm-gateway/internal/provider"
)

// Namespace binds one URL prefix to the Provider that answers it
// (spec.md §4.5: "/v1"->custom, "/cerebras/v1"->cerebras,
// "/ollama/v1"->ollama).
type Namespace struct {
	Prefix   string
	Provider provider.Provider
}

// Server holds the chi router and the provider registry it dispatches
// to. Every namespace shares the same handler set — only the resolved
// Provider differs.
type Server struct {
	router chi.Router
	cfg    *config.Settings
	logger zerolog.Logger
}

// New builds a Server, wires the global middleware chain, mounts one
// route group per namespace, and returns it ready to serve as an
// http.Handler.
func New(cfg *config.Settings, logger zerolog.Logger, namespaces []Namespace) *Server {
	s := &Server{cfg: cfg, logger: logger}
	s.routes(namespaces)
	return s
}

func (s *Server) routes(namespaces []Namespace) {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(gatewaymw.Correlation)
	r.Use(gatewaymw.RequestLogger(s.logger))
	r.Use(gatewaymw.SecurityHeaders(s.cfg))
	r.Use(gatewaymw.CORS(s.cfg))

	r.Get("/healthz", handleHealth)

	for _, ns := range namespaces {
		h := &namespaceHandler{provider: ns.Provider, cfg: s.cfg, logger: s.logger}

		r.Route(ns.Prefix, func(r chi.Router) {
			r.Use(gatewaymw.RequireBearerLogged(s.cfg, &s.logger))
			r.Get("/models", h.handleListModels)
			r.Post("/embeddings", h.handleEmbeddings)
			r.Post("/chat/completions", h.handleChatCompletions)
		})
	}

	s.router = r
}

// ServeHTTP makes Server satisfy http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
