// Package app is the composition root: it turns a validated
// config.Settings into a fully wired server.Server with no eager
// network I/O (spec.md §5.9). Upstream clients dial lazily on their
// first real request.
package app

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/samirk/openllm-gateway/internal/config"
	"github.com/samirk/openllm-gateway/internal/logging"
	"github.com/samirk/openllm-gateway/internal/provider"
	"github.com/samirk/openllm-gateway/internal/server"
	"github.com/samirk/openllm-gateway/internal/upstream"
)

// New wires upstream clients, providers, and the router together and
// returns the composed HTTP handler plus the logger callers should use
// for process-level log lines (startup, shutdown).
func New(cfg *config.Settings) (*server.Server, zerolog.Logger) {
	logger := logging.New(cfg.LogLevel)

	namespaces := []server.Namespace{
		{Prefix: "/v1", Provider: provider.NewCustomProvider(&logger)},
		{Prefix: "/ollama/v1", Provider: buildOllamaProvider(cfg)},
	}

	if cfg.CerebrasAPIKey != "" {
		if cerebras, err := buildCerebrasProvider(cfg); err != nil {
			logger.Warn().Err(err).Msg("cerebras provider not wired: missing or invalid credentials")
		} else {
			namespaces = append(namespaces, server.Namespace{Prefix: "/cerebras/v1", Provider: cerebras})
		}
	} else {
		logger.Info().Msg("cerebras provider not wired: CEREBRAS_API_KEY is not set")
	}

	srv := server.New(cfg, logger, namespaces)
	return srv, logger
}

func buildOllamaProvider(cfg *config.Settings) *provider.OllamaProvider {
	client := upstream.NewOllamaClient(cfg.OllamaHost, cfg.RequestTimeout, &http.Client{Timeout: cfg.RequestTimeout})
	return provider.NewOllamaProvider(client)
}

func buildCerebrasProvider(cfg *config.Settings) (*provider.CerebrasProvider, error) {
	client, err := upstream.NewCerebrasClient(cfg.CerebrasAPIKey, cfg.CerebrasBaseURL, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return provider.NewCerebrasProvider(client), nil
}
