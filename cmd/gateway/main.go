// Package main is the entry point for the gateway process.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/samirk/openllm-gateway/internal/app"
	"github.com/samirk/openllm-gateway/internal/config"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	srv, logger := app.New(cfg)

	// WriteTimeout is deliberately left at zero: it would cut off a
	// streaming response mid-flight. The per-request deadline from
	// REQUEST_TIMEOUT_S applies to the initial upstream call only
	// (spec.md §6), enforced inside the provider/upstream layer instead.
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     srv,
		ReadTimeout: cfg.RequestTimeout,
	}

	logger.Info().
		Str("addr", httpServer.Addr).
		Bool("require_auth", cfg.RequireAuth).
		Msg("gateway listening")

	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
