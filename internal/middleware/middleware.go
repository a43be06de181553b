// Package middleware holds the gateway's chi middleware chain: request
// correlation, security headers, CORS, bearer auth, and the redacting
// request logger (spec.md §4.6/§4.8).
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samirk/openllm-gateway/internal/apierror"
	"github.com/samirk/openllm-gateway/internal/config"
	"github.com/samirk/openllm-gateway/internal/logging"
	"github.com/samirk/openllm-gateway/internal/reqctx"
)

// Correlation assigns every request a correlation ID: the inbound
// X-Request-Id/X-Request-ID header if present, otherwise a freshly
// generated uuid. The ID is stashed on the request context (for
// downstream upstream calls and log lines) and echoed back in both
// header casings on the response (spec.md §3 "Request correlation ID").
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(reqctx.HeaderCanonical)
		if id == "" {
			id = r.Header.Get(reqctx.HeaderLower)
		}
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(reqctx.HeaderCanonical, id)
		// Header.Set canonicalizes the key, so the lower-case casing is
		// stored directly to keep it as a header of its own.
		w.Header()[reqctx.HeaderLower] = []string{id}

		ctx := reqctx.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecurityHeaders attaches a conservative baseline of response headers
// (spec.md §4.6) when cfg.EnableSecurityHeaders is set. It's a no-op
// middleware otherwise, so the chain shape stays identical regardless of
// config.
func SecurityHeaders(cfg *config.Settings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.EnableSecurityHeaders {
				w.Header().Set("X-Content-Type-Options", "nosniff")
				w.Header().Set("X-Frame-Options", "DENY")
				w.Header().Set("Referrer-Policy", "no-referrer")
				w.Header().Set("Permissions-Policy", "()")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS builds the go-chi/cors middleware from cfg, or a pass-through
// handler when CORS is disabled.
func CORS(cfg *config.Settings) func(http.Handler) http.Handler {
	if !cfg.EnableCORS {
		return func(next http.Handler) http.Handler { return next }
	}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.CORSAllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "OPTIONS"}
	}
	headers := cfg.CORSAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Authorization", "Content-Type", reqctx.HeaderCanonical}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           300,
	})
}

// RequireBearer enforces the bearer-token allowlist from cfg (spec.md
// §4.6: "Authorization: Bearer <token>", constant-time comparison
// against the allowlist). When cfg.RequireAuth is false the check is
// skipped entirely; when cfg.DevelopmentMode is true and the allowlist
// is empty, every token is accepted, and that relaxation is logged
// loudly (spec.md §9 Open Question: "surface it loudly in logs").
func RequireBearer(cfg *config.Settings) func(http.Handler) http.Handler {
	return RequireBearerLogged(cfg, nil)
}

// RequireBearerLogged is RequireBearer with an explicit logger for the
// dev-mode relaxation warning; nil suppresses that log line (used by
// tests that don't want log noise).
func RequireBearerLogged(cfg *config.Settings, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAuth {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAPIError(w, apierror.Auth("missing or malformed Authorization header"))
				return
			}

			if cfg.DevelopmentMode && len(cfg.AllowedAPIKeys) == 0 {
				if logger != nil {
					logger.Warn().
						Str("correlation_id", reqctx.CorrelationID(r.Context())).
						Msg("accepted request under development-mode auth relaxation")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !isAllowed(token, cfg.AllowedAPIKeys) {
				writeAPIError(w, apierror.Auth("invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func isAllowed(token string, allowed []string) bool {
	for _, candidate := range allowed {
		if len(candidate) != len(token) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

// RequestLogger emits one structured log line per request (spec.md
// §4.8): request_id (the correlation ID), method, path, provider (the
// X-Provider response header, which only the chat completions handler
// sets; empty on other routes), status_code, duration_ms, and a redacted
// view of the request headers — never the request body, and never a
// secret-looking header value verbatim.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info().
				Str("request_id", reqctx.CorrelationID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("provider", rec.Header().Get("X-Provider")).
				Int("status_code", rec.status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Interface("headers", logging.RedactHeaders(r.Header)).
				Msg("request handled")
		})
	}
}

// statusRecorder captures the status code a handler wrote so
// RequestLogger can report it; http.ResponseWriter has no getter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush passes through to the wrapped writer so streaming handlers behind
// RequestLogger can still flush each SSE event.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeAPIError(w http.ResponseWriter, err *apierror.Error) {
	if err.Kind == apierror.KindAuth {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_, _ = w.Write(err.Body())
}
