// Package config resolves and validates gateway configuration from the
// process environment.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// allowedLogLevels is the closed set of log levels the gateway accepts.
var allowedLogLevels = map[string]bool{
	"DEBUG":   true,
	"INFO":    true,
	"WARNING": true,
	"ERROR":   true,
}

// Settings is the fully-validated configuration for one gateway process.
// It is built once at startup and shared immutably by every component —
// nothing downstream mutates it.
type Settings struct {
	Host string
	Port int

	LogLevel string

	// AllowedAPIKeys is the bearer-token allowlist, already parsed and
	// trimmed. Empty means "no tokens configured" — only a valid state
	// when auth is relaxed (see Validate).
	AllowedAPIKeys  []string
	RequireAuth     bool
	DevelopmentMode bool

	CerebrasAPIKey  string
	CerebrasBaseURL string
	OllamaHost      string

	RequestTimeout time.Duration

	EnableSecurityHeaders bool
	EnableCORS            bool
	CORSAllowedOrigins    []string
	CORSAllowedMethods    []string
	CORSAllowedHeaders    []string
	CORSAllowCredentials  bool

	EnableEnrichment bool
}

// rawSettings mirrors the environment variable names from spec.md §4.1.
// koanf unmarshals into this; Load() then converts/validates into the
// public Settings type.
type rawSettings struct {
	ServiceHost string `koanf:"service_host"`
	ServicePort int    `koanf:"service_port"`

	LogLevel string `koanf:"log_level"`

	AllowedAPIKeys  string `koanf:"allowed_api_keys"`
	RequireAuth     bool   `koanf:"require_auth"`
	DevelopmentMode bool   `koanf:"development_mode"`

	CerebrasAPIKey  string `koanf:"cerebras_api_key"`
	CerebrasBaseURL string `koanf:"cerebras_base_url"`
	OllamaHost      string `koanf:"ollama_host"`

	RequestTimeoutS float64 `koanf:"request_timeout_s"`

	EnableSecurityHeaders bool   `koanf:"enable_security_headers"`
	EnableCORS            bool   `koanf:"enable_cors"`
	CORSAllowedOrigins    string `koanf:"cors_allowed_origins"`
	CORSAllowedMethods    string `koanf:"cors_allowed_methods"`
	CORSAllowedHeaders    string `koanf:"cors_allowed_headers"`
	CORSAllowCredentials  bool   `koanf:"cors_allow_credentials"`

	EnableEnrichment bool `koanf:"enable_enrichment"`
}

// defaults are layered in before the environment so that unset variables
// fall back to sane values instead of Go zero values (an unset PORT
// shouldn't bind to :0).
var defaults = map[string]interface{}{
	"service_host":      "0.0.0.0",
	"service_port":      8000,
	"log_level":         "INFO",
	"require_auth":      true,
	"development_mode":  false,
	"ollama_host":       "http://localhost:11434",
	"request_timeout_s": 30.0,
}

// Load reads configuration from the process environment, layering an
// optional ".env" file first (ignored if absent — the equivalent of
// `require('dotenv').config()` in Node). Recognized variables are the
// ones named in spec.md §4.1, matched case-insensitively.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var raw rawSettings
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	return newFromRaw(raw)
}

// newFromRaw converts the loosely-typed rawSettings into a validated
// Settings value, applying the parsing rules from spec.md §4.1.
func newFromRaw(raw rawSettings) (*Settings, error) {
	level := strings.ToUpper(strings.TrimSpace(raw.LogLevel))
	if !allowedLogLevels[level] {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: must be one of DEBUG, INFO, WARNING, ERROR", raw.LogLevel)
	}

	timeout := time.Duration(raw.RequestTimeoutS * float64(time.Second))
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_S %v: must be positive", raw.RequestTimeoutS)
	}

	s := &Settings{
		Host:            raw.ServiceHost,
		Port:            raw.ServicePort,
		LogLevel:        level,
		AllowedAPIKeys:  ParseAllowlist(raw.AllowedAPIKeys),
		RequireAuth:     raw.RequireAuth,
		DevelopmentMode: raw.DevelopmentMode,
		CerebrasAPIKey:  raw.CerebrasAPIKey,
		CerebrasBaseURL: raw.CerebrasBaseURL,
		OllamaHost:      raw.OllamaHost,
		RequestTimeout:  timeout,

		EnableSecurityHeaders: raw.EnableSecurityHeaders,
		EnableCORS:            raw.EnableCORS,
		CORSAllowedOrigins:    splitTrim(raw.CORSAllowedOrigins),
		CORSAllowedMethods:    splitTrim(raw.CORSAllowedMethods),
		CORSAllowedHeaders:    splitTrim(raw.CORSAllowedHeaders),
		CORSAllowCredentials:  raw.CORSAllowCredentials,

		EnableEnrichment: raw.EnableEnrichment,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate re-checks the model-level invariant from spec.md §4.1 that
// can't be expressed as a per-field constraint: an empty allowlist is
// only acceptable when auth isn't required or development mode relaxes
// it.
func (s *Settings) Validate() error {
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", s.RequestTimeout)
	}
	if !allowedLogLevels[s.LogLevel] {
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	if s.RequireAuth && !s.DevelopmentMode && len(s.AllowedAPIKeys) == 0 {
		return fmt.Errorf("ALLOWED_API_KEYS must be non-empty when REQUIRE_AUTH is true and DEVELOPMENT_MODE is false")
	}
	return nil
}

// ParseAllowlist accepts either a JSON array (`["a","b"]`) or a
// comma-separated string (`a, b, , c`) and returns the trimmed,
// non-empty entries in order. `" a , b ,, c "` yields `[a, b, c]`.
func ParseAllowlist(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return splitTrimSlice(arr)
		}
		// Not valid JSON after all — fall through to comma-splitting.
	}

	return splitTrim(raw)
}

func splitTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return splitTrimSlice(strings.Split(raw, ","))
}

func splitTrimSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

var (
	once    sync.Once
	cached  *Settings
	loadErr error
)

// Get returns the process-wide cached Settings, loading it on first use.
// Construction is lazy and one-shot (spec.md §4.1: "no Settings value is
// built at module load"), guarded by sync.Once instead of a lock so the
// hot path never blocks after the first populate.
func Get() (*Settings, error) {
	once.Do(func() {
		cached, loadErr = Load()
	})
	return cached, loadErr
}

// Reset clears the cached Settings so tests can exercise Get() again
// against a different environment. Production code never calls this.
func Reset() {
	once = sync.Once{}
	cached = nil
	loadErr = nil
}
