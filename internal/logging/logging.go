// Package logging builds the gateway's structured logger and the
// redaction rules applied to every request-scoped log line (spec.md
// §4.8). Nothing outside this package decides what counts as secret —
// callers pass whatever headers/fields they have and trust Redact to
// strip what shouldn't be printed.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process-wide zerolog.Logger at the given level. level
// is one of config.Settings' levels (DEBUG, INFO, WARNING, ERROR),
// matched case-insensitively; WARNING maps to zerolog's "warn". An
// unrecognized value falls back to info.
func New(level string) zerolog.Logger {
	name := strings.ToLower(level)
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}

// secretKeyMarkers identifies header/field names whose values must never
// reach a log line verbatim (spec.md §4.8: "authorization headers,
// *_api_key, *_token, x-api-key are masked, never logged verbatim").
var secretKeyMarkers = []string{"authorization", "api_key", "api-key", "apikey", "token", "secret"}

// IsSecretKey reports whether key (a header name or config field name,
// compared case-insensitively) looks like it carries a credential.
func IsSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// RedactHeaders returns a copy of headers with every secret-looking
// value replaced by a fixed placeholder, safe to pass to a log event.
func RedactHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSecretKey(k) {
			out[k] = "[redacted]"
			continue
		}
		out[k] = strings.Join(v, ",")
	}
	return out
}
