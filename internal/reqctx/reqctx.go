// Package reqctx carries the per-request correlation ID through
// context.Context so it reaches logs, upstream calls, and response
// headers without threading an extra parameter through every call site
// (spec.md §3 "Request correlation ID").
package reqctx

import "context"

type correlationIDKey struct{}

// HeaderCanonical and HeaderLower are the two header casings the gateway
// accepts on request and echoes on every response (spec.md §3).
const (
	HeaderCanonical = "X-Request-ID"
	HeaderLower     = "x-request-id"
)

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation ID stored in ctx, or "" if none
// was set. Downstream code should treat "" as "no correlation ID
// available" rather than panicking — this keeps unit tests that build
// contexts directly, without going through the middleware chain, safe.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
