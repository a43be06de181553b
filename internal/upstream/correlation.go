package upstream

import (
	"context"
	"net/http"

	"github.com/samirk/openllm-gateway/internal/reqctx"
)

// forwardCorrelationID copies the request-scoped correlation ID onto an
// outbound upstream request (spec.md §4.2: "forwards the current
// correlation ID as a request header").
func forwardCorrelationID(ctx context.Context, req *http.Request) {
	if id := reqctx.CorrelationID(ctx); id != "" {
		req.Header.Set(reqctx.HeaderCanonical, id)
	}
}
