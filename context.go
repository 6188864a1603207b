package goEnroll

import (
	"context"

	"github.com/MrEthical07/goEnroll/internal"
)

type requestIDContextKey struct{}

// WithRequestID attaches a request id to ctx. The engine records it on audit
// events and the HTTP client sends it as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the request id attached with [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// ensureRequestID gives every engine operation a request id so audit events
// and outbound requests correlate.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := internal.NewRequestID()
	return WithRequestID(ctx, id), id
}
