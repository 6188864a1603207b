package middleware

import (
	"context"
	"net/http"
)

// RoundTripperFunc adapts a function to [http.RoundTripper].
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Middleware wraps a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base with mws; the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

type anonymousContextKey struct{}

// WithAnonymous marks requests made with ctx as unauthenticated: no session
// token is attached and a 401 does not clear the stored token.
func WithAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousContextKey{}, true)
}

func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousContextKey{}).(bool)
	return v
}
