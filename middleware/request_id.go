package middleware

import (
	"net/http"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal"
)

const HeaderRequestID = "X-Request-ID"

// RequestID sets the X-Request-ID header from goEnroll.RequestIDFromContext,
// or a fresh id when the context carries none. An existing header is kept.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}

			id := goEnroll.RequestIDFromContext(r.Context())
			if id == "" {
				id = internal.NewRequestID()
			}

			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, id)
			return next.RoundTrip(r)
		})
	}
}
