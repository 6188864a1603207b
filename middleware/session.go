package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
)

// DefaultTokenHeader carries the session token in both directions.
const DefaultTokenHeader = "Jwt-Token"

// SessionToken attaches the token held by store to every non-anonymous request
// as "Authorization: Bearer <token>" and header. A token returned in header on
// an authenticated call replaces the stored one. A 401 on a call that carried a
// token clears the store.
//
// Store failures never fail the request; they are logged with logger.
func SessionToken(store goEnroll.CredentialStore, header string, logger *slog.Logger) Middleware {
	if header == "" {
		header = DefaultTokenHeader
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			if store == nil || IsAnonymous(ctx) {
				return next.RoundTrip(r)
			}

			token, err := store.Token(ctx)
			if err != nil {
				logger.Warn("reading session token failed", "error", err)
				token = ""
			}
			if token != "" {
				r = r.Clone(ctx)
				r.Header.Set("Authorization", "Bearer "+token)
				r.Header.Set(header, token)
			}

			resp, err := next.RoundTrip(r)
			if err != nil || token == "" {
				return resp, err
			}

			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				if err := store.ClearToken(ctx); err != nil {
					logger.Warn("clearing rejected session token failed", "error", err)
				}
			case resp.StatusCode < 300:
				if rotated := strings.TrimSpace(resp.Header.Get(header)); rotated != "" && rotated != token {
					if err := store.SetToken(ctx, rotated); err != nil {
						logger.Warn("storing rotated session token failed", "error", err)
					}
				}
			}
			return resp, nil
		})
	}
}
