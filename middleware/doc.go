// Package middleware provides client-side HTTP transport middleware for talking
// to the account service on behalf of a goEnroll.Engine.
//
// # Middleware
//
//   - [RequestID] sets X-Request-ID from the request context, generating one
//     when absent.
//   - [SessionToken] attaches the stored session token, persists rotated tokens
//     from responses and clears the token when an authenticated call is
//     rejected with 401.
//
// Each middleware has the shape func(http.RoundTripper) http.RoundTripper and
// is composed with [Chain].
//
// # Architecture boundaries
//
// This package translates Engine collaborators into HTTP headers. It does not
// map status codes to errors; that is the remote client's job.
package middleware
