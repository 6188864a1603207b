// Package rate provides token-bucket limiters for goEnroll submissions, built on
// golang.org/x/time/rate.
//
// # Bucket semantics
//
// Each rule names an operation (register, login, complete_profile, verify_id). Buckets
// are created lazily per (operation, key) pair, where the key is a username on the
// service side and empty on the client side. Operations without a rule are unlimited.
//
// # What this package must NOT do
//
//   - Decide which operations are limited (callers supply the rules).
//   - Be imported outside the goEnroll module.
package rate
