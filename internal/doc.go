// Package internal contains helper utilities that are private to goEnroll, currently
// request and attempt id generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - metrics: lock-free counters and the remote-call latency histogram
//   - rate: outbound submission limiter built on token buckets
//
// # What this package must NOT do
//
//   - Export types that appear in the public goEnroll API.
//   - Be imported by any package outside the goEnroll module.
package internal
