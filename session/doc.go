// Package session provides credential stores for the goEnroll session token.
//
// A credential store is a single opaque slot: read, write, clear. [MemoryStore] keeps
// the token in process memory; [RedisStore] keeps it in Redis so several processes (or a
// restarted CLI) share one signed-in session.
//
// # Architecture boundaries
//
// This package stores tokens. It does NOT validate signatures or decide when a token
// must be cleared; the Engine and the transport middleware own those decisions.
//
// # What this package must NOT do
//
//   - Import goEnroll (no upward imports).
//   - Log token values.
package session
