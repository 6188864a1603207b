// Package audit implements async event dispatching for registration and session operations.
//
// # Components
//
//   - [Sink]: event consumer; channel, JSON lines, slog and no-op implementations.
//   - [Dispatcher]: single-goroutine FIFO relay that either drops or blocks when full.
//   - [Event]: structured audit record with timestamp, type, username, workflow phase and attempt.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine and Workflow own that decision.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goEnroll or any sibling internal package.
//   - Record passwords, session tokens or challenge tokens.
package audit
