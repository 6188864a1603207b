// Package metrics keeps the engine's counters and the remote-call latency
// histogram.
//
// Counters live in cache-line padded slots updated with sync/atomic, so the
// workflow path never takes a lock to count. The histogram has 8 fixed
// buckets from 50ms to 5s plus +Inf. Exporters under metrics/export read
// [Snapshot] values and never touch the slots directly.
package metrics
