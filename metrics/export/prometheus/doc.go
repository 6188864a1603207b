// Package prometheus exposes goEnroll engine metrics as a
// prometheus.Collector.
//
// Counters are named goenroll_*_total and the remote-call histogram is
// goenroll_remote_call_latency_seconds. Callers either register the
// [Exporter] with their own registry or mount [Exporter.Handler].
package prometheus
