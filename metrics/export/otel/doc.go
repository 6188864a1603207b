// Package otel publishes goEnroll engine metrics through an OpenTelemetry Meter.
//
// Counters become Int64ObservableCounter instruments. The remote latency
// histogram is exported as one cumulative gauge per bucket plus a count
// gauge. The caller owns the MeterProvider.
package otel
