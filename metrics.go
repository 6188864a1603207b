package goEnroll

import (
	"time"

	internalmetrics "github.com/MrEthical07/goEnroll/internal/metrics"
)

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricAccountCreateSuccess      = MetricID(internalmetrics.MetricAccountCreateSuccess)
	MetricAccountCreateConflict     = MetricID(internalmetrics.MetricAccountCreateConflict)
	MetricAccountCreateFailure      = MetricID(internalmetrics.MetricAccountCreateFailure)
	MetricChallengeIssued           = MetricID(internalmetrics.MetricChallengeIssued)
	MetricChallengeTimeout          = MetricID(internalmetrics.MetricChallengeTimeout)
	MetricChallengeFailure          = MetricID(internalmetrics.MetricChallengeFailure)
	MetricVerificationSuccess       = MetricID(internalmetrics.MetricVerificationSuccess)
	MetricVerificationRejected      = MetricID(internalmetrics.MetricVerificationRejected)
	MetricVerificationFailure       = MetricID(internalmetrics.MetricVerificationFailure)
	MetricProfileDraftSaved         = MetricID(internalmetrics.MetricProfileDraftSaved)
	MetricProfileCompleted          = MetricID(internalmetrics.MetricProfileCompleted)
	MetricProfileFailure            = MetricID(internalmetrics.MetricProfileFailure)
	MetricWorkflowAbandoned         = MetricID(internalmetrics.MetricWorkflowAbandoned)
	MetricWorkflowResumed           = MetricID(internalmetrics.MetricWorkflowResumed)
	MetricStaleResultDiscarded      = MetricID(internalmetrics.MetricStaleResultDiscarded)
	MetricOperationInFlightRejected = MetricID(internalmetrics.MetricOperationInFlightRejected)
	MetricLoginSuccess              = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure              = MetricID(internalmetrics.MetricLoginFailure)
	MetricLoginProfileIncomplete    = MetricID(internalmetrics.MetricLoginProfileIncomplete)
	MetricLogout                    = MetricID(internalmetrics.MetricLogout)
	MetricSessionRejected           = MetricID(internalmetrics.MetricSessionRejected)
	// MetricRemoteLatency is the only histogram: AccountService round-trip latency.
	MetricRemoteLatency = MetricID(internalmetrics.MetricRemoteLatency)
)

// Metrics holds atomic counters and the optional remote latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeRemote(start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(MetricRemoteLatency, time.Since(start))
}
