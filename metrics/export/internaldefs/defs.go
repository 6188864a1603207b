package internaldefs

import (
	goEnroll "github.com/MrEthical07/goEnroll"
)

// CounterDef binds a counter slot to its exported name.
type CounterDef struct {
	ID   goEnroll.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram slot to its exported name.
type HistogramDef struct {
	ID   goEnroll.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const AuditDroppedName = "goenroll_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

var CounterDefs = []CounterDef{
	{ID: goEnroll.MetricAccountCreateSuccess, Name: "goenroll_account_create_success_total", Help: "Accounts created."},
	{ID: goEnroll.MetricAccountCreateConflict, Name: "goenroll_account_create_conflict_total", Help: "Account creations rejected as duplicate username or email."},
	{ID: goEnroll.MetricAccountCreateFailure, Name: "goenroll_account_create_failure_total", Help: "Account creations that failed for any other reason."},
	{ID: goEnroll.MetricChallengeIssued, Name: "goenroll_challenge_issued_total", Help: "Challenge tokens obtained from the provider."},
	{ID: goEnroll.MetricChallengeTimeout, Name: "goenroll_challenge_timeout_total", Help: "Challenge requests that hit the deadline."},
	{ID: goEnroll.MetricChallengeFailure, Name: "goenroll_challenge_failure_total", Help: "Challenge requests that failed."},
	{ID: goEnroll.MetricVerificationSuccess, Name: "goenroll_verification_success_total", Help: "Identity documents accepted."},
	{ID: goEnroll.MetricVerificationRejected, Name: "goenroll_verification_rejected_total", Help: "Identity submissions rejected by the service."},
	{ID: goEnroll.MetricVerificationFailure, Name: "goenroll_verification_failure_total", Help: "Identity submissions that failed locally or in transit."},
	{ID: goEnroll.MetricProfileDraftSaved, Name: "goenroll_profile_draft_saved_total", Help: "Profile drafts stored."},
	{ID: goEnroll.MetricProfileCompleted, Name: "goenroll_profile_completed_total", Help: "Profiles marked complete."},
	{ID: goEnroll.MetricProfileFailure, Name: "goenroll_profile_failure_total", Help: "Profile submissions that failed."},
	{ID: goEnroll.MetricWorkflowAbandoned, Name: "goenroll_workflow_abandoned_total", Help: "Workflows abandoned by the caller."},
	{ID: goEnroll.MetricWorkflowResumed, Name: "goenroll_workflow_resumed_total", Help: "Workflows resumed from a login redirect."},
	{ID: goEnroll.MetricStaleResultDiscarded, Name: "goenroll_stale_result_discarded_total", Help: "Operation results discarded after the workflow was abandoned."},
	{ID: goEnroll.MetricOperationInFlightRejected, Name: "goenroll_operation_in_flight_rejected_total", Help: "Operations rejected because one of the same kind was running."},
	{ID: goEnroll.MetricLoginSuccess, Name: "goenroll_login_success_total", Help: "Successful logins."},
	{ID: goEnroll.MetricLoginFailure, Name: "goenroll_login_failure_total", Help: "Failed logins."},
	{ID: goEnroll.MetricLoginProfileIncomplete, Name: "goenroll_login_profile_incomplete_total", Help: "Logins redirected to an unfinished registration."},
	{ID: goEnroll.MetricLogout, Name: "goenroll_logout_total", Help: "Logouts."},
	{ID: goEnroll.MetricSessionRejected, Name: "goenroll_session_rejected_total", Help: "Stored sessions cleared after the service rejected them."},
}

var HistogramDefs = []HistogramDef{
	{ID: goEnroll.MetricRemoteLatency, Name: "goenroll_remote_call_latency_seconds", Help: "Account service round-trip latency."},
}

// HistogramBounds are upper bounds in seconds; the last slot is +Inf.
var HistogramBounds = [8]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 0}

// HistogramBoundSuffix names each bucket for exporters without native histograms.
var HistogramBoundSuffix = [8]string{"0_05", "0_1", "0_25", "0_5", "1", "2_5", "5", "inf"}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(buckets [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range buckets {
		running += v
		out[i] = running
	}
	return out
}
