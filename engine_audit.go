package goEnroll

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAccountCreated              = "account_created"
	auditEventAccountCreateFailure        = "account_create_failure"
	auditEventAccountConflict             = "account_conflict"
	auditEventChallengeIssued             = "challenge_issued"
	auditEventChallengeFailure            = "challenge_failure"
	auditEventIdentityVerified            = "identity_verified"
	auditEventIdentityVerificationFailure = "identity_verification_failure"
	auditEventProfileSaved                = "profile_saved"
	auditEventProfileCompleted            = "profile_completed"
	auditEventProfileFailure              = "profile_failure"
	auditEventWorkflowAbandoned           = "workflow_abandoned"
	auditEventWorkflowStaleResult         = "workflow_stale_result"
	auditEventWorkflowResumed             = "workflow_resumed"
	auditEventLoginSuccess                = "login_success"
	auditEventLoginFailure                = "login_failure"
	auditEventLoginProfileIncomplete      = "login_profile_incomplete"
	auditEventLogout                      = "logout"
	auditEventSessionRejected             = "session_rejected"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrInvalid            AuditErrorCode = "invalid"
	auditErrNetwork            AuditErrorCode = "network"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInProgress         AuditErrorCode = "in_progress"
	auditErrInFlight           AuditErrorCode = "in_flight"
	auditErrAbandoned          AuditErrorCode = "abandoned"
	auditErrChallengeTimeout   AuditErrorCode = "challenge_timeout"
	auditErrChallengeFailed    AuditErrorCode = "challenge_failed"
	auditErrChallengeRejected  AuditErrorCode = "challenge_rejected"
	auditErrNoDocument         AuditErrorCode = "no_document"
	auditErrTooManyDocuments   AuditErrorCode = "too_many_documents"
	auditErrPrerequisite       AuditErrorCode = "missing_prerequisite"
	auditErrChallengeRequired  AuditErrorCode = "challenge_required"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrComplete           AuditErrorCode = "already_complete"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrProfileIncomplete  AuditErrorCode = "profile_incomplete"
	auditErrIdentityUnverified AuditErrorCode = "identity_unverified"
	auditErrAuthRejected       AuditErrorCode = "authentication_rejected"
	auditErrCredentialStore    AuditErrorCode = "credential_store"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	phase Phase,
	attemptID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		Phase:     phase.String(),
		AttemptID: attemptID,
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountConflict):
		return auditErrConflict
	case errors.Is(err, ErrAccountInvalid),
		errors.Is(err, ErrProfileInvalid):
		return auditErrInvalid
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrWorkflowInProgress):
		return auditErrInProgress
	case errors.Is(err, ErrOperationInFlight):
		return auditErrInFlight
	case errors.Is(err, ErrWorkflowAbandoned):
		return auditErrAbandoned
	case errors.Is(err, ErrChallengeTimeout):
		return auditErrChallengeTimeout
	case errors.Is(err, ErrChallengeFailed):
		return auditErrChallengeFailed
	case errors.Is(err, ErrChallengeRejected):
		return auditErrChallengeRejected
	case errors.Is(err, ErrNoDocument):
		return auditErrNoDocument
	case errors.Is(err, ErrTooManyDocuments):
		return auditErrTooManyDocuments
	case errors.Is(err, ErrMissingPrerequisite):
		return auditErrPrerequisite
	case errors.Is(err, ErrChallengeRequired):
		return auditErrChallengeRequired
	case errors.Is(err, ErrVerificationRejected):
		return auditErrRejected
	case errors.Is(err, ErrWorkflowComplete):
		return auditErrComplete
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrProfileIncomplete):
		return auditErrProfileIncomplete
	case errors.Is(err, ErrIdentityUnverified):
		return auditErrIdentityUnverified
	case errors.Is(err, ErrAuthenticationRejected):
		return auditErrAuthRejected
	case errors.Is(err, ErrCredentialStore):
		return auditErrCredentialStore
	default:
		return auditErrInternal
	}
}
