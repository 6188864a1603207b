package goEnroll

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Workflow and session errors. Callers match them with errors.Is; every error
// returned by a Workflow or Engine operation wraps exactly one of these.
var (
	ErrAccountConflict        = errors.New("account already exists")
	ErrAccountInvalid         = errors.New("invalid account details")
	ErrNetwork                = errors.New("network failure")
	ErrRateLimited            = errors.New("rate limited")
	ErrWorkflowInProgress     = errors.New("a different account was already created in this workflow")
	ErrOperationInFlight      = errors.New("operation already in flight")
	ErrWorkflowAbandoned      = errors.New("workflow abandoned while the call was in flight")
	ErrChallengeTimeout       = errors.New("challenge token timed out")
	ErrChallengeFailed        = errors.New("challenge token unavailable")
	ErrNoDocument             = errors.New("no identity document supplied")
	ErrTooManyDocuments       = errors.New("too many identity documents")
	ErrMissingPrerequisite    = errors.New("prerequisite phase not completed")
	ErrChallengeRequired      = errors.New("challenge token required")
	ErrVerificationRejected   = errors.New("identity verification rejected")
	ErrChallengeRejected      = errors.New("challenge token rejected")
	ErrWorkflowComplete       = errors.New("workflow already completed")
	ErrProfileInvalid         = errors.New("invalid profile details")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrProfileIncomplete      = errors.New("profile incomplete")
	ErrIdentityUnverified     = errors.New("identity not verified")
	ErrAuthenticationRejected = errors.New("authentication rejected")
	ErrServiceResponse        = errors.New("unexpected service response")
	ErrCredentialStore        = errors.New("credential store failure")
	ErrEngineNotReady         = errors.New("engine not initialized")
)

// Failure kinds reported by AccountService implementations inside a *ServiceError.
var (
	ErrServiceConflict     = errors.New("service: conflict")
	ErrServiceInvalid      = errors.New("service: invalid request")
	ErrServiceUnauthorized = errors.New("service: unauthorized")
	ErrServiceForbidden    = errors.New("service: forbidden")
	ErrServiceNotFound     = errors.New("service: not found")
	ErrServiceRateLimited  = errors.New("service: rate limited")
	ErrServiceUnavailable  = errors.New("service: unavailable")
)

// ServiceError is the failure an AccountService returns. Kind is one of the
// ErrService* values; Err is the underlying cause, if any.
type ServiceError struct {
	StatusCode int
	Message    string
	Kind       error
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("service error")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ValidationError lists every failing field of a locally rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

// ProfileIncompleteError is the login redirect signal for an account that exists
// but has not finished registration. Username identifies the workflow to resume.
type ProfileIncompleteError struct {
	Username string
}

func (e *ProfileIncompleteError) Error() string {
	return "profile incomplete for " + e.Username
}

func (e *ProfileIncompleteError) Unwrap() error {
	return ErrProfileIncomplete
}

// IdentityUnverifiedError is the login redirect signal for an account whose
// identity documents have not been approved yet.
type IdentityUnverifiedError struct {
	Username string
	Status   string
}

func (e *IdentityUnverifiedError) Error() string {
	if e.Status == "" {
		return "identity not verified for " + e.Username
	}
	return "identity not verified for " + e.Username + " (" + e.Status + ")"
}

func (e *IdentityUnverifiedError) Unwrap() error {
	return ErrIdentityUnverified
}

func invalid(sentinel error, v *ValidationError) error {
	return errors.Join(sentinel, v)
}

// serviceMapping maps an ErrService* kind to the sentinel an operation reports.
type serviceMapping map[error]error

var (
	createAccountMapping = serviceMapping{
		ErrServiceConflict:    ErrAccountConflict,
		ErrServiceInvalid:     ErrAccountInvalid,
		ErrServiceRateLimited: ErrRateLimited,
	}
	verifyIdentityMapping = serviceMapping{
		ErrServiceInvalid:      ErrVerificationRejected,
		ErrServiceForbidden:    ErrChallengeRejected,
		ErrServiceRateLimited:  ErrRateLimited,
		ErrServiceNotFound:     ErrVerificationRejected,
		ErrServiceUnauthorized: ErrAuthenticationRejected,
	}
	completeProfileMapping = serviceMapping{
		ErrServiceInvalid:      ErrProfileInvalid,
		ErrServiceNotFound:     ErrMissingPrerequisite,
		ErrServiceRateLimited:  ErrRateLimited,
		ErrServiceUnauthorized: ErrAuthenticationRejected,
	}
	loginMapping = serviceMapping{
		ErrServiceUnauthorized: ErrInvalidCredentials,
		ErrServiceNotFound:     ErrInvalidCredentials,
		ErrServiceForbidden:    ErrInvalidCredentials,
		ErrServiceRateLimited:  ErrRateLimited,
	}
)

// mapServiceError converts an AccountService failure into the operation's
// taxonomy. Errors that are not a *ServiceError are transport failures.
func mapServiceError(err error, mapping serviceMapping) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if errors.Is(svcErr.Kind, ErrServiceUnavailable) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if sentinel, ok := mapping[svcErr.Kind]; ok {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return fmt.Errorf("%w: %w", ErrServiceResponse, err)
}
