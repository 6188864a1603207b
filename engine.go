package goEnroll

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goEnroll/internal/audit"
)

// Engine owns the collaborators shared by every workflow and the session
// coordinator. It is safe for concurrent use after [Builder.Build].
type Engine struct {
	config    Config
	service   AccountService
	store     CredentialStore
	challenge ChallengeProvider
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Close drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// NewWorkflow starts a registration workflow in PhaseNotStarted.
func (e *Engine) NewWorkflow() (*Workflow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return newWorkflow(e, WorkflowState{Phase: PhaseNotStarted}), nil
}

// ResumeOption adjusts the state a resumed workflow starts from.
type ResumeOption func(*WorkflowState)

// WithTicket seeds the verification ticket issued by an earlier completed
// profile save, so the resumed workflow forwards it on identity verification.
func WithTicket(ticket string) ResumeOption {
	return func(s *WorkflowState) {
		s.Ticket = strings.TrimSpace(ticket)
	}
}

// ResumeWorkflow rebuilds a workflow for an account created earlier, typically
// after Login returned *ProfileIncompleteError or *IdentityUnverifiedError.
// phase must be PhaseAccountCreated or PhaseIdentityVerified. The resumed
// account carries only the username.
func (e *Engine) ResumeWorkflow(ctx context.Context, username string, phase Phase, opts ...ResumeOption) (*Workflow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx, _ = ensureRequestID(ctx)

	username = strings.TrimSpace(username)
	if username == "" {
		v := &ValidationError{}
		v.add("username", "required")
		return nil, invalid(ErrAccountInvalid, v)
	}
	if phase != PhaseAccountCreated && phase != PhaseIdentityVerified {
		return nil, ErrMissingPrerequisite
	}

	state := WorkflowState{
		Phase:   phase,
		Account: &PhaseOneAccount{Username: username},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&state)
		}
	}
	w := newWorkflow(e, state)

	e.metricInc(MetricWorkflowResumed)
	e.emitAudit(ctx, auditEventWorkflowResumed, true, username, phase, "", nil, func() map[string]string {
		return map[string]string{"ticket": strconv.FormatBool(state.Ticket != "")}
	})
	e.logger.Debug("workflow resumed", "username", username, "phase", phase.String())

	return w, nil
}

// ResumePhase returns the phase a workflow should resume at for a login
// redirect error, and false for any other error.
func (e *Engine) ResumePhase(err error) (string, Phase, bool) {
	var incomplete *ProfileIncompleteError
	if errors.As(err, &incomplete) {
		phase := PhaseAccountCreated
		if e != nil && e.config.Workflow.RequireVerification {
			phase = PhaseIdentityVerified
		}
		return incomplete.Username, phase, true
	}
	var unverified *IdentityUnverifiedError
	if errors.As(err, &unverified) {
		return unverified.Username, PhaseAccountCreated, true
	}
	return "", PhaseNotStarted, false
}

func (e *Engine) ready() error {
	if e == nil || e.service == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return nil
}
