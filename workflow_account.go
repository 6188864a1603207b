package goEnroll

import (
	"context"
	"errors"
	"time"
)

// CreateAccount registers the phase-one account and moves the workflow to
// PhaseAccountCreated. An empty username is derived from the email when
// Config.Workflow.DeriveUsername is set.
//
// Repeating the call with identical input after success returns nil without a
// second remote call; a different input fails with ErrWorkflowInProgress. On
// failure the phase is unchanged, so a retry after ErrNetwork is safe.
func (w *Workflow) CreateAccount(ctx context.Context, username, email, password string) error {
	e := w.engine
	ctx, _ = ensureRequestID(ctx)
	acct := normalizeAccount(username, email, password, e.config.Workflow.DeriveUsername)

	gen, _, err := w.begin(opCreateAccount, func(s *WorkflowState) error {
		if v := validateAccount(acct); v != nil {
			return invalid(ErrAccountInvalid, v)
		}
		switch {
		case s.Phase == PhaseProfileCompleted:
			return ErrWorkflowComplete
		case s.Phase >= PhaseAccountCreated:
			if s.Account != nil && *s.Account == acct {
				return errAlreadyDone
			}
			return ErrWorkflowInProgress
		}
		return nil
	})
	if errors.Is(err, errAlreadyDone) {
		return nil
	}
	if err != nil {
		w.reportCreateFailure(ctx, acct.Username, err)
		return err
	}

	start := time.Now()
	callErr := e.service.Register(ctx, RegisterRequest{
		Username: acct.Username,
		Email:    acct.Email,
		Password: acct.Password,
	})
	e.observeRemote(start)

	if callErr != nil {
		mapped := mapServiceError(callErr, createAccountMapping)
		if !(errors.Is(mapped, ErrAccountConflict) && w.adoptConflict(acct)) {
			if errors.Is(mapped, ErrNetwork) {
				w.rememberLostCreate(gen, acct)
			}
			err := w.finishFailure(ctx, opCreateAccount, gen, acct.Username, "", mapped)
			if !errors.Is(err, ErrWorkflowAbandoned) {
				w.reportCreateFailure(ctx, acct.Username, err)
			}
			return err
		}
		e.logger.Info("adopted conflicting account after lost create", "username", acct.Username)
	}

	_, err = w.commit(opCreateAccount, gen, func(s *WorkflowState) {
		advance(s, PhaseAccountCreated)
		created := acct
		s.Account = &created
		w.lostCreate = nil
	})
	if err != nil {
		w.discardStale(ctx, opCreateAccount, acct.Username, "", nil)
		return err
	}

	e.metricInc(MetricAccountCreateSuccess)
	e.emitAudit(ctx, auditEventAccountCreated, true, acct.Username, PhaseAccountCreated, "", nil, nil)
	e.logger.Debug("account created", "username", acct.Username)
	return nil
}

func (w *Workflow) reportCreateFailure(ctx context.Context, username string, err error) {
	if errors.Is(err, ErrOperationInFlight) {
		return
	}
	e := w.engine
	phase := w.Phase()
	if errors.Is(err, ErrAccountConflict) {
		e.metricInc(MetricAccountCreateConflict)
		e.emitAudit(ctx, auditEventAccountConflict, false, username, phase, "", err, nil)
		return
	}
	e.metricInc(MetricAccountCreateFailure)
	e.emitAudit(ctx, auditEventAccountCreateFailure, false, username, phase, "", err, nil)
}

func (w *Workflow) rememberLostCreate(gen uint64, acct PhaseOneAccount) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation == gen {
		w.lostCreate = &acct
	}
}

func (w *Workflow) adoptConflict(acct PhaseOneAccount) bool {
	if !w.engine.config.Workflow.AdoptConflictAfterNetworkError {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lostCreate != nil && *w.lostCreate == acct
}
