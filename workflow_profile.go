package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CompleteProfile saves the profile details. With markComplete the workflow
// moves to PhaseProfileCompleted and the phase-one account is released;
// without it the save is a draft and the phase is unchanged. A draft only
// validates the fields it carries.
//
// The call requires PhaseAccountCreated, or PhaseIdentityVerified when
// Config.Workflow.RequireVerification is set.
func (w *Workflow) CompleteProfile(ctx context.Context, username string, details ProfileDetails, markComplete bool) error {
	e := w.engine
	ctx, _ = ensureRequestID(ctx)
	username = strings.TrimSpace(username)
	now := e.now()

	gen, snap, err := w.begin(opCompleteProfile, func(s *WorkflowState) error {
		if s.Phase == PhaseProfileCompleted {
			return ErrWorkflowComplete
		}
		if s.Phase < PhaseAccountCreated || s.Account == nil {
			return fmt.Errorf("%w: profile completion requires an account", ErrMissingPrerequisite)
		}
		if e.config.Workflow.RequireVerification && s.Phase < PhaseIdentityVerified {
			return fmt.Errorf("%w: identity verification is required before profile completion", ErrMissingPrerequisite)
		}
		if username != "" && username != s.Account.Username {
			return fmt.Errorf("%w: username does not match the workflow account", ErrMissingPrerequisite)
		}
		if v := details.validate(e.config.Profile, !markComplete, now); v != nil {
			return invalid(ErrProfileInvalid, v)
		}
		return nil
	})
	if err != nil {
		w.reportProfileFailure(ctx, username, err)
		return err
	}

	accountName := snap.Account.Username
	start := time.Now()
	resp, callErr := e.service.CompleteProfile(ctx, CompleteProfileRequest{
		Username:     accountName,
		Details:      details,
		MarkComplete: markComplete,
	})
	e.observeRemote(start)

	if callErr != nil {
		err := w.finishFailure(ctx, opCompleteProfile, gen, accountName, "",
			mapServiceError(callErr, completeProfileMapping))
		if !errors.Is(err, ErrWorkflowAbandoned) {
			w.reportProfileFailure(ctx, accountName, err)
		}
		return err
	}

	state, err := w.commit(opCompleteProfile, gen, func(s *WorkflowState) {
		if resp.Ticket != "" {
			s.Ticket = resp.Ticket
		}
		if markComplete {
			advance(s, PhaseProfileCompleted)
			s.Account = nil
		}
	})
	if err != nil {
		w.discardStale(ctx, opCompleteProfile, accountName, "", nil)
		return err
	}

	metadata := func() map[string]string {
		return map[string]string{
			"mark_complete": strconv.FormatBool(markComplete),
			"ticket_issued": strconv.FormatBool(resp.Ticket != ""),
		}
	}
	if markComplete {
		e.metricInc(MetricProfileCompleted)
		e.emitAudit(ctx, auditEventProfileCompleted, true, accountName, state.Phase, "", nil, metadata)
		e.logger.Debug("profile completed", "username", accountName)
		return nil
	}

	e.metricInc(MetricProfileDraftSaved)
	e.emitAudit(ctx, auditEventProfileSaved, true, accountName, state.Phase, "", nil, metadata)
	return nil
}

func (w *Workflow) reportProfileFailure(ctx context.Context, username string, err error) {
	if errors.Is(err, ErrOperationInFlight) {
		return
	}
	e := w.engine
	e.metricInc(MetricProfileFailure)
	e.emitAudit(ctx, auditEventProfileFailure, false, username, w.Phase(), "", err, nil)
}
