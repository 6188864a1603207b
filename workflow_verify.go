package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goEnroll/internal"
)

// VerifyIdentity submits a single front-side document photo with a challenge
// token and moves the workflow to PhaseIdentityVerified.
func (w *Workflow) VerifyIdentity(ctx context.Context, username, documentPhotoReference, challengeToken string) error {
	return w.VerifyIdentityDocuments(ctx, username, []DocumentRef{
		{Side: DocumentFront, Reference: documentPhotoReference},
	}, challengeToken)
}

// VerifyIdentityDocuments submits between Config.Workflow.MinDocuments and
// MaxDocuments photos. Documents without a side are assigned front, back and
// extra by position. An empty username means the workflow's own account.
//
// Checks run in order: ErrNoDocument, ErrTooManyDocuments,
// ErrMissingPrerequisite, ErrChallengeRequired, then the remote call.
func (w *Workflow) VerifyIdentityDocuments(ctx context.Context, username string, docs []DocumentRef, challengeToken string) error {
	e := w.engine
	ctx, _ = ensureRequestID(ctx)
	attemptID := internal.NewAttemptID()
	username = strings.TrimSpace(username)
	challengeToken = strings.TrimSpace(challengeToken)

	normalized, err := normalizeDocuments(docs, e.config.Workflow)
	if err != nil {
		w.recordFailure(err)
		w.reportVerifyFailure(ctx, username, attemptID, err)
		return err
	}

	gen, snap, err := w.begin(opVerifyIdentity, func(s *WorkflowState) error {
		if s.Phase != PhaseAccountCreated || s.Account == nil {
			return fmt.Errorf("%w: identity verification requires phase %s, workflow is %s",
				ErrMissingPrerequisite, PhaseAccountCreated, s.Phase)
		}
		if username != "" && username != s.Account.Username {
			return fmt.Errorf("%w: username does not match the workflow account", ErrMissingPrerequisite)
		}
		if challengeToken == "" && e.config.Workflow.RequireChallengeToken {
			return ErrChallengeRequired
		}
		return nil
	})
	if err != nil {
		w.reportVerifyFailure(ctx, username, attemptID, err)
		return err
	}

	attempt := VerificationAttempt{
		ID:             attemptID,
		Username:       snap.Account.Username,
		Documents:      normalized,
		ChallengeToken: challengeToken,
		Ticket:         snap.Ticket,
	}

	start := time.Now()
	resp, callErr := e.service.VerifyIdentity(ctx, VerifyIdentityRequest{
		Username:       attempt.Username,
		Documents:      attempt.Documents,
		ChallengeToken: attempt.ChallengeToken,
		Ticket:         attempt.Ticket,
	})
	e.observeRemote(start)

	if callErr != nil {
		err := w.finishFailure(ctx, opVerifyIdentity, gen, attempt.Username, attempt.ID,
			mapServiceError(callErr, verifyIdentityMapping))
		if !errors.Is(err, ErrWorkflowAbandoned) {
			w.reportVerifyFailure(ctx, attempt.Username, attempt.ID, err)
		}
		return err
	}

	if _, err := w.commit(opVerifyIdentity, gen, func(s *WorkflowState) {
		advance(s, PhaseIdentityVerified)
		s.VerificationStatus = resp.Status
	}); err != nil {
		w.discardStale(ctx, opVerifyIdentity, attempt.Username, attempt.ID, nil)
		return err
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventIdentityVerified, true, attempt.Username, PhaseIdentityVerified, attempt.ID, nil, func() map[string]string {
		return map[string]string{
			"documents": strconv.Itoa(len(attempt.Documents)),
			"status":    resp.Status,
		}
	})
	e.logger.Debug("identity verified", "username", attempt.Username, "status", resp.Status)
	return nil
}

func (w *Workflow) reportVerifyFailure(ctx context.Context, username, attemptID string, err error) {
	if errors.Is(err, ErrOperationInFlight) {
		return
	}
	e := w.engine
	if errors.Is(err, ErrVerificationRejected) || errors.Is(err, ErrChallengeRejected) {
		e.metricInc(MetricVerificationRejected)
	} else {
		e.metricInc(MetricVerificationFailure)
	}
	e.emitAudit(ctx, auditEventIdentityVerificationFailure, false, username, w.Phase(), attemptID, err, nil)
}

// recordFailure stores a failure detected before any state was consulted.
func (w *Workflow) recordFailure(err error) {
	w.mu.Lock()
	w.state.LastError = err
	w.mu.Unlock()
}
