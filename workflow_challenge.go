package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestChallengeToken obtains a proof-of-humanity token for action from the
// configured ChallengeProvider. It never touches workflow state and may run
// concurrently with any other call.
func (w *Workflow) RequestChallengeToken(ctx context.Context, action string) (string, error) {
	return w.engine.RequestChallengeToken(ctx, action)
}

// RequestChallengeToken waits at most Config.Challenge.Timeout, or until the
// ctx deadline if that is earlier, and fails with ErrChallengeTimeout after
// that. A provider that ignores cancellation cannot block the caller.
func (e *Engine) RequestChallengeToken(ctx context.Context, action string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	ctx, _ = ensureRequestID(ctx)

	action = strings.TrimSpace(action)
	if action == "" {
		action = e.config.Challenge.Action
	}

	if e.challenge == nil {
		err := fmt.Errorf("%w: no challenge provider configured", ErrChallengeFailed)
		e.reportChallenge(ctx, action, 0, err)
		return "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.config.Challenge.Timeout)
	defer cancel()

	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		token, err := e.challenge.Token(waitCtx, action)
		done <- result{token: token, err: err}
	}()

	var (
		token string
		err   error
	)
	select {
	case r := <-done:
		token, err = r.token, r.err
	case <-waitCtx.Done():
		err = waitCtx.Err()
	}

	switch {
	case err == nil && strings.TrimSpace(token) == "":
		err = fmt.Errorf("%w: provider returned an empty token", ErrChallengeFailed)
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", ErrChallengeTimeout, err)
	case err != nil && !errors.Is(err, ErrChallengeTimeout) && !errors.Is(err, ErrChallengeFailed):
		err = fmt.Errorf("%w: %w", ErrChallengeFailed, err)
	}

	e.reportChallenge(ctx, action, time.Since(start), err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (e *Engine) reportChallenge(ctx context.Context, action string, elapsed time.Duration, err error) {
	metadata := func() map[string]string {
		return map[string]string{
			"action":     action,
			"elapsed_ms": fmt.Sprintf("%d", elapsed.Milliseconds()),
		}
	}

	switch {
	case err == nil:
		e.metricInc(MetricChallengeIssued)
		e.emitAudit(ctx, auditEventChallengeIssued, true, "", PhaseNotStarted, "", nil, metadata)
	case errors.Is(err, ErrChallengeTimeout):
		e.metricInc(MetricChallengeTimeout)
		e.emitAudit(ctx, auditEventChallengeFailure, false, "", PhaseNotStarted, "", err, metadata)
	default:
		e.metricInc(MetricChallengeFailure)
		e.emitAudit(ctx, auditEventChallengeFailure, false, "", PhaseNotStarted, "", err, metadata)
	}
}
