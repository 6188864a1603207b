package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goEnroll/jwt"
)

// Login authenticates against the account service and stores the issued
// session token.
//
// A rejected password returns ErrInvalidCredentials and leaves any stored
// token untouched. An account that has not finished registration returns
// *ProfileIncompleteError or *IdentityUnverifiedError; no token is stored and
// [Engine.ResumePhase] tells the caller where to resume.
func (e *Engine) Login(ctx context.Context, username, password string) (SessionToken, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	ctx, _ = ensureRequestID(ctx)
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		v := &ValidationError{}
		if username == "" {
			v.add("username", "required")
		}
		if password == "" {
			v.add("password", "required")
		}
		err := invalid(ErrInvalidCredentials, v)
		e.reportLoginFailure(ctx, username, err)
		return "", err
	}

	start := time.Now()
	resp, callErr := e.service.Login(ctx, LoginRequest{Username: username, Password: password})
	e.observeRemote(start)

	if callErr != nil {
		var incomplete *ProfileIncompleteError
		var unverified *IdentityUnverifiedError
		switch {
		case errors.As(callErr, &incomplete):
			if incomplete.Username == "" {
				incomplete.Username = username
			}
			e.reportLoginRedirect(ctx, incomplete.Username, callErr, "")
			return "", callErr
		case errors.As(callErr, &unverified):
			if unverified.Username == "" {
				unverified.Username = username
			}
			e.reportLoginRedirect(ctx, unverified.Username, callErr, unverified.Status)
			return "", callErr
		}

		err := mapServiceError(callErr, loginMapping)
		e.reportLoginFailure(ctx, username, err)
		return "", err
	}

	token := strings.TrimSpace(resp.Token)
	if token == "" {
		err := fmt.Errorf("%w: login succeeded without a session token", ErrServiceResponse)
		e.reportLoginFailure(ctx, username, err)
		return "", err
	}

	if err := e.store.SetToken(ctx, token); err != nil {
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
		e.reportLoginFailure(ctx, username, err)
		return "", err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, username, PhaseNotStarted, "", nil, nil)
	return SessionToken(token), nil
}

// Logout clears the stored session token. A failing credential store is logged
// and otherwise ignored so sign-out never blocks.
func (e *Engine) Logout(ctx context.Context) {
	if e == nil || e.store == nil {
		return
	}
	ctx, _ = ensureRequestID(ctx)

	err := e.store.ClearToken(ctx)
	if err != nil {
		e.logger.Warn("logout: clearing session token failed", "error", err)
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, err == nil, "", PhaseNotStarted, "", err, nil)
}

// CurrentToken returns the stored session token. A JWT whose exp claim has
// passed (beyond Config.Session.Leeway) is cleared and reported absent. Opaque
// tokens are returned as stored.
func (e *Engine) CurrentToken(ctx context.Context) (SessionToken, bool) {
	if e == nil || e.store == nil {
		return "", false
	}

	token, err := e.store.Token(ctx)
	if err != nil {
		e.logger.Warn("reading session token failed", "error", err)
		return "", false
	}
	if token == "" {
		return "", false
	}

	if e.config.Session.CheckExpiry {
		if info, err := jwt.Inspect(token); err == nil && info.Expired(e.now(), e.config.Session.Leeway) {
			if err := e.store.ClearToken(ctx); err != nil {
				e.logger.Warn("clearing expired session token failed", "error", err)
			}
			return "", false
		}
	}

	return SessionToken(token), true
}

func (e *Engine) IsAuthenticated(ctx context.Context) bool {
	_, ok := e.CurrentToken(ctx)
	return ok
}

// RejectSession handles an authentication-rejected response: the stored token
// is cleared so the user must log in again. Failures are logged and suppressed.
func (e *Engine) RejectSession(ctx context.Context) {
	if e == nil || e.store == nil {
		return
	}
	ctx, _ = ensureRequestID(ctx)

	err := e.store.ClearToken(ctx)
	if err != nil {
		e.logger.Warn("clearing rejected session token failed", "error", err)
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}

	e.metricInc(MetricSessionRejected)
	e.emitAudit(ctx, auditEventSessionRejected, err == nil, "", PhaseNotStarted, "", err, nil)
}

func (e *Engine) reportLoginFailure(ctx context.Context, username string, err error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, username, PhaseNotStarted, "", err, nil)
}

func (e *Engine) reportLoginRedirect(ctx context.Context, username string, err error, status string) {
	e.metricInc(MetricLoginProfileIncomplete)
	e.emitAudit(ctx, auditEventLoginProfileIncomplete, false, username, PhaseAccountCreated, "", err, func() map[string]string {
		if status == "" {
			return nil
		}
		return map[string]string{"verification_status": status}
	})
}
