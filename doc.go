// Package goEnroll coordinates the client side of a multi-phase registration:
// account creation, optional identity-document verification and profile
// completion, plus the thin session layer (login, logout, current token).
//
// A [Workflow] is a state machine over [Phase] values. Each operation performs
// one remote call through an [AccountService] and commits its phase transition
// only after the service confirms success. Phases only move forward;
// [Workflow.Abandon] resets to PhaseNotStarted and discards results of calls
// that were still in flight.
//
// # Architecture boundaries
//
// goEnroll is the public surface: [Engine], [Builder], [Config], [Workflow] and the
// collaborator interfaces ([AccountService], [CredentialStore], [ChallengeProvider]).
// The HTTP client lives in remote/, credential stores in session/, challenge
// providers in challenge/ and a fake account service in accounttest/.
//
// # What this package must NOT do
//
//   - Render UI or own navigation. Callers react to returned errors and [WorkflowState].
//   - Hold the workflow lock across a remote call.
//   - Import a sub-package that re-imports goEnroll (no import cycles).
//   - Log passwords or session tokens.
package goEnroll
