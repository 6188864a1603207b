package goEnroll

import (
	"context"
	"errors"
	"sync"
)

type opKind uint8

const (
	opCreateAccount opKind = iota
	opVerifyIdentity
	opCompleteProfile
	opCount
)

func (o opKind) String() string {
	switch o {
	case opCreateAccount:
		return "create_account"
	case opVerifyIdentity:
		return "verify_identity"
	case opCompleteProfile:
		return "complete_profile"
	default:
		return "unknown"
	}
}

// Workflow drives one registration from account creation to a completed
// profile. All methods are safe for concurrent use: at most one call per phase
// runs at a time, a second one fails with ErrOperationInFlight, and the state
// lock is never held across a remote call.
type Workflow struct {
	engine *Engine

	mu         sync.Mutex
	state      WorkflowState
	generation uint64
	inFlight   [opCount]bool

	// lostCreate is the input of the last account creation that failed in
	// transport, used by AdoptConflictAfterNetworkError.
	lostCreate *PhaseOneAccount
}

func newWorkflow(e *Engine, state WorkflowState) *Workflow {
	return &Workflow{
		engine: e,
		state:  state,
	}
}

// State returns a copy of the current workflow state.
func (w *Workflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Phase
}

// Generation is incremented by every Abandon. Results of calls started under
// an older generation are discarded.
func (w *Workflow) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Abandon resets the workflow to PhaseNotStarted and discards the account.
// Calls still in flight complete, but their results are dropped.
func (w *Workflow) Abandon() {
	w.abandon(context.Background())
}

// AbandonContext is Abandon with a context for audit correlation.
func (w *Workflow) AbandonContext(ctx context.Context) {
	w.abandon(ctx)
}

func (w *Workflow) abandon(ctx context.Context) {
	ctx, _ = ensureRequestID(ctx)

	w.mu.Lock()
	prev := w.state
	w.generation++
	w.state = WorkflowState{Phase: PhaseNotStarted}
	w.inFlight = [opCount]bool{}
	w.lostCreate = nil
	w.mu.Unlock()

	username := ""
	if prev.Account != nil {
		username = prev.Account.Username
	}

	e := w.engine
	e.metricInc(MetricWorkflowAbandoned)
	e.emitAudit(ctx, auditEventWorkflowAbandoned, true, username, prev.Phase, "", nil, nil)
	e.logger.Debug("workflow abandoned", "username", username, "phase", prev.Phase.String())
}

func (w *Workflow) snapshotLocked() WorkflowState {
	out := w.state
	if w.state.Account != nil {
		acct := *w.state.Account
		out.Account = &acct
	}
	return out
}

// errAlreadyDone is returned by a begin check when the operation has nothing
// left to do; callers turn it into a nil result.
var errAlreadyDone = errors.New("already done")

// begin runs check against the current state and, when it passes, marks op in
// flight. It returns the generation and a state snapshot taken under the lock.
func (w *Workflow) begin(op opKind, check func(*WorkflowState) error) (uint64, WorkflowState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight[op] {
		w.engine.metricInc(MetricOperationInFlightRejected)
		return 0, WorkflowState{}, ErrOperationInFlight
	}
	if check != nil {
		if err := check(&w.state); err != nil {
			if !errors.Is(err, errAlreadyDone) {
				w.state.LastError = err
			}
			return 0, WorkflowState{}, err
		}
	}

	w.inFlight[op] = true
	return w.generation, w.snapshotLocked(), nil
}

// fail releases op and records err. It reports false when the workflow was
// abandoned since gen; the failure is then stale and nothing is recorded.
func (w *Workflow) fail(op opKind, gen uint64, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.generation != gen {
		return false
	}
	w.inFlight[op] = false
	w.state.LastError = err
	return true
}

// commit releases op and applies fn to the state. It returns
// ErrWorkflowAbandoned without applying fn when the generation moved on.
func (w *Workflow) commit(op opKind, gen uint64, fn func(*WorkflowState)) (WorkflowState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.generation != gen {
		return WorkflowState{}, ErrWorkflowAbandoned
	}
	w.inFlight[op] = false
	w.state.LastError = nil
	fn(&w.state)
	return w.snapshotLocked(), nil
}

// advance moves the phase forward only.
func advance(s *WorkflowState, to Phase) {
	if to > s.Phase {
		s.Phase = to
	}
}

// discardStale records a result that arrived after Abandon.
func (w *Workflow) discardStale(ctx context.Context, op opKind, username string, attemptID string, result error) {
	e := w.engine
	e.metricInc(MetricStaleResultDiscarded)
	e.emitAudit(ctx, auditEventWorkflowStaleResult, false, username, PhaseNotStarted, attemptID, ErrWorkflowAbandoned, func() map[string]string {
		md := map[string]string{"operation": op.String()}
		if result != nil {
			md["result_error"] = string(auditErrorCode(result))
		}
		return md
	})
	e.logger.Info("discarded stale workflow result", "operation", op.String(), "username", username)
}

// finishFailure is the common failure path for remote calls.
func (w *Workflow) finishFailure(ctx context.Context, op opKind, gen uint64, username, attemptID string, err error) error {
	if !w.fail(op, gen, err) {
		w.discardStale(ctx, op, username, attemptID, err)
		return ErrWorkflowAbandoned
	}
	if errors.Is(err, ErrAuthenticationRejected) {
		w.engine.RejectSession(ctx)
	}
	return err
}
