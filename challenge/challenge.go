package challenge

import (
	"context"
	"errors"
	"strings"
	"sync"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal"
)

var (
	ErrEmptyToken     = errors.New("challenge: empty token")
	ErrUnknownRequest = errors.New("challenge: unknown or expired request")
	ErrRelayClosed    = errors.New("challenge: relay closed")
)

// Static always returns the same token.
type Static string

func (s Static) Token(context.Context, string) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// Func adapts an ordinary function to goEnroll.ChallengeProvider.
type Func func(ctx context.Context, action string) (string, error)

func (f Func) Token(ctx context.Context, action string) (string, error) {
	return f(ctx, action)
}

var (
	_ goEnroll.ChallengeProvider = Static("")
	_ goEnroll.ChallengeProvider = Func(nil)
	_ goEnroll.ChallengeProvider = (*Relay)(nil)
)

// Request asks the widget side for a token.
type Request struct {
	ID     string
	Action string
}

type result struct {
	token string
	err   error
}

// Relay turns Resolve/Reject callbacks into Token results. It is safe for
// concurrent use; several Token calls may be pending at once.
type Relay struct {
	requests chan Request
	closing  chan struct{}
	senders  sync.WaitGroup

	mu      sync.Mutex
	pending map[string]chan result
	closed  bool
}

// NewRelay creates a Relay whose Requests channel holds up to buffer unread
// requests.
func NewRelay(buffer int) *Relay {
	if buffer < 0 {
		buffer = 0
	}
	return &Relay{
		requests: make(chan Request, buffer),
		closing:  make(chan struct{}),
		pending:  make(map[string]chan result),
	}
}

// Requests delivers token requests to the widget side. It is closed by Close.
func (r *Relay) Requests() <-chan Request {
	return r.requests
}

// Token publishes a Request and waits for its answer or for ctx to end.
func (r *Relay) Token(ctx context.Context, action string) (string, error) {
	req := Request{ID: internal.NewAttemptID(), Action: action}
	ch := make(chan result, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRelayClosed
	}
	r.pending[req.ID] = ch
	r.senders.Add(1)
	r.mu.Unlock()
	defer r.forget(req.ID)

	sent := false
	select {
	case r.requests <- req:
		sent = true
	case <-ctx.Done():
	case <-r.closing:
	}
	r.senders.Done()
	if !sent {
		select {
		case <-r.closing:
			return "", ErrRelayClosed
		default:
			return "", ctx.Err()
		}
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.closing:
		return "", ErrRelayClosed
	}
}

// Resolve answers request id with token.
func (r *Relay) Resolve(id, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return r.deliver(id, result{err: ErrEmptyToken})
	}
	return r.deliver(id, result{token: token})
}

// Reject fails request id with err.
func (r *Relay) Reject(id string, err error) error {
	if err == nil {
		err = errors.New("challenge: rejected")
	}
	return r.deliver(id, result{err: err})
}

// Close fails every pending request with ErrRelayClosed, including calls
// still waiting to publish, and closes the Requests channel. Later Token
// calls fail immediately.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.closing)
	for id, ch := range r.pending {
		ch <- result{err: ErrRelayClosed}
		delete(r.pending, id)
	}
	r.mu.Unlock()

	// No sender registers after closed is set, so once the in-flight
	// publishers leave their select the channel can be closed.
	r.senders.Wait()
	close(r.requests)
}

func (r *Relay) deliver(id string, res result) error {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownRequest
	}
	ch <- res
	return nil
}

func (r *Relay) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}
