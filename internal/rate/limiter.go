package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

// Operation names shared by the client and the fake service.
const (
	OpRegister        = "register"
	OpLogin           = "login"
	OpCompleteProfile = "complete_profile"
	OpVerifyIdentity  = "verify_id"
)

// Rule is a token bucket: PerSecond tokens refill each second up to Burst.
type Rule struct {
	PerSecond float64
	Burst     int
}

type bucket struct {
	limiter *xrate.Limiter
	last    time.Time
}

// Limiter holds one token bucket per (operation, key) pair.
type Limiter struct {
	rules map[string]Rule

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a [Limiter] for the given rules. A nil or empty map yields a limiter
// that never blocks.
func New(rules map[string]Rule) (*Limiter, error) {
	copied := make(map[string]Rule, len(rules))
	for op, r := range rules {
		if r.PerSecond < 0 || r.Burst <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRule, op)
		}
		copied[op] = r
	}
	return &Limiter{
		rules:   copied,
		buckets: make(map[string]*bucket),
	}, nil
}

// Allow reports whether a token is available right now and consumes it if so.
func (l *Limiter) Allow(op, key string) bool {
	lim := l.bucketFor(op, key)
	if lim == nil {
		return true
	}
	return lim.Allow()
}

// Wait blocks until a token is available. It fails fast with ErrRateLimited when the
// wait would outlive the ctx deadline, and returns ctx.Err() when ctx ends first.
func (l *Limiter) Wait(ctx context.Context, op, key string) error {
	lim := l.bucketFor(op, key)
	if lim == nil {
		return nil
	}

	r := lim.Reserve()
	if !r.OK() {
		return ErrRateLimited
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return ErrRateLimited
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Prune drops buckets idle for longer than idle. It returns the number removed.
func (l *Limiter) Prune(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := time.Now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}

func (l *Limiter) bucketFor(op, key string) *xrate.Limiter {
	if l == nil {
		return nil
	}
	r, ok := l.rules[op]
	if !ok {
		return nil
	}

	k := bucketKey(op, key)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{limiter: xrate.NewLimiter(xrate.Limit(r.PerSecond), r.Burst)}
		l.buckets[k] = b
	}
	b.last = now
	return b.limiter
}

func bucketKey(op, key string) string {
	return op + ":" + key
}
