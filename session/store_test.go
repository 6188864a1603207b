package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goEnroll/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, maxTTL time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "test", "phone-1", maxTTL), mr
}

func issueToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{TTL: ttl, SigningMethod: jwt.MethodHS256, PrivateKey: []byte("store-test-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Issue("alice", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func TestRedisStoreOpaqueTokenRoundTrip(t *testing.T) {
	store, mr := newRedisStoreTest(t, 0)
	ctx := context.Background()

	if tok, err := store.Token(ctx); err != nil || tok != "" {
		t.Fatalf("expected empty slot, got %q, %v", tok, err)
	}
	if err := store.SetToken(ctx, "opaque-token"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if tok, _ := store.Token(ctx); tok != "opaque-token" {
		t.Fatalf("expected stored token, got %q", tok)
	}
	if mr.TTL(store.Key()) != 0 {
		t.Fatal("opaque token without maxTTL must not expire")
	}

	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("second clear must be idempotent: %v", err)
	}
	if tok, _ := store.Token(ctx); tok != "" {
		t.Fatalf("expected cleared slot, got %q", tok)
	}
}

func TestRedisStoreJWTExpiresWithToken(t *testing.T) {
	store, mr := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	if err := store.SetToken(ctx, issueToken(t, time.Minute)); err != nil {
		t.Fatalf("set: %v", err)
	}
	ttl := mr.TTL(store.Key())
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected key ttl bounded by token exp, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if tok, err := store.Token(ctx); err != nil || tok != "" {
		t.Fatalf("expected expired token to be gone, got %q, %v", tok, err)
	}
}

func TestRedisStoreMaxTTLCapsLongTokens(t *testing.T) {
	store, mr := newRedisStoreTest(t, time.Minute)
	ctx := context.Background()

	if err := store.SetToken(ctx, issueToken(t, 24*time.Hour)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(store.Key()); ttl != time.Minute {
		t.Fatalf("expected ttl capped at 1m, got %v", ttl)
	}
}

func TestRedisStoreRejectsExpiredAndEmpty(t *testing.T) {
	store, _ := newRedisStoreTest(t, 0)
	ctx := context.Background()

	if err := store.SetToken(ctx, ""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}

	token := issueToken(t, time.Minute)
	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	if err := store.SetToken(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t, 0)
	mr.Close()

	if _, err := store.Token(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SetToken(ctx, ""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if err := store.SetToken(ctx, "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if tok, _ := store.Token(ctx); tok != "t1" {
		t.Fatalf("expected t1, got %q", tok)
	}
	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tok, _ := store.Token(ctx); tok != "" {
		t.Fatalf("expected empty, got %q", tok)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Token(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
