package goEnroll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goEnroll/session"
)

type mockService struct {
	mu sync.Mutex

	registerCalls int
	loginCalls    int
	profileCalls  int
	verifyCalls   int

	lastRegister RegisterRequest
	lastProfile  CompleteProfileRequest
	lastVerify   VerifyIdentityRequest

	registerFn func(context.Context, RegisterRequest) error
	loginFn    func(context.Context, LoginRequest) (LoginResponse, error)
	profileFn  func(context.Context, CompleteProfileRequest) (CompleteProfileResponse, error)
	verifyFn   func(context.Context, VerifyIdentityRequest) (VerifyIdentityResponse, error)
}

func (m *mockService) Register(ctx context.Context, req RegisterRequest) error {
	m.mu.Lock()
	m.registerCalls++
	m.lastRegister = req
	fn := m.registerFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil
}

func (m *mockService) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	m.mu.Lock()
	m.loginCalls++
	fn := m.loginFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return LoginResponse{Token: "token-" + req.Username}, nil
}

func (m *mockService) CompleteProfile(ctx context.Context, req CompleteProfileRequest) (CompleteProfileResponse, error) {
	m.mu.Lock()
	m.profileCalls++
	m.lastProfile = req
	fn := m.profileFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return CompleteProfileResponse{Message: "saved", Username: req.Username}, nil
}

func (m *mockService) VerifyIdentity(ctx context.Context, req VerifyIdentityRequest) (VerifyIdentityResponse, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.lastVerify = req
	fn := m.verifyFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return VerifyIdentityResponse{Status: "PENDING", Message: "submitted"}, nil
}

func (m *mockService) calls() (register, login, profile, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerCalls, m.loginCalls, m.profileCalls, m.verifyCalls
}

type failingStore struct {
	session.MemoryStore
	clearErr error
}

func (s *failingStore) ClearToken(context.Context) error {
	return s.clearErr
}

type challengeFunc func(ctx context.Context, action string) (string, error)

func (f challengeFunc) Token(ctx context.Context, action string) (string, error) {
	return f(ctx, action)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, svc AccountService, store CredentialStore) *Engine {
	t.Helper()

	b := New().
		WithConfig(cfg).
		WithAccountService(svc).
		WithLogger(quietLogger()).
		WithChallengeProvider(challengeFunc(func(context.Context, string) (string, error) {
			return "tok123", nil
		}))
	if store != nil {
		b = b.WithCredentialStore(store)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestWorkflow(t *testing.T, engine *Engine) *Workflow {
	t.Helper()
	w, err := engine.NewWorkflow()
	if err != nil {
		t.Fatalf("NewWorkflow failed: %v", err)
	}
	return w
}

func validProfile() ProfileDetails {
	return ProfileDetails{
		FirstName:   "Alice",
		LastName:    "Santos",
		NickName:    "Ali",
		Email:       "alice@x.com",
		BirthDate:   time.Now().AddDate(-30, 0, -10).Format("2006-01-02"),
		Age:         30,
		Country:     "Philippines",
		City:        "Cebu",
		CivilStatus: "Single",
	}
}

var errConnectionReset = errors.New("read tcp: connection reset by peer")

// gate blocks a mock call until released and reports when the call started.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gate) wait() {
	g.entered <- struct{}{}
	<-g.release
}

func (g *gate) awaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("mock call was not entered")
	}
}
