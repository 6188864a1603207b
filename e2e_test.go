package goEnroll_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/accounttest"
	"github.com/MrEthical07/goEnroll/challenge"
	"github.com/MrEthical07/goEnroll/remote"
	"github.com/MrEthical07/goEnroll/session"
)

type stack struct {
	fake   *accounttest.Server
	engine *goEnroll.Engine
	store  *session.MemoryStore
	photo  string
}

func newStack(t *testing.T, cfg goEnroll.Config, fakeCfg accounttest.Config) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fake, err := accounttest.NewServer(fakeCfg)
	if err != nil {
		t.Fatalf("new fake: %v", err)
	}
	ts := httptest.NewServer(fake.Router())
	t.Cleanup(ts.Close)

	store := session.NewMemoryStore()
	client, err := remote.New(remote.Config{BaseURL: ts.URL, Store: store, Logger: logger})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	engine, err := goEnroll.New().
		WithConfig(cfg).
		WithAccountService(client).
		WithCredentialStore(store).
		WithChallengeProvider(challenge.Static("tok123")).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	photo := filepath.Join(t.TempDir(), "front.jpg")
	if err := os.WriteFile(photo, []byte("jpeg"), 0o600); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	return &stack{fake: fake, engine: engine, store: store, photo: photo}
}

func profile() goEnroll.ProfileDetails {
	return goEnroll.ProfileDetails{
		FirstName:   "Alice",
		LastName:    "Reyes",
		NickName:    "Al",
		Email:       "alice@x.com",
		BirthDate:   time.Now().AddDate(-65, 0, -1).Format("2006-01-02"),
		Age:         65,
		Country:     "Philippines",
		City:        "Iloilo",
		CivilStatus: "Widowed",
	}
}

func TestEndToEndRegistrationAndLogin(t *testing.T) {
	cfg := goEnroll.DefaultConfig()
	cfg.Workflow.RequireVerification = true
	s := newStack(t, cfg, accounttest.Config{AutoApprove: true})
	ctx := context.Background()

	w, err := s.engine.NewWorkflow()
	if err != nil {
		t.Fatalf("NewWorkflow: %v", err)
	}
	if err := w.CreateAccount(ctx, "", "alice@x.com", "P@ssw0rd!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	token, err := w.RequestChallengeToken(ctx, "")
	if err != nil {
		t.Fatalf("RequestChallengeToken: %v", err)
	}
	if err := w.VerifyIdentity(ctx, "alice", s.photo, token); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if got := w.State().VerificationStatus; got != accounttest.StatusApproved {
		t.Fatalf("expected approved, got %q", got)
	}
	if err := w.CompleteProfile(ctx, "alice", profile(), true); err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	if w.Phase() != goEnroll.PhaseProfileCompleted {
		t.Fatalf("expected profile_completed, got %s", w.Phase())
	}

	if _, err := s.engine.Login(ctx, "alice", "wrong"); !errors.Is(err, goEnroll.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	sessionToken, err := s.engine.Login(ctx, "alice", "P@ssw0rd!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := s.fake.Tokens().Parse(sessionToken.String()); err != nil {
		t.Fatalf("expected signed token, got %v", err)
	}
	if !s.engine.IsAuthenticated(ctx) {
		t.Fatal("expected authenticated")
	}

	s.engine.Logout(ctx)
	if s.engine.IsAuthenticated(ctx) {
		t.Fatal("expected logged out")
	}
}

func TestEndToEndResumeAfterProfileIncomplete(t *testing.T) {
	s := newStack(t, goEnroll.DefaultConfig(), accounttest.Config{AutoApprove: true})
	ctx := context.Background()

	w, _ := s.engine.NewWorkflow()
	if err := w.CreateAccount(ctx, "bob", "bob@x.com", "P@ssw0rd!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	w.Abandon()

	_, err := s.engine.Login(ctx, "bob", "P@ssw0rd!")
	username, phase, ok := s.engine.ResumePhase(err)
	if !ok || username != "bob" || phase != goEnroll.PhaseAccountCreated {
		t.Fatalf("expected resume at account_created for bob, got %q %s %v (%v)", username, phase, ok, err)
	}
	if s.engine.IsAuthenticated(ctx) {
		t.Fatal("redirect must not store a token")
	}

	resumed, err := s.engine.ResumeWorkflow(ctx, username, phase)
	if err != nil {
		t.Fatalf("ResumeWorkflow: %v", err)
	}
	if err := resumed.CompleteProfile(ctx, "", profile(), true); err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}

	// Profile done, identity not verified yet.
	_, err = s.engine.Login(ctx, "bob", "P@ssw0rd!")
	if !errors.Is(err, goEnroll.ErrIdentityUnverified) {
		t.Fatalf("expected ErrIdentityUnverified, got %v", err)
	}
	username, phase, _ = s.engine.ResumePhase(err)

	verify, err := s.engine.ResumeWorkflow(ctx, username, phase)
	if err != nil {
		t.Fatalf("ResumeWorkflow: %v", err)
	}
	if err := verify.VerifyIdentity(ctx, username, s.photo, "tok123"); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if _, err := s.engine.Login(ctx, "bob", "P@ssw0rd!"); err != nil {
		t.Fatalf("Login after verification: %v", err)
	}
}

func TestEndToEndProfileTicketForwardedOnResume(t *testing.T) {
	s := newStack(t, goEnroll.DefaultConfig(), accounttest.Config{AutoApprove: true})
	ctx := context.Background()

	w, _ := s.engine.NewWorkflow()
	if err := w.CreateAccount(ctx, "erin", "erin@x.com", "P@ssw0rd!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := w.CompleteProfile(ctx, "", profile(), true); err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	ticket := w.State().Ticket
	if ticket == "" {
		t.Fatal("expected a verification ticket from the completed profile")
	}

	_, err := s.engine.Login(ctx, "erin", "P@ssw0rd!")
	username, phase, ok := s.engine.ResumePhase(err)
	if !ok || !errors.Is(err, goEnroll.ErrIdentityUnverified) || phase != goEnroll.PhaseAccountCreated {
		t.Fatalf("expected identity-unverified redirect, got %q %s %v (%v)", username, phase, ok, err)
	}

	wrong, err := s.engine.ResumeWorkflow(ctx, username, phase, goEnroll.WithTicket("not-the-ticket"))
	if err != nil {
		t.Fatalf("ResumeWorkflow: %v", err)
	}
	if err := wrong.VerifyIdentity(ctx, username, s.photo, "tok123"); !errors.Is(err, goEnroll.ErrVerificationRejected) {
		t.Fatalf("expected ErrVerificationRejected for a foreign ticket, got %v", err)
	}

	resumed, err := s.engine.ResumeWorkflow(ctx, username, phase, goEnroll.WithTicket(ticket))
	if err != nil {
		t.Fatalf("ResumeWorkflow: %v", err)
	}
	if err := resumed.VerifyIdentity(ctx, username, s.photo, "tok123"); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	u, _ := s.fake.User("erin")
	if !u.TicketPresented || !u.IDVerified {
		t.Fatalf("expected the service to accept the ticket, got %+v", u)
	}
	if _, err := s.engine.Login(ctx, "erin", "P@ssw0rd!"); err != nil {
		t.Fatalf("Login after verification: %v", err)
	}
}

func TestEndToEndConflictAndRateLimit(t *testing.T) {
	s := newStack(t, goEnroll.DefaultConfig(), accounttest.Config{VerifyPerSecond: 0.001, VerifyBurst: 1})
	ctx := context.Background()
	s.fake.SeedUser(accounttest.User{Username: "carol", Email: "carol@x.com", Password: "pw"})

	w, _ := s.engine.NewWorkflow()
	if err := w.CreateAccount(ctx, "carol", "carol2@x.com", "P@ssw0rd!"); !errors.Is(err, goEnroll.ErrAccountConflict) {
		t.Fatalf("expected ErrAccountConflict, got %v", err)
	}
	if err := w.CreateAccount(ctx, "carol2", "carol2@x.com", "P@ssw0rd!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if err := w.VerifyIdentity(ctx, "", s.photo, "tok123"); err != nil {
		t.Fatalf("first VerifyIdentity: %v", err)
	}
	if w.Phase() != goEnroll.PhaseIdentityVerified {
		t.Fatalf("expected identity_verified, got %s", w.Phase())
	}

	resumed, _ := s.engine.ResumeWorkflow(ctx, "carol2", goEnroll.PhaseAccountCreated)
	if err := resumed.VerifyIdentity(ctx, "", s.photo, "tok123"); !errors.Is(err, goEnroll.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestEndToEndNetworkFailureRetry(t *testing.T) {
	s := newStack(t, goEnroll.DefaultConfig(), accounttest.Config{})
	ctx := context.Background()
	s.fake.FailNext(accounttest.OpRegister, accounttest.Failure{})

	w, _ := s.engine.NewWorkflow()
	if err := w.CreateAccount(ctx, "dana", "dana@x.com", "P@ssw0rd!"); !errors.Is(err, goEnroll.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if err := w.CreateAccount(ctx, "dana", "dana@x.com", "P@ssw0rd!"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.fake.Calls(accounttest.OpRegister) != 2 {
		t.Fatalf("expected two register calls, got %d", s.fake.Calls(accounttest.OpRegister))
	}
}
