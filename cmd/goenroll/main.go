// Command goenroll drives complete registrations (account, challenge, identity
// documents, profile, login) against an account service and reports per-phase
// latency. Without -base-url it starts an in-process fake service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/accounttest"
	"github.com/MrEthical07/goEnroll/challenge"
	"github.com/MrEthical07/goEnroll/internal"
	"github.com/MrEthical07/goEnroll/remote"
	"github.com/MrEthical07/goEnroll/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var phases = []string{"register", "challenge", "verify", "profile", "login"}

type options struct {
	baseURL        string
	redisAddr      string
	prefix         string
	users          int
	concurrency    int
	photo          string
	challengeToken string
	timeout        time.Duration
	requireVerify  bool
	audit          bool
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", getenv("GOENROLL_BASE_URL", ""), "account service base URL; empty starts an in-process fake")
	flag.StringVar(&opts.redisAddr, "redis-addr", getenv("REDIS_ADDR", ""), "redis address for session tokens; empty uses miniredis")
	flag.StringVar(&opts.prefix, "prefix", getenv("GOENROLL_PREFIX", "ge"), "session key prefix")
	flag.IntVar(&opts.users, "users", getenvInt("GOENROLL_USERS", 20), "registrations to run")
	flag.IntVar(&opts.concurrency, "concurrency", getenvInt("GOENROLL_CONCURRENCY", 4), "concurrent registrations")
	flag.StringVar(&opts.photo, "photo", getenv("GOENROLL_PHOTO", ""), "front ID photo; empty writes a placeholder")
	flag.StringVar(&opts.challengeToken, "challenge-token", getenv("GOENROLL_CHALLENGE_TOKEN", "tok123"), "static challenge token")
	flag.DurationVar(&opts.timeout, "timeout", getenvDuration("GOENROLL_TIMEOUT", remote.DefaultTimeout), "per-request timeout")
	flag.BoolVar(&opts.requireVerify, "require-verification", false, "require verification before profile completion")
	flag.BoolVar(&opts.audit, "audit", false, "log audit events")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if opts.users <= 0 || opts.concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "users and concurrency must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("goenroll failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	if opts.baseURL == "" {
		baseURL, stop, err := startFake(logger)
		if err != nil {
			return err
		}
		defer stop()
		opts.baseURL = baseURL
	}

	rdb, cleanup, err := openRedis(opts.redisAddr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.photo == "" {
		dir, err := os.MkdirTemp("", "goenroll")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		opts.photo = filepath.Join(dir, "front.jpg")
		if err := os.WriteFile(opts.photo, []byte{0xff, 0xd8, 0xff, 0xd9}, 0o600); err != nil {
			return err
		}
	}

	suffix, err := internal.UsernameSuffix()
	if err != nil {
		return err
	}

	rec := newRecorder()
	var (
		wg       sync.WaitGroup
		cursor   int64
		failures int64
	)
	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.users {
					return
				}
				username := "u" + suffix + strconv.Itoa(i)
				if err := enroll(ctx, opts, rdb, logger, username, rec); err != nil {
					atomic.AddInt64(&failures, 1)
					logger.Warn("registration failed", "username", username, "error", err)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	fmt.Printf("---- %d registrations in %s, %d failed ----\n", opts.users, total.Round(time.Millisecond), failures)
	for _, name := range phases {
		printStats(name, rec.stats(name))
	}
	return nil
}

// enroll runs one registration with its own credential slot, so concurrent
// users never overwrite each other's session token.
func enroll(ctx context.Context, opts options, rdb redis.UniversalClient, logger *slog.Logger, username string, rec *recorder) error {
	store := session.NewRedisStore(rdb, opts.prefix, username, 24*time.Hour)
	client, err := remote.New(remote.Config{
		BaseURL: opts.baseURL,
		Timeout: opts.timeout,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	cfg := goEnroll.DefaultConfig()
	cfg.Workflow.RequireVerification = opts.requireVerify
	cfg.Audit.Enabled = opts.audit
	engine, err := goEnroll.New().
		WithConfig(cfg).
		WithAccountService(client).
		WithCredentialStore(store).
		WithChallengeProvider(challenge.Static(opts.challengeToken)).
		WithLogger(logger).
		WithAuditSink(goEnroll.NewSlogSink(logger)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	w, err := engine.NewWorkflow()
	if err != nil {
		return err
	}
	const password = "P@ssw0rd!"

	if err := rec.time("register", func() error {
		return w.CreateAccount(ctx, username, username+"@example.com", password)
	}); err != nil {
		return err
	}

	var token string
	if err := rec.time("challenge", func() (err error) {
		token, err = w.RequestChallengeToken(ctx, "")
		return err
	}); err != nil {
		return err
	}

	if err := rec.time("verify", func() error {
		return w.VerifyIdentity(ctx, username, opts.photo, token)
	}); err != nil {
		return err
	}

	if err := rec.time("profile", func() error {
		return w.CompleteProfile(ctx, username, sampleProfile(username), true)
	}); err != nil {
		return err
	}

	err = rec.time("login", func() error {
		_, err := engine.Login(ctx, username, password)
		return err
	})
	if name, phase, ok := engine.ResumePhase(err); ok {
		// The service may keep identities pending; that still counts as enrolled.
		logger.Debug("login redirected", "username", name, "phase", phase)
		return nil
	}
	if err != nil {
		return err
	}
	engine.Logout(ctx)
	return nil
}

func sampleProfile(username string) goEnroll.ProfileDetails {
	return goEnroll.ProfileDetails{
		FirstName:   "Load",
		LastName:    "Test",
		Email:       username + "@example.com",
		BirthDate:   time.Now().AddDate(-30, 0, -10).Format("2006-01-02"),
		Age:         30,
		Country:     "Philippines",
		City:        "Cebu",
		CivilStatus: "Single",
	}
}

func startFake(logger *slog.Logger) (string, func(), error) {
	fake, err := accounttest.NewServer(accounttest.Config{AutoApprove: true, Logger: logger})
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: fake.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("fake service stopped", "error", err)
		}
	}()
	logger.Info("using in-process fake service", "addr", ln.Addr().String())
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }, nil
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", "addr", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info("using miniredis", "addr", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type recorder struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	errors  map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		samples: make(map[string][]time.Duration),
		errors:  make(map[string]int),
	}
}

func (r *recorder) time(phase string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	d := time.Since(t0)

	r.mu.Lock()
	r.samples[phase] = append(r.samples[phase], d)
	if err != nil && !isRedirect(err) {
		r.errors[phase]++
	}
	r.mu.Unlock()
	return err
}

func isRedirect(err error) bool {
	return errors.Is(err, goEnroll.ErrProfileIncomplete) || errors.Is(err, goEnroll.ErrIdentityUnverified)
}

type phaseStats struct {
	ops      int
	failures int
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	max      time.Duration
}

func (r *recorder) stats(phase string) phaseStats {
	r.mu.Lock()
	samples := append([]time.Duration(nil), r.samples[phase]...)
	failures := r.errors[phase]
	r.mu.Unlock()

	if len(samples) == 0 {
		return phaseStats{failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		max:      samples[len(samples)-1],
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-9s ops=%d failures=%d p50=%s p95=%s p99=%s max=%s\n",
		name,
		s.ops,
		s.failures,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		s.max.Round(time.Microsecond),
	)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
