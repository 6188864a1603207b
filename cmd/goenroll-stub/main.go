// Command goenroll-stub serves the in-memory fake account service over HTTP so
// mobile builds and the goenroll driver can run without the production backend.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MrEthical07/goEnroll/accounttest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "goenroll_stub_requests_total",
	Help: "Requests served by the fake account service.",
}, []string{"method", "path", "status"})

func init() {
	prometheus.MustRegister(requestsTotal)
}

func main() {
	addr := flag.String("addr", getenv("STUB_ADDR", ":8080"), "listen address")
	autoApprove := flag.Bool("auto-approve", getenvBool("STUB_AUTO_APPROVE", true), "approve identity documents on upload")
	challengeOptional := flag.Bool("challenge-optional", getenvBool("STUB_CHALLENGE_OPTIONAL", false), "accept verify-id without a challenge token")
	verifyBurst := flag.Int("verify-burst", getenvInt("STUB_VERIFY_BURST", 5), "per-user verify-id burst; 0 disables limiting")
	verifyRate := flag.Float64("verify-rate", 0.2, "per-user verify-id refill per second")
	tokenTTL := flag.Duration("token-ttl", getenvDuration("STUB_TOKEN_TTL", time.Hour), "session token lifetime")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fake, err := accounttest.NewServer(accounttest.Config{
		AutoApprove:       *autoApprove,
		ChallengeOptional: *challengeOptional,
		VerifyPerSecond:   *verifyRate,
		VerifyBurst:       *verifyBurst,
		TokenTTL:          *tokenTTL,
		SigningKey:        []byte(os.Getenv("STUB_SIGNING_KEY")),
		Logger:            logger,
	})
	if err != nil {
		logger.Error("fake service init failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(countRequests)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", fake.Router())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("goenroll-stub listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// countRequests labels by route pattern so unknown paths share one series.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		if pattern == "/metrics" {
			return
		}
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
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

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
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
