package accounttest

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal"
	"github.com/MrEthical07/goEnroll/internal/rate"
	"github.com/MrEthical07/goEnroll/jwt"
	"github.com/MrEthical07/goEnroll/password"
)

// Operation names accepted by FailNext and Calls.
const (
	OpRegister        = rate.OpRegister
	OpLogin           = rate.OpLogin
	OpCompleteProfile = rate.OpCompleteProfile
	OpVerifyIdentity  = rate.OpVerifyIdentity
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"

	maxUploadSize = 10 << 20
)

// Config configures the fake service. The zero value accepts any non-empty
// challenge token and leaves verifications pending.
type Config struct {
	// AutoApprove marks identities verified as soon as documents are received.
	AutoApprove bool

	// ValidChallenge decides whether a challenge token passes bot detection.
	// Nil accepts any non-empty token.
	ValidChallenge func(token string) bool

	// ChallengeOptional accepts verifications without a challenge token.
	ChallengeOptional bool

	// VerifyPerSecond and VerifyBurst form the per-user token bucket for
	// /user/verify-id. A zero burst disables limiting.
	VerifyPerSecond float64
	VerifyBurst     int

	TokenTTL   time.Duration
	SigningKey []byte
	Issuer     string

	Logger *slog.Logger
}

// User is the fake's view of an account. Password is only read by SeedUser,
// which stores its Argon2id hash; copies returned by Server.User leave it empty.
type User struct {
	ID                 string
	Username           string
	Email              string
	Password           string
	PasswordHash       string
	Profile            goEnroll.ProfileDetails
	ProfileCompleted   bool
	IDVerified         bool
	VerificationStatus string
	Ticket             string
	TicketPresented    bool
	Documents          []string
}

// Failure is an injected response. A zero Status drops the connection.
type Failure struct {
	Status  int
	Message string
	Delay   time.Duration
}

type Server struct {
	cfg     Config
	tokens  *jwt.Manager
	hasher  *password.Hasher
	limiter *rate.Limiter
	logger  *slog.Logger

	mu         sync.Mutex
	users      map[string]*User
	emails     map[string]string
	failures   map[string][]Failure
	calls      map[string]int
	requestIDs []string
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "accounttest"
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, err
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.SigningKey,
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return nil, err
	}

	rules := map[string]rate.Rule{}
	if cfg.VerifyBurst > 0 {
		rules[OpVerifyIdentity] = rate.Rule{PerSecond: cfg.VerifyPerSecond, Burst: cfg.VerifyBurst}
	}
	limiter, err := rate.New(rules)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		logger:   cfg.Logger,
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		failures: make(map[string][]Failure),
		calls:    make(map[string]int),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.optionalAuth).Post("/complete-profile", s.handleCompleteProfile)
		r.With(s.optionalAuth).Post("/verify-id", s.handleVerifyID)
	})

	return r
}

// Tokens returns the manager that signs session tokens.
func (s *Server) Tokens() *jwt.Manager {
	return s.tokens
}

// FailNext queues f as the response to the next call of op.
func (s *Server) FailNext(op string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], f)
}

// Calls returns how many requests for op reached the server, injected
// failures included.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// RequestIDs returns the X-Request-ID values seen so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// User returns a copy of the stored user.
func (s *Server) User(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	out := *u
	out.Documents = append([]string(nil), u.Documents...)
	return out, true
}

// SeedUser stores u, replacing any user with the same username.
func (s *Server) SeedUser(u User) {
	if u.Password != "" {
		hash, err := s.hasher.Hash(u.Password)
		if err != nil {
			s.logger.Error("seed user: hashing password failed", "username", u.Username, "error", err)
			return
		}
		u.PasswordHash = hash
		u.Password = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = internal.NewRequestID()
	}
	if u.VerificationStatus == "" {
		u.VerificationStatus = StatusPending
	}
	s.users[u.Username] = &u
	s.emails[strings.ToLower(u.Email)] = u.Username
}

// intercept counts the call and applies an injected failure. It reports
// whether the response was written.
func (s *Server) intercept(w http.ResponseWriter, op string) bool {
	s.mu.Lock()
	s.calls[op]++
	var f *Failure
	if queue := s.failures[op]; len(queue) > 0 {
		f = &queue[0]
		s.failures[op] = queue[1:]
	}
	s.mu.Unlock()

	if f == nil {
		return false
	}
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Status == 0 {
		panic(http.ErrAbortHandler)
	}
	writeMessage(w, f.Status, f.Message)
	return true
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := internal.ParseRequestID(r.Header.Get("X-Request-ID")); err == nil {
			s.mu.Lock()
			s.requestIDs = append(s.requestIDs, id)
			s.mu.Unlock()
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

// optionalAuth rejects requests that carry an invalid bearer token. Requests
// without a token pass, as they do on the production backend.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if ok {
			if _, err := s.tokens.Parse(token); err != nil {
				writeMessage(w, http.StatusUnauthorized, "invalid session token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	body := map[string]string{"message": message}
	if status >= 400 {
		body["status"] = "error"
	}
	writeJSON(w, status, body)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
