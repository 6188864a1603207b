package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal/rate"
	"github.com/MrEthical07/goEnroll/middleware"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultTimeout = 10 * time.Second

	maxResponseBody = 1 << 20
	maxErrorBody    = 4 << 10
)

// RateRule is a token bucket for one operation: PerSecond tokens per second up
// to Burst.
type RateRule struct {
	PerSecond float64
	Burst     int
}

// Config configures a [Client]. Zero values take the defaults.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	TokenHeader string
	UserAgent   string

	// Store is the credential store the session middleware reads and rotates.
	// It should be the same store the Engine uses.
	Store goEnroll.CredentialStore

	// Loader opens identity document references. Defaults to [FileLoader].
	Loader DocumentLoader

	// Limits throttles outbound calls per operation ("register", "login",
	// "complete_profile", "verify_id").
	Limits map[string]RateRule

	// Transport is the base RoundTripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client is an HTTP implementation of goEnroll.AccountService. It is safe for
// concurrent use.
type Client struct {
	base        *url.URL
	http        *http.Client
	tokenHeader string
	userAgent   string
	loader      DocumentLoader
	limiter     *rate.Limiter
	logger      *slog.Logger
}

var _ goEnroll.AccountService = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	rawBase := strings.TrimSpace(cfg.BaseURL)
	if rawBase == "" {
		rawBase = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(rawBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("base URL must be http or https")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	header := cfg.TokenHeader
	if header == "" {
		header = middleware.DefaultTokenHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := cfg.Loader
	if loader == nil {
		loader = FileLoader{}
	}

	rules := make(map[string]rate.Rule, len(cfg.Limits))
	for op, r := range cfg.Limits {
		rules[op] = rate.Rule{PerSecond: r.PerSecond, Burst: r.Burst}
	}
	limiter, err := rate.New(rules)
	if err != nil {
		return nil, err
	}

	transport := middleware.Chain(cfg.Transport,
		middleware.RequestID(),
		middleware.SessionToken(cfg.Store, header, logger),
	)

	return &Client{
		base:        base,
		http:        &http.Client{Timeout: timeout, Transport: transport},
		tokenHeader: header,
		userAgent:   cfg.UserAgent,
		loader:      loader,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send throttles op, performs the request and returns the response with its
// body read. Non-2xx responses become *goEnroll.ServiceError.
func (c *Client) send(ctx context.Context, op string, req *http.Request) (*http.Response, []byte, error) {
	if err := c.limiter.Wait(ctx, op, ""); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, nil, &goEnroll.ServiceError{
				Kind:    goEnroll.ErrServiceRateLimited,
				Message: "client-side rate limit for " + op,
				Err:     err,
			}
		}
		return nil, nil, unavailable(err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBody)
	if resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, unavailable(err)
	}

	c.logger.Debug("account service call", "operation", op, "status", resp.StatusCode)

	if resp.StatusCode >= 300 {
		return resp, body, statusError(resp.StatusCode, body)
	}
	return resp, body, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, query url.Values, payload any) (*http.Response, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, query), bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(ctx, op, req)
}
