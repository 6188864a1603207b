package goEnroll

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goEnroll/internal/audit"
	"github.com/MrEthical07/goEnroll/session"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config

	service   AccountService
	store     CredentialStore
	challenge ChallengeProvider
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccountService sets the remote account API. It is required.
func (b *Builder) WithAccountService(s AccountService) *Builder {
	b.service = s
	return b
}

// WithCredentialStore sets where the session token lives. Defaults to an
// in-memory store.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithChallengeProvider sets the bot-detection token source. Without one,
// RequestChallengeToken fails with ErrChallengeFailed.
func (b *Builder) WithChallengeProvider(p ChallengeProvider) *Builder {
	b.challenge = p
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.service == nil {
		return nil, errors.New("account service required")
	}

	store := b.store
	if store == nil {
		store = session.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:    cfg,
		service:   b.service,
		store:     store,
		challenge: b.challenge,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       time.Now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
