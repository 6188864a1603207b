package goEnroll

import (
	"errors"
	"strings"
	"time"
)

// Config is the complete engine configuration. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates the result.
type Config struct {
	Workflow  WorkflowConfig
	Challenge ChallengeConfig
	Profile   ProfileConfig
	Session   SessionConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
WORKFLOW CONFIG
====================================
*/

// WorkflowConfig selects the workflow variant.
type WorkflowConfig struct {
	// RequireVerification makes identity verification mandatory before profile
	// completion. When false, profile completion is reachable from AccountCreated.
	RequireVerification bool

	// MinDocuments and MaxDocuments bound the identity photos per verification
	// (front, back, extra).
	MinDocuments int
	MaxDocuments int

	RequireChallengeToken bool

	// DeriveUsername fills an empty username from the email local part.
	DeriveUsername bool

	// AdoptConflictAfterNetworkError treats a conflict on a retried account
	// creation as success when the previous attempt with identical input in the
	// same workflow failed in transport. The lost request most likely created the
	// account.
	AdoptConflictAfterNetworkError bool
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

type ChallengeConfig struct {
	// Action is used when RequestChallengeToken is called with an empty action.
	Action string
	// Timeout bounds token acquisition when the caller's context has no earlier deadline.
	Timeout time.Duration
}

/*
====================================
PROFILE CONFIG
====================================
*/

type ProfileConfig struct {
	MinAge          int
	MaxAge          int
	BirthDateLayout string
	// AgeTolerance is the allowed difference in years between the stated age and
	// the age computed from the birth date.
	AgeTolerance int
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// CheckExpiry drops a stored JWT session token once its exp claim has passed.
	CheckExpiry bool
	Leeway      time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Workflow: WorkflowConfig{
			RequireVerification:   false,
			MinDocuments:          1,
			MaxDocuments:          3,
			RequireChallengeToken: true,
			DeriveUsername:        true,
		},
		Challenge: ChallengeConfig{
			Action:  "verify_id",
			Timeout: 10 * time.Second,
		},
		Profile: ProfileConfig{
			MinAge:          18,
			MaxAge:          120,
			BirthDateLayout: "2006-01-02",
			AgeTolerance:    1,
		},
		Session: SessionConfig{
			CheckExpiry: true,
			Leeway:      30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Workflow
	if c.Workflow.MinDocuments < 1 {
		return errors.New("Workflow MinDocuments must be >= 1")
	}
	if c.Workflow.MaxDocuments < c.Workflow.MinDocuments {
		return errors.New("Workflow MaxDocuments must be >= MinDocuments")
	}
	if c.Workflow.MaxDocuments > len(documentSides) {
		return errors.New("Workflow MaxDocuments must be <= 3")
	}

	// Challenge
	if strings.TrimSpace(c.Challenge.Action) == "" {
		return errors.New("Challenge Action must not be empty")
	}
	if c.Challenge.Timeout <= 0 {
		return errors.New("Challenge Timeout must be > 0")
	}
	if c.Challenge.Timeout > 2*time.Minute {
		return errors.New("Challenge Timeout must be <= 2m")
	}

	// Profile
	if c.Profile.MinAge < 0 {
		return errors.New("Profile MinAge must be >= 0")
	}
	if c.Profile.MaxAge <= c.Profile.MinAge {
		return errors.New("Profile MaxAge must be > MinAge")
	}
	if c.Profile.MaxAge > 150 {
		return errors.New("Profile MaxAge must be <= 150")
	}
	if strings.TrimSpace(c.Profile.BirthDateLayout) == "" {
		return errors.New("Profile BirthDateLayout must not be empty")
	}
	if c.Profile.AgeTolerance < 0 || c.Profile.AgeTolerance > 2 {
		return errors.New("Profile AgeTolerance must be in [0,2]")
	}

	// Session
	if c.Session.Leeway < 0 || c.Session.Leeway > 5*time.Minute {
		return errors.New("Session Leeway must be in [0,5m]")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.BufferSize > 1<<20 {
		return errors.New("Audit BufferSize must be <= 1048576")
	}

	return nil
}
