package goEnroll

import (
	"context"
	"log/slog"
)

// Phase is a stage of the registration workflow. Phases are ordered; a workflow
// only moves forward or back to PhaseNotStarted on abandonment.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseAccountCreated
	PhaseIdentityVerified
	PhaseProfileCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseAccountCreated:
		return "account_created"
	case PhaseIdentityVerified:
		return "identity_verified"
	case PhaseProfileCompleted:
		return "profile_completed"
	default:
		return "unknown"
	}
}

// SessionToken is the opaque credential issued on login. The core never
// interprets it beyond an optional expiry check.
type SessionToken string

func (t SessionToken) String() string {
	return string(t)
}

// LogValue keeps tokens out of structured logs.
func (t SessionToken) LogValue() slog.Value {
	if t == "" {
		return slog.StringValue("")
	}
	return slog.StringValue("[redacted]")
}

// PhaseOneAccount is the account created in the first workflow step. It is
// immutable once created.
type PhaseOneAccount struct {
	Username string
	Email    string
	Password string
}

// String omits the password.
func (a PhaseOneAccount) String() string {
	return a.Username + " <" + a.Email + ">"
}

func (a PhaseOneAccount) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", a.Username),
		slog.String("email", a.Email),
	)
}

// ProfileDetails is the payload of the profile completion step. JSON names follow
// the account service wire contract.
type ProfileDetails struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	MiddleName  string `json:"middleName,omitempty"`
	NickName    string `json:"nickName"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
	BirthDate   string `json:"birthDate"`
	Age         int    `json:"age"`
	Country     string `json:"country"`
	City        string `json:"city"`
	CivilStatus string `json:"civilStatus"`
	Hobby       string `json:"hobby,omitempty"`
}

// DocumentSide names which face of an identity document a photo shows.
type DocumentSide string

const (
	DocumentFront DocumentSide = "front"
	DocumentBack  DocumentSide = "back"
	DocumentExtra DocumentSide = "extra"
)

// DocumentRef points at one identity document photo. Reference is a filesystem
// path or file:// URI resolved by the AccountService implementation.
type DocumentRef struct {
	Side      DocumentSide
	Reference string
}

// VerificationAttempt is built for one identity verification call and discarded
// when the call returns.
type VerificationAttempt struct {
	ID             string
	Username       string
	Documents      []DocumentRef
	ChallengeToken string
	Ticket         string
}

// WorkflowState is the coordinator's aggregate, returned by value from
// [Workflow.State]. Account is a copy; mutating it has no effect.
type WorkflowState struct {
	Phase              Phase
	Account            *PhaseOneAccount
	LastError          error
	Ticket             string
	VerificationStatus string
}

// RegisterRequest is sent to POST /user/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is sent to POST /user/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token issued by a successful login.
type LoginResponse struct {
	Token string
}

// CompleteProfileRequest is sent to POST /user/complete-profile.
type CompleteProfileRequest struct {
	Username     string
	Details      ProfileDetails
	MarkComplete bool
}

// CompleteProfileResponse is the optional body of a successful profile save.
// Ticket is forwarded on the next identity verification call.
type CompleteProfileResponse struct {
	Message  string `json:"message,omitempty"`
	Ticket   string `json:"verificationToken,omitempty"`
	Username string `json:"username,omitempty"`
}

// VerifyIdentityRequest is sent to POST /user/verify-id as a multipart form.
type VerifyIdentityRequest struct {
	Username       string
	Documents      []DocumentRef
	ChallengeToken string
	Ticket         string
}

// VerifyIdentityResponse is the body of a successful identity verification.
type VerifyIdentityResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccountService is the remote account API. Implementations report failures as
// *ServiceError; any other error is treated as a transport failure. Login may also
// return *ProfileIncompleteError or *IdentityUnverifiedError.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	CompleteProfile(ctx context.Context, req CompleteProfileRequest) (CompleteProfileResponse, error)
	VerifyIdentity(ctx context.Context, req VerifyIdentityRequest) (VerifyIdentityResponse, error)
}

// CredentialStore is the single session-token slot. Token returns "" when no
// token is stored.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// ChallengeProvider produces a one-time proof-of-humanity token for action.
type ChallengeProvider interface {
	Token(ctx context.Context, action string) (string, error)
}
