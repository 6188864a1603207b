package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const usernameSuffixSize = 3

// NewRequestID returns a random identifier for the X-Request-ID header.
func NewRequestID() string {
	return uuid.NewString()
}

// NewAttemptID returns a random identifier that correlates the audit events of one
// verification attempt.
func NewAttemptID() string {
	return uuid.NewString()
}

// ParseRequestID accepts caller-supplied request ids only when they are valid UUIDs.
func ParseRequestID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("empty request id")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// UsernameSuffix returns a short url-safe random suffix used when a derived username
// has to be made unique by the caller.
func UsernameSuffix() (string, error) {
	var raw [usernameSuffixSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return strings.ToLower(base64.RawURLEncoding.EncodeToString(raw[:])), nil
}
