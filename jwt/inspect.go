package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for tokens that are not three-segment JWTs.
// Session tokens are opaque to the client, so callers treat ErrNotJWT as
// "expiry unknown" rather than as a failure.
var ErrNotJWT = errors.New("token is not a jwt")

// Info is the unverified view of a session token the client can read without a key.
type Info struct {
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasExpiry reports whether the token carries an exp claim.
func (i Info) HasExpiry() bool {
	return !i.ExpiresAt.IsZero()
}

// Expired reports whether the token expired before now-leeway.
func (i Info) Expired(now time.Time, leeway time.Duration) bool {
	if !i.HasExpiry() {
		return false
	}
	return now.Add(-leeway).After(i.ExpiresAt)
}

// TTL returns the remaining lifetime at now, or zero when the token carries no
// expiry or has already expired.
func (i Info) TTL(now time.Time) time.Duration {
	if !i.HasExpiry() {
		return 0
	}
	d := i.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Inspect decodes the claims of tokenStr without verifying its signature.
func Inspect(tokenStr string) (Info, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return Info{}, ErrNotJWT
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return Info{}, errors.Join(ErrNotJWT, err)
	}

	info := Info{Username: claims.Username}
	if info.Username == "" {
		info.Username = claims.Subject
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}
