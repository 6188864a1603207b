package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatal("expected zero TTL to fail")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected hs256 without key to fail")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected ed25519 without public key to fail")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: "rs256"}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "tander",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("alice", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Username != "alice" || !claims.ProfileCompleted {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Issue(" ", false); err == nil {
		t.Fatal("expected empty username to be rejected")
	}
}

func TestParseRejectsWrongAlgorithmAndIssuer(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Issuer: "tander"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := SessionClaims{Username: "alice", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "tander",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	hs, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if _, err := m.Parse(hs); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}

	claims.Issuer = "other"
	other, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if _, err := m.Parse(other); err == nil {
		t.Fatal("expected wrong issuer to be rejected")
	}

	claims.Issuer = "tander"
	claims.ExpiresAt = nil
	noExp, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if _, err := m.Parse(noExp); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestParseLeeway(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret, Leeway: 30 * time.Second})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	within := SessionClaims{Username: "bob", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, within).SignedString(secret)
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := SessionClaims{Username: "bob", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
	}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, expired).SignedString(secret)
	if _, err := m.Parse(tok); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Issue("carol", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	info, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Username != "carol" || !info.HasExpiry() {
		t.Fatalf("unexpected info: %+v", info)
	}
	now := time.Now()
	if info.Expired(now, 0) {
		t.Fatal("fresh token must not be expired")
	}
	if !info.Expired(now.Add(2*time.Hour), 30*time.Second) {
		t.Fatal("token must be expired two hours later")
	}
	if ttl := info.TTL(now); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if _, err := Inspect("opaque-session-token"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
	if _, err := Inspect("a.b.c"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT for malformed jwt, got %v", err)
	}
}

func FuzzInspect(f *testing.F) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("fuzz-secret")})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := m.Issue("fuzz", false)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		info, err := Inspect(input)
		if err != nil {
			return
		}
		if info.Expired(time.Now(), 0) && !info.HasExpiry() {
			t.Fatal("token without expiry reported expired")
		}
	})
}
