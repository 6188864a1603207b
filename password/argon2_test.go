package password

import (
	"errors"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(DefaultParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("P@ssw0rd!")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	ok, err := h.Verify("P@ssw0rd!", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("P@ssw0rd?", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestHashEmptyPassword(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	p := DefaultParams()
	p.Memory = 1024
	if _, err := NewHasher(p); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)
	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	} {
		if _, err := h.Verify("pw", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%q: expected ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("P@ssw0rd!")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if stale, err := weak.NeedsRehash(encoded); err != nil || stale {
		t.Fatalf("expected no rehash with same params, got %v %v", stale, err)
	}

	p := DefaultParams()
	p.Time = 2
	strong, err := NewHasher(p)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if stale, err := strong.NeedsRehash(encoded); err != nil || !stale {
		t.Fatalf("expected rehash for stronger params, got %v %v", stale, err)
	}
	if ok, err := strong.Verify("P@ssw0rd!", encoded); err != nil || !ok {
		t.Fatalf("expected old hash to verify under new params, got %v %v", ok, err)
	}
}
