package accounttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goEnroll "github.com/MrEthical07/goEnroll"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterAndDuplicate(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	req := goEnroll.RegisterRequest{Username: "alice", Email: "alice@x.com", Password: "pw"}

	if resp := postJSON(t, ts.URL+"/user/register", req); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/user/register", req); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	other := goEnroll.RegisterRequest{Username: "alice2", Email: "ALICE@x.com", Password: "pw"}
	if resp := postJSON(t, ts.URL+"/user/register", other); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	if resp := postJSON(t, ts.URL+"/user/register", goEnroll.RegisterRequest{Username: "x"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if srv.Calls(OpRegister) != 4 {
		t.Fatalf("expected 4 register calls, got %d", srv.Calls(OpRegister))
	}
	u, ok := srv.User("alice")
	if !ok {
		t.Fatal("expected alice stored")
	}
	if u.Password != "" || !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
		t.Fatalf("expected only an argon2id hash stored, got %+v", u)
	}
}

func TestLoginProfileIncompleteBody(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	srv.SeedUser(User{Username: "bob", Email: "bob@x.com", Password: "pw"})

	resp := postJSON(t, ts.URL+"/user/login", goEnroll.LoginRequest{Username: "bob", Password: "pw"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["profileCompleted"] != false || body["username"] != "bob" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	srv.SeedUser(User{Username: "carol", Email: "carol@x.com", Password: "pw", ProfileCompleted: true, IDVerified: true})

	resp := postJSON(t, ts.URL+"/user/login", goEnroll.LoginRequest{Username: "carol", Password: "pw"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	token := resp.Header.Get("Jwt-Token")
	if _, err := srv.Tokens().Parse(token); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Login Successfully!" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestInjectedFailure(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	srv.FailNext(OpLogin, Failure{Status: http.StatusTooManyRequests, Message: "slow down"})

	resp := postJSON(t, ts.URL+"/user/login", goEnroll.LoginRequest{Username: "x", Password: "y"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected injected 429, got %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/user/login", goEnroll.LoginRequest{Username: "x", Password: "y"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected failure consumed, got %d", resp.StatusCode)
	}
}

func TestCompleteProfileDraftsMerge(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	srv.SeedUser(User{Username: "dan", Email: "dan@x.com", Password: "pw"})

	resp := postJSON(t, ts.URL+"/user/complete-profile?username=dan&markAsComplete=false", goEnroll.ProfileDetails{FirstName: "Dan"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/user/complete-profile?username=dan&markAsComplete=false", goEnroll.ProfileDetails{City: "Davao", Age: 61})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	u, _ := srv.User("dan")
	if u.Profile.FirstName != "Dan" || u.Profile.City != "Davao" || u.Profile.Age != 61 {
		t.Fatalf("expected merged draft, got %+v", u.Profile)
	}
	if u.ProfileCompleted {
		t.Fatal("draft must not complete the profile")
	}

	resp = postJSON(t, ts.URL+"/user/complete-profile?username=dan", goEnroll.ProfileDetails{FirstName: "Dan"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected incomplete details rejected, got %d", resp.StatusCode)
	}
}
