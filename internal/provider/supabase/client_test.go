package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/afyapp/backend/internal/provider"
)

const testServiceKey = "service-role-key"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestClient spins up a fake GoTrue server and a Client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, testServiceKey, quietLogger())
}

// =========================================================================
// VerifyToken TESTS
// =========================================================================

func TestVerifyToken_Valid(t *testing.T) {
	var gotAuth, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q, want /auth/v1/user", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "sb-user-1",
			"email": "alice@example.com",
			"phone": "",
		})
	})

	id, err := c.VerifyToken(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}

	if id.ID != "sb-user-1" {
		t.Errorf("ID = %q, want %q", id.ID, "sb-user-1")
	}
	if id.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", id.Email, "alice@example.com")
	}
	// The user's own token authorizes the verify call, not the service key
	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer user-token")
	}
	if gotKey != testServiceKey {
		t.Errorf("apikey = %q, want %q", gotKey, testServiceKey)
	}
}

func TestVerifyToken_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"msg": "invalid JWT"})
	})

	if _, err := c.VerifyToken(context.Background(), "bad-token"); err == nil {
		t.Fatal("VerifyToken() should return an error for a rejected token")
	}
}

func TestVerifyToken_TransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", testServiceKey, quietLogger())

	// A connection failure must resolve to an error, never a panic
	if _, err := c.VerifyToken(context.Background(), "token"); err == nil {
		t.Fatal("VerifyToken() should return an error when the provider is unreachable")
	}
}

func TestVerifyToken_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "sb-1"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.VerifyToken(ctx, "token"); err == nil {
		t.Fatal("VerifyToken() should return an error on a cancelled context")
	}
}

// =========================================================================
// CreateUser TESTS
// =========================================================================

func TestCreateUser_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/admin/users":
			if auth := r.Header.Get("Authorization"); auth != "Bearer "+testServiceKey {
				t.Errorf("admin Authorization = %q, want service key bearer", auth)
			}
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["email_confirm"] != true {
				t.Error("admin create should set email_confirm=true")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":         "sb-new",
				"email":      "new@example.com",
				"identities": []map[string]string{{"provider": "email"}},
			})
		case "/auth/v1/token":
			if r.URL.Query().Get("grant_type") != "password" {
				t.Errorf("grant_type = %q, want password", r.URL.Query().Get("grant_type"))
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": "sb-session-token"})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, session, err := c.CreateUser(context.Background(), "new@example.com", "str0ng-pass!")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if id.ID != "sb-new" {
		t.Errorf("ID = %q, want %q", id.ID, "sb-new")
	}
	if session != "sb-session-token" {
		t.Errorf("session token = %q, want %q", session, "sb-session-token")
	}
}

func TestCreateUser_AlreadyRegistered(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "A user with this email address has already been registered",
		})
	})

	_, _, err := c.CreateUser(context.Background(), "dupe@example.com", "pass")

	var pErr *provider.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("CreateUser() error = %v, want *provider.Error", err)
	}
	if pErr.Kind != provider.KindAccountExists {
		t.Errorf("Kind = %v, want KindAccountExists", pErr.Kind)
	}
}

func TestCreateUser_EmptyIdentitiesQuirk(t *testing.T) {
	// Some GoTrue versions report a duplicate not as an error but as a
	// success whose identities list is empty.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "sb-existing",
			"email":      "dupe@example.com",
			"identities": []any{},
		})
	})

	_, _, err := c.CreateUser(context.Background(), "dupe@example.com", "pass")

	var pErr *provider.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("CreateUser() error = %v, want *provider.Error", err)
	}
	if pErr.Kind != provider.KindAccountExists {
		t.Errorf("Kind = %v, want KindAccountExists", pErr.Kind)
	}
}

func TestCreateUser_WeakPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "Password should be at least 6 characters",
		})
	})

	_, _, err := c.CreateUser(context.Background(), "a@example.com", "x")

	var pErr *provider.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("CreateUser() error = %v, want *provider.Error", err)
	}
	if pErr.Kind != provider.KindWeakCredential {
		t.Errorf("Kind = %v, want KindWeakCredential", pErr.Kind)
	}
}

func TestCreateUser_SignInFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/admin/users":
			json.NewEncoder(w).Encode(map[string]any{
				"id":         "sb-new",
				"email":      "new@example.com",
				"identities": []map[string]string{{"provider": "email"}},
			})
		case "/auth/v1/token":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error_description": "invalid grant"})
		}
	})

	if _, _, err := c.CreateUser(context.Background(), "new@example.com", "pass"); err == nil {
		t.Fatal("CreateUser() should fail when the follow-up sign-in fails")
	}
}
