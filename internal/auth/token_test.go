package auth

import (
	"errors"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService with fixed, known secrets so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(
		"access-test-secret-16-chars-min!",
		"refresh-test-secret-16-chars-min",
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testClaims() Claims {
	return Claims{
		UserID:     "user-123",
		Email:      "user@example.com",
		SupabaseID: "sb-abc",
		SessionID:  "sess-xyz",
	}
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", "refresh-test-secret-16-chars-min")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_IdenticalSecrets(t *testing.T) {
	_, err := NewTokenService("same-secret-16-chars-or-more!!!", "same-secret-16-chars-or-more!!!")
	if err == nil {
		t.Fatal("NewTokenService() should reject identical access and refresh secrets")
	}
}

// =========================================================================
// MINT / VERIFY TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, domain := range []Domain{DomainAccess, DomainRefresh} {
		token, err := ts.Mint(testClaims(), domain)
		if err != nil {
			t.Fatalf("Mint(%s) error = %v", domain, err)
		}

		got, err := ts.Verify(token, domain)
		if err != nil {
			t.Fatalf("Verify(%s) error = %v", domain, err)
		}
		if got.UserID != "user-123" {
			t.Errorf("%s: UserID = %q, want %q", domain, got.UserID, "user-123")
		}
		if got.Email != "user@example.com" {
			t.Errorf("%s: Email = %q, want %q", domain, got.Email, "user@example.com")
		}
		if got.SupabaseID != "sb-abc" {
			t.Errorf("%s: SupabaseID = %q, want %q", domain, got.SupabaseID, "sb-abc")
		}
		if got.SessionID != "sess-xyz" {
			t.Errorf("%s: SessionID = %q, want %q", domain, got.SessionID, "sess-xyz")
		}
	}
}

func TestVerify_DomainIsolation(t *testing.T) {
	ts := newTestTokenService(t)

	// A token minted in one domain must never verify in the other —
	// the domains are signed with independent secrets.
	accessToken, _ := ts.Mint(testClaims(), DomainAccess)
	refreshToken, _ := ts.Mint(testClaims(), DomainRefresh)

	if _, err := ts.Verify(accessToken, DomainRefresh); err == nil {
		t.Error("Verify() accepted an access token in the refresh domain")
	}
	if _, err := ts.Verify(refreshToken, DomainAccess); err == nil {
		t.Error("Verify() accepted a refresh token in the access domain")
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.MintWithDuration(testClaims(), DomainAccess, -1*time.Second)
	if err != nil {
		t.Fatalf("MintWithDuration() error = %v", err)
	}

	_, err = ts.Verify(token, DomainAccess)
	if err == nil {
		t.Fatal("Verify() should reject an expired token regardless of signature validity")
	}
	// The expiry sentinel is for logging only, but it should be present.
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want wrapped ErrTokenExpired", err)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Mint(testClaims(), DomainAccess)

	// Flip the end of the signature segment
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Verify(tampered, DomainAccess)
	if err == nil {
		t.Fatal("Verify() should reject a tampered token")
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Error("tampered token should not be reported as expired")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, _ := NewTokenService(
		"different-access-secret-16-chars",
		"different-refresh-secret-16-char",
	)

	token, _ := ts1.Mint(testClaims(), DomainAccess)

	if _, err := ts2.Verify(token, DomainAccess); err == nil {
		t.Fatal("Verify() should fail under a different secret")
	}
}

func TestVerify_GarbageInput(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "not.a.jwt", "a.b.c.d"} {
		if _, err := ts.Verify(input, DomainAccess); err == nil {
			t.Errorf("Verify(%q) should return an error", input)
		}
	}
}

// =========================================================================
// PAIR TESTS
// =========================================================================

func TestMintPair(t *testing.T) {
	ts := newTestTokenService(t)

	pair, err := ts.MintPair(testClaims())
	if err != nil {
		t.Fatalf("MintPair() error = %v", err)
	}

	if pair.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", pair.ExpiresIn)
	}

	// Both tokens verify in their own domain and share the session ID
	access, err := ts.Verify(pair.AccessToken, DomainAccess)
	if err != nil {
		t.Fatalf("Verify(access) error = %v", err)
	}
	refresh, err := ts.Verify(pair.RefreshToken, DomainRefresh)
	if err != nil {
		t.Fatalf("Verify(refresh) error = %v", err)
	}
	if access.SessionID != refresh.SessionID {
		t.Errorf("session IDs differ across pair: %q vs %q", access.SessionID, refresh.SessionID)
	}
}

// =========================================================================
// DECODE UNVERIFIED TESTS
// =========================================================================

func TestDecodeUnverified(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Mint(testClaims(), DomainAccess)

	c := ts.DecodeUnverified(token)
	if c == nil {
		t.Fatal("DecodeUnverified() returned nil for a well-formed token")
	}
	if c.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", c.UserID, "user-123")
	}
}

func TestDecodeUnverified_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	if c := ts.DecodeUnverified("garbage"); c != nil {
		t.Errorf("DecodeUnverified(garbage) = %+v, want nil", c)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	if NewSessionID() == NewSessionID() {
		t.Error("NewSessionID() returned the same value twice")
	}
}
