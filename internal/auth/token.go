// Package auth provides JWT token generation, validation, and the request
// authorization middleware for the API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. The client authenticates with Supabase (password, magic link, OAuth —
//    Supabase's concern, not ours) and receives a Supabase access token
// 2. POST /auth/login exchanges that token for our own token pair
// 3. The access token (1h) authorizes API requests via the Bearer header
// 4. The refresh token (7d) is redeemed at POST /auth/refresh for a new pair
//    bound to the same session ID
//
// WHY TWO TOKENS, TWO SECRETS?
// The pair decouples "prove identity now" from "extend the session later".
// Each domain is signed with its own HMAC secret, so a leaked access secret
// cannot be used to forge refresh tokens and keep a session alive forever.
// A token minted in one domain never verifies in the other, even though both
// carry the same claims shape.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// Issuer and Audience are fixed for every token this service mints.
	// Verification rejects tokens carrying anything else, which stops
	// tokens minted by other apps sharing a secret from being replayed here.
	Issuer   = "afy-backend"
	Audience = "afy-client"

	// AccessTokenTTL bounds how long a stolen access token is useful.
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is the maximum length of one login session; after
	// this the user must re-authenticate with Supabase.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Domain selects which signing secret and TTL a token is bound to.
type Domain int

const (
	DomainAccess Domain = iota
	DomainRefresh
)

// String is used in logs and error messages.
func (d Domain) String() string {
	if d == DomainRefresh {
		return "refresh"
	}
	return "access"
}

// ErrTokenExpired is surfaced (wrapped) by Verify when the only problem with
// a token is that its expiry has passed. Callers must NOT branch on it for
// client-visible behavior — expired and malformed both mean "invalid" to the
// client — it exists so logs can tell the two apart.
var ErrTokenExpired = errors.New("auth: token expired")

// Claims is the payload carried by both token domains.
//
// SupabaseID is the external identity's opaque ID as verified at login time.
// Tokens minted by Refresh carry an empty SupabaseID because no fresh
// Supabase verification happens on refresh — a known limitation, not hidden.
type Claims struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	SupabaseID string `json:"supabaseId"`
	SessionID  string `json:"sessionId"`
	jwt.RegisteredClaims
}

// TokenPair is what login, signup, and refresh hand back to the client.
// ExpiresIn is the access token lifetime in seconds (3600).
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// TokenService signs and verifies tokens for both domains.
//
// It is a pure function of its two secrets — no storage, no network. Session
// validity is derived entirely from the signed token, which is why the server
// needs no shared session table.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewTokenService creates a TokenService with the given secrets.
// Each secret should be at least 32 bytes of random data in production.
// Example: JWT_ACCESS_SECRET=$(openssl rand -hex 32)
func NewTokenService(accessSecret, refreshSecret string) (*TokenService, error) {
	if len(accessSecret) < 16 || len(refreshSecret) < 16 {
		return nil, errors.New("auth: JWT secrets must be at least 16 characters")
	}
	if accessSecret == refreshSecret {
		// Identical secrets would collapse the two domains into one.
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// NewSessionID returns a fresh opaque session identifier.
// One session ID links an access/refresh pair to a single login episode and
// survives every refresh of that session.
func NewSessionID() string {
	return xid.New().String()
}

func (s *TokenService) secretFor(d Domain) []byte {
	if d == DomainRefresh {
		return s.refreshSecret
	}
	return s.accessSecret
}

func ttlFor(d Domain) time.Duration {
	if d == DomainRefresh {
		return RefreshTokenTTL
	}
	return AccessTokenTTL
}

// Mint creates and signs a token in the given domain.
//
// The caller supplies identity claims (UserID, Email, SupabaseID, SessionID);
// Mint fills in issuer, audience, issued-at, and expiry (now + the domain's
// TTL). Signing algorithm is HS256 in both domains.
func (s *TokenService) Mint(c Claims, d Domain) (string, error) {
	return s.MintWithDuration(c, d, ttlFor(d))
}

// MintWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) MintWithDuration(c Claims, d Domain, ttl time.Duration) (string, error) {
	now := time.Now()

	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secretFor(d))
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", d, err)
	}

	return signed, nil
}

// MintPair mints an access and a refresh token carrying the same claims and
// session ID. Both tokens are minted from the same wall-clock instant.
func (s *TokenService) MintPair(c Claims) (*TokenPair, error) {
	access, err := s.Mint(c, DomainAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Mint(c, DomainRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
	}, nil
}

// Verify parses a token and checks it against the given domain.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid under the domain's secret
//   - Algorithm is HS256 (WithValidMethods blocks algorithm confusion)
//   - Issuer is "afy-backend" and audience contains "afy-client"
//   - Expiry is present and in the future
//
// Any failure yields an error; there is no partial-trust result. An expired
// token wraps ErrTokenExpired so logs can distinguish it, but callers must
// treat every non-nil error as one uniform "invalid credential" outcome.
func (s *TokenService) Verify(tokenStr string, d Domain) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretFor(d), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w (%s domain)", ErrTokenExpired, d)
		}
		return nil, fmt.Errorf("auth: invalid %s token: %w", d, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid %s token claims", d)
	}

	if c.UserID == "" {
		return nil, fmt.Errorf("auth: %s token has no user ID", d)
	}

	return c, nil
}

// DecodeUnverified parses a token's payload WITHOUT checking the signature.
//
// Diagnostics only — never use the result for an authorization decision.
// Returns nil if the token isn't even structurally a JWT.
func (s *TokenService) DecodeUnverified(tokenStr string) *Claims {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return nil
	}
	return &c
}
