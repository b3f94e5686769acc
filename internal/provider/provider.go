// Package provider defines the boundary to the external identity provider.
//
// Supabase owns passwords, email confirmation, and account lifecycle. This
// package treats it as a black-box capability: verify a token, create an
// account. The concrete HTTP client lives in the supabase subpackage; the
// service layer depends only on the IdentityProvider interface so tests can
// substitute a fake.
package provider

import (
	"context"
	"time"
)

// Identity is the normalized verification result returned by the provider.
//
// It is never persisted — it is re-derived on every token check, so revoked
// or deleted provider accounts stop verifying immediately.
type Identity struct {
	ID               string     // provider's opaque user ID
	Email            string     // verified email (may be empty if phone-only)
	Phone            string     // optional
	EmailConfirmedAt *time.Time // nil until the provider confirms the email
	LastSignInAt     *time.Time // nil before the first sign-in
}

// IdentityProvider is the capability surface the rest of the app uses.
//
// Both methods must contain every provider-side and transport failure inside
// an error return — nothing panics past this boundary, and a cancelled
// context resolves to an error like any other failure.
type IdentityProvider interface {
	// VerifyToken validates a bearer token issued by the provider and
	// returns the identity it belongs to. Any rejection — bad token,
	// transport failure, provider outage — is an error; callers treat
	// all of them as "not authenticated".
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// CreateUser provisions a confirmed account and immediately exchanges
	// the credentials for a provider session token, so the caller can mint
	// internal credentials without a second round trip.
	//
	// Account-shaped failures come back as *Error with a classified Kind.
	CreateUser(ctx context.Context, email, password string) (*Identity, string, error)
}
