package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key, any
// package that knows the string could read or shadow the value. An unexported
// key type means only this package can attach or read identities.
type contextKey string

const identityKey contextKey = "identity"

// Identity is what the middleware attaches to the request context after a
// token passes verification. Handlers read it via IdentityFromContext.
type Identity struct {
	UserID     string
	Email      string
	SupabaseID string
	SessionID  string
}

// RequireAuth enforces authentication on protected routes.
//
// It reads the Authorization header, verifies the bearer token in the ACCESS
// domain, and stores the resolved Identity in the request context. The check
// is terminal in one step — the first failure rejects with 401 and a stable
// JSON body, and no partially-authenticated state ever reaches a handler.
//
// The three rejection messages are deliberately distinct so clients can tell
// a missing header from a malformed one from a bad token, without leaking
// whether a bad token was expired or tampered with.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, "No authorization header provided")
				return
			}

			tokenStr, ok := bearerToken(header)
			if !ok {
				writeUnauthorized(w, "Invalid authorization format. Use: Bearer <token>")
				return
			}

			claims, err := tokens.Verify(tokenStr, DomainAccess)
			if err != nil {
				// Expired vs tampered is visible in server logs via the
				// wrapped error; the client sees one uniform message.
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := withIdentity(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the identity if a valid token is present but never
// rejects the request.
//
// Use on routes where anonymous access is fine but logged-in users get more:
// handlers branch on IdentityFromContext returning (nil, false) for
// anonymous requests.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if claims, err := tokens.Verify(tokenStr, DomainAccess); err == nil {
					r = r.WithContext(withIdentity(r.Context(), claims))
				}
			}
			// Always continue — no 401 even on failure
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. Returns (nil, false) if the request is anonymous.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

func withIdentity(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, identityKey, &Identity{
		UserID:     c.UserID,
		Email:      c.Email,
		SupabaseID: c.SupabaseID,
		SessionID:  c.SessionID,
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Returns ok=false for an empty header, a different scheme
// (e.g. "Token abc"), or a missing token part.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// writeUnauthorized sends a 401 with the standard error body shape.
// Kept local to avoid importing the handler package from middleware.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      message,
		"statusCode": http.StatusUnauthorized,
	})
}
