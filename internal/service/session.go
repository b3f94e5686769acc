// Package service — session issuance business logic.
//
// SessionService is the orchestration layer between the HTTP handlers and
// the collaborators:
//
//	AuthHandler (HTTP) → SessionService (business rules) → UserRepository (DB)
//	                   ↘ provider.IdentityProvider (Supabase)
//	                   ↘ auth.TokenService (JWT pair)
//
// KEY RESPONSIBILITIES:
//   - Exchange a verified Supabase identity for a local user + token pair
//   - Enforce ordering: provider account before local row before minting,
//     so a token can never reference a user that doesn't exist
//   - Translate collaborator failures into the apperror taxonomy — raw
//     provider or storage errors never reach a handler untyped
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/afyapp/backend/internal/apperror"
	"github.com/afyapp/backend/internal/auth"
	"github.com/afyapp/backend/internal/model"
	"github.com/afyapp/backend/internal/provider"
	"github.com/afyapp/backend/internal/repository"
)

// SessionService handles login, signup, refresh, and current-user lookups.
type SessionService struct {
	users    repository.UserRepository
	identity provider.IdentityProvider
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewSessionService creates a SessionService with all dependencies injected.
// Called from the composition root in server.go.
func NewSessionService(
	users repository.UserRepository,
	identity provider.IdentityProvider,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		identity: identity,
		tokens:   tokens,
		logger:   logger,
	}
}

// SessionResult bundles the user record and the issued token pair so the
// handler can respond in one step.
type SessionResult struct {
	User   *model.User
	Tokens *auth.TokenPair
}

// Login exchanges a Supabase access token for an internal session.
//
// The local user is found by the VERIFIED email (never by anything the
// client sent) and created lazily on first login with a nil name. Creation
// is idempotent: a second login with the same verified email attaches to the
// existing row, and a concurrent-create race falls back to the winner's row.
func (s *SessionService) Login(ctx context.Context, supabaseToken string) (*SessionResult, error) {
	identity, err := s.identity.VerifyToken(ctx, supabaseToken)
	if err != nil {
		s.logger.Warn("login: supabase token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized("Invalid Supabase token")
	}

	user, err := s.findOrCreateUser(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("service/session: resolving user for %s: %w", identity.Email, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("supabaseID", identity.ID),
	)

	return s.mintSession(user, identity.ID)
}

// Signup provisions a Supabase account and a local user, then issues a
// session.
//
// ORDERING INVARIANT: the provider account must exist before the local row
// is written, and the local row before any token is minted. A failure at any
// step aborts before the next, so no credential can reference a missing
// user.
//
// The local row's email comes from the provider's response, not the raw
// client input — the provider canonicalizes the address (trim, lowercase)
// and the two must not diverge.
func (s *SessionService) Signup(ctx context.Context, email, password string, name *string) (*SessionResult, error) {
	identity, _, err := s.identity.CreateUser(ctx, email, password)
	if err != nil {
		var pErr *provider.Error
		if errors.As(err, &pErr) {
			return nil, translateProviderError(pErr)
		}
		return nil, fmt.Errorf("service/session: creating supabase account: %w", err)
	}

	user := &model.User{
		Email: identity.Email,
		Name:  name,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Provider account was new but a local row already exists
			// (e.g. seeded out-of-band). Surface the same conflict the
			// client would get for a duplicate provider account.
			return nil, apperror.Conflict("User already exists with this email")
		}
		return nil, fmt.Errorf("service/session: creating local user for %s: %w", identity.Email, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("supabaseID", identity.ID),
	)

	return s.mintSession(user, identity.ID)
}

// Refresh redeems a refresh token for a new pair bound to the SAME session.
//
// The user is re-fetched from storage by the token's user ID — email and any
// other claims from the old token are never trusted, so account changes made
// since the pair was minted are reflected in the new one. The new pair's
// SupabaseID is empty: no fresh Supabase verification happens on refresh,
// which is a documented limitation of the stateless design.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.DomainRefresh)
	if err != nil {
		s.logger.Warn("refresh: token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, fmt.Errorf("service/session: fetching user %s: %w", claims.UserID, err)
	}

	pair, err := s.tokens.MintPair(auth.Claims{
		UserID:     user.ID,
		Email:      user.Email,
		SupabaseID: "", // not re-verified on refresh
		SessionID:  claims.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("service/session: minting refreshed pair for %s: %w", user.ID, err)
	}

	s.logger.Info("session refreshed",
		slog.String("userID", user.ID),
		slog.String("sessionID", claims.SessionID),
	)

	return pair, nil
}

// CurrentUser re-fetches the user row for an authenticated identity.
// Returns apperror.ErrNotFound if the row was deleted out-of-band — the
// token can outlive the row it references.
func (s *SessionService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("service/session: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: fetching user %s: %w", userID, err)
	}

	return user, nil
}

// findOrCreateUser looks up the user by verified email, creating the row
// lazily on first login. A conflict on create means another request created
// the row between our lookup and insert — re-fetch and use it.
func (s *SessionService) findOrCreateUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	user = &model.User{Email: email}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return s.users.GetByEmail(ctx, email)
		}
		return nil, err
	}

	s.logger.Info("local user created on first login", slog.String("userID", user.ID))
	return user, nil
}

// mintSession issues a fresh token pair with a new session ID.
func (s *SessionService) mintSession(user *model.User, supabaseID string) (*SessionResult, error) {
	pair, err := s.tokens.MintPair(auth.Claims{
		UserID:     user.ID,
		Email:      user.Email,
		SupabaseID: supabaseID,
		SessionID:  auth.NewSessionID(),
	})
	if err != nil {
		return nil, fmt.Errorf("service/session: minting pair for %s: %w", user.ID, err)
	}

	return &SessionResult{User: user, Tokens: pair}, nil
}

// translateProviderError maps a classified provider failure into the
// apperror taxonomy. Account-exists becomes a conflict with a stable
// message; the rest are client errors carrying the provider's wording.
func translateProviderError(pErr *provider.Error) error {
	switch pErr.Kind {
	case provider.KindAccountExists:
		return apperror.Conflict("User already exists with this email")
	case provider.KindWeakCredential:
		return apperror.ValidationFailed("password", pErr.Message)
	case provider.KindInvalidIdentifier:
		return apperror.ValidationFailed("email", pErr.Message)
	default:
		return apperror.ValidationFailed("", pErr.Message)
	}
}
