package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/afyapp/backend/internal/auth"
	"github.com/afyapp/backend/internal/model"
	"github.com/afyapp/backend/internal/service"
)

// AuthHandler exposes the session endpoints.
//
//	POST /auth/signup  → create a Supabase account + local user, issue a pair
//	POST /auth/login   → exchange a Supabase token for our pair
//	POST /auth/refresh → redeem a refresh token for a new pair
//	POST /auth/logout  → stateless acknowledgement (protected)
//	GET  /auth/me      → current user profile (protected)
//
// The handler owns HTTP concerns only: decoding bodies, field presence
// checks, and response shapes. All rules live in SessionService.
type AuthHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
	dev      bool
}

// NewAuthHandler creates an AuthHandler. dev controls whether 500 responses
// include internal error detail.
func NewAuthHandler(sessions *service.SessionService, logger *slog.Logger, dev bool) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
		dev:      dev,
	}
}

// userSummary is the user shape embedded in session responses.
type userSummary struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// sessionResponse is returned by login and signup.
type sessionResponse struct {
	User         userSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int         `json:"expiresIn"`
}

func toSessionResponse(r *service.SessionResult) sessionResponse {
	return sessionResponse{
		User: userSummary{
			ID:    r.User.ID,
			Email: r.User.Email,
			Name:  r.User.Name,
		},
		AccessToken:  r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
		ExpiresIn:    r.Tokens.ExpiresIn,
	}
}

// HandleLogin exchanges a Supabase access token for our session tokens.
//
// HTTP: POST /auth/login {"supabaseToken": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SupabaseToken string `json:"supabaseToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}
	if req.SupabaseToken == "" {
		writeValidationError(w, "supabaseToken is required")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.SupabaseToken)
	if err != nil {
		writeError(w, h.logger, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(result))
}

// HandleSignup creates a Supabase account plus a local user and issues a
// session in one round trip.
//
// HTTP: POST /auth/signup {"email": "...", "password": "...", "name": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}
	if req.Email == "" {
		writeValidationError(w, "email is required")
		return
	}
	if req.Password == "" {
		writeValidationError(w, "password is required")
		return
	}

	result, err := h.sessions.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err, h.dev)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(result))
}

// HandleRefresh redeems a refresh token for a fresh pair bound to the same
// session.
//
// HTTP: POST /auth/refresh {"refreshToken": "..."}
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeValidationError(w, "refreshToken is required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.logger, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// HandleLogout acknowledges a logout.
//
// HTTP: POST /auth/logout (protected)
//
// There is no server-side revocation list — session validity lives entirely
// in the signed tokens, so "logout" means the client discards its pair. The
// tokens remain technically valid until expiry. True revocation would need a
// shared session-ID blacklist, which this design deliberately omits.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		h.logger.Info("user logged out",
			slog.String("userID", id.UserID),
			slog.String("sessionID", id.SessionID),
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// meResponse is the profile shape returned by /auth/me.
type meResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /auth/me (protected)
//
// The row is re-fetched from storage rather than echoed from token claims —
// a valid token can outlive its user, in which case this returns 404.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:      "Not authenticated",
			StatusCode: http.StatusUnauthorized,
		})
		return
	}

	user, err := h.sessions.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.logger, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, toMeResponse(user))
}

func toMeResponse(u *model.User) meResponse {
	return meResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
