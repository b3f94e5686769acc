// Package supabase implements provider.IdentityProvider against the Supabase
// GoTrue auth API.
//
// ENDPOINTS USED:
//
//	GET  /auth/v1/user                        → verify a user's access token
//	POST /auth/v1/admin/users                 → create a confirmed account
//	POST /auth/v1/token?grant_type=password   → exchange credentials for a session
//
// Every request carries the project's service-role key in the apikey header.
// The admin endpoints additionally authorize with the service key as a bearer
// token; the verify endpoint authorizes with the user's own token.
//
// The client is constructed once in the composition root and shared — it
// wraps a single http.Client whose connection pool is reused across requests.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/afyapp/backend/internal/provider"
)

// compile-time check that *Client implements provider.IdentityProvider
var _ provider.IdentityProvider = (*Client)(nil)

// defaultTimeout bounds every provider call. GoTrue normally answers in tens
// of milliseconds; anything past this is an outage and should fail the
// request rather than hold it open.
const defaultTimeout = 10 * time.Second

// Client talks to one Supabase project's auth API.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the given project URL and service-role key.
func New(baseURL, serviceKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// gotrueUser is the portion of GoTrue's user object we care about. GoTrue
// returns a much larger object — we only unmarshal the fields we need.
type gotrueUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`

	// Identities lists the auth methods linked to the account. Some GoTrue
	// versions signal "this email is already registered" not with an error
	// but with a successful create whose identities list is empty.
	Identities []json.RawMessage `json:"identities"`
}

// gotrueError covers the message field names GoTrue has used across
// versions. Exactly one is populated per response.
type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e *gotrueError) text() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	default:
		return e.ErrorDescription
	}
}

func toIdentity(u *gotrueUser) *provider.Identity {
	return &provider.Identity{
		ID:               u.ID,
		Email:            u.Email,
		Phone:            u.Phone,
		EmailConfirmedAt: u.EmailConfirmedAt,
		LastSignInAt:     u.LastSignInAt,
	}
}

// VerifyToken asks GoTrue who a bearer token belongs to.
//
// Every failure — expired token, revoked account, network error, cancelled
// context — comes back as an error with the detail logged here; the caller
// only needs to know the token did not verify.
func (c *Client) VerifyToken(ctx context.Context, token string) (*provider.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: building verify request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("supabase token verification transport failure",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("supabase: verifying token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ge gotrueError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		c.logger.Warn("supabase rejected token",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", ge.text()),
		)
		return nil, fmt.Errorf("supabase: token rejected (status %d)", resp.StatusCode)
	}

	var u gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("supabase: decoding user response: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("supabase: user response has no id")
	}

	return toIdentity(&u), nil
}

// CreateUser provisions a confirmed account via the admin API, then signs it
// in with the password grant so the caller gets a usable session token.
//
// ORDER MATTERS: the admin create must succeed before the sign-in, and the
// caller must not create any local state before this method returns — a
// local user row must never reference a provider account that was not
// created.
func (c *Client) CreateUser(ctx context.Context, email, password string) (*provider.Identity, string, error) {
	body, err := json.Marshal(map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true, // admin-provisioned accounts skip the confirmation mail
	})
	if err != nil {
		return nil, "", fmt.Errorf("supabase: encoding create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/admin/users", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("supabase: building create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("supabase: creating user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge gotrueError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		msg := ge.text()
		if msg == "" {
			msg = fmt.Sprintf("user creation failed (status %d)", resp.StatusCode)
		}
		c.logger.Warn("supabase user creation rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", msg),
		)
		return nil, "", &provider.Error{Kind: provider.Classify(msg), Message: msg}
	}

	var u gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, "", fmt.Errorf("supabase: decoding create response: %w", err)
	}
	if u.ID == "" {
		return nil, "", fmt.Errorf("supabase: create response has no id")
	}

	// A "successful" create with no linked identities means the email was
	// already registered — GoTrue's quiet way of refusing a duplicate.
	if len(u.Identities) == 0 {
		return nil, "", &provider.Error{
			Kind:    provider.KindAccountExists,
			Message: "email address has already been registered",
		}
	}

	sessionToken, err := c.signIn(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	return toIdentity(&u), sessionToken, nil
}

// signIn exchanges email/password for a GoTrue session via the password
// grant and returns the access token.
func (c *Client) signIn(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("supabase: encoding sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("supabase: building sign-in request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase: signing in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ge gotrueError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		c.logger.Warn("supabase sign-in rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", ge.text()),
		)
		return "", fmt.Errorf("supabase: sign-in rejected (status %d)", resp.StatusCode)
	}

	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("supabase: decoding session response: %w", err)
	}
	if session.AccessToken == "" {
		return "", fmt.Errorf("supabase: session response has no access token")
	}

	return session.AccessToken, nil
}
