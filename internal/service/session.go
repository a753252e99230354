package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/supabase"
)

// SessionGateway handles the delegated-identity path: every method wraps one
// provider call and normalizes its failure into the error taxonomy.
type SessionGateway struct {
	client *supabase.Client
}

// NewSessionGateway creates a gateway over the provider client.
func NewSessionGateway(client *supabase.Client) *SessionGateway {
	return &SessionGateway{client: client}
}

// AuthResult is a provider user plus, when the provider issued one, its
// session.
type AuthResult struct {
	User    *supabase.AuthUser `json:"user"`
	Session *supabase.Session  `json:"session,omitempty"`
}

// SignUp registers an account with the identity provider.
func (g *SessionGateway) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthResult, error) {
	sess, err := g.client.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if sess.User == nil {
		return nil, fmt.Errorf("user registration failed: %w", apperrors.ErrBackendUnavailable)
	}
	result := &AuthResult{User: sess.User}
	if sess.AccessToken != "" {
		result.Session = sess
	}
	return result, nil
}

// SignIn exchanges credentials for a session. Invalid credentials map to
// ErrInvalidCredentials, never to a generic failure.
func (g *SessionGateway) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	sess, err := g.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if sess.User == nil || sess.AccessToken == "" {
		return nil, fmt.Errorf("no session issued: %w", apperrors.ErrInvalidCredentials)
	}
	return &AuthResult{User: sess.User, Session: sess}, nil
}

// Refresh exchanges a refresh token for a new session, superseding the old
// access token.
func (g *SessionGateway) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sess, err := g.client.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("no session issued: %w", apperrors.ErrInvalidToken)
	}
	return &AuthResult{User: sess.User, Session: sess}, nil
}

// SignOut revokes the provider-side session. Issued access tokens stay valid
// until expiry; clearing the client-held token is the client's job.
func (g *SessionGateway) SignOut(ctx context.Context, accessToken string) error {
	if err := g.client.SignOut(ctx, accessToken); err != nil {
		return classifyProviderError(err)
	}
	return nil
}

// GetUser resolves the account behind an access token.
func (g *SessionGateway) GetUser(ctx context.Context, accessToken string) (*supabase.AuthUser, error) {
	user, err := g.client.GetUser(ctx, accessToken)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return user, nil
}

// UpdateProfile applies profile updates to the account behind the token.
func (g *SessionGateway) UpdateProfile(ctx context.Context, accessToken string, updates map[string]interface{}) (*supabase.AuthUser, error) {
	user, err := g.client.UpdateUser(ctx, accessToken, updates)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return user, nil
}

// ResetPassword asks the provider to send a password recovery email.
func (g *SessionGateway) ResetPassword(ctx context.Context, email string) error {
	if err := g.client.ResetPasswordForEmail(ctx, email); err != nil {
		return classifyProviderError(err)
	}
	return nil
}

// classifyProviderError maps a provider failure into the taxonomy. GoTrue's
// structured error codes are checked first; matching on the message text is a
// fallback only, since provider strings are not stable across releases.
func classifyProviderError(err error) error {
	if errors.Is(err, apperrors.ErrBackendUnavailable) {
		return err
	}
	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%v: %w", err, apperrors.ErrBackendUnavailable)
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == "invalid_credentials" || apiErr.Code == "invalid_grant":
		return fmt.Errorf("invalid email or password: %w", apperrors.ErrInvalidCredentials)
	case apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists":
		return fmt.Errorf("user with this email already exists: %w", apperrors.ErrAlreadyExists)
	case strings.Contains(msg, "already registered"):
		return fmt.Errorf("user with this email already exists: %w", apperrors.ErrAlreadyExists)
	case strings.Contains(msg, "invalid"):
		return fmt.Errorf("invalid email or password: %w", apperrors.ErrInvalidCredentials)
	case apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", apiErr.Message, apperrors.ErrInvalidToken)
	default:
		return fmt.Errorf("%s: %w", apiErr.Message, apperrors.ErrBackendUnavailable)
	}
}
