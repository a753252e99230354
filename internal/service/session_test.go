package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/supabase"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *SessionGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.NewClient(srv.URL, "anon-key", "")
	require.NoError(t, err)
	return NewSessionGateway(client)
}

func TestSignInSuccess(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "jwt-token",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-token",
			"user":          map[string]string{"id": "uuid-1", "email": "a@x.com"},
		})
	})

	result, err := g.SignIn(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, "jwt-token", result.Session.AccessToken)
	assert.Equal(t, "refresh-token", result.Session.RefreshToken)
	assert.Equal(t, "a@x.com", result.User.Email)
}

func TestSignInInvalidCredentialsCode(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":       400,
			"error_code": "invalid_credentials",
			"msg":        "Invalid login credentials",
		})
	})

	_, err := g.SignIn(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSignUpAutoconfirm(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body["email"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "jwt-token",
			"refresh_token": "refresh-token",
			"user":          map[string]string{"id": "uuid-1", "email": "a@x.com"},
		})
	})

	result, err := g.SignUp(context.Background(), "a@x.com", "secret1", nil)
	require.NoError(t, err)
	require.NotNil(t, result.User)
	require.NotNil(t, result.Session, "autoconfirm responses carry a session")
}

func TestSignUpConfirmationPending(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		// No session when email confirmation is required, just the user.
		json.NewEncoder(w).Encode(map[string]string{
			"id":    "uuid-1",
			"email": "a@x.com",
		})
	})

	result, err := g.SignUp(context.Background(), "a@x.com", "secret1", nil)
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Nil(t, result.Session)
}

func TestSignUpAlreadyRegisteredMessageFallback(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		// Older GoTrue releases report duplicates without an error code.
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "User already registered",
		})
	})

	_, err := g.SignUp(context.Background(), "a@x.com", "secret1", nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestSignUpEmailExistsCode(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error_code": "email_exists",
			"msg":        "Email address already in use",
		})
	})

	_, err := g.SignUp(context.Background(), "a@x.com", "secret1", nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestRefreshSuccess(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body["refresh_token"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-jwt",
			"refresh_token": "new-refresh",
			"user":          map[string]string{"id": "uuid-1", "email": "a@x.com"},
		})
	})

	result, err := g.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-jwt", result.Session.AccessToken)
	assert.Equal(t, "new-refresh", result.Session.RefreshToken)
}

func TestRefreshInvalidToken(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid Refresh Token",
		})
	})

	_, err := g.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestGetUserExpiredToken(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"msg": "JWT expired",
		})
	})

	_, err := g.GetUser(context.Background(), "expired-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestSignOutForwardsToken(t *testing.T) {
	var gotAuth string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, g.SignOut(context.Background(), "jwt-token"))
	assert.Equal(t, "Bearer jwt-token", gotAuth)
}

func TestGatewayUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := supabase.NewClient(srv.URL, "anon-key", "")
	require.NoError(t, err)
	srv.Close()
	g := NewSessionGateway(client)

	_, err = g.SignIn(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}
