package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/userdeck-io/userdeck/internal/apperrors"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

// gateway returns the session gateway or a 503 error when no identity
// provider is configured.
func (api *Api) gateway(w http.ResponseWriter) bool {
	if api.sessions == nil {
		writeError(w, fmt.Errorf("identity provider not configured: %w", apperrors.ErrBackendUnavailable))
		return false
	}
	return true
}

// SignUpHandler registers a user with the identity provider.
func (api *Api) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if !validEmail(req.Email) || !validPassword(req.Password) || !validUsername(req.Username) {
		writeError(w, fmt.Errorf("invalid signup payload"))
		return
	}

	metadata := map[string]interface{}{}
	if req.Username != "" {
		metadata["username"] = req.Username
	}
	if req.FullName != "" {
		metadata["full_name"] = req.FullName
	}

	result, err := api.sessions.SignUp(r.Context(), req.Email, req.Password, metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    result.User,
		"session": result.Session,
	})
}

// SignInHandler exchanges credentials for a provider session.
func (api *Api) SignInHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := api.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":          result.User,
		"session":       result.Session,
		"access_token":  result.Session.AccessToken,
		"refresh_token": result.Session.RefreshToken,
	})
}

// RefreshHandler exchanges a refresh token for a new session.
func (api *Api) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, fmt.Errorf("refresh_token is required"))
		return
	}

	result, err := api.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":          result.User,
		"session":       result.Session,
		"access_token":  result.Session.AccessToken,
		"refresh_token": result.Session.RefreshToken,
	})
}

// SignOutHandler revokes the provider-side session behind the caller's
// token. The token itself stays valid until expiry; the client discards it.
func (api *Api) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := api.sessions.SignOut(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out successfully"})
}

// MeHandler resolves the provider account behind the caller's token.
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := api.sessions.GetUser(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler applies profile updates to the caller's provider
// account.
func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	token, err := bearerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	user, err := api.sessions.UpdateProfile(r.Context(), token, updates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ResetPasswordHandler asks the provider to send a recovery email.
func (api *Api) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	if !api.gateway(w) {
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validEmail(req.Email) {
		writeError(w, fmt.Errorf("a valid email is required"))
		return
	}

	if err := api.sessions.ResetPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password recovery email sent"})
}
