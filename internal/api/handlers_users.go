package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserHandler creates a locally-stored user.
func (api *Api) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if !validEmail(req.Email) || !validPassword(req.Password) || !validUsername(req.Username) {
		writeError(w, fmt.Errorf("invalid user payload"))
		return
	}

	user, err := api.users.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// LoginHandler verifies local credentials and issues a session token.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	user, err := api.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		// Unknown email and wrong password answer identically.
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"detail":      "invalid email or password",
			"status_code": http.StatusUnauthorized,
		})
		return
	}

	token, err := api.tokens.Issue(map[string]interface{}{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
	}, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(api.tokens.TTL().Seconds()),
		"user":         user,
	})
}

// CurrentUserHandler resolves the caller from their verified token claims.
func (api *Api) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("malformed subject claim"))
		return
	}

	user, err := api.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUserHandler retrieves a user by id.
func (api *Api) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := api.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUserByUsernameHandler retrieves a user by username.
func (api *Api) GetUserByUsernameHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := api.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsersHandler returns a page of users.
func (api *Api) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 100
	}

	users, err := api.users.GetAllUsers(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateUserHandler applies a partial update to a user.
func (api *Api) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Email != nil && !validEmail(*req.Email) {
		writeError(w, fmt.Errorf("invalid email"))
		return
	}
	if req.Username != nil && !validUsername(*req.Username) {
		writeError(w, fmt.Errorf("invalid username"))
		return
	}

	user, err := api.users.UpdateUser(r.Context(), id, req.Username, req.Email, req.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUserHandler removes a user.
func (api *Api) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := api.users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id")
	}
	return id, nil
}
