package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// AuthUser is the provider's view of an account.
type AuthUser struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone,omitempty"`
	Role      string                 `json:"role,omitempty"`
	Metadata  map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}

// Session is a GoTrue session payload: the bearer credentials plus the user
// they were issued for.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         *AuthUser `json:"user,omitempty"`
}

// SignUp registers a user with GoTrue. When email confirmation is required
// the provider returns only a user and no session tokens.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*Session, error) {
	payload := map[string]interface{}{"email": email, "password": password}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	// The response is a session when autoconfirm is on, otherwise a bare
	// user object at the top level.
	var out struct {
		Session
		AuthUser
	}
	if err := c.auth(ctx, http.MethodPost, "/signup", nil, "", payload, &out); err != nil {
		return nil, err
	}
	sess := out.Session
	if sess.User == nil && out.AuthUser.ID != "" {
		user := out.AuthUser
		sess.User = &user
	}
	return &sess, nil
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{"grant_type": {"password"}}
	payload := map[string]string{"email": email, "password": password}

	var sess Session
	if err := c.auth(ctx, http.MethodPost, "/token", query, "", payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	query := url.Values{"grant_type": {"refresh_token"}}
	payload := map[string]string{"refresh_token": refreshToken}

	var sess Session
	if err := c.auth(ctx, http.MethodPost, "/token", query, "", payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the session behind the access token on the provider side.
// The token itself stays valid until its expiry; there is no revocation list
// for issued JWTs.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.auth(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

// GetUser resolves the account behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	var user AuthUser
	if err := c.auth(ctx, http.MethodGet, "/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies profile updates (email, password, metadata) to the
// account behind the access token.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, updates map[string]interface{}) (*AuthUser, error) {
	var user AuthUser
	if err := c.auth(ctx, http.MethodPut, "/user", nil, accessToken, updates, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetPasswordForEmail asks the provider to send a recovery email.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.auth(ctx, http.MethodPost, "/recover", nil, "", payload, nil)
}

func (c *Client) auth(ctx context.Context, method, path string, query url.Values, accessToken string, body, dest interface{}) error {
	endpoint := c.baseURL + "/auth/v1" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	return c.do(req, dest)
}
