package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/userdeck-io/userdeck/internal/apperrors"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.ErrInvalidToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperrors.ErrInvalidToken
	}
	return parts[1], nil
}

// TokenAuthMiddleware verifies a locally issued bearer token and stores its
// claims in the request context. Any verification failure is a 401.
func (api *Api) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, err)
			return
		}
		claims, err := api.tokens.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFromContext retrieves the verified token claims.
func claimsFromContext(ctx context.Context) (map[string]interface{}, error) {
	claims, ok := ctx.Value(claimsContextKey).(map[string]interface{})
	if !ok {
		return nil, errors.New("no claims in context")
	}
	return claims, nil
}
