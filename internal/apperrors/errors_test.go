package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"already exists", ErrAlreadyExists, http.StatusConflict},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid token", ErrInvalidToken, http.StatusUnauthorized},
		{"backend unavailable", ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"configuration", ErrConfiguration, http.StatusInternalServerError},
		{"unknown", errors.New("something else"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("user with email %q already exists: %w", "a@x.com", ErrAlreadyExists)
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestDetailHidesInternalDetail(t *testing.T) {
	err := fmt.Errorf("db error: connection refused on 10.0.0.3: %w", ErrBackendUnavailable)
	assert.Equal(t, "backend unavailable", Detail(err))
	assert.NotContains(t, Detail(err), "10.0.0.3")
}

func TestDetailKeepsValidationMessage(t *testing.T) {
	assert.Equal(t, "invalid user payload", Detail(errors.New("invalid user payload")))
}
