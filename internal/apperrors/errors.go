// Package apperrors defines the error taxonomy shared by the stores, the
// services and the HTTP boundary. Backend-specific errors are translated into
// these sentinels at the narrowest point and never cross into the service
// layer raw.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrConfiguration      = errors.New("configuration error")
)

// HTTPStatus maps a taxonomy error to the status code the boundary returns.
// Anything outside the taxonomy is a plain bad request.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Detail returns the user-visible message for an error. Taxonomy errors map
// to canned messages so wrapped internal or provider detail never reaches a
// response body; anything else originates at the boundary (request
// validation) and keeps its own message.
func Detail(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrAlreadyExists):
		return "resource already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, ErrInvalidToken):
		return "could not validate credentials"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend unavailable"
	case errors.Is(err, ErrConfiguration):
		return "internal server error"
	default:
		return err.Error()
	}
}
