// Package service orchestrates the credential store, the password hasher and
// the identity provider behind the HTTP boundary.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/auth"
	"github.com/userdeck-io/userdeck/internal/models"
	"github.com/userdeck-io/userdeck/internal/store"
)

// UserService implements signup, credential verification and profile
// management against whichever UserStore it was wired with at startup.
type UserService struct {
	store  store.UserStore
	hasher *auth.PasswordHasher
}

// NewUserService creates a user service over the given store and hasher.
func NewUserService(userStore store.UserStore, hasher *auth.PasswordHasher) *UserService {
	return &UserService{store: userStore, hasher: hasher}
}

// CreateUser registers a new account with a hashed password. A taken email
// fails with ErrAlreadyExists before the store is written.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user with email %q already exists: %w", email, apperrors.ErrAlreadyExists)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	return s.store.Create(ctx, user)
}

// Authenticate verifies email/password credentials. An unknown email and a
// wrong password both return (nil, nil) so callers cannot distinguish them.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

// GetUserByEmail retrieves a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetByEmail(ctx, email)
}

// GetUserByUsername retrieves a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.GetByUsername(ctx, username)
}

// GetAllUsers returns a page of users in the store's stable order.
func (s *UserService) GetAllUsers(ctx context.Context, skip, limit int) ([]*models.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.List(ctx, skip, limit)
}

// UpdateUser applies the non-nil fields to the user and persists the result.
// A missing id propagates ErrNotFound.
func (s *UserService) UpdateUser(ctx context.Context, id int64, username, email *string, isActive *bool) (*models.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if username != nil {
		user.Username = *username
	}
	if email != nil {
		user.Email = *email
	}
	if isActive != nil {
		user.IsActive = *isActive
	}
	return s.store.Update(ctx, user)
}

// DeleteUser removes the user, failing with ErrNotFound when the id is
// absent.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return false, err
	}
	return s.store.Delete(ctx, id)
}
