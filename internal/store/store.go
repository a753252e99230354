// Package store holds the credential store contract and its two
// implementations: a relational store over database/sql and a store over the
// Supabase table API. The service layer is wired to one of them at startup.
package store

import (
	"context"

	"github.com/userdeck-io/userdeck/internal/models"
)

// UserStore abstracts where user records live. Implementations translate
// their backend's failures into the apperrors taxonomy; raw driver or
// provider errors never escape this package.
type UserStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
