package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/models"
	"github.com/userdeck-io/userdeck/internal/supabase"
)

// SupabaseStore implements UserStore over the project's table API. The
// provider has no typed error surface, so translation is conservative: an
// empty result with no error means not-found, while any transport failure is
// ErrBackendUnavailable and is never collapsed into not-found.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// NewSupabaseStore creates a store over the users table.
func NewSupabaseStore(client *supabase.Client) *SupabaseStore {
	return &SupabaseStore{client: client, table: "users"}
}

var _ UserStore = (*SupabaseStore)(nil)

// userRow is the wire shape of one users-table record.
type userRow struct {
	ID           int64      `json:"id,omitempty"`
	Username     *string    `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Create inserts the user and returns the stored representation with its
// provider-assigned id.
func (s *SupabaseStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	var rows []userRow
	if err := s.client.InsertRow(ctx, s.table, toRow(user), &rows); err != nil {
		return nil, translateTableError(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: insert returned no representation", apperrors.ErrBackendUnavailable)
	}
	return fromRow(rows[0]), nil
}

// GetByID retrieves a user by id.
func (s *SupabaseStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, supabase.Eq("id", id))
}

// GetByEmail retrieves a user by email.
func (s *SupabaseStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, supabase.Eq("email", email))
}

// GetByUsername retrieves a user by username.
func (s *SupabaseStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, supabase.Eq("username", username))
}

// List returns users in id order. An empty table yields an empty slice.
func (s *SupabaseStore) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	filters := url.Values{}
	filters.Set("order", "id.asc")

	var rows []userRow
	if err := s.client.SelectRows(ctx, s.table, filters, offset, limit, &rows); err != nil {
		return nil, translateTableError(err)
	}
	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, fromRow(row))
	}
	return users, nil
}

// Update patches the row behind the user's id with its mutable fields.
func (s *SupabaseStore) Update(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now().UTC()

	var rows []userRow
	if err := s.client.UpdateRows(ctx, s.table, supabase.Eq("id", user.ID), toRow(user), &rows); err != nil {
		return nil, translateTableError(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return fromRow(rows[0]), nil
}

// Delete removes the row behind the id, reporting whether one existed.
func (s *SupabaseStore) Delete(ctx context.Context, id int64) (bool, error) {
	var rows []userRow
	if err := s.client.DeleteRows(ctx, s.table, supabase.Eq("id", id), &rows); err != nil {
		return false, translateTableError(err)
	}
	return len(rows) > 0, nil
}

func (s *SupabaseStore) getOne(ctx context.Context, filters url.Values) (*models.User, error) {
	var rows []userRow
	if err := s.client.SelectRows(ctx, s.table, filters, 0, 1, &rows); err != nil {
		return nil, translateTableError(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return fromRow(rows[0]), nil
}

func toRow(user *models.User) userRow {
	row := userRow{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsActive:     user.IsActive,
	}
	if user.Username != "" {
		row.Username = &user.Username
	}
	if !user.CreatedAt.IsZero() {
		created := user.CreatedAt
		row.CreatedAt = &created
	}
	if !user.UpdatedAt.IsZero() {
		updated := user.UpdatedAt
		row.UpdatedAt = &updated
	}
	return row
}

func fromRow(row userRow) *models.User {
	user := &models.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
	}
	if row.Username != nil {
		user.Username = *row.Username
	}
	if row.CreatedAt != nil {
		user.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		user.UpdatedAt = *row.UpdatedAt
	}
	return user
}

// translateTableError maps provider failures into the taxonomy. Duplicate
// keys become ErrAlreadyExists; everything else the provider responded with,
// and every transport failure, is ErrBackendUnavailable.
func translateTableError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrBackendUnavailable) {
		return err
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusConflict,
			apiErr.Code == "23505",
			strings.Contains(strings.ToLower(apiErr.Message), "duplicate key"):
			return fmt.Errorf("%s: %w", apiErr.Message, apperrors.ErrAlreadyExists)
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apperrors.ErrNotFound)
		default:
			return fmt.Errorf("%s: %w", apiErr.Message, apperrors.ErrBackendUnavailable)
		}
	}
	return fmt.Errorf("%v: %w", err, apperrors.ErrBackendUnavailable)
}
