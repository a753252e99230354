package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/models"
)

// SQLStore implements UserStore over database/sql. It works with both the
// postgres and the sqlite3 driver: queries use $n placeholders and RETURNING,
// which both accept, and constraint errors from either driver translate into
// the same taxonomy.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ UserStore = (*SQLStore)(nil)

const userColumns = "id, username, email, password_hash, is_active, created_at, updated_at"

// Create inserts a new user and returns it with its store-assigned id. A
// colliding email or username surfaces as ErrAlreadyExists.
func (s *SQLStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		nullableString(user.Username), user.Email, user.PasswordHash, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user exists: %w", apperrors.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email.
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, "email = $1", email)
}

// GetByUsername retrieves a user by username.
func (s *SQLStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, "username = $1", username)
}

// List returns users ordered by id, which is insertion order for the serial
// key. An empty store yields an empty slice, not an error.
func (s *SQLStore) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	return users, nil
}

// Update replaces the mutable fields of the user row and refreshes its
// updated_at timestamp.
func (s *SQLStore) Update(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $1, email = $2, password_hash = $3, is_active = $4, updated_at = $5
		 WHERE id = $6`,
		nullableString(user.Username), user.Email, user.PasswordHash, user.IsActive,
		user.UpdatedAt, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user exists: %w", apperrors.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	if n == 0 {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

// Delete removes a user row, reporting whether one existed.
func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	return n > 0, nil
}

func (s *SQLStore) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var username sql.NullString
	if err := row.Scan(&u.ID, &username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Username = username.String
	return &u, nil
}

// nullableString maps the empty string to NULL so the unique index on
// username ignores accounts that never set one.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
