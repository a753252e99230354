package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/models"
	"github.com/userdeck-io/userdeck/internal/supabase"
)

func newSupabaseStore(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.NewClient(srv.URL, "anon-key", "service-key")
	require.NoError(t, err)
	return NewSupabaseStore(client)
}

func TestSupabaseStoreGetByEmail(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "eq.a@x.com", r.URL.Query().Get("email"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 7, "email": "a@x.com", "username": "alice", "password_hash": "h", "is_active": true},
		})
	})

	user, err := s.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestSupabaseStoreEmptyResultIsNotFound(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})

	_, err := s.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSupabaseStoreUnreachableIsBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := supabase.NewClient(srv.URL, "anon-key", "")
	require.NoError(t, err)
	srv.Close()
	s := NewSupabaseStore(client)

	// A dead backend must never read as the user not existing.
	_, err = s.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.List(context.Background(), 0, 100)
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}

func TestSupabaseStoreCreate(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var row map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "a@x.com", row["email"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "email": "a@x.com", "password_hash": "h", "is_active": true},
		})
	})

	user, err := s.Create(context.Background(), &models.User{
		Email:        "a@x.com",
		PasswordHash: "h",
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
}

func TestSupabaseStoreCreateDuplicate(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    "23505",
			"message": `duplicate key value violates unique constraint "users_email_key"`,
		})
	})

	_, err := s.Create(context.Background(), &models.User{Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestSupabaseStoreCreateNoRepresentation(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("[]"))
	})

	_, err := s.Create(context.Background(), &models.User{Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
}

func TestSupabaseStoreList(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 6, "email": "f@x.com", "password_hash": "h", "is_active": true},
			{"id": 7, "email": "g@x.com", "password_hash": "h", "is_active": true},
		})
	})

	users, err := s.List(context.Background(), 5, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(6), users[0].ID)
	assert.Equal(t, int64(7), users[1].ID)
}

func TestSupabaseStoreUpdateMissing(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.Write([]byte("[]"))
	})

	u := &models.User{ID: 42, Email: "a@x.com", PasswordHash: "h"}
	_, err := s.Update(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSupabaseStoreDelete(t *testing.T) {
	var deleted []map[string]interface{}
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		json.NewEncoder(w).Encode(deleted)
	})

	deleted = []map[string]interface{}{{"id": 42, "email": "a@x.com", "password_hash": "h"}}
	removed, err := s.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, removed)

	deleted = nil
	removed, err = s.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, removed)
}
