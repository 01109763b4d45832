package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_CreateUser_Success(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	u := &User{Name: "Emre Ozgen", Email: "emre@test.com"}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.Positive(t, u.ID)
	assert.NotZero(t, u.CreatedAtUnixMs)

	got, err := store.GetUserByEmail(ctx, "emre@test.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Emre Ozgen", got.Name)
	assert.Equal(t, "emre@test.com", got.Email)

	byID, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *got, *byID)
}

func TestSQLiteStore_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &User{Name: "First", Email: "dup@test.com"}))

	err := store.CreateUser(ctx, &User{Name: "Second", Email: "dup@test.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntegrityViolation), "error = %v", err)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ConstraintUnique, ie.Constraint)
}

func TestSQLiteStore_CreateUser_Validation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	tests := []struct {
		name string
		user *User
	}{
		{name: "nil user", user: nil},
		{name: "missing name", user: &User{Email: "a@test.com"}},
		{name: "blank name", user: &User{Name: "   ", Email: "a@test.com"}},
		{name: "missing email", user: &User{Name: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CreateUser(context.Background(), tt.user)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrIntegrityViolation))
		})
	}
}

func TestSQLiteStore_GetUser_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetUser(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.GetUserByEmail(context.Background(), "nobody@test.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLiteStore_ListUsers(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.CreateUser(ctx, &User{Name: "User1", Email: "user1@test.com"}))
	require.NoError(t, store.CreateUser(ctx, &User{Name: "User2", Email: "user2@test.com"}))

	users, err = store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "User1", users[0].Name)
	assert.Equal(t, "User2", users[1].Name)
}
