package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/tutor_booking/internal/auth"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser_CreatesAndUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.RegisterUser(ctx, 42, "jdoe", "John", "Doe")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", user.DisplayName)
	assert.Equal(t, model.RoleStudent, user.Role())

	again, err := env.users.RegisterUser(ctx, 42, "jdoe", "Johnny", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Johnny", again.DisplayName)

	byUsername, err := env.users.RegisterUser(ctx, 43, "anon", "", "")
	require.NoError(t, err)
	assert.Equal(t, "anon", byUsername.DisplayName)
}

func TestMakeTutor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.user(t, 1, "Tutor", false)
	tutor, err := env.users.MakeTutor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTutor, tutor.Role())

	_, err = env.users.MakeTutor(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.user(t, 1, "Alice", false)

	_, err := env.users.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := env.users.CurrentUser(auth.WithUserID(context.Background(), user.ID))
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = env.users.CurrentUser(auth.WithUserID(context.Background(), 999))
	assert.ErrorIs(t, err, ErrUserNotFound)
}
