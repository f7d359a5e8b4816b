//go:build unit

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := newAuthService(repo, bcrypt.MinCost)

	created, err := svc.EnsureUser(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)

	t.Run("ensure is idempotent and keeps the password", func(t *testing.T) {
		created, err := svc.EnsureUser(ctx, "admin", "other")
		require.NoError(t, err)
		assert.False(t, created)
		_, err = svc.Authenticate(ctx, Credentials{Username: "admin", Password: "s3cret"})
		assert.NoError(t, err)
	})

	t.Run("stores a hash, not the password", func(t *testing.T) {
		assert.NotEqual(t, "s3cret", repo.rows["admin"].PasswordHash)
	})

	t.Run("valid credentials record last login", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, Credentials{Username: " admin ", Password: "s3cret"})
		require.NoError(t, err)
		assert.NotNil(t, user.LastLogin)
		assert.Contains(t, repo.lastLogin, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, Credentials{Username: "admin", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, Credentials{Username: "ghost", Password: "s3cret"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, Credentials{})
		assert.True(t, IsValidationError(err))
	})

	t.Run("ensure without password", func(t *testing.T) {
		_, err := svc.EnsureUser(ctx, "editor", "")
		assert.Error(t, err)
	})

	t.Run("change password", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, "admin", "n3w"))
		_, err := svc.Authenticate(ctx, Credentials{Username: "admin", Password: "n3w"})
		assert.NoError(t, err)
	})
}
