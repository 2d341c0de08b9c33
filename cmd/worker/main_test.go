package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/pediatric-clinic-api/internal/model"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/repotest"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/security"
)

func TestSeedAdmin(t *testing.T) {
	users := repotest.NewUserRepository()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	created, err := seedAdmin(ctx, users, hasher, "Clinic Owner", " Owner@Clinic.test ", "password123")
	require.NoError(t, err)
	assert.True(t, created)

	u, err := users.GetByEmail(ctx, "owner@clinic.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, u.Role)
	assert.Equal(t, model.AllPermissions(), u.Permissions)
	assert.NoError(t, hasher.Compare(u.PasswordHash, "password123"))

	created, err = seedAdmin(ctx, users, hasher, "Clinic Owner", "owner@clinic.test", "different-password")
	require.NoError(t, err)
	assert.False(t, created)

	u, err = users.GetByEmail(ctx, "owner@clinic.test")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(u.PasswordHash, "password123"), "existing account is left alone")
}

func TestSeedAdminRejectsShortPassword(t *testing.T) {
	users := repotest.NewUserRepository()

	_, err := seedAdmin(context.Background(), users, security.NewBcryptHasher(bcrypt.MinCost), "Owner", "owner@clinic.test", "short")
	assert.ErrorIs(t, err, security.ErrPasswordTooShort)
}
