package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

func TestUsers_CreateAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.users.Create(f.admin, inventory.NewUser{Username: "clerk", Password: "s3cret", Role: access.RoleWrite})
	require.NoError(t, err)

	u, err := f.users.Authenticate(ctx, "clerk", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, access.RoleWrite, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = f.users.Authenticate(ctx, "clerk", "wrong")
	assert.ErrorIs(t, err, inventory.ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, inventory.ErrInvalidCredentials)
}

func TestUsers_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(f.admin, inventory.NewUser{Password: "x", Role: access.RoleRead})
	assert.ErrorIs(t, err, inventory.ErrUsernameRequired)
	_, err = f.users.Create(f.admin, inventory.NewUser{Username: "x", Role: access.RoleRead})
	assert.ErrorIs(t, err, inventory.ErrPasswordRequired)
	_, err = f.users.Create(f.admin, inventory.NewUser{Username: "x", Password: "x", Role: "root"})
	assert.ErrorIs(t, err, inventory.ErrInvalidRole)
	_, err = f.users.Create(f.admin, inventory.NewUser{Username: "test-read", Password: "x", Role: access.RoleRead})
	assert.ErrorIs(t, err, inventory.ErrDuplicateUsername)
	_, err = f.users.Create(f.writer, inventory.NewUser{Username: "y", Password: "x", Role: access.RoleRead})
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestUsers_UpdateRoleAndPassword(t *testing.T) {
	f := newFixture(t)
	id, err := f.users.Create(f.admin, inventory.NewUser{Username: "clerk", Password: "old", Role: access.RoleRead})
	require.NoError(t, err)

	role := access.RoleDisabled
	pw := "new"
	require.NoError(t, f.users.Update(f.admin, id, inventory.UserUpdate{Role: &role, Password: &pw}))

	u, err := f.users.Lookup(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, access.RoleDisabled, u.Role)

	_, err = f.users.Authenticate(context.Background(), "clerk", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.users.Update(f.admin, id, inventory.UserUpdate{}), inventory.ErrNothingToUpdate)
	assert.ErrorIs(t, f.users.Update(f.admin, 999, inventory.UserUpdate{Role: &role}), inventory.ErrUserNotFound)
}

func TestUsers_EnsureAdmin(t *testing.T) {
	// GIVEN: A store without any admin
	// WHEN: Bootstrapping twice
	// THEN: The admin account is created once

	f := newFixture(t)
	ctx := context.Background()
	actor, _ := access.ActorFrom(f.admin)
	require.NoError(t, f.users.Delete(f.admin, inventory.UserID(actor.UserID)))

	created, err := f.users.EnsureAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.users.EnsureAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.users.Authenticate(ctx, inventory.BootstrapUsername, "admin")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, u.Role)
}
