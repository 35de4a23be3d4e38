package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inventory-ledger/access"
)

func TestCheck_RoleMatrix(t *testing.T) {
	levels := []access.Level{access.LevelRead, access.LevelWrite, access.LevelAdmin}

	tests := []struct {
		role    access.Role
		allowed map[access.Level]bool
		denial  error
	}{
		{
			role:    access.RoleRead,
			allowed: map[access.Level]bool{access.LevelRead: true},
			denial:  access.ErrForbidden,
		},
		{
			role:    access.RoleWrite,
			allowed: map[access.Level]bool{access.LevelRead: true, access.LevelWrite: true},
			denial:  access.ErrForbidden,
		},
		{
			role:    access.RoleAdmin,
			allowed: map[access.Level]bool{access.LevelRead: true, access.LevelWrite: true, access.LevelAdmin: true},
		},
		{
			role:    access.RoleDisabled,
			allowed: map[access.Level]bool{},
			denial:  access.ErrDisabled,
		},
	}

	for _, tt := range tests {
		for _, lvl := range levels {
			t.Run(string(tt.role)+"/"+lvl.String(), func(t *testing.T) {
				actor := &access.Actor{UserID: 1, Role: tt.role}
				err := access.Check(actor, lvl)
				if tt.allowed[lvl] {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, tt.denial)
			})
		}
	}
}

func TestCheck_NoActorIsUnauthenticated(t *testing.T) {
	assert.ErrorIs(t, access.Check(nil, access.LevelRead), access.ErrUnauthenticated)
}

func TestCheck_DisabledIsNotForbidden(t *testing.T) {
	// A revoked account must be distinguishable from a low-privilege one,
	// even for read-level operations a read role could perform.
	err := access.Check(&access.Actor{Role: access.RoleDisabled}, access.LevelRead)
	assert.ErrorIs(t, err, access.ErrDisabled)
	assert.NotErrorIs(t, err, access.ErrForbidden)
}

func TestCheck_UnknownRoleGrantsNothing(t *testing.T) {
	err := access.Check(&access.Actor{Role: "owner"}, access.LevelRead)
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestRequire_UsesContextActor(t *testing.T) {
	ctx := context.Background()

	_, err := access.Require(ctx, access.LevelRead)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)

	ctx = access.WithActor(ctx, access.Actor{UserID: 7, Username: "clerk", Role: access.RoleWrite})
	actor, err := access.Require(ctx, access.LevelWrite)
	require.NoError(t, err)
	assert.Equal(t, int64(7), actor.UserID)

	_, err = access.Require(ctx, access.LevelAdmin)
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]access.Role{
		"r": access.RoleRead, "w": access.RoleWrite, "a": access.RoleAdmin, "d": access.RoleDisabled,
		"read": access.RoleRead, "admin": access.RoleAdmin, "disabled": access.RoleDisabled,
	} {
		got, err := access.ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := access.ParseRole("root")
	assert.ErrorIs(t, err, access.ErrInvalidRole)
}
