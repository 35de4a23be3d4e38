package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// =============================================================================
// USERS - Accounts and credentials
// =============================================================================

// PasswordHasher hashes and verifies passwords. Compare returns nil on a match.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BootstrapUsername is the account created when no admin exists yet.
const BootstrapUsername = "admin"

// Users manages accounts. Reads need read level, writes need admin level.
type Users struct {
	store  Store
	hasher PasswordHasher
}

func NewUsers(store Store, hasher PasswordHasher) *Users {
	return &Users{store: store, hasher: hasher}
}

// NewUser is the input of Create. Password is plain text.
type NewUser struct {
	Username string
	Password string
	Role     access.Role
}

// UserUpdate is the input of Update. Nil = unchanged.
type UserUpdate struct {
	Username *string
	Password *string
	Role     *access.Role
}

func (u *Users) Create(ctx context.Context, nu NewUser) (UserID, error) {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return 0, err
	}
	if nu.Username == "" {
		return 0, ErrUsernameRequired
	}
	if nu.Password == "" {
		return 0, ErrPasswordRequired
	}
	if !nu.Role.Valid() {
		return 0, ErrInvalidRole
	}

	hash, err := u.hasher.Hash(nu.Password)
	if err != nil {
		return 0, err
	}

	var id UserID
	err = u.store.WithTx(ctx, func(tx Tx) error {
		id, err = tx.InsertUser(ctx, User{Username: nu.Username, PasswordHash: hash, Role: nu.Role})
		return err
	})
	if err != nil {
		return 0, translateConstraint(err)
	}

	logger.FromContext(ctx).Info("user created",
		zap.Int64("user_id", int64(id)),
		zap.String("username", nu.Username),
		zap.String("role", string(nu.Role)))
	return id, nil
}

func (u *Users) Get(ctx context.Context, id UserID) (User, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return User{}, err
	}
	var user User
	err := u.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		return notFoundAs(err, ErrUserNotFound)
	})
	return user, err
}

func (u *Users) List(ctx context.Context) ([]User, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return nil, err
	}
	var users []User
	err := u.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	return users, err
}

// Update changes the listed fields. A new role takes effect on the user's
// next request, since the role is re-read every time.
func (u *Users) Update(ctx context.Context, id UserID, upd UserUpdate) error {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return err
	}

	var patch UserPatch
	if upd.Username != nil {
		if *upd.Username == "" {
			return ErrUsernameRequired
		}
		patch.Username = upd.Username
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return ErrPasswordRequired
		}
		hash, err := u.hasher.Hash(*upd.Password)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return ErrInvalidRole
		}
		patch.Role = upd.Role
	}
	if patch.Empty() {
		return ErrNothingToUpdate
	}

	err := u.store.WithTx(ctx, func(tx Tx) error {
		return notFoundAs(tx.UpdateUser(ctx, id, patch), ErrUserNotFound)
	})
	if err != nil {
		return translateConstraint(err)
	}

	logger.FromContext(ctx).Info("user updated", zap.Int64("user_id", int64(id)))
	return nil
}

// Delete removes an account. Sales it recorded keep a null user.
func (u *Users) Delete(ctx context.Context, id UserID) error {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return err
	}
	err := u.store.WithTx(ctx, func(tx Tx) error {
		return notFoundAs(tx.DeleteUser(ctx, id), ErrUserNotFound)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("user deleted", zap.Int64("user_id", int64(id)))
	return nil
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate checks a username and password. Unknown users and wrong
// passwords are indistinguishable to the caller. Disabled users do
// authenticate; the gate rejects them on use.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	err := u.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, username)
		return err
	})
	if IsNotFound(err) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := u.hasher.Compare(user.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the current state of a user without a gate check. The
// session layer uses it to resolve the actor of a request.
func (u *Users) Lookup(ctx context.Context, id UserID) (User, error) {
	var user User
	err := u.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		return notFoundAs(err, ErrUserNotFound)
	})
	return user, err
}

// EnsureAdmin creates the bootstrap admin account when the store has no
// admin. It reports whether an account was created.
func (u *Users) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, ErrPasswordRequired
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	created := false
	err = u.store.WithTx(ctx, func(tx Tx) error {
		exists, err := tx.AdminExists(ctx)
		if err != nil || exists {
			return err
		}
		_, err = tx.InsertUser(ctx, User{
			Username:     BootstrapUsername,
			PasswordHash: hash,
			Role:         access.RoleAdmin,
		})
		created = err == nil
		return err
	})
	if err != nil {
		return false, translateConstraint(err)
	}

	if created {
		logger.FromContext(ctx).Warn("bootstrap admin account created; change its password",
			zap.String("username", BootstrapUsername))
	}
	return created, nil
}
