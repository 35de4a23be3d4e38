/*
access.go - Role levels and the authorization gate

PURPOSE:
  Decides whether an actor may perform an operation. Every operation
  declares the minimum level it needs; the gate compares it with the
  level granted by the actor's role.

ROLES:
  read < write < admin    ordered, compared monotonically
  disabled                terminal state OUTSIDE the ordering

  A disabled account is not "rank zero". It is refused at every level,
  including read, and the refusal is reported separately from a plain
  lack of privilege so callers can tell the user their access was revoked.

SIGNALS:
  ErrUnauthenticated   no actor in context               (401)
  ErrDisabled          actor present, role disabled      (403)
  ErrForbidden         actor present, level too low      (403)

ACTOR:
  The actor is resolved by the transport layer (session token -> user)
  and passed into the core explicitly through context.Context. The gate
  itself has no side effects and never touches the store.

SEE ALSO:
  - inventory/sale.go: Sales coordinator checks the gate first
  - api/sessions.go: Resolves the actor and installs it in the context
*/
package access

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// ROLES AND LEVELS
// =============================================================================

// Role is the persisted role of a user.
type Role string

const (
	RoleRead     Role = "read"
	RoleWrite    Role = "write"
	RoleAdmin    Role = "admin"
	RoleDisabled Role = "disabled"
)

// Level is the access level an operation requires. Levels are ordered.
type Level int

const (
	LevelRead Level = iota + 1
	LevelWrite
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	case LevelAdmin:
		return "admin"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRead, RoleWrite, RoleAdmin, RoleDisabled:
		return true
	}
	return false
}

// Level returns the level granted by the role. The second result is false
// for disabled and unknown roles, which grant nothing.
func (r Role) Level() (Level, bool) {
	switch r {
	case RoleRead:
		return LevelRead, true
	case RoleWrite:
		return LevelWrite, true
	case RoleAdmin:
		return LevelAdmin, true
	}
	return 0, false
}

// ParseRole converts a role name. The single-letter forms (r, w, a, d) are
// accepted for accounts created by earlier tooling.
func ParseRole(s string) (Role, error) {
	switch s {
	case "r":
		return RoleRead, nil
	case "w":
		return RoleWrite, nil
	case "a":
		return RoleAdmin, nil
	case "d":
		return RoleDisabled, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthenticated is returned when no actor is present.
	ErrUnauthenticated = errors.New("you are not authorized")

	// ErrDisabled is returned for a disabled account regardless of level.
	ErrDisabled = errors.New("your authorization was revoked")

	// ErrForbidden is returned when the actor's level is below the requirement.
	ErrForbidden = errors.New("you may not perform this operation")

	// ErrInvalidRole is returned by ParseRole.
	ErrInvalidRole = errors.New("invalid role")
)

// =============================================================================
// ACTOR
// =============================================================================

// Actor is the authenticated caller.
type Actor struct {
	UserID   int64
	Username string
	Role     Role
}

type actorKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor carried by ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// =============================================================================
// GATE
// =============================================================================

// Check decides whether actor may perform an operation requiring level.
// A nil actor means nobody is logged in.
func Check(actor *Actor, required Level) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.Role == RoleDisabled {
		return ErrDisabled
	}
	granted, ok := actor.Role.Level()
	if !ok || granted < required {
		return ErrForbidden
	}
	return nil
}

// Require checks the actor carried by ctx and returns it when allowed.
func Require(ctx context.Context, required Level) (Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, Check(nil, required)
	}
	if err := Check(&a, required); err != nil {
		return Actor{}, err
	}
	return a, nil
}
