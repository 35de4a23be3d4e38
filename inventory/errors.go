/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error values in one place. Every error the engine returns carries a
  Class so the transport layer can pick a status without string matching.

ERROR CATEGORIES:
  1. Input shape       - missing fields, empty sale, bad line      (400)
  2. Referential       - unknown customer/product/category/type    (400)
  3. Uniqueness        - duplicate SKU or username                 (409)
  4. Not found         - zero rows affected on the terminal write  (404)
  5. Authorization     - see package access                        (401/403)
  6. Infrastructure    - anything else                             (500)

CONSTRAINT ERRORS:
  Stores do not return driver errors for integrity failures. They return
  a *ConstraintError naming the constraint that failed (for example
  "fk_sales_customer"). translateConstraint maps constraint names to the
  user-facing sentinels below, so the mapping is a table lookup rather
  than pattern matching on driver messages.

USAGE:
  if errors.Is(err, inventory.ErrUnknownProduct) { ... }
  status := inventory.ClassOf(err).HTTPStatus()

SEE ALSO:
  - store.go: Constraint name constants
  - store/sqlite/errors.go: Driver error -> ConstraintError
*/
package inventory

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/warp/inventory-ledger/access"
)

// =============================================================================
// CLASSES
// =============================================================================

// Class is the coarse category of an error, aligned with HTTP status classes.
type Class int

const (
	ClassInternal Class = iota
	ClassBadInput
	ClassNotFound
	ClassConflict
	ClassForbidden
	ClassUnauthenticated
)

func (c Class) String() string {
	switch c {
	case ClassBadInput:
		return "bad_input"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	case ClassForbidden:
		return "forbidden"
	case ClassUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code for the class.
func (c Class) HTTPStatus() int {
	switch c {
	case ClassBadInput:
		return http.StatusBadRequest
	case ClassNotFound:
		return http.StatusNotFound
	case ClassConflict:
		return http.StatusConflict
	case ClassForbidden:
		return http.StatusForbidden
	case ClassUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified engine error. Sentinels are compared with errors.Is.
type Error struct {
	Class   Class
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(class Class, msg string) *Error {
	return &Error{Class: class, Message: msg}
}

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned by stores when the target row does not exist.
	// Services translate it to the entity-specific error below.
	ErrNotFound = newError(ClassNotFound, "not found")

	ErrCategoryNotFound = newError(ClassNotFound, "category is not found")
	ErrCustomerNotFound = newError(ClassNotFound, "customer is not found")
	ErrProductNotFound  = newError(ClassNotFound, "product is not found")
	ErrUserNotFound     = newError(ClassNotFound, "user is not found")
	ErrLogNotFound      = newError(ClassNotFound, "log entry is not found")
	ErrSaleNotFound     = newError(ClassNotFound, "sale is not found")
)

var (
	ErrNameRequired     = newError(ClassBadInput, "a name is required")
	ErrActiveRequired   = newError(ClassBadInput, "a boolean active value is required")
	ErrNegativePrice    = newError(ClassBadInput, "price cannot be negative")
	ErrUsernameRequired = newError(ClassBadInput, "a username is required")
	ErrPasswordRequired = newError(ClassBadInput, "a password is required")
	ErrLogTypeRequired  = newError(ClassBadInput, "a type is required")
	ErrProductRequired  = newError(ClassBadInput, "a product is required")
	ErrNothingToUpdate  = newError(ClassBadInput, "nothing to update")
	ErrPriceOutOfRange  = newError(ClassBadInput, "price is out of range")
	ErrDeltaOutOfRange  = newError(ClassBadInput, "delta is out of range")

	// ErrCustomerRequired is returned when a sale names no customer.
	ErrCustomerRequired = newError(ClassBadInput, "a customer is required")
	// ErrNoLineItems is returned for a sale without lines.
	ErrNoLineItems = newError(ClassBadInput, "a non-empty list of details is required")
	// ErrSubtotalRequired is returned for a line with a zero subtotal.
	ErrSubtotalRequired = newError(ClassBadInput, "detail requires a subtotal")
	// ErrQuantityRequired is returned for a line with a product but no quantity.
	ErrQuantityRequired = newError(ClassBadInput, "detail with inventory change must have a quantity")

	ErrQuantityOutOfRange = newError(ClassBadInput, "quantity is out of range")
	ErrSubtotalOutOfRange = newError(ClassBadInput, "subtotal is out of range")
	ErrTotalOutOfRange    = newError(ClassBadInput, "sale total is out of range")
)

var (
	ErrUnknownCustomer     = newError(ClassBadInput, "customer does not exist")
	ErrUnknownProduct      = newError(ClassBadInput, "product does not exist")
	ErrUnknownCategory     = newError(ClassBadInput, "category does not exist")
	ErrUnknownUser         = newError(ClassBadInput, "user does not exist")
	ErrInvalidLogType      = newError(ClassBadInput, "invalid type")
	ErrInvalidRole         = newError(ClassBadInput, "invalid role")
	ErrInvalidEmail        = newError(ClassBadInput, "invalid e-mail format")
	ErrConstraintViolation = newError(ClassBadInput, "invalid input or constraint violation")

	ErrDuplicateSKU      = newError(ClassConflict, "SKU already exists")
	ErrDuplicateUsername = newError(ClassConflict, "username already exists")
	ErrProductInUse      = newError(ClassConflict, "product has inventory history")
	ErrCustomerInUse     = newError(ClassConflict, "customer has sales")

	// ErrSaleEntryReserved is returned when the ledger correction API is used
	// to create, retype, move or delete an entry owned by a sale detail.
	ErrSaleEntryReserved = newError(ClassConflict, "sale entries are managed through their sale")
)

var (
	// ErrInvalidCredentials is returned by Authenticate for any login failure.
	ErrInvalidCredentials = newError(ClassUnauthenticated, "invalid credentials")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LineError reports which line of a sale request was rejected (0-based).
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line+1, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ConstraintKind is the family of an integrity constraint.
type ConstraintKind string

const (
	KindForeignKey ConstraintKind = "foreign_key"
	KindUnique     ConstraintKind = "unique"
	KindCheck      ConstraintKind = "check"
	KindNotNull    ConstraintKind = "not_null"
	KindRestrict   ConstraintKind = "restrict"
)

// ConstraintError is returned by stores when a write violates an integrity
// constraint. Constraint is the constraint name; it may be empty when the
// backend could not tell which constraint failed.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s constraint violated", e.Kind)
	}
	return fmt.Sprintf("%s constraint %s violated", e.Kind, e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// KindOf derives the constraint family from the naming convention
// fk_/uq_/ck_/nn_/rk_.
func KindOf(constraint string) ConstraintKind {
	switch {
	case strings.HasPrefix(constraint, "fk_"):
		return KindForeignKey
	case strings.HasPrefix(constraint, "uq_"):
		return KindUnique
	case strings.HasPrefix(constraint, "ck_"):
		return KindCheck
	case strings.HasPrefix(constraint, "nn_"):
		return KindNotNull
	case strings.HasPrefix(constraint, "rk_"):
		return KindRestrict
	}
	return ""
}

var constraintErrors = map[string]error{
	ConstraintLogProduct:      ErrUnknownProduct,
	ConstraintLogType:         ErrInvalidLogType,
	ConstraintSaleCustomer:    ErrUnknownCustomer,
	ConstraintSaleUser:        ErrUnknownUser,
	ConstraintDetailSubtotal:  ErrSubtotalRequired,
	ConstraintProductCategory: ErrUnknownCategory,
	ConstraintProductSKU:      ErrDuplicateSKU,
	ConstraintProductPrice:    ErrNegativePrice,
	ConstraintUsername:        ErrDuplicateUsername,
	ConstraintUserRole:        ErrInvalidRole,
	ConstraintCustomerEmail:   ErrInvalidEmail,
	ConstraintProductInUse:    ErrProductInUse,
	ConstraintCustomerInUse:   ErrCustomerInUse,
}

// translateConstraint replaces a *ConstraintError with the user-facing error
// registered for its constraint. Other errors pass through unchanged.
func translateConstraint(err error) error {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return err
	}
	if mapped, ok := constraintErrors[ce.Constraint]; ok {
		return mapped
	}
	if ce.Constraint == "" {
		return ErrConstraintViolation
	}
	return fmt.Errorf("%w: %s", ErrConstraintViolation, ce.Constraint)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// notFoundAs replaces a store ErrNotFound with the entity-specific error.
func notFoundAs(err, specific error) error {
	if errors.Is(err, ErrNotFound) {
		return specific
	}
	return err
}

// ClassOf returns the class of err. Unclassified errors are internal.
func ClassOf(err error) Class {
	if err == nil {
		return ClassInternal
	}
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return ClassUnauthenticated
	case errors.Is(err, access.ErrDisabled), errors.Is(err, access.ErrForbidden):
		return ClassForbidden
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return ClassOf(err) == ClassNotFound
}

// IsClientError returns true if the error is due to the caller's input or
// credentials rather than a failure of the system.
func IsClientError(err error) bool {
	return err != nil && ClassOf(err) != ClassInternal
}
