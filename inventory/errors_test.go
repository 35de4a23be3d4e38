package inventory

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/inventory-ledger/access"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNoLineItems, http.StatusBadRequest},
		{&LineError{Line: 0, Err: ErrQuantityRequired}, http.StatusBadRequest},
		{ErrSaleNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrDuplicateSKU), http.StatusConflict},
		{access.ErrUnauthenticated, http.StatusUnauthorized},
		{access.ErrDisabled, http.StatusForbidden},
		{access.ErrForbidden, http.StatusForbidden},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, ClassOf(tt.err).HTTPStatus())
		})
	}
}

func TestTranslateConstraint(t *testing.T) {
	driver := errors.New("FOREIGN KEY constraint failed")

	err := translateConstraint(&LineError{Line: 2, Err: &ConstraintError{
		Kind: KindForeignKey, Constraint: ConstraintLogProduct, Err: driver,
	}})
	assert.ErrorIs(t, err, ErrUnknownProduct)

	err = translateConstraint(&ConstraintError{Kind: KindCheck, Constraint: "ck_something_new"})
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.Contains(t, err.Error(), "ck_something_new")

	assert.Equal(t, ErrConstraintViolation, translateConstraint(&ConstraintError{Kind: KindForeignKey}))
	assert.Equal(t, driver, translateConstraint(driver))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindForeignKey, KindOf(ConstraintSaleCustomer))
	assert.Equal(t, KindUnique, KindOf(ConstraintProductSKU))
	assert.Equal(t, KindCheck, KindOf(ConstraintDetailSubtotal))
	assert.Equal(t, KindRestrict, KindOf(ConstraintProductInUse))
	assert.Equal(t, ConstraintKind(""), KindOf("idx_whatever"))
}

func TestEveryConstraintHasAnError(t *testing.T) {
	for _, name := range []string{
		ConstraintLogProduct, ConstraintLogType, ConstraintSaleCustomer, ConstraintSaleUser,
		ConstraintDetailSubtotal, ConstraintProductCategory, ConstraintProductSKU, ConstraintProductPrice,
		ConstraintUsername, ConstraintUserRole, ConstraintCustomerEmail,
		ConstraintProductInUse, ConstraintCustomerInUse,
	} {
		_, ok := constraintErrors[name]
		assert.True(t, ok, name)
	}
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "12.34", Cents(1234).String())
	assert.Equal(t, "-0.50", Cents(-50).String())
	assert.Equal(t, "0.00", Cents(0).String())
}
