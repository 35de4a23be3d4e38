package sqlite

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/inventory-ledger/inventory"
)

// uniqueColumns maps the "table.column" SQLite reports for a UNIQUE failure
// to the constraint name declared in the schema.
var uniqueColumns = map[string]string{
	"products.sku":   inventory.ConstraintProductSKU,
	"users.username": inventory.ConstraintUsername,
}

// constraintError converts a SQLite constraint failure into an
// *inventory.ConstraintError. Other errors are returned unchanged.
//
// Trigger aborts carry the constraint name as the whole message, named CHECK
// constraints report "CHECK constraint failed: <name>", and UNIQUE failures
// are looked up by column.
func constraintError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}

	msg := se.Error()
	var name string
	kind := inventory.ConstraintKind("")

	switch se.ExtendedCode {
	case sqlite3.ErrConstraintTrigger:
		name = msg
	case sqlite3.ErrConstraintCheck:
		name = strings.TrimPrefix(msg, "CHECK constraint failed: ")
		kind = inventory.KindCheck
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		name = uniqueColumns[strings.TrimPrefix(msg, "UNIQUE constraint failed: ")]
		kind = inventory.KindUnique
	case sqlite3.ErrConstraintNotNull:
		col := strings.TrimPrefix(msg, "NOT NULL constraint failed: ")
		name = "nn_" + strings.ReplaceAll(col, ".", "_")
		kind = inventory.KindNotNull
	case sqlite3.ErrConstraintForeignKey:
		kind = inventory.KindForeignKey
	}

	if k := inventory.KindOf(name); k != "" {
		kind = k
	}
	return &inventory.ConstraintError{Kind: kind, Constraint: name, Err: err}
}
