package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store     *store.Memory
	sales     *inventory.Sales
	ledger    *inventory.Ledger
	projector *inventory.Projector
	catalog   *inventory.Catalog
	users     *inventory.Users

	admin    context.Context
	writer   context.Context
	reader   context.Context
	disabled context.Context

	customer inventory.CustomerID
	widget   inventory.ProductID
	gadget   inventory.ProductID
}

// plainHasher stores passwords as "hashed:<pw>" so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemory()
	f := &fixture{
		store:     mem,
		sales:     inventory.NewSales(mem),
		ledger:    inventory.NewLedger(mem),
		projector: inventory.NewProjector(mem),
		catalog:   inventory.NewCatalog(mem),
		users:     inventory.NewUsers(mem, plainHasher{}),
	}

	ctx := context.Background()
	actors := map[access.Role]*context.Context{
		access.RoleAdmin:    &f.admin,
		access.RoleWrite:    &f.writer,
		access.RoleRead:     &f.reader,
		access.RoleDisabled: &f.disabled,
	}
	err := mem.WithTx(ctx, func(tx inventory.Tx) error {
		for role, dst := range actors {
			name := "test-" + string(role)
			id, err := tx.InsertUser(ctx, inventory.User{Username: name, PasswordHash: "hashed:pw", Role: role})
			if err != nil {
				return err
			}
			*dst = access.WithActor(ctx, access.Actor{UserID: int64(id), Username: name, Role: role})
		}
		return nil
	})
	require.NoError(t, err)

	f.customer, err = f.catalog.CreateCustomer(f.writer, inventory.Customer{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	f.widget, err = f.catalog.CreateProduct(f.writer, inventory.Product{Name: "Widget", Active: true, PriceCents: 250})
	require.NoError(t, err)
	f.gadget, err = f.catalog.CreateProduct(f.writer, inventory.Product{Name: "Gadget", Active: true, PriceCents: 1000})
	require.NoError(t, err)

	return f
}

// restock appends a restock entry as admin.
func (f *fixture) restock(t *testing.T, id inventory.ProductID, qty int64) inventory.LogID {
	t.Helper()
	logID, err := f.ledger.Append(f.admin, inventory.LogEntry{Type: inventory.LogRestock, ProductID: id, Delta: qty})
	require.NoError(t, err)
	return logID
}

func (f *fixture) stock(t *testing.T, id inventory.ProductID) int64 {
	t.Helper()
	n, err := f.projector.CurrentStock(f.reader, id)
	require.NoError(t, err)
	return n
}

func line(product inventory.ProductID, qty int64, subtotal inventory.Cents, note string) inventory.LineItem {
	return inventory.LineItem{ProductID: &product, Quantity: &qty, SubtotalCents: subtotal, Note: note}
}
