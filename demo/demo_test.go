package demo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/demo"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/inventory/store"
)

// newServices returns services over an empty store holding one admin (id 1).
func newServices(t *testing.T) (demo.Services, *inventory.Projector, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.WithTx(ctx, func(tx inventory.Tx) error {
		_, err := tx.InsertUser(ctx, inventory.User{Username: "admin", PasswordHash: "x", Role: access.RoleAdmin})
		return err
	}))
	return demo.Services{
		Catalog: inventory.NewCatalog(mem),
		Ledger:  inventory.NewLedger(mem),
		Sales:   inventory.NewSales(mem),
	}, inventory.NewProjector(mem), mem
}

func adminCtx() context.Context {
	return access.WithActor(context.Background(), access.Actor{UserID: 1, Username: "admin", Role: access.RoleAdmin})
}

func TestLoad_CornerShop(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the corner-shop scenario
	// THEN: Stock reflects restocks minus the sold units

	svc, projector, mem := newServices(t)
	ctx := adminCtx()

	require.NoError(t, demo.Load(ctx, "corner-shop", svc))

	counts := mem.Counts()
	assert.Equal(t, 4, counts["products"])
	assert.Equal(t, 2, counts["sales"])
	assert.Equal(t, 4, counts["sales_details"])

	products, err := svc.Catalog.ListProducts(ctx)
	require.NoError(t, err)
	quantities := map[string]int64{}
	for _, p := range products {
		quantities[p.Name] = p.Quantity
	}
	assert.Equal(t, int64(42), quantities["Cola 330ml"])
	assert.Equal(t, int64(9), quantities["Coffee beans 1kg"])
	assert.Equal(t, int64(28), quantities["Salted crisps"])
	assert.Equal(t, int64(0), quantities["Gift card"])

	stock, err := projector.CurrentStock(ctx, products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, products[0].Quantity, stock)
}

func TestLoad_Oversold(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := adminCtx()

	require.NoError(t, demo.Load(ctx, "oversold", svc))

	products, err := svc.Catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(-1), products[0].Quantity)
}

func TestLoad_Errors(t *testing.T) {
	svc, _, mem := newServices(t)

	err := demo.Load(adminCtx(), "nope", svc)
	assert.ErrorContains(t, err, "unknown scenario")

	reader := access.WithActor(context.Background(), access.Actor{UserID: 2, Role: access.RoleRead})
	err = demo.Load(reader, "corner-shop", svc)
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.Zero(t, mem.Counts()["categories"])

	for _, s := range demo.Scenarios {
		svc, _, _ := newServices(t)
		assert.NoError(t, demo.Load(adminCtx(), s.ID, svc), s.ID)
	}
}
