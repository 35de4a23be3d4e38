package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type env struct {
	store  *sqlite.Store
	sales  *inventory.Sales
	ledger *inventory.Ledger
	stock  *inventory.Projector
	cat    *inventory.Catalog

	admin  context.Context
	writer context.Context

	customer inventory.CustomerID
	widget   inventory.ProductID
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newFileStore opens a store on a database file, with separate read and
// write handles.
func newFileStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "inventory.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOn(t, newTestStore(t))
}

func newEnvOn(t *testing.T, store *sqlite.Store) *env {
	t.Helper()
	e := &env{
		store:  store,
		sales:  inventory.NewSales(store),
		ledger: inventory.NewLedger(store),
		stock:  inventory.NewProjector(store),
		cat:    inventory.NewCatalog(store),
	}

	ctx := context.Background()
	var adminID, writerID inventory.UserID
	err := store.WithTx(ctx, func(tx inventory.Tx) error {
		var err error
		if adminID, err = tx.InsertUser(ctx, inventory.User{Username: "boss", PasswordHash: "x", Role: access.RoleAdmin}); err != nil {
			return err
		}
		writerID, err = tx.InsertUser(ctx, inventory.User{Username: "clerk", PasswordHash: "x", Role: access.RoleWrite})
		return err
	})
	require.NoError(t, err)
	e.admin = access.WithActor(ctx, access.Actor{UserID: int64(adminID), Username: "boss", Role: access.RoleAdmin})
	e.writer = access.WithActor(ctx, access.Actor{UserID: int64(writerID), Username: "clerk", Role: access.RoleWrite})

	e.customer, err = e.cat.CreateCustomer(e.writer, inventory.Customer{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	e.widget, err = e.cat.CreateProduct(e.writer, inventory.Product{Name: "Widget", Active: true, PriceCents: 250})
	require.NoError(t, err)
	return e
}

func (e *env) currentStock(t *testing.T, id inventory.ProductID) int64 {
	t.Helper()
	n, err := e.stock.CurrentStock(e.writer, id)
	require.NoError(t, err)
	return n
}

// countRows counts rows of every sale-related table.
func (e *env) countRows(t *testing.T) map[string]int {
	t.Helper()
	ctx := context.Background()
	counts := map[string]int{}
	err := e.store.WithTx(ctx, func(tx inventory.Tx) error {
		logs, err := tx.ListLogs(ctx, inventory.LogFilter{})
		if err != nil {
			return err
		}
		sales, err := tx.ListSales(ctx)
		if err != nil {
			return err
		}
		details := 0
		for _, s := range sales {
			full, err := tx.GetSale(ctx, s.ID)
			if err != nil {
				return err
			}
			details += len(full.Details)
		}
		counts["inventory_logs"], counts["sales"], counts["sales_details"] = len(logs), len(sales), details
		return nil
	})
	require.NoError(t, err)
	return counts
}

func qty(n int64) *int64 { return &n }

// =============================================================================
// SALE FLOW
// =============================================================================

func TestSQLite_SaleRoundTrip(t *testing.T) {
	// GIVEN: 10 widgets restocked
	// WHEN: Selling 3 and then deleting the sale
	// THEN: Stock goes 10 -> 7 -> 10 and no sale rows remain

	e := newEnv(t)
	_, err := e.ledger.Append(e.admin, inventory.LogEntry{Type: inventory.LogRestock, ProductID: e.widget, Delta: 10})
	require.NoError(t, err)
	before := e.countRows(t)

	id, err := e.sales.CreateSale(e.writer, inventory.NewSale{
		CustomerID: e.customer,
		Lines: []inventory.LineItem{
			{ProductID: &e.widget, Quantity: qty(3), SubtotalCents: 750, Note: "promo"},
			{SubtotalCents: 100, Note: "bag"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.currentStock(t, e.widget))

	sale, err := e.sales.GetSale(e.writer, id)
	require.NoError(t, err)
	assert.Equal(t, inventory.Cents(850), sale.TotalCents)
	require.Len(t, sale.Details, 2)
	require.NotNil(t, sale.Details[0].Quantity)
	assert.Equal(t, int64(3), *sale.Details[0].Quantity)
	assert.Nil(t, sale.Details[1].LogID)
	assert.False(t, sale.Time.IsZero())

	entry, err := e.ledger.Get(e.writer, *sale.Details[0].LogID)
	require.NoError(t, err)
	assert.Equal(t, "Automatic logging from sale #1: promo", entry.Note)

	require.NoError(t, e.sales.DeleteSale(e.admin, id))
	assert.Equal(t, int64(10), e.currentStock(t, e.widget))
	assert.Equal(t, before, e.countRows(t))

	assert.ErrorIs(t, e.sales.DeleteSale(e.admin, id), inventory.ErrSaleNotFound)
}

func TestSQLite_UnknownProductRollsBackHeader(t *testing.T) {
	e := newEnv(t)
	before := e.countRows(t)
	missing := inventory.ProductID(404)

	_, err := e.sales.CreateSale(e.writer, inventory.NewSale{
		CustomerID: e.customer,
		Lines: []inventory.LineItem{
			{ProductID: &e.widget, Quantity: qty(1), SubtotalCents: 250},
			{ProductID: &missing, Quantity: qty(1), SubtotalCents: 250},
		},
	})

	assert.ErrorIs(t, err, inventory.ErrUnknownProduct)
	assert.Equal(t, before, e.countRows(t))
	assert.Equal(t, int64(0), e.currentStock(t, e.widget))
}

func TestSQLite_UnknownCustomer(t *testing.T) {
	e := newEnv(t)
	_, err := e.sales.CreateSale(e.writer, inventory.NewSale{
		CustomerID: 999,
		Lines:      []inventory.LineItem{{SubtotalCents: 100}},
	})
	assert.ErrorIs(t, err, inventory.ErrUnknownCustomer)
}

// =============================================================================
// CONSTRAINT MAPPING
// =============================================================================

func TestSQLite_ConstraintNames(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		write      func(tx inventory.Tx) error
		constraint string
	}{
		{
			name: "ledger product",
			write: func(tx inventory.Tx) error {
				_, err := tx.AppendLog(ctx, inventory.LogEntry{Type: inventory.LogManual, ProductID: 999, Delta: 1})
				return err
			},
			constraint: inventory.ConstraintLogProduct,
		},
		{
			name: "ledger type",
			write: func(tx inventory.Tx) error {
				_, err := tx.AppendLog(ctx, inventory.LogEntry{Type: "bogus", ProductID: e.widget, Delta: 1})
				return err
			},
			constraint: inventory.ConstraintLogType,
		},
		{
			name: "sale customer",
			write: func(tx inventory.Tx) error {
				_, err := tx.InsertSale(ctx, inventory.SaleHeader{CustomerID: 999, TotalCents: 1})
				return err
			},
			constraint: inventory.ConstraintSaleCustomer,
		},
		{
			name: "sale user",
			write: func(tx inventory.Tx) error {
				_, err := tx.InsertSale(ctx, inventory.SaleHeader{CustomerID: e.customer, UserID: 999, TotalCents: 1})
				return err
			},
			constraint: inventory.ConstraintSaleUser,
		},
		{
			name: "zero subtotal",
			write: func(tx inventory.Tx) error {
				id, err := tx.InsertSale(ctx, inventory.SaleHeader{CustomerID: e.customer, TotalCents: 0})
				if err != nil {
					return err
				}
				_, err = tx.InsertSaleDetail(ctx, inventory.SaleDetail{SaleID: id})
				return err
			},
			constraint: inventory.ConstraintDetailSubtotal,
		},
		{
			name: "product category",
			write: func(tx inventory.Tx) error {
				cat := inventory.CategoryID(999)
				_, err := tx.InsertProduct(ctx, inventory.Product{Name: "x", CategoryID: &cat})
				return err
			},
			constraint: inventory.ConstraintProductCategory,
		},
		{
			name: "duplicate username",
			write: func(tx inventory.Tx) error {
				_, err := tx.InsertUser(ctx, inventory.User{Username: "clerk", PasswordHash: "x", Role: access.RoleRead})
				return err
			},
			constraint: inventory.ConstraintUsername,
		},
		{
			name: "user role",
			write: func(tx inventory.Tx) error {
				_, err := tx.InsertUser(ctx, inventory.User{Username: "new", PasswordHash: "x", Role: "root"})
				return err
			},
			constraint: inventory.ConstraintUserRole,
		},
		{
			name: "customer email",
			write: func(tx inventory.Tx) error {
				_, err := tx.InsertCustomer(ctx, inventory.Customer{Name: "x", Email: "nope"})
				return err
			},
			constraint: inventory.ConstraintCustomerEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.store.WithTx(ctx, tt.write)

			var ce *inventory.ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.constraint, ce.Constraint)
			assert.Equal(t, inventory.KindOf(tt.constraint), ce.Kind)
		})
	}
}

func TestSQLite_RestrictAndSetNull(t *testing.T) {
	e := newEnv(t)
	sku := "W-1"
	other, err := e.cat.CreateProduct(e.writer, inventory.Product{Name: "Other", SKU: &sku, Active: true})
	require.NoError(t, err)

	_, err = e.cat.CreateProduct(e.writer, inventory.Product{Name: "Dup", SKU: &sku, Active: true})
	assert.ErrorIs(t, err, inventory.ErrDuplicateSKU)

	_, err = e.ledger.Append(e.admin, inventory.LogEntry{Type: inventory.LogRestock, ProductID: e.widget, Delta: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, e.cat.DeleteProduct(e.admin, e.widget), inventory.ErrProductInUse)
	assert.NoError(t, e.cat.DeleteProduct(e.admin, other))

	_, err = e.sales.CreateSale(e.writer, inventory.NewSale{CustomerID: e.customer, Lines: []inventory.LineItem{{SubtotalCents: 5}}})
	require.NoError(t, err)
	assert.ErrorIs(t, e.cat.DeleteCustomer(e.admin, e.customer), inventory.ErrCustomerInUse)

	cat, err := e.cat.CreateCategory(e.admin, inventory.Category{Name: "Tools"})
	require.NoError(t, err)
	require.NoError(t, e.cat.UpdateProduct(e.writer, e.widget, inventory.ProductPatch{
		CategoryID: inventory.Nullable[inventory.CategoryID]{Set: true, Value: &cat},
	}))
	require.NoError(t, e.cat.DeleteCategory(e.admin, cat))
	p, err := e.cat.GetProduct(e.writer, e.widget)
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)
	assert.Equal(t, int64(1), p.Quantity)
}

func TestSQLite_ReadYourOwnWrites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var inside int64
	err := e.store.WithTx(ctx, func(tx inventory.Tx) error {
		if _, err := tx.AppendLog(ctx, inventory.LogEntry{Type: inventory.LogRestock, ProductID: e.widget, Delta: 4}); err != nil {
			return err
		}
		var err error
		inside, err = inventory.StockWithin(ctx, tx, e.widget)
		if err != nil {
			return err
		}
		return inventory.ErrNothingToUpdate
	})
	require.ErrorIs(t, err, inventory.ErrNothingToUpdate)

	assert.Equal(t, int64(4), inside)
	assert.Equal(t, int64(0), e.currentStock(t, e.widget))
}

func TestSQLite_ReadersDoNotWaitForWriters(t *testing.T) {
	// GIVEN: A file database with 10 widgets and a write transaction that has
	//        appended -4 but not committed
	// WHEN: Another request reads the stock and the product list
	// THEN: Both return at once with the committed value; after the commit
	//       the new value is visible

	e := newEnvOn(t, newFileStore(t))
	ctx := context.Background()
	_, err := e.ledger.Append(e.admin, inventory.LogEntry{Type: inventory.LogRestock, ProductID: e.widget, Delta: 10})
	require.NoError(t, err)

	appended := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- e.store.WithTx(ctx, func(tx inventory.Tx) error {
			if _, err := tx.AppendLog(ctx, inventory.LogEntry{Type: inventory.LogManual, ProductID: e.widget, Delta: -4}); err != nil {
				return err
			}
			close(appended)
			<-release
			return nil
		})
	}()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	select {
	case <-appended:
	case err := <-done:
		t.Fatalf("writer finished early: %v", err)
	}

	readCtx, cancel := context.WithTimeout(e.writer, time.Second)
	defer cancel()
	stock, err := e.stock.CurrentStock(readCtx, e.widget)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock)

	products, err := e.cat.ListProducts(readCtx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(10), products[0].Quantity)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(6), e.currentStock(t, e.widget))
}

func TestSQLite_LargestReturnsKeepProductsReadable(t *testing.T) {
	// GIVEN: Two sale lines returning the largest allowed quantity
	// WHEN: Listing products and reading stock
	// THEN: SUM(delta) stays inside int64 and both succeed

	e := newEnv(t)
	for i := 0; i < 2; i++ {
		_, err := e.sales.CreateSale(e.writer, inventory.NewSale{
			CustomerID: e.customer,
			Lines:      []inventory.LineItem{{ProductID: &e.widget, Quantity: qty(-inventory.MaxDelta), SubtotalCents: -1}},
		})
		require.NoError(t, err)
	}

	products, err := e.cat.ListProducts(e.writer)
	require.NoError(t, err)
	assert.Equal(t, 2*inventory.MaxDelta, products[0].Quantity)
	assert.Equal(t, 2*inventory.MaxDelta, e.currentStock(t, e.widget))

	_, err = e.sales.CreateSale(e.writer, inventory.NewSale{
		CustomerID: e.customer,
		Lines:      []inventory.LineItem{{ProductID: &e.widget, Quantity: qty(-inventory.MaxDelta - 1), SubtotalCents: -1}},
	})
	assert.ErrorIs(t, err, inventory.ErrQuantityOutOfRange)
}

func TestSQLite_PatchOnlyTouchesGivenFields(t *testing.T) {
	e := newEnv(t)
	phone := "555-0100"
	require.NoError(t, e.cat.UpdateCustomer(e.writer, e.customer, inventory.CustomerPatch{Phone: &phone}))

	c, err := e.cat.GetCustomer(e.writer, e.customer)
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, phone, c.Phone)

	assert.ErrorIs(t, e.cat.UpdateCustomer(e.writer, 999, inventory.CustomerPatch{Phone: &phone}), inventory.ErrCustomerNotFound)
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	m, err := sqlite.NewMigrator(db, zap.NewNop())
	require.NoError(t, err)

	version, _, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	store := sqlite.NewWithDB(db)
	assert.NoError(t, store.Ping(context.Background()))
}
