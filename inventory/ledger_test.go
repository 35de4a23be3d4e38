package inventory_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// STOCK PROJECTION
// =============================================================================

func TestCurrentStock_IsSumOfDeltas(t *testing.T) {
	// GIVEN: +10 restock, -3 manual, +1 return
	// WHEN: Projecting stock
	// THEN: 8, and the product read carries the same quantity

	f := newFixture(t)
	f.restock(t, f.widget, 10)
	_, err := f.ledger.Append(f.admin, inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: -3, Note: "count"})
	require.NoError(t, err)
	_, err = f.ledger.Append(f.admin, inventory.LogEntry{Type: inventory.LogReturn, ProductID: f.widget, Delta: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(8), f.stock(t, f.widget))
	assert.Equal(t, int64(0), f.stock(t, f.gadget))

	p, err := f.catalog.GetProduct(f.reader, f.widget)
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Quantity)
}

func TestCurrentStock_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.projector.CurrentStock(f.reader, 999)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
}

func TestStockWithin_SeesUncommittedEntries(t *testing.T) {
	// GIVEN: 5 units committed
	// WHEN: A transaction appends -2 and reads stock before committing, then fails
	// THEN: The in-transaction read sees 3; after rollback stock is 5 again

	f := newFixture(t)
	f.restock(t, f.widget, 5)
	ctx := context.Background()

	var inside int64
	err := f.store.WithTx(ctx, func(tx inventory.Tx) error {
		_, err := tx.AppendLog(ctx, inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: -2})
		require.NoError(t, err)
		inside, err = inventory.StockWithin(ctx, tx, f.widget)
		require.NoError(t, err)
		return inventory.ErrNothingToUpdate
	})
	require.Error(t, err)

	assert.Equal(t, int64(3), inside)
	assert.Equal(t, int64(5), f.stock(t, f.widget))
}

// =============================================================================
// LEDGER CORRECTIONS
// =============================================================================

func TestLedger_Append_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		entry   inventory.LogEntry
		wantErr error
	}{
		{"missing type", inventory.LogEntry{ProductID: f.widget, Delta: 1}, inventory.ErrLogTypeRequired},
		{"sale type reserved", inventory.LogEntry{Type: inventory.LogSale, ProductID: f.widget, Delta: -1}, inventory.ErrSaleEntryReserved},
		{"missing product", inventory.LogEntry{Type: inventory.LogManual, Delta: 1}, inventory.ErrProductRequired},
		{"unknown type", inventory.LogEntry{Type: "shrinkage", ProductID: f.widget, Delta: 1}, inventory.ErrInvalidLogType},
		{"unknown product", inventory.LogEntry{Type: inventory.LogManual, ProductID: 999, Delta: 1}, inventory.ErrUnknownProduct},
		{"delta past the bound", inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: inventory.MaxDelta + 1}, inventory.ErrDeltaOutOfRange},
		{"delta of MinInt64", inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: math.MinInt64}, inventory.ErrDeltaOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.store.Counts()
			_, err := f.ledger.Append(f.admin, tt.entry)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.store.Counts())
		})
	}
}

func TestLedger_Update_BoundsDelta(t *testing.T) {
	f := newFixture(t)
	id := f.restock(t, f.widget, 3)

	huge := int64(math.MaxInt64)
	err := f.ledger.Update(f.admin, id, inventory.LogPatch{Delta: &huge})
	assert.ErrorIs(t, err, inventory.ErrDeltaOutOfRange)
	assert.Equal(t, int64(3), f.stock(t, f.widget))

	largest := inventory.MaxDelta
	require.NoError(t, f.ledger.Update(f.admin, id, inventory.LogPatch{Delta: &largest}))
	assert.Equal(t, inventory.MaxDelta, f.stock(t, f.widget))
}

func TestLedger_WritesNeedAdmin(t *testing.T) {
	f := newFixture(t)
	id := f.restock(t, f.widget, 1)
	delta := int64(2)

	_, err := f.ledger.Append(f.writer, inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: 1})
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.ErrorIs(t, f.ledger.Update(f.writer, id, inventory.LogPatch{Delta: &delta}), access.ErrForbidden)
	assert.ErrorIs(t, f.ledger.Delete(f.writer, id), access.ErrForbidden)

	entries, err := f.ledger.List(f.reader, inventory.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_UpdateAndDeleteManualEntry(t *testing.T) {
	f := newFixture(t)
	id := f.restock(t, f.widget, 10)

	delta := int64(12)
	note := "recount"
	require.NoError(t, f.ledger.Update(f.admin, id, inventory.LogPatch{Delta: &delta, Note: &note}))
	assert.Equal(t, int64(12), f.stock(t, f.widget))

	moved := f.gadget
	require.NoError(t, f.ledger.Update(f.admin, id, inventory.LogPatch{ProductID: &moved}))
	assert.Equal(t, int64(0), f.stock(t, f.widget))
	assert.Equal(t, int64(12), f.stock(t, f.gadget))

	require.NoError(t, f.ledger.Delete(f.admin, id))
	assert.Equal(t, int64(0), f.stock(t, f.gadget))

	assert.ErrorIs(t, f.ledger.Delete(f.admin, id), inventory.ErrLogNotFound)
	assert.ErrorIs(t, f.ledger.Update(f.admin, id, inventory.LogPatch{Note: &note}), inventory.ErrLogNotFound)
	assert.ErrorIs(t, f.ledger.Update(f.admin, id, inventory.LogPatch{}), inventory.ErrNothingToUpdate)
}

func TestLedger_SaleEntriesAreOwnedBySale(t *testing.T) {
	// GIVEN: A sale of 2 widgets
	// WHEN: Using the ledger API on its entry
	// THEN: Delta and note can be corrected; retype, move and delete are refused

	f := newFixture(t)
	saleID, err := f.sales.CreateSale(f.writer, inventory.NewSale{
		CustomerID: f.customer,
		Lines:      []inventory.LineItem{line(f.widget, 2, 500, "")},
	})
	require.NoError(t, err)
	sale, err := f.sales.GetSale(f.reader, saleID)
	require.NoError(t, err)
	logID := *sale.Details[0].LogID

	delta := int64(-3)
	require.NoError(t, f.ledger.Update(f.admin, logID, inventory.LogPatch{Delta: &delta}))
	assert.Equal(t, int64(-3), f.stock(t, f.widget))

	manual := inventory.LogManual
	assert.ErrorIs(t, f.ledger.Update(f.admin, logID, inventory.LogPatch{Type: &manual}), inventory.ErrSaleEntryReserved)
	other := f.gadget
	assert.ErrorIs(t, f.ledger.Update(f.admin, logID, inventory.LogPatch{ProductID: &other}), inventory.ErrSaleEntryReserved)
	assert.ErrorIs(t, f.ledger.Delete(f.admin, logID), inventory.ErrSaleEntryReserved)

	saleType := inventory.LogSale
	restockID := f.restock(t, f.gadget, 1)
	assert.ErrorIs(t, f.ledger.Update(f.admin, restockID, inventory.LogPatch{Type: &saleType}), inventory.ErrSaleEntryReserved)

	sale, err = f.sales.GetSale(f.reader, saleID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *sale.Details[0].Quantity)
}

func TestLedger_ListFilters(t *testing.T) {
	f := newFixture(t)
	f.restock(t, f.widget, 1)
	f.restock(t, f.gadget, 2)
	_, err := f.ledger.Append(f.admin, inventory.LogEntry{Type: inventory.LogManual, ProductID: f.widget, Delta: -1})
	require.NoError(t, err)

	widget := f.widget
	entries, err := f.ledger.List(f.reader, inventory.LogFilter{ProductID: &widget})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	restock := inventory.LogRestock
	entries, err = f.ledger.List(f.reader, inventory.LogFilter{Type: &restock})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].ID, entries[1].ID)
}
