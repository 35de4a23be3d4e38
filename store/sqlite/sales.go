package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// SALE STORE (inventory.SaleStore interface)
// =============================================================================

func (ts *txStore) InsertSale(ctx context.Context, h inventory.SaleHeader) (inventory.SaleID, error) {
	var userID sql.NullInt64
	if h.UserID != 0 {
		userID = sql.NullInt64{Int64: int64(h.UserID), Valid: true}
	}
	id, err := ts.insert(ctx, `
		INSERT INTO sales (time, total_cents, customer_id, user_id)
		VALUES (?, ?, ?, ?)`,
		formatTime(ts.now()), h.TotalCents, h.CustomerID, userID,
	)
	return inventory.SaleID(id), err
}

func (ts *txStore) InsertSaleDetail(ctx context.Context, d inventory.SaleDetail) (inventory.DetailID, error) {
	id, err := ts.insert(ctx, `
		INSERT INTO sales_details (subtotal_cents, sale_id, log_id, note)
		VALUES (?, ?, ?, ?)`,
		d.SubtotalCents, d.SaleID, nullInt64Ptr(d.LogID), nullString(d.Note),
	)
	return inventory.DetailID(id), err
}

func (ts *txStore) SaleLogIDs(ctx context.Context, saleID inventory.SaleID) ([]inventory.LogID, error) {
	rows, err := ts.tx.QueryContext(ctx,
		"SELECT log_id FROM sales_details WHERE sale_id = ? AND log_id IS NOT NULL ORDER BY id",
		saleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale ledger ids: %w", err)
	}
	defer rows.Close()

	var ids []inventory.LogID
	for rows.Next() {
		var id inventory.LogID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (ts *txStore) DeleteSaleDetails(ctx context.Context, saleID inventory.SaleID) error {
	_, err := ts.tx.ExecContext(ctx, "DELETE FROM sales_details WHERE sale_id = ?", saleID)
	return constraintError(err)
}

func (ts *txStore) DeleteSale(ctx context.Context, saleID inventory.SaleID) error {
	return ts.execAffecting(ctx, "DELETE FROM sales WHERE id = ?", saleID)
}

const saleColumns = "id, time, total_cents, customer_id, user_id"

func (ts *txStore) GetSale(ctx context.Context, saleID inventory.SaleID) (inventory.Sale, error) {
	row := ts.tx.QueryRowContext(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = ?", saleID)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sale, inventory.ErrNotFound
	}
	if err != nil {
		return sale, err
	}

	rows, err := ts.tx.QueryContext(ctx, `
		SELECT d.id, d.sale_id, d.subtotal_cents, d.log_id, d.note, l.product_id, l.delta
		FROM sales_details d
		LEFT JOIN inventory_logs l ON l.id = d.log_id
		WHERE d.sale_id = ?
		ORDER BY d.id`,
		saleID,
	)
	if err != nil {
		return sale, fmt.Errorf("failed to query sale details: %w", err)
	}
	defer rows.Close()

	sale.Details = []inventory.SaleDetail{}
	for rows.Next() {
		var (
			d         inventory.SaleDetail
			logID     sql.NullInt64
			note      sql.NullString
			productID sql.NullInt64
			delta     sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.SaleID, &d.SubtotalCents, &logID, &note, &productID, &delta); err != nil {
			return sale, fmt.Errorf("failed to scan sale detail: %w", err)
		}
		d.Note = note.String
		if logID.Valid {
			id := inventory.LogID(logID.Int64)
			d.LogID = &id
		}
		if productID.Valid {
			pid := inventory.ProductID(productID.Int64)
			qty := -delta.Int64
			d.ProductID, d.Quantity = &pid, &qty
		}
		sale.Details = append(sale.Details, d)
	}
	return sale, rows.Err()
}

func (ts *txStore) ListSales(ctx context.Context) ([]inventory.Sale, error) {
	rows, err := ts.tx.QueryContext(ctx, "SELECT "+saleColumns+" FROM sales ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := []inventory.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func scanSale(row rowScanner) (inventory.Sale, error) {
	var (
		s      inventory.Sale
		ts     string
		userID sql.NullInt64
	)
	if err := row.Scan(&s.ID, &ts, &s.TotalCents, &s.CustomerID, &userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("failed to scan sale: %w", err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return s, err
	}
	s.Time = t
	if userID.Valid {
		id := inventory.UserID(userID.Int64)
		s.UserID = &id
	}
	return s, nil
}
