package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// LEDGER STORE (inventory.LedgerStore interface)
// =============================================================================

const logColumns = "id, time, type, product_id, delta, note"

func (ts *txStore) SumForProduct(ctx context.Context, productID inventory.ProductID) (int64, error) {
	var sum int64
	err := ts.tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(delta), 0) FROM inventory_logs WHERE product_id = ?",
		productID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return sum, nil
}

func (ts *txStore) AppendLog(ctx context.Context, entry inventory.LogEntry) (inventory.LogID, error) {
	id, err := ts.insert(ctx, `
		INSERT INTO inventory_logs (time, type, product_id, delta, note)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(ts.now()), entry.Type, entry.ProductID, entry.Delta, nullString(entry.Note),
	)
	return inventory.LogID(id), err
}

func (ts *txStore) GetLog(ctx context.Context, id inventory.LogID) (inventory.InventoryLog, error) {
	row := ts.tx.QueryRowContext(ctx, "SELECT "+logColumns+" FROM inventory_logs WHERE id = ?", id)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return l, inventory.ErrNotFound
	}
	return l, err
}

func (ts *txStore) ListLogs(ctx context.Context, filter inventory.LogFilter) ([]inventory.InventoryLog, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProductID != nil {
		where = append(where, "product_id = ?")
		args = append(args, *filter.ProductID)
	}
	if filter.Type != nil {
		where = append(where, "type = ?")
		args = append(args, *filter.Type)
	}

	query := "SELECT " + logColumns + " FROM inventory_logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := ts.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	logs := []inventory.InventoryLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (ts *txStore) UpdateLog(ctx context.Context, id inventory.LogID, patch inventory.LogPatch) error {
	var u update
	if patch.Type != nil {
		u.set("type", *patch.Type)
	}
	if patch.ProductID != nil {
		u.set("product_id", *patch.ProductID)
	}
	if patch.Delta != nil {
		u.set("delta", *patch.Delta)
	}
	if patch.Note != nil {
		u.set("note", nullString(*patch.Note))
	}
	return u.exec(ctx, ts, "inventory_logs", int64(id))
}

func (ts *txStore) DeleteLog(ctx context.Context, id inventory.LogID) error {
	return ts.execAffecting(ctx, "DELETE FROM inventory_logs WHERE id = ?", id)
}

func (ts *txStore) DeleteLogs(ctx context.Context, ids []inventory.LogID) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := ts.tx.ExecContext(ctx,
		"DELETE FROM inventory_logs WHERE id IN ("+placeholders(len(ids))+")", args...)
	return constraintError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (inventory.InventoryLog, error) {
	var (
		l    inventory.InventoryLog
		ts   string
		note sql.NullString
	)
	if err := row.Scan(&l.ID, &ts, &l.Type, &l.ProductID, &l.Delta, &note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return l, err
	}
	l.Time = t
	l.Note = note.String
	return l, nil
}
