/*
ledger.go - Inventory ledger correction API

PURPOSE:
  The ledger is the source of truth for stock. In steady state it is
  append-only: sales append through the coordinator, stock arriving or
  manual counts append through this API. Update and delete exist only to
  correct mistakes.

OWNERSHIP:
  Entries of type "sale" belong to a sale detail line. Through this API
  they can have their delta or note corrected, but they cannot be created,
  retyped, moved to another product or deleted; the sale coordinator is
  the only path that creates or removes them. This keeps "a detail with a
  product owns exactly one ledger entry" true at all times.

ACCESS:
  Reads need read level. Every write needs admin level.

SEE ALSO:
  - sale.go: Creates and removes sale entries
  - projection.go: Sums entries into stock
*/
package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// Ledger exposes the ledger to operators.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Append writes a non-sale entry and returns its id.
func (l *Ledger) Append(ctx context.Context, entry LogEntry) (LogID, error) {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return 0, err
	}
	if entry.Type == "" {
		return 0, ErrLogTypeRequired
	}
	if entry.Type == LogSale {
		return 0, ErrSaleEntryReserved
	}
	if entry.ProductID == 0 {
		return 0, ErrProductRequired
	}
	if !deltaInRange(entry.Delta) {
		return 0, ErrDeltaOutOfRange
	}

	var id LogID
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.AppendLog(ctx, entry)
		return err
	})
	if err != nil {
		return 0, translateConstraint(err)
	}

	logger.FromContext(ctx).Info("ledger entry appended",
		zap.Int64("log_id", int64(id)),
		zap.Int64("product_id", int64(entry.ProductID)),
		zap.String("type", string(entry.Type)),
		zap.Int64("delta", entry.Delta))
	return id, nil
}

func (l *Ledger) Get(ctx context.Context, id LogID) (InventoryLog, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return InventoryLog{}, err
	}
	var entry InventoryLog
	err := l.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		entry, err = tx.GetLog(ctx, id)
		return notFoundAs(err, ErrLogNotFound)
	})
	return entry, err
}

func (l *Ledger) List(ctx context.Context, filter LogFilter) ([]InventoryLog, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return nil, err
	}
	var entries []InventoryLog
	err := l.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		entries, err = tx.ListLogs(ctx, filter)
		return err
	})
	return entries, err
}

// Update corrects an entry.
func (l *Ledger) Update(ctx context.Context, id LogID, patch LogPatch) error {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return err
	}
	if patch.Empty() {
		return ErrNothingToUpdate
	}
	if patch.Type != nil && *patch.Type == LogSale {
		return ErrSaleEntryReserved
	}
	if patch.Delta != nil && !deltaInRange(*patch.Delta) {
		return ErrDeltaOutOfRange
	}

	err := l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetLog(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrLogNotFound)
		}
		if current.Type == LogSale && (patch.Type != nil || patch.ProductID != nil) {
			return ErrSaleEntryReserved
		}
		return notFoundAs(tx.UpdateLog(ctx, id, patch), ErrLogNotFound)
	})
	if err != nil {
		return translateConstraint(err)
	}

	logger.FromContext(ctx).Info("ledger entry corrected", zap.Int64("log_id", int64(id)))
	return nil
}

// Delete removes an entry that is not owned by a sale.
func (l *Ledger) Delete(ctx context.Context, id LogID) error {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return err
	}

	err := l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetLog(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrLogNotFound)
		}
		if current.Type == LogSale {
			return ErrSaleEntryReserved
		}
		return notFoundAs(tx.DeleteLog(ctx, id), ErrLogNotFound)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("ledger entry deleted", zap.Int64("log_id", int64(id)))
	return nil
}
