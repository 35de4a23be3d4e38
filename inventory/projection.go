/*
projection.go - Stock projector

PURPOSE:
  Answers "how many units of P are on hand?" by summing P's ledger
  entries. There is no quantity column to fall out of sync, and nothing is
  cached: every call recomputes from the ledger.

ISOLATION:
  CurrentStock opens its own read transaction, so it sees committed
  entries only and does not wait for in-flight sales. StockWithin reads through a caller's transaction and therefore
  includes that transaction's uncommitted entries (read-your-own-writes).
  No cross-product locking is involved.

EXAMPLE:
  stock, err := projector.CurrentStock(ctx, productID)

  err := store.WithTx(ctx, func(tx inventory.Tx) error {
      tx.AppendLog(ctx, entry)
      after, _ := inventory.StockWithin(ctx, tx, productID) // includes entry
      ...
  })
*/
package inventory

import (
	"context"

	"github.com/warp/inventory-ledger/access"
)

// Projector derives stock levels from the ledger.
type Projector struct {
	store Store
}

func NewProjector(store Store) *Projector {
	return &Projector{store: store}
}

// CurrentStock returns the committed stock of a product.
func (p *Projector) CurrentStock(ctx context.Context, productID ProductID) (int64, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return 0, err
	}

	var stock int64
	err := p.store.ReadTx(ctx, func(tx Tx) error {
		exists, err := tx.ProductExists(ctx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}
		stock, err = StockWithin(ctx, tx, productID)
		return err
	})
	return stock, err
}

// StockWithin returns the stock of a product as seen by r, typically an
// open transaction.
func StockWithin(ctx context.Context, r LedgerReader, productID ProductID) (int64, error) {
	return r.SumForProduct(ctx, productID)
}
