/*
sale.go - Sale transaction coordinator

PURPOSE:
  Creates and deletes sales. A sale is a header, one or more detail lines
  and, for every line that moves stock, exactly one ledger entry owned by
  that line. All of it is written or removed as one unit.

CREATE FLOW:
  1. Gate: write level; the acting user is the actor in ctx
  2. Shape: customer set, lines non-empty, every line valid
     (validated up front so one bad line rejects the whole request
     before anything is written)
  3. In one transaction:
       header (so its id is known for ledger notes)
       for each line, in request order:
         product set -> append ledger entry: type sale, delta = -quantity
         detail row  -> subtotal, sale id, ledger id or null, note
  4. Commit. Any failure rolls everything back.

DELETE FLOW:
  In one transaction: collect the details' ledger ids, delete those
  entries, delete the details, delete the header. Zero rows on the header
  delete is the not-found signal and rolls the transaction back.

  Ledger entries are removed, not compensated with reversal entries, so
  the stock impact of a deleted sale leaves no trace in the ledger.

INTEGRITY ERRORS:
  Unknown customer or product are not pre-checked. The store reports the
  violated constraint by name and translateConstraint maps it:
    fk_sales_customer          -> ErrUnknownCustomer
    fk_inventory_logs_product  -> ErrUnknownProduct

SEE ALSO:
  - store.go: SaleStore / LedgerStore
  - projection.go: Stock derived from the entries written here
*/
package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// =============================================================================
// SALES - Coordinator
// =============================================================================

// Sales coordinates sale creation and deletion over a Store.
type Sales struct {
	store Store
}

func NewSales(store Store) *Sales {
	return &Sales{store: store}
}

// CreateSale records a sale and its stock movements atomically.
func (s *Sales) CreateSale(ctx context.Context, req NewSale) (SaleID, error) {
	actor, err := access.Require(ctx, access.LevelWrite)
	if err != nil {
		return 0, err
	}

	total, err := validateSale(req)
	if err != nil {
		return 0, err
	}

	var saleID SaleID
	err = s.store.WithTx(ctx, func(tx Tx) error {
		id, err := tx.InsertSale(ctx, SaleHeader{
			CustomerID: req.CustomerID,
			UserID:     UserID(actor.UserID),
			TotalCents: total,
		})
		if err != nil {
			return err
		}

		for i, line := range req.Lines {
			if err := writeLine(ctx, tx, id, line); err != nil {
				return &LineError{Line: i, Err: err}
			}
		}

		saleID = id
		return nil
	})
	if err != nil {
		err = translateConstraint(err)
		if !IsClientError(err) {
			logger.FromContext(ctx).Error("sale creation failed",
				zap.Int64("customer_id", int64(req.CustomerID)),
				zap.Error(err))
		}
		return 0, err
	}

	logger.FromContext(ctx).Info("sale created",
		zap.Int64("sale_id", int64(saleID)),
		zap.Int64("customer_id", int64(req.CustomerID)),
		zap.Int("lines", len(req.Lines)),
		zap.String("total", total.String()))

	return saleID, nil
}

// validateSale checks the request shape and returns the sale total.
func validateSale(req NewSale) (Cents, error) {
	if req.CustomerID == 0 {
		return 0, ErrCustomerRequired
	}
	if len(req.Lines) == 0 {
		return 0, ErrNoLineItems
	}

	var total Cents
	for i, line := range req.Lines {
		if line.SubtotalCents == 0 {
			return 0, &LineError{Line: i, Err: ErrSubtotalRequired}
		}
		if !centsInRange(line.SubtotalCents) {
			return 0, &LineError{Line: i, Err: ErrSubtotalOutOfRange}
		}
		if line.ProductID != nil {
			if line.Quantity == nil || *line.Quantity == 0 {
				return 0, &LineError{Line: i, Err: ErrQuantityRequired}
			}
			if !deltaInRange(*line.Quantity) {
				return 0, &LineError{Line: i, Err: ErrQuantityOutOfRange}
			}
		}
		// Both operands are within MaxCents, so the sum cannot wrap.
		total += line.SubtotalCents
		if !centsInRange(total) {
			return 0, ErrTotalOutOfRange
		}
	}
	return total, nil
}

func centsInRange(c Cents) bool { return c >= -MaxCents && c <= MaxCents }

func deltaInRange(d int64) bool { return d >= -MaxDelta && d <= MaxDelta }

func writeLine(ctx context.Context, tx Tx, saleID SaleID, line LineItem) error {
	var logID *LogID
	if line.ProductID != nil {
		id, err := tx.AppendLog(ctx, LogEntry{
			Type:      LogSale,
			ProductID: *line.ProductID,
			Delta:     -*line.Quantity,
			Note:      saleLogNote(saleID, line.Note),
		})
		if err != nil {
			return err
		}
		logID = &id
	}

	_, err := tx.InsertSaleDetail(ctx, SaleDetail{
		SaleID:        saleID,
		SubtotalCents: line.SubtotalCents,
		LogID:         logID,
		Note:          line.Note,
	})
	return err
}

func saleLogNote(saleID SaleID, note string) string {
	if note == "" {
		return fmt.Sprintf("Automatic logging from sale #%d", saleID)
	}
	return fmt.Sprintf("Automatic logging from sale #%d: %s", saleID, note)
}

// DeleteSale removes a sale, its details and the ledger entries they own.
func (s *Sales) DeleteSale(ctx context.Context, saleID SaleID) error {
	if _, err := access.Require(ctx, access.LevelAdmin); err != nil {
		return err
	}

	var removed int
	err := s.store.WithTx(ctx, func(tx Tx) error {
		logIDs, err := tx.SaleLogIDs(ctx, saleID)
		if err != nil {
			return err
		}
		if len(logIDs) > 0 {
			if err := tx.DeleteLogs(ctx, logIDs); err != nil {
				return err
			}
		}
		if err := tx.DeleteSaleDetails(ctx, saleID); err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, saleID); err != nil {
			return notFoundAs(err, ErrSaleNotFound)
		}
		removed = len(logIDs)
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("sale deleted",
		zap.Int64("sale_id", int64(saleID)),
		zap.Int("ledger_entries_removed", removed))
	return nil
}

// =============================================================================
// READS
// =============================================================================

// GetSale returns a sale with its details.
func (s *Sales) GetSale(ctx context.Context, saleID SaleID) (Sale, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return Sale{}, err
	}
	var sale Sale
	err := s.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		return notFoundAs(err, ErrSaleNotFound)
	})
	return sale, err
}

// ListSales returns every sale header.
func (s *Sales) ListSales(ctx context.Context) ([]Sale, error) {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return nil, err
	}
	var sales []Sale
	err := s.store.ReadTx(ctx, func(tx Tx) error {
		var err error
		sales, err = tx.ListSales(ctx)
		return err
	})
	return sales, err
}
