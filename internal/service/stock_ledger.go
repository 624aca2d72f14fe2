package service

import (
	"context"
	"errors"
	"sort"

	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockLedger owns every stock mutation made by invoicing. All safety comes
// from the repository's conditional decrement; the ledger holds no locks.
type StockLedger struct {
	products repository.ProductRepository
	logger   *zap.Logger
	// storeRollsBack is set when every call runs inside a transaction that
	// is discarded on error, so a failed write needs no reversal.
	storeRollsBack bool
}

func NewStockLedger(products repository.ProductRepository, logger *zap.Logger) *StockLedger {
	return &StockLedger{products: products, logger: logger}
}

// CheckAvailability is advisory: the stock may change before commit.
func (l *StockLedger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	p, err := l.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, &ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return 0, &PersistenceError{Op: "read stock", Err: err}
	}
	if p.Stock < qty {
		return p.Stock, &InsufficientStockError{ProductID: productID, Available: p.Stock}
	}
	return p.Stock, nil
}

// MergeDecrements sums quantities per product and orders the result by
// product ID so that concurrent batches lock rows in the same order.
func MergeDecrements(batch []StockDecrement) []StockDecrement {
	totals := make(map[uuid.UUID]int, len(batch))
	for _, d := range batch {
		totals[d.ProductID] += d.Quantity
	}
	merged := make([]StockDecrement, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, StockDecrement{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged
}

// CommitDecrements applies the whole batch or none of it. When one
// conditional write fails, the writes already applied are reversed before
// the error is returned, so the reported availability is current. It
// returns the merged batch that was applied.
func (l *StockLedger) CommitDecrements(ctx context.Context, batch []StockDecrement) ([]StockDecrement, error) {
	merged := MergeDecrements(batch)
	for i, d := range merged {
		ok, err := l.products.DecrementStock(ctx, d.ProductID, d.Quantity)
		if err != nil {
			if !l.storeRollsBack {
				l.Restore(context.WithoutCancel(ctx), merged[:i])
			}
			return nil, &PersistenceError{Op: "decrement stock", Err: err}
		}
		if ok {
			continue
		}

		l.Restore(context.WithoutCancel(ctx), merged[:i])
		p, err := l.products.FindByID(ctx, d.ProductID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, &ProductNotFoundError{ProductID: d.ProductID}
		case err != nil:
			return nil, &PersistenceError{Op: "read stock", Err: err}
		}
		return nil, &InsufficientStockError{ProductID: d.ProductID, Available: p.Stock}
	}
	return merged, nil
}

// Restore puts back previously applied decrements. Failures are logged;
// there is nothing left to compensate them with.
func (l *StockLedger) Restore(ctx context.Context, applied []StockDecrement) {
	for _, d := range applied {
		if err := l.products.IncrementStock(ctx, d.ProductID, d.Quantity); err != nil {
			l.logger.Error("failed to restore stock",
				zap.String("product_id", d.ProductID.String()),
				zap.Int("quantity", d.Quantity),
				zap.Error(err),
			)
		}
	}
}

// Journal records one OUT movement per applied decrement.
func (l *StockLedger) Journal(ctx context.Context, invoiceID uuid.UUID, applied []StockDecrement) error {
	movements := make([]model.StockMovement, len(applied))
	for i, d := range applied {
		id := invoiceID
		movements[i] = model.StockMovement{
			ProductID: d.ProductID,
			InvoiceID: &id,
			Type:      model.MovementOut,
			Quantity:  d.Quantity,
		}
	}
	if err := l.products.RecordMovements(ctx, movements); err != nil {
		return &PersistenceError{Op: "record stock movements", Err: err}
	}
	return nil
}
