package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-invoice/internal/repository"
)

const (
	InvoiceCounterName = "invoice"
	// InvoiceCounterStart is the stored counter value before the first
	// invoice, so numbering begins at INV-1001.
	InvoiceCounterStart int64 = 1000
	InvoicePrefix             = "INV-"
)

func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("%s%d", InvoicePrefix, seq)
}

// InvoiceSequencer hands out invoice numbers from one atomically
// incremented counter row. Numbers never repeat; under a transactional
// store a rolled-back attempt gives its number back.
type InvoiceSequencer struct {
	counters repository.CounterRepository
}

func NewInvoiceSequencer(counters repository.CounterRepository) *InvoiceSequencer {
	return &InvoiceSequencer{counters: counters}
}

// Next returns the next sequence value and its display form.
func (s *InvoiceSequencer) Next(ctx context.Context) (int64, string, error) {
	seq, err := s.counters.Increment(ctx, InvoiceCounterName)
	if errors.Is(err, repository.ErrNotFound) {
		// Bootstrap normally creates the row; create it lazily if it did not.
		if err = s.counters.Ensure(ctx, InvoiceCounterName, InvoiceCounterStart); err == nil {
			seq, err = s.counters.Increment(ctx, InvoiceCounterName)
		}
	}
	if err != nil {
		return 0, "", &PersistenceError{Op: "allocate invoice number", Err: err}
	}
	return seq, FormatInvoiceNumber(seq), nil
}
