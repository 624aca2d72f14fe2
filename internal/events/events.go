// Package events carries post-commit notifications out of the invoice core.
// Delivery is best effort and never feeds back into a transaction outcome.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeInvoiceCreated = "invoice_created"
	TypeStockUpdate    = "stock_update"
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"-"`
	Message    string    `json:"message,omitempty"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
