package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-invoice/internal/events"
	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	TracerName = "go-pos-invoice/internal/service"

	DefaultInvoiceTimeout = 10 * time.Second
	notifyTimeout         = 5 * time.Second
)

// Actor is the authenticated staff member on whose behalf an invoice is created.
type Actor struct {
	ID                uuid.UUID
	Name              string
	MayCreateInvoices bool
}

type CreateItemRequest struct {
	ProductID uuid.UUID `json:"product" validate:"uuid_required"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	// Price is the unit price charged. Nil means the product's selling price.
	Price *decimal.Decimal `json:"price"`
}

type CreateInvoiceRequest struct {
	CustomerName  string              `json:"customerName" validate:"required,max=255"`
	CustomerPhone string              `json:"customerPhone" validate:"omitempty,max=32"`
	Items         []CreateItemRequest `json:"items" validate:"dive"`
	TaxRate       decimal.Decimal     `json:"taxRate"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod" validate:"oneof=Cash Card Online Other"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus" validate:"oneof=Paid Pending Cancelled"`
}

func (r *CreateInvoiceRequest) normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	if r.PaymentMethod == "" {
		r.PaymentMethod = model.PaymentCash
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = model.PaymentPaid
	}
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, actor Actor, req *CreateInvoiceRequest) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter repository.InvoiceFilter) ([]model.Invoice, error)
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
}

type InvoiceServiceConfig struct {
	// Timeout bounds one creation attempt end to end.
	Timeout   time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
	Publisher events.Publisher
	Tracer    trace.Tracer
}

type invoiceService struct {
	products  repository.ProductRepository
	invoices  repository.InvoiceRepository
	tx        repository.TxManager
	ledger    *StockLedger
	sequencer *InvoiceSequencer

	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
	publisher events.Publisher
	tracer    trace.Tracer
}

func NewInvoiceService(repos repository.Repositories, cfg InvoiceServiceConfig) InvoiceService {
	s := &invoiceService{
		products:  repos.Products,
		invoices:  repos.Invoices,
		tx:        repos.Tx,
		sequencer: NewInvoiceSequencer(repos.Counters),
		timeout:   cfg.Timeout,
		now:       cfg.Now,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		tracer:    cfg.Tracer,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultInvoiceTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(TracerName)
	}
	s.ledger = NewStockLedger(repos.Products, s.logger)
	s.ledger.storeRollsBack = s.tx.Atomic()
	return s
}

// CreateInvoice validates and prices the request, then numbers, stores and
// commits it. The result is all or nothing: either the invoice is visible
// and every stock decrement applied, or neither.
func (s *invoiceService) CreateInvoice(ctx context.Context, actor Actor, req *CreateInvoiceRequest) (inv *model.Invoice, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "invoice.create")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorCode(err))
			s.logger.Info("invoice rejected",
				zap.String("actor_id", actor.ID.String()),
				zap.String("code", ErrorCode(err)),
				zap.Error(err),
			)
		}
		span.End()
	}()

	if !actor.MayCreateInvoices {
		return nil, ErrNotPermitted
	}

	draft, batch, err := s.prepare(ctx, req)
	if err != nil {
		return nil, persistenceUnlessTyped("validate invoice", err)
	}
	if actor.ID != uuid.Nil {
		creator := actor.ID
		draft.CreatorID = &creator
	}

	if err := s.commit(ctx, draft, batch); err != nil {
		return nil, persistenceUnlessTyped("commit invoice", err)
	}

	span.SetAttributes(
		attribute.String("invoice.number", draft.InvoiceNumber),
		attribute.Int("invoice.items", len(draft.Items)),
	)
	s.logger.Info("invoice created",
		zap.String("invoice_number", draft.InvoiceNumber),
		zap.String("actor_id", actor.ID.String()),
		zap.Int("items", len(draft.Items)),
		zap.String("grand_total", draft.GrandTotal.StringFixed(MoneyPlaces)),
	)
	s.notify(trace.SpanContextFromContext(ctx), actor, draft, MergeDecrements(batch))
	return draft, nil
}

// prepare covers everything that happens before the first write: request
// validation, product lookup, pricing and the advisory stock check.
func (s *invoiceService) prepare(ctx context.Context, req *CreateInvoiceRequest) (*model.Invoice, []StockDecrement, error) {
	ctx, span := s.tracer.Start(ctx, "invoice.validate")
	defer span.End()

	if req == nil || len(req.Items) == 0 {
		return nil, nil, ErrEmptyInvoice
	}
	req.normalize()
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, nil, &ValidationFailedError{Field: errs[0].FailedField, Tag: errs[0].Tag}
	}

	items := make([]model.LineItem, len(req.Items))
	priced := make([]PricedItem, len(req.Items))
	batch := make([]StockDecrement, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, nil, &InvalidLineItemError{Index: i, Reason: "quantity must be positive"}
		}
		p, err := s.products.FindByID(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if err != nil {
			return nil, nil, &PersistenceError{Op: "read product", Err: err}
		}

		price := p.SellingPrice
		if it.Price != nil {
			price = *it.Price
		}
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = p.Name
		}
		items[i] = model.LineItem{ProductID: p.ID, Name: name, Quantity: it.Quantity, Price: price}
		priced[i] = PricedItem{Quantity: it.Quantity, Price: price}
		batch[i] = StockDecrement{ProductID: p.ID, Quantity: it.Quantity}
	}

	totals, err := CalculateTotals(priced, req.TaxRate)
	if err != nil {
		return nil, nil, err
	}
	for i := range items {
		items[i].Subtotal = totals.LineSubtotals[i]
	}

	for _, d := range MergeDecrements(batch) {
		if _, err := s.ledger.CheckAvailability(ctx, d.ProductID, d.Quantity); err != nil {
			return nil, nil, err
		}
	}

	return &model.Invoice{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Items:         items,
		SubTotal:      totals.SubTotal,
		TaxRate:       req.TaxRate,
		TaxAmount:     totals.TaxAmount,
		GrandTotal:    totals.GrandTotal,
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
	}, batch, nil
}

// commit runs numbering, the staged write, the stock batch and publication
// in one storage transaction. Stores without rollback get the same outcome
// from the compensation in rollback.
func (s *invoiceService) commit(ctx context.Context, inv *model.Invoice, batch []StockDecrement) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ctx, span := s.tracer.Start(ctx, "invoice.commit")
		defer span.End()

		seq, number, err := s.sequencer.Next(ctx)
		if err != nil {
			return err
		}
		inv.SequenceNo, inv.InvoiceNumber = seq, number
		inv.CreatedAt = s.now()

		if err := s.invoices.Create(ctx, inv); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return &InvoiceNumberConflictError{InvoiceNumber: number}
			}
			return &PersistenceError{Op: "store invoice", Err: err}
		}

		applied, err := s.ledger.CommitDecrements(ctx, batch)
		if err == nil {
			err = s.ledger.Journal(ctx, inv.ID, applied)
		}
		if err == nil {
			if perr := s.invoices.Publish(ctx, inv.ID); perr != nil {
				err = &PersistenceError{Op: "publish invoice", Err: perr}
			}
		}
		if err != nil {
			if !s.tx.Atomic() {
				s.rollback(ctx, inv, applied)
			}
			return err
		}
		inv.Staged = false
		return nil
	})
}

// rollback undoes a failed attempt by hand for stores whose transactions
// cannot. It runs detached from ctx's deadline so an expired attempt still
// cleans up.
func (s *invoiceService) rollback(ctx context.Context, inv *model.Invoice, applied []StockDecrement) {
	ctx = context.WithoutCancel(ctx)
	s.ledger.Restore(ctx, applied)
	if err := s.invoices.Discard(ctx, inv.ID); err != nil {
		s.logger.Warn("failed to discard staged invoice",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err),
		)
	}
}

func (s *invoiceService) notify(sc trace.SpanContext, actor Actor, inv *model.Invoice, applied []StockDecrement) {
	resp := inv.ToResponse()
	number, occurred := inv.InvoiceNumber, inv.CreatedAt
	go func() {
		ctx, cancel := context.WithTimeout(trace.ContextWithSpanContext(context.Background(), sc), notifyTimeout)
		defer cancel()

		evts := []events.Event{{
			Type:       events.TypeInvoiceCreated,
			Key:        number,
			Message:    fmt.Sprintf("%s created invoice %s", actor.Name, number),
			Data:       resp,
			OccurredAt: occurred,
		}}
		for _, d := range applied {
			evts = append(evts, events.Event{
				Type: events.TypeStockUpdate,
				Key:  d.ProductID.String(),
				Data: map[string]interface{}{
					"product_id":     d.ProductID,
					"quantity_sold":  d.Quantity,
					"invoice_number": number,
				},
				OccurredAt: occurred,
			})
		}
		for _, evt := range evts {
			if err := s.publisher.Publish(ctx, evt); err != nil {
				s.logger.Warn("failed to publish event", zap.String("type", evt.Type), zap.Error(err))
			}
		}
	}()
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter repository.InvoiceFilter) ([]model.Invoice, error) {
	invoices, err := s.invoices.Find(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list invoices", Err: err}
	}
	return invoices, nil
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get invoice", Err: err}
	}
	return inv, nil
}

// persistenceUnlessTyped keeps domain errors as they are and reports
// anything else, deadline expiry included, as a retryable persistence failure.
func persistenceUnlessTyped(op string, err error) error {
	if ErrorCode(err) != "" {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
