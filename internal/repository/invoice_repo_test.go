package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestInvoiceReadsExcludeStaged(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		db, rec := dryRunDB(t)
		repo := NewInvoiceRepo(db)
		if _, err := repo.Find(context.Background(), InvoiceFilter{CustomerName: "a_b"}); err != nil {
			t.Fatalf("find: %v", err)
		}
		assertSQL(t, rec.statement(t, `FROM "invoices"`),
			"staged = false",
			`customer_name ILIKE '%a\_b%'`,
			"ORDER BY created_at DESC, sequence_no DESC",
		)
	})

	t.Run("detail", func(t *testing.T) {
		db, rec := dryRunDB(t)
		repo := NewInvoiceRepo(db)
		id := uuid.New()
		_, _ = repo.FindByID(context.Background(), id)
		assertSQL(t, rec.statement(t, `FROM "invoices"`),
			"staged = false",
			"id = '"+id.String()+"'",
			"LIMIT 1",
		)
	})

	t.Run("publish", func(t *testing.T) {
		db, rec := dryRunDB(t)
		repo := NewInvoiceRepo(db)
		id := uuid.New()
		if err := repo.Publish(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("publish err = %v, want ErrNotFound when no staged row matched", err)
		}
		assertSQL(t, rec.statement(t, `UPDATE "invoices"`),
			`"staged"=false`,
			"staged = true",
			"id = '"+id.String()+"'",
		)
	})
}

func newTestInvoice(p *model.Product, customer string) *model.Invoice {
	price := decimal.NewFromInt(4)
	return &model.Invoice{
		InvoiceNumber: "IT-" + uniqueTag(),
		SequenceNo:    time.Now().UnixNano(),
		CustomerName:  customer,
		Items: []model.LineItem{
			{ProductID: p.ID, Name: p.Name, Quantity: 1, Price: price, Subtotal: price},
		},
		SubTotal:      price,
		TaxRate:       decimal.Zero,
		TaxAmount:     decimal.Zero,
		GrandTotal:    price,
		PaymentStatus: model.PaymentPaid,
		PaymentMethod: model.PaymentCash,
	}
}

func countLineItems(t *testing.T, db *gorm.DB, invoiceID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.LineItem{}).Where("invoice_id = ?", invoiceID).Count(&n).Error; err != nil {
		t.Fatalf("count line items: %v", err)
	}
	return n
}

func TestPostgresInvoiceLifecycle(t *testing.T) {
	db := postgresDB(t)
	products := NewProductRepo(db)
	repo := NewInvoiceRepo(db)
	ctx := context.Background()
	tag := uniqueTag()

	p := &model.Product{SKU: "it-" + tag, Name: tag, SellingPrice: decimal.NewFromInt(4), Stock: 10}
	if err := products.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	first := newTestInvoice(p, tag+"a_b")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.FindByID(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("staged invoice visible by id: err=%v", err)
	}
	if got, err := repo.Find(ctx, InvoiceFilter{CustomerName: tag}); err != nil || len(got) != 0 {
		t.Fatalf("staged invoice listed: %d rows, err=%v", len(got), err)
	}

	if err := repo.Publish(ctx, first.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := repo.Publish(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second publish err = %v, want ErrNotFound", err)
	}
	got, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find published: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Product == nil || got.Items[0].Product.SKU != p.SKU {
		t.Fatalf("published invoice items = %+v", got.Items)
	}

	second := newTestInvoice(p, tag+"axb")
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := repo.Publish(ctx, second.ID); err != nil {
		t.Fatalf("publish second: %v", err)
	}

	list, err := repo.Find(ctx, InvoiceFilter{CustomerName: tag + "a_b"})
	if err != nil {
		t.Fatalf("find a_b: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("filter a_b matched %d invoices, want only %s", len(list), first.InvoiceNumber)
	}
	if list, _ = repo.Find(ctx, InvoiceFilter{CustomerName: tag}); len(list) != 2 {
		t.Fatalf("filter on shared prefix matched %d invoices, want 2", len(list))
	}

	staged := newTestInvoice(p, tag+"staged")
	if err := repo.Create(ctx, staged); err != nil {
		t.Fatalf("create staged: %v", err)
	}
	if err := repo.Discard(ctx, staged.ID); err != nil {
		t.Fatalf("discard staged: %v", err)
	}
	var rows int64
	db.Unscoped().Model(&model.Invoice{}).Where("id = ?", staged.ID).Count(&rows)
	if rows != 0 || countLineItems(t, db, staged.ID) != 0 {
		t.Fatalf("discarded invoice left %d rows and %d items", rows, countLineItems(t, db, staged.ID))
	}

	if err := repo.Discard(ctx, first.ID); err != nil {
		t.Fatalf("discard published: %v", err)
	}
	if _, err := repo.FindByID(ctx, first.ID); err != nil {
		t.Fatalf("discard removed a published invoice: %v", err)
	}
	if n := countLineItems(t, db, first.ID); n != 1 {
		t.Fatalf("discard removed items of a published invoice: %d left", n)
	}
}
