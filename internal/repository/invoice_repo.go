package repository

import (
	"context"
	"strings"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type invoiceRepo struct {
	db *gorm.DB
}

func NewInvoiceRepo(db *gorm.DB) InvoiceRepository {
	return &invoiceRepo{db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func creatorName(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Select("id", "full_name")
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	invoice.Staged = true
	for i := range invoice.Items {
		invoice.Items[i].Position = i
	}
	return translate(conn(ctx, r.db).Create(invoice).Error)
}

func (r *invoiceRepo) Publish(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND staged = ?", id, true).
		Update("staged", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) Discard(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		staged := tx.Unscoped().Model(&model.Invoice{}).Select("id").Where("id = ? AND staged = ?", id, true)
		if err := tx.Where("invoice_id IN (?)", staged).Delete(&model.LineItem{}).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Unscoped().Where("id = ? AND staged = ?", id, true).Delete(&model.Invoice{}).Error)
	})
}

func (r *invoiceRepo) Find(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	q := conn(ctx, r.db).Where("staged = ?", false)
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}
	if name := strings.TrimSpace(filter.CustomerName); name != "" {
		q = q.Where("customer_name ILIKE ?", "%"+likeEscaper.Replace(name)+"%")
	}

	var invoices []model.Invoice
	err := q.Preload("Items", itemsInOrder).
		Preload("Creator", creatorName).
		Order("created_at DESC, sequence_no DESC").
		Find(&invoices).Error
	return invoices, translate(err)
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := conn(ctx, r.db).
		Preload("Items", itemsInOrder).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Select("id", "sku", "description")
		}).
		Preload("Creator", creatorName).
		Where("staged = ?", false).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &invoice, nil
}
