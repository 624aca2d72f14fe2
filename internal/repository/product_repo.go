package repository

import (
	"context"
	"strings"
	"time"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return translate(conn(ctx, r.db).Create(product).Error)
}

func (r *productRepo) Search(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	matching := func(db *gorm.DB) *gorm.DB {
		if kw := strings.TrimSpace(q.Keyword); kw != "" {
			pattern := "%" + likeEscaper.Replace(kw) + "%"
			return db.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
		}
		return db
	}

	var total int64
	if err := conn(ctx, r.db).Model(&model.Product{}).Scopes(matching).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	products := make([]model.Product, 0)
	page := conn(ctx, r.db).Scopes(matching).Order("created_at DESC, sku ASC").Offset(q.Offset)
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if err := page.Find(&products).Error; err != nil {
		return nil, 0, translate(err)
	}
	return products, total, nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := conn(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := conn(ctx, r.db).First(&product, "sku = ?", model.NormalizeSKU(sku)).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// DecrementStock is a single UPDATE guarded by stock >= qty, so concurrent
// writers can never drive stock below zero.
func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := conn(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	res := conn(ctx, r.db).Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) RecordMovements(ctx context.Context, movements []model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return translate(conn(ctx, r.db).Create(&movements).Error)
}
