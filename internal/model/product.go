package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is owned by the catalog. Invoicing only reads it and decrements Stock.
type Product struct {
	BaseModel
	SKU          string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Unit         string          `gorm:"type:varchar(20)" json:"unit,omitempty"`
	CostPrice    decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"cost_price" validate:"gte=0"`
	SellingPrice decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"selling_price" validate:"gte=0"`
	Stock        int             `gorm:"not null;default:0;check:chk_products_stock_nonneg,stock >= 0" json:"stock" validate:"gte=0"`
}

// NormalizeSKU trims and upper-cases a SKU so lookups are case-insensitive.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.SKU = NormalizeSKU(p.SKU)
	return nil
}
