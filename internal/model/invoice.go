package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "Paid"
	PaymentPending   PaymentStatus = "Pending"
	PaymentCancelled PaymentStatus = "Cancelled"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentCard   PaymentMethod = "Card"
	PaymentOnline PaymentMethod = "Online"
	PaymentOther  PaymentMethod = "Other"
)

// Invoice is immutable once visible. Staged marks a row written by an
// in-flight creation whose stock decrements have not been applied yet;
// staged rows are never returned by reads.
type Invoice struct {
	BaseModel
	InvoiceNumber string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice_number"`
	SequenceNo    int64           `gorm:"uniqueIndex;not null" json:"-"`
	CustomerName  string          `gorm:"type:varchar(255);not null;index" json:"customer_name"`
	CustomerPhone string          `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	Items         []LineItem      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	SubTotal      decimal.Decimal `gorm:"type:numeric;not null" json:"sub_total"`
	TaxRate       decimal.Decimal `gorm:"type:numeric;not null" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric;not null" json:"tax_amount"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric;not null" json:"grand_total"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(16);not null" json:"payment_status"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(16);not null" json:"payment_method"`
	CreatorID     *uuid.UUID      `gorm:"type:uuid;index" json:"creator_id,omitempty"`
	Creator       *User           `gorm:"foreignKey:CreatorID" json:"-"`
	Staged        bool            `gorm:"not null;index" json:"-"`
}

// LineItem belongs to exactly one invoice. Name and Price are snapshots taken
// at sale time; Product is only populated on detail reads.
type LineItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Position  int             `gorm:"not null" json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"-"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric;not null" json:"subtotal"`
}

func (li *LineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

// InvoiceCounter is the single row per sequence that invoice numbers are drawn from.
type InvoiceCounter struct {
	Name  string `gorm:"type:varchar(32);primaryKey"`
	Value int64  `gorm:"not null"`
}

type LineItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description,omitempty"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CreatorResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	Items         []LineItemResponse `json:"items"`
	SubTotal      decimal.Decimal    `json:"sub_total"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	TaxAmount     decimal.Decimal    `json:"tax_amount"`
	GrandTotal    decimal.Decimal    `json:"grand_total"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	PaymentMethod PaymentMethod      `json:"payment_method"`
	Creator       *CreatorResponse   `json:"creator,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ToResponse flattens the resolved product and creator references for display.
func (inv *Invoice) ToResponse() InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Items:         make([]LineItemResponse, len(inv.Items)),
		SubTotal:      inv.SubTotal,
		TaxRate:       inv.TaxRate,
		TaxAmount:     inv.TaxAmount,
		GrandTotal:    inv.GrandTotal,
		PaymentStatus: inv.PaymentStatus,
		PaymentMethod: inv.PaymentMethod,
		CreatedAt:     inv.CreatedAt,
	}
	for i, item := range inv.Items {
		li := LineItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			li.SKU = item.Product.SKU
			li.Description = item.Product.Description
		}
		resp.Items[i] = li
	}
	if inv.Creator != nil {
		resp.Creator = &CreatorResponse{ID: inv.Creator.ID, Name: inv.Creator.FullName}
	} else if inv.CreatorID != nil {
		resp.Creator = &CreatorResponse{ID: *inv.CreatorID}
	}
	return resp
}
