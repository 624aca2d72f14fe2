package model

import "github.com/google/uuid"

type MovementType string

const MovementOut MovementType = "OUT"

// StockMovement journals one applied stock change. Invoice creation writes
// one OUT row per product once its decrement batch has been committed.
type StockMovement struct {
	BaseModel
	ProductID uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	InvoiceID *uuid.UUID   `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	Type      MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"`
}
