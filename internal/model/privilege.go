package model

// Privilege represents a permission that can be granted to a role
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "invoice:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivilegeProductView   = "product:view"
	PrivilegeInvoiceView   = "invoice:view"
	PrivilegeInvoiceCreate = "invoice:create"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivilegeProductView, Name: "View Product"},
	{Code: PrivilegeInvoiceView, Name: "View Invoice"},
	{Code: PrivilegeInvoiceCreate, Name: "Create Invoice"},
}
