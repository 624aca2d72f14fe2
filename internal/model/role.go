package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleCashier     = "CASHIER"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleMasterAdmin,
		Name:        "Master Administrator",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Point-of-sale access: ring up and look up invoices",
	},
}

// DefaultRolePrivileges lists the privilege codes each seeded role receives.
// A nil entry means every known privilege.
var DefaultRolePrivileges = map[string][]string{
	RoleMasterAdmin: nil,
	RoleCashier:     {PrivilegeProductView, PrivilegeInvoiceView, PrivilegeInvoiceCreate},
}
