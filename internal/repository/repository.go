package repository

import (
	"context"
	"errors"
	"time"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ProductQuery matches Keyword case-insensitively against name or SKU, newest
// first. Limit <= 0 means no limit.
type ProductQuery struct {
	Keyword string
	Offset  int
	Limit   int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	// Search returns one page of products matching q and the total number of matches.
	Search(ctx context.Context, q ProductQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)

	// DecrementStock subtracts qty only if the current stock covers it, as a
	// single conditional write. It reports false when the condition failed.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
	RecordMovements(ctx context.Context, movements []model.StockMovement) error
}

// InvoiceFilter bounds are inclusive; zero values mean "unbounded".
type InvoiceFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	CustomerName string
}

type InvoiceRepository interface {
	// Create writes the invoice staged; it stays invisible until Publish.
	Create(ctx context.Context, invoice *model.Invoice) error
	Publish(ctx context.Context, id uuid.UUID) error
	// Discard removes a staged invoice as a compensating action.
	Discard(ctx context.Context, id uuid.UUID) error

	Find(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
}

type CounterRepository interface {
	// Increment atomically bumps the named counter and returns the new value.
	Increment(ctx context.Context, name string) (int64, error)
	// Ensure creates the counter at start if it does not exist yet.
	Ensure(ctx context.Context, name string, start int64) error
}

// TxManager runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether a failed fn leaves none of its writes behind.
	// Callers compensate by hand when it is false.
	Atomic() bool
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
	UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error
}

type RoleRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	SeedDefaults(ctx context.Context) error
	ReplacePrivileges(ctx context.Context, roleCode string, privileges []model.Privilege) error
}

type PrivilegeRepository interface {
	FindAll(ctx context.Context) ([]model.Privilege, error)
	FindByCodes(ctx context.Context, codes []string) ([]model.Privilege, error)
	SeedDefaults(ctx context.Context) error
}

// Repositories bundles one storage backend's implementations.
type Repositories struct {
	Products   ProductRepository
	Invoices   InvoiceRepository
	Counters   CounterRepository
	Users      UserRepository
	Roles      RoleRepository
	Privileges PrivilegeRepository
	Tx         TxManager
}
