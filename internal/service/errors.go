package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Categories. Every error returned by the invoice core matches exactly one
// of these with errors.Is, which is what the HTTP layer maps to a status.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
	ErrForbidden   = errors.New("forbidden")
)

type categorized struct {
	msg  string
	code string
	kind error
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.kind }
func (e *categorized) Code() string  { return e.code }

var (
	ErrEmptyInvoice    error = &categorized{"invoice must contain at least one item", "EMPTY_INVOICE", ErrValidation}
	ErrInvoiceNotFound error = &categorized{"invoice not found", "INVOICE_NOT_FOUND", ErrNotFound}
	ErrNotPermitted    error = &categorized{"actor may not create invoices", "FORBIDDEN", ErrForbidden}
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

// InvalidLineItemError rejects one line of a request. Index is -1 when the
// problem is not tied to a single line (e.g. a negative tax rate).
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	if e.Index < 0 {
		return "invalid invoice: " + e.Reason
	}
	return fmt.Sprintf("invalid line item %d: %s", e.Index, e.Reason)
}

func (e *InvalidLineItemError) Unwrap() error { return ErrValidation }
func (e *InvalidLineItemError) Code() string  { return "INVALID_LINE_ITEM" }

// ValidationFailedError reports the first request field rejected by the struct validator.
type ValidationFailedError struct {
	Field string
	Tag   string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", e.Field, e.Tag)
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidation }
func (e *ValidationFailedError) Code() string  { return "INVALID_REQUEST" }

type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }
func (e *ProductNotFoundError) Code() string  { return "PRODUCT_NOT_FOUND" }

type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrConflict }
func (e *InsufficientStockError) Code() string  { return "INSUFFICIENT_STOCK" }

// InvoiceNumberConflictError means the sequencer handed out a number that is
// already stored. It only happens when the counter was reset by hand.
type InvoiceNumberConflictError struct {
	InvoiceNumber string
}

func (e *InvoiceNumberConflictError) Error() string {
	return fmt.Sprintf("invoice number %s already exists", e.InvoiceNumber)
}

func (e *InvoiceNumberConflictError) Unwrap() error { return ErrConflict }
func (e *InvoiceNumberConflictError) Code() string  { return "INVOICE_NUMBER_CONFLICT" }

// PersistenceError wraps a storage or deadline failure. The whole attempt
// was rolled back, so retrying the same request is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
func (e *PersistenceError) Code() string    { return "PERSISTENCE_FAILURE" }
func (e *PersistenceError) Retryable() bool { return true }

// ErrorCode returns the machine-readable code carried by err, or "" if none.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
