package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds surfaced by the services. Callers compare with errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOutOfStock              = errors.New("not enough stock")
	ErrValidation              = errors.New("validation failed")
	ErrForbidden               = errors.New("forbidden")
	ErrConflict                = errors.New("conflict")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// StockError reports which gold item ran short. It unwraps to
// ErrInsufficientStock at checkout and to ErrOutOfStock when adding to a cart.
type StockError struct {
	GoldID    uuid.UUID
	Requested int
	Available int
	kind      error
}

// NewInsufficientStockError is returned by checkout when a line exceeds stock.
func NewInsufficientStockError(goldID uuid.UUID, requested, available int) *StockError {
	return &StockError{GoldID: goldID, Requested: requested, Available: available, kind: ErrInsufficientStock}
}

// NewOutOfStockError is returned by cart add when the cumulative quantity exceeds stock.
func NewOutOfStockError(goldID uuid.UUID, requested, available int) *StockError {
	return &StockError{GoldID: goldID, Requested: requested, Available: available, kind: ErrOutOfStock}
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s for gold %s: requested %d, available %d", e.kind, e.GoldID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.kind
}

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StoreError wraps a failure of the underlying store. The transaction it
// happened in has been rolled back.
type StoreError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
