package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context. The HTTP layer maps them to status codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeConflict          = "CONCURRENCY_CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidState      = "INVALID_STATE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeConsistency       = "CONSISTENCY_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches any not-found error regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrConcurrencyConflict = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrConsistency         = NewDomainError(CodeConsistency, "Stored data is inconsistent")
)

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing entity, or one owned by another organization.
func NewNotFoundError(entity string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// NewPermissionError reports a role lacking the named capability.
func NewPermissionError(permission string) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf("missing permission %s", permission))
}

// NewConsistencyError reports an internal invariant violation.
func NewConsistencyError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConsistency, fmt.Sprintf(format, args...))
}

// InsufficientStockError is returned when a sale asks for more units than remain.
type InsufficientStockError struct {
	DomainError
	Available int `json:"available"`
	Requested int `json:"requested"`
}

// NewInsufficientStockError creates an InsufficientStockError for one product.
func NewInsufficientStockError(productName string, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		DomainError: DomainError{
			Code: CodeInsufficientStock,
			Message: fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
				productName, available, requested),
		},
		Available: available,
		Requested: requested,
	}
}

// Unwrap exposes the embedded DomainError to errors.As and errors.Is.
func (e *InsufficientStockError) Unwrap() error {
	return &e.DomainError
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
