// Package apperror defines the error kinds services return and the API layer
// maps onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	Unauthorized
	Forbidden
	NotFound
	InvalidState
	InsufficientStock
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	case InsufficientStock:
		return "insufficient_stock"
	default:
		return "internal"
	}
}

// Error is a classified error with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a copy of e, so sentinel values stay untouched.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// InsufficientStockError reports a quantity that exceeds the product's stock.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
	Message     string
}

func (e *InsufficientStockError) Error() string { return e.Message }

func NewInsufficientStock(productID uuid.UUID, name string, requested, available int, message string) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:   productID,
		ProductName: name,
		Requested:   requested,
		Available:   available,
		Message:     message,
	}
}

// KindOf classifies err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return InsufficientStock
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Message returns the client-facing message of a classified error, or "" for
// internal ones.
func Message(err error) string {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr.Message
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	return ""
}
