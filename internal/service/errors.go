package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error so the API layer can map it to an HTTP
// status without string matching.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindNotFound          Kind = "NotFoundError"
	KindInsufficientStock Kind = "InsufficientStockError"
	KindConflict          Kind = "ConflictError"
	KindAlreadySubmitted  Kind = "AlreadySubmitted"
	KindInvalidStatus     Kind = "InvalidStatus"
	KindPersistence       Kind = "PersistenceError"
)

// Error is a classified service error. For insufficient-stock failures it
// carries the product name and the available/requested counts.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	Product   string
	Available int
	Requested int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func insufficientStockErr(product string, available, requested int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %q: available=%d, requested=%d", product, available, requested),
		Product:   product,
		Available: available,
		Requested: requested,
	}
}

func conflictErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func alreadySubmittedErr(orderID int64) *Error {
	return &Error{Kind: KindAlreadySubmitted, Message: fmt.Sprintf("payment proof already submitted for order %d", orderID)}
}

func invalidStatusErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidStatus, Message: fmt.Sprintf(format, args...)}
}

func persistenceErr(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the classification of err, defaulting to PersistenceError
// for anything untyped that escapes the service layer.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPersistence
}
