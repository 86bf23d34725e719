package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/facturacion/validation"
	"gorm.io/gorm"
)

// Kind classifies service errors for callers and the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindIO
)

// Error is the error type returned by every service in this package.
// Code is a stable snake_case identifier; Fields carries per-field violations.
type Error struct {
	Kind   Kind
	Code   string
	Fields validation.Violations
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and code, so that sentinels
// keep matching after detail has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) ErrorCode() string { return e.Code }

func (e *Error) ErrorDetails() any {
	if len(e.Fields) == 0 {
		return nil
	}
	return e.Fields
}

// with returns a copy of the sentinel carrying cause and fields.
func (e *Error) with(cause error, fields validation.Violations) *Error {
	cp := *e
	cp.Err = cause
	cp.Fields = fields
	return &cp
}

var (
	ErrInsufficientStock  = &Error{Kind: KindConflict, Code: "insufficient_stock"}
	ErrProductInUse       = &Error{Kind: KindConflict, Code: "product_in_use"}
	ErrCustomerInUse      = &Error{Kind: KindConflict, Code: "customer_in_use"}
	ErrDuplicateCode      = &Error{Kind: KindConflict, Code: "duplicate_code"}
	ErrUsernameTaken      = &Error{Kind: KindConflict, Code: "username_taken"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "invalid_credentials"}
	ErrCustomerNotFound   = &Error{Kind: KindNotFound, Code: "customer_not_found"}
	ErrProductNotFound    = &Error{Kind: KindNotFound, Code: "product_not_found"}
	ErrInvoiceNotFound    = &Error{Kind: KindNotFound, Code: "invoice_not_found"}
	ErrEmptyInvoice       = &Error{Kind: KindValidation, Code: "empty_invoice"}
	ErrPDFWrite           = &Error{Kind: KindIO, Code: "pdf_write_failed"}
	ErrPDFRender          = &Error{Kind: KindInternal, Code: "pdf_render_failed"}
	ErrExportWrite        = &Error{Kind: KindIO, Code: "export_write_failed"}
)

// KindOf returns the Kind of err, or KindInternal when err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func invalid(fields validation.Violations) error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Fields: fields}
}

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Code: "internal_error", Err: fmt.Errorf("%s: %w", op, err)}
}

// notFoundOr maps gorm.ErrRecordNotFound to the given sentinel and anything
// else to an internal error.
func notFoundOr(sentinel *Error, op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel.with(err, nil)
	}
	return internal(op, err)
}
