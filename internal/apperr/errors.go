// Package apperr defines the typed business errors services return and
// the boundary layer maps onto transport status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	CodeNotFound                   Code = "NOT_FOUND"
	CodeValidation                 Code = "VALIDATION"
	CodeConflict                   Code = "CONFLICT"
	CodeBusiness                   Code = "BUSINESS"
	CodeIllegalTransition          Code = "ILLEGAL_TRANSITION"
	CodeTerminalState              Code = "TERMINAL_STATE"
	CodeAlreadyClosed              Code = "ALREADY_CLOSED"
	CodeNonZeroBalance             Code = "NON_ZERO_BALANCE"
	CodeInactiveCustomer           Code = "INACTIVE_CUSTOMER"
	CodeInactiveProduct            Code = "INACTIVE_PRODUCT"
	CodeBelowMinimumOpeningBalance Code = "BELOW_MINIMUM_OPENING_BALANCE"
	CodeIneligibleCustomerType     Code = "INELIGIBLE_CUSTOMER_TYPE"
	CodeUnauthorized               Code = "UNAUTHORIZED"
	CodeInvalidCredentials         Code = "INVALID_CREDENTIALS"
	CodeInvalidToken               Code = "INVALID_TOKEN"
	CodeAccountLocked              Code = "ACCOUNT_LOCKED"
	CodeAccountDisabled            Code = "ACCOUNT_DISABLED"
	CodeForbidden                  Code = "FORBIDDEN"
	CodeInternal                   Code = "INTERNAL"
)

// Error carries enough context for the boundary to build a response.
type Error struct {
	Code     Code
	Message  string
	Resource string
	Field    string
	Value    any
	Fields   map[string]string // field -> message, validation only
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// NotFound reports a missing entity looked up by field = value.
func NotFound(resource, field string, value any) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found with %s: '%v'", resource, field, value),
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// Conflict reports a duplicate unique value.
func Conflict(resource, field string, value any) *Error {
	return &Error{
		Code:     CodeConflict,
		Message:  fmt.Sprintf("%s with %s '%v' already exists", resource, field, value),
		Resource: resource,
		Field:    field,
		Value:    value,
	}
}

// Validation reports one or more invalid input fields.
func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
