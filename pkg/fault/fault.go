// Package fault defines the structured error surface shared by the
// memory areas, the symbol store, and the state façade. Nothing in the
// execution core panics on user input: every user-facing failure is an
// *Error carrying one of the codes below.
package fault

import (
	"errors"
	"fmt"
)

// Code classifies a failure for programmatic handling.
type Code string

const (
	InvalidAddress    Code = "invalid-address"
	OutOfRange        Code = "out-of-range"
	AlignmentError    Code = "alignment-error"
	TypeMismatch      Code = "type-mismatch"
	UnknownFBInstance Code = "unknown-fb-instance"
	UnknownSymbol     Code = "unknown-symbol"
	InvalidSymbolPath Code = "invalid-symbol-path"
	InvalidConfig     Code = "invalid-config"
	UninitializedArea Code = "uninitialized-area"
)

// Error is a structured, user-input-level failure.
type Error struct {
	Code    Code
	Message string
	Address string            // offending address or symbol path, when known
	Details map[string]string // optional extra context (declared lengths etc.)
}

func (e *Error) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Address)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At builds an Error annotated with the offending address.
func At(code Code, address, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Address: address}
}

// WithDetail attaches one key/value detail and returns the same error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the fault code from err, unwrapping as needed.
// Returns "" when err carries no fault.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
