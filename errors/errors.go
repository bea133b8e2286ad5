// Package errors provides error handling for graphex.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Create new error
//	err := errors.New("graph response missing nodes")
//
//	// Wrap with context
//	if err := client.Load(ctx, name, r); err != nil {
//	    return errors.Wrap(err, "failed to load graph")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "choose a JSON or CSV file")
//
//	// Check errors
//	if errors.Is(err, errors.ErrInvalidGraph) {
//	    // keep the previous graph
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	Mark      = crdb.Mark
)

// Sentinel errors shared across graphex.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrInvalidGraph indicates a candidate graph lacks array-typed nodes or edges
	ErrInvalidGraph = New("invalid graph shape")

	// ErrNoGraph indicates an operation needs a loaded graph and none is active
	ErrNoGraph = New("no graph loaded")

	// ErrNoUpload indicates a load was requested without a selected file
	ErrNoUpload = New("no file selected")

	// ErrTransport indicates the backend could not be reached or answered with a failure status
	ErrTransport = New("transport failure")

	// ErrProtocol indicates the backend answered with a body that could not be understood
	ErrProtocol = New("protocol failure")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsInvalidGraphError checks if an error is or wraps ErrInvalidGraph
func IsInvalidGraphError(err error) bool {
	return err != nil && Is(err, ErrInvalidGraph)
}

// IsTransportError checks if an error is or wraps ErrTransport
func IsTransportError(err error) bool {
	return err != nil && Is(err, ErrTransport)
}

// IsProtocolError checks if an error is or wraps ErrProtocol
func IsProtocolError(err error) bool {
	return err != nil && Is(err, ErrProtocol)
}

// WrapInvalidRequest wraps an error as an invalid-request error with context
func WrapInvalidRequest(err error, context string) error {
	return Wrap(Wrap(ErrInvalidRequest, err.Error()), context)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewTransportError creates a transport error with a formatted message
func NewTransportError(format string, args ...interface{}) error {
	return Wrap(ErrTransport, Newf(format, args...).Error())
}

// NewProtocolError creates a protocol error with a formatted message
func NewProtocolError(format string, args ...interface{}) error {
	return Wrap(ErrProtocol, Newf(format, args...).Error())
}
