// Package errors provides error handling for fieldbridge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrRecordNotFound) {
//	    // handle not found
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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the preview engine's failure taxonomy.
// Use these with errors.Is() for type-safe error checking, and
// errors.Wrap() to add context while preserving the type.
var (
	// ErrCatalogUnavailable indicates a provider's field catalog could not be
	// fetched. Mapping operations against that provider are blocked until a
	// retry succeeds.
	ErrCatalogUnavailable = New("field catalog unavailable")

	// ErrRecordNotFound indicates a source record does not exist in the
	// provider. Isolated to that record's batch entry.
	ErrRecordNotFound = New("record not found")

	// ErrTransientIO indicates a record fetch failed for a retriable reason
	// (network, throttling). Isolated to that record's batch entry.
	ErrTransientIO = New("transient I/O failure")

	// ErrTransformation indicates a single field's transform errored.
	// Isolated to that field; the rest of the record still computes.
	ErrTransformation = New("transformation failed")
)

// IsCatalogUnavailable checks if an error is or wraps ErrCatalogUnavailable.
func IsCatalogUnavailable(err error) bool {
	return err != nil && Is(err, ErrCatalogUnavailable)
}

// IsRecordNotFound checks if an error is or wraps ErrRecordNotFound.
func IsRecordNotFound(err error) bool {
	return err != nil && Is(err, ErrRecordNotFound)
}

// IsTransientIO checks if an error is or wraps ErrTransientIO.
func IsTransientIO(err error) bool {
	return err != nil && Is(err, ErrTransientIO)
}

// IsTransformation checks if an error is or wraps ErrTransformation.
func IsTransformation(err error) bool {
	return err != nil && Is(err, ErrTransformation)
}

// NewCatalogUnavailable creates a catalog-unavailable error with a formatted message.
func NewCatalogUnavailable(format string, args ...interface{}) error {
	return Wrap(ErrCatalogUnavailable, Newf(format, args...).Error())
}

// NewRecordNotFound creates a not-found error with a formatted message.
func NewRecordNotFound(format string, args ...interface{}) error {
	return Wrap(ErrRecordNotFound, Newf(format, args...).Error())
}

// NewTransformation creates a transformation error with a formatted message.
func NewTransformation(format string, args ...interface{}) error {
	return Wrap(ErrTransformation, Newf(format, args...).Error())
}
