package models

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogUnavailable means the store could not be reached or introspected.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrCatalogEmpty means the store was reachable but holds no tables.
	ErrCatalogEmpty = errors.New("catalog has no tables")
)

// CatalogError is returned when a SchemaSnapshot cannot be built. Kind is
// ErrCatalogUnavailable or ErrCatalogEmpty; Cause is the underlying error,
// if any.
type CatalogError struct {
	Kind  error
	Cause error
}

func (e *CatalogError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *CatalogError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewCatalogUnavailable wraps cause as an unavailable-store CatalogError.
func NewCatalogUnavailable(cause error) *CatalogError {
	return &CatalogError{Kind: ErrCatalogUnavailable, Cause: cause}
}

// NewCatalogEmpty reports a reachable store with no tables.
func NewCatalogEmpty() *CatalogError {
	return &CatalogError{Kind: ErrCatalogEmpty}
}
