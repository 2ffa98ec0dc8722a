package models

import (
	"errors"
	"io"
	"testing"
)

func TestCatalogError_Is(t *testing.T) {
	err := error(NewCatalogUnavailable(io.ErrUnexpectedEOF))

	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Error("expected errors.Is to match ErrCatalogUnavailable")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected errors.Is to match the cause")
	}
	if errors.Is(err, ErrCatalogEmpty) {
		t.Error("unavailable catalog must not match ErrCatalogEmpty")
	}

	var catErr *CatalogError
	if !errors.As(err, &catErr) {
		t.Fatal("expected errors.As to find *CatalogError")
	}
	if got, want := catErr.Error(), "catalog unavailable: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCatalogError_Empty(t *testing.T) {
	err := NewCatalogEmpty()

	if !errors.Is(err, ErrCatalogEmpty) {
		t.Error("expected errors.Is to match ErrCatalogEmpty")
	}
	if got := err.Error(); got != "catalog has no tables" {
		t.Errorf("Error() = %q", got)
	}
}
