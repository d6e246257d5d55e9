package linker

import "errors"

var (
	// ErrNothingToLink is returned by Link when invoked with zero modules.
	ErrNothingToLink = errors.New("slf: nothing to link")

	// ErrMismatchingSymbolSize is returned when a module's symbol_size
	// disagrees with the declared or inferred link-wide size.
	ErrMismatchingSymbolSize = errors.New("slf: mismatching symbol size")

	// ErrValueDoesNotFit is returned by patch arithmetic on replace when
	// the resolved address exceeds the symbol width. (The spec's
	// IntegerOverflow and ValueDoesNotFit kinds collapse to this one
	// sentinel; see DESIGN.md.)
	ErrValueDoesNotFit = errors.New("slf: patched value does not fit in symbol width")
)
