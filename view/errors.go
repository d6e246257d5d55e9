package view

import "errors"

// Sentinel error kinds, per the format's error handling design. Wrapped
// occurrences (via github.com/pkg/errors) still satisfy errors.Is against
// these values.
var (
	// ErrInvalidHeader: magic mismatch, or fewer than 4 bytes to even read
	// the magic.
	ErrInvalidHeader = errors.New("slf: invalid header")

	// ErrInvalidData: any later validation failure — truncated buffer,
	// table offsets out of bounds, malformed string-table tiling, missing
	// zero terminator, symbol_size not in {1,2,4,8}, or (when enabled)
	// symbol/reloc offsets outside the data section.
	ErrInvalidData = errors.New("slf: invalid data")
)
