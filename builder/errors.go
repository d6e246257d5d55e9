package builder

import "errors"

// ErrInvalidSymbolSize is returned by New when asked for a symbol width
// outside {1, 2, 4, 8}.
var ErrInvalidSymbolSize = errors.New("slf: invalid symbol size")

// ErrFinalized is returned by any mutating Builder method called after
// Finalize. Builder state is not valid past that point.
var ErrFinalized = errors.New("slf: builder already finalized")
