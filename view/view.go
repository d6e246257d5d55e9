// Package view parses and validates an SLF buffer into a navigable,
// allocation-free view. View borrows its input slice; its lifetime is
// bounded by that slice's. Nothing in this package copies the buffer or
// retains state beyond small sub-slices of it.
package view

import (
	"github.com/MasterQ32/SLF/format"
)

// Options controls how strictly View.Open validates a buffer.
type Options struct {
	// ValidateSymbols additionally enforces that every symbol and
	// relocation data_offset, plus the patched word it addresses, stays
	// inside the data section. Structural validation (table tiling,
	// string terminators, header bounds) always happens regardless of
	// this flag.
	ValidateSymbols bool
}

// View is an immutable, allocation-free parse of an SLF buffer.
type View struct {
	buf    []byte
	header format.Header

	exports *SymbolTable
	imports *SymbolTable
	relocs  *RelocationTable
	strings *StringTable
}

// Open validates buf's header and every table it references, returning a
// View on success or ErrInvalidHeader / ErrInvalidData (wrapped with
// positional context) on failure. After a successful Open, every
// accessor returns a valid table requiring no further bounds checking by
// callers.
func Open(buf []byte, opts Options) (*View, error) {
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}

	v := &View{buf: buf, header: h}

	var stringRegion []byte
	if h.StringTableOffset != 0 {
		region, err := validateStringTable(buf, h.StringTableOffset)
		if err != nil {
			return nil, err
		}
		stringRegion = region
		v.strings = &StringTable{data: region}
	}

	if h.ExportTableOffset != 0 {
		region, err := validateSymbolTable(buf, h.ExportTableOffset, stringRegion, opts.ValidateSymbols, h.SymbolSize, h.SectionSize)
		if err != nil {
			return nil, err
		}
		v.exports = &SymbolTable{data: region}
	}

	if h.ImportTableOffset != 0 {
		region, err := validateSymbolTable(buf, h.ImportTableOffset, stringRegion, opts.ValidateSymbols, h.SymbolSize, h.SectionSize)
		if err != nil {
			return nil, err
		}
		v.imports = &SymbolTable{data: region}
	}

	if h.RelocsTableOffset != 0 {
		region, err := validateRelocationTable(buf, h.RelocsTableOffset, opts.ValidateSymbols, h.SymbolSize, h.SectionSize)
		if err != nil {
			return nil, err
		}
		v.relocs = &RelocationTable{data: region}
	}

	return v, nil
}

// Exports returns the export table, or (nil, false) if the header's
// export_table offset is zero.
func (v *View) Exports() (*SymbolTable, bool) {
	return v.exports, v.exports != nil
}

// Imports returns the import table, or (nil, false) if the header's
// import_table offset is zero.
func (v *View) Imports() (*SymbolTable, bool) {
	return v.imports, v.imports != nil
}

// Relocations returns the relocation table, or (nil, false) if the
// header's relocs_table offset is zero.
func (v *View) Relocations() (*RelocationTable, bool) {
	return v.relocs, v.relocs != nil
}

// Strings returns the string table, or (nil, false) if the header's
// string_table offset is zero.
func (v *View) Strings() (*StringTable, bool) {
	return v.strings, v.strings != nil
}

// Data returns the section slice, of length SectionSize. It aliases the
// buffer passed to Open.
func (v *View) Data() []byte {
	start := v.header.SectionStart
	return v.buf[start : start+v.header.SectionSize]
}

// SymbolSize returns the pointer width this buffer's symbols and
// relocations are expressed in.
func (v *View) SymbolSize() format.SymbolSize {
	return v.header.SymbolSize
}
