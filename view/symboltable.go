package view

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
)

// SymbolTable is a thin view over a u32 count-prefixed region used by
// both the export table and the import table: count, then count entries
// of { u32 name_offset; u32 data_offset }.
//
// SymbolTable performs no bounds checks of its own — every entry it will
// ever be asked for was already validated by validateSymbolTable during
// View.Open.
type SymbolTable struct {
	data []byte // buf[table_offset : table_offset+4+count*8]
}

// Count returns the number of entries in the table.
func (t SymbolTable) Count() int {
	return int(binary.LittleEndian.Uint32(t.data[0:4]))
}

// Get returns the i'th entry.
func (t SymbolTable) Get(i int) format.SymbolEntry {
	base := format.CountFieldSize + i*format.SymbolEntrySize
	return format.SymbolEntry{
		NameOffset: binary.LittleEndian.Uint32(t.data[base : base+4]),
		DataOffset: binary.LittleEndian.Uint32(t.data[base+4 : base+8]),
	}
}

// SymbolIterator walks a SymbolTable's entries in order.
type SymbolIterator struct {
	table SymbolTable
	i, n  int
}

// Iterator returns a forward iterator over the table's entries.
func (t SymbolTable) Iterator() *SymbolIterator {
	return &SymbolIterator{table: t, n: t.Count()}
}

// Next returns the next entry and true, or a zero entry and false once
// the table is exhausted.
func (it *SymbolIterator) Next() (format.SymbolEntry, bool) {
	if it.i >= it.n {
		return format.SymbolEntry{}, false
	}
	e := it.table.Get(it.i)
	it.i++
	return e, true
}

// validateSymbolTable checks that tableOffset has room for its declared
// count of entries, and that every entry's name_offset lies within
// stringRegion (a nil stringRegion rejects every entry) and, when
// checkDataBounds is set, that data_offset+symbolSize fits within
// sectionSize.
func validateSymbolTable(buf []byte, tableOffset uint32, stringRegion []byte, checkDataBounds bool, symbolSize format.SymbolSize, sectionSize uint32) ([]byte, error) {
	count := binary.LittleEndian.Uint32(buf[tableOffset : tableOffset+4])
	need := uint64(tableOffset) + uint64(format.CountFieldSize) + uint64(count)*uint64(format.SymbolEntrySize)
	if need > uint64(len(buf)) {
		return nil, errors.Wrapf(ErrInvalidData, "symbol table at 0x%X declares %d entries, runs past end of buffer", tableOffset, count)
	}

	region := buf[tableOffset:need]
	table := SymbolTable{data: region}
	for i := 0; i < int(count); i++ {
		e := table.Get(i)
		if !symbolNameInBounds(stringRegion, e.NameOffset) {
			return nil, errors.Wrapf(ErrInvalidData, "symbol table entry %d: name_offset %d is outside the string table", i, e.NameOffset)
		}
		if checkDataBounds {
			if uint64(e.DataOffset)+uint64(symbolSize) > uint64(sectionSize) {
				return nil, errors.Wrapf(ErrInvalidData, "symbol table entry %d: data_offset %d + symbol_size %d exceeds section_size %d",
					i, e.DataOffset, symbolSize, sectionSize)
			}
		}
	}

	return region, nil
}
