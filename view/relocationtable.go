package view

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
)

// RelocationTable is a thin view over a u32 count-prefixed region: count,
// then count raw u32 offsets into the data section. Each offset
// identifies a symbol_size-wide word inside the data section that holds
// a value to be adjusted by the linker.
//
// RelocationTable performs no bounds checks of its own; every entry was
// already validated by validateRelocationTable during View.Open.
type RelocationTable struct {
	data []byte // buf[table_offset : table_offset+4+count*4]
}

// Count returns the number of relocation entries.
func (t RelocationTable) Count() int {
	return int(binary.LittleEndian.Uint32(t.data[0:4]))
}

// Get returns the i'th relocation offset.
func (t RelocationTable) Get(i int) uint32 {
	base := format.CountFieldSize + i*format.RelocEntrySize
	return binary.LittleEndian.Uint32(t.data[base : base+4])
}

// RelocationIterator walks a RelocationTable's entries in order.
type RelocationIterator struct {
	table RelocationTable
	i, n  int
}

// Iterator returns a forward iterator over the table's entries.
func (t RelocationTable) Iterator() *RelocationIterator {
	return &RelocationIterator{table: t, n: t.Count()}
}

// Next returns the next offset and true, or 0 and false once the table is
// exhausted.
func (it *RelocationIterator) Next() (uint32, bool) {
	if it.i >= it.n {
		return 0, false
	}
	v := it.table.Get(it.i)
	it.i++
	return v, true
}

// validateRelocationTable checks that tableOffset has room for its
// declared count of entries, and, when checkDataBounds is set, that every
// offset+symbolSize fits within sectionSize.
func validateRelocationTable(buf []byte, tableOffset uint32, checkDataBounds bool, symbolSize format.SymbolSize, sectionSize uint32) ([]byte, error) {
	count := binary.LittleEndian.Uint32(buf[tableOffset : tableOffset+4])
	need := uint64(tableOffset) + uint64(format.CountFieldSize) + uint64(count)*uint64(format.RelocEntrySize)
	if need > uint64(len(buf)) {
		return nil, errors.Wrapf(ErrInvalidData, "relocation table at 0x%X declares %d entries, runs past end of buffer", tableOffset, count)
	}

	region := buf[tableOffset:need]
	if checkDataBounds {
		table := RelocationTable{data: region}
		for i := 0; i < int(count); i++ {
			off := table.Get(i)
			if uint64(off)+uint64(symbolSize) > uint64(sectionSize) {
				return nil, errors.Wrapf(ErrInvalidData, "relocation entry %d: offset %d + symbol_size %d exceeds section_size %d",
					i, off, symbolSize, sectionSize)
			}
		}
	}

	return region, nil
}
