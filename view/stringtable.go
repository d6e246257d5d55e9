package view

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// StringTable is a thin view over a u32 total_length-prefixed region:
// total_length, then a sequence of { u32 length | bytes | 0x00 }. Offsets
// passed to Get are relative to the start of this region (i.e. offset 0
// is the total_length field itself, offset 4 is the first string).
//
// StringTable performs no bounds checking of its own: every offset it
// will ever be asked to read was already walked and validated by
// validateStringTable during View.Open.
type StringTable struct {
	data []byte // buf[string_table : string_table+total_length]
}

// TotalLength is the table's own total_length field, including the 4
// bytes of the field itself.
func (t StringTable) TotalLength() uint32 {
	return binary.LittleEndian.Uint32(t.data[0:4])
}

// String is one decoded entry: its offset (relative to the table start,
// pointing at the 4-byte length header) and its text.
type String struct {
	Offset uint32
	Text   []byte
}

// Get decodes the string whose length header starts at the given
// table-relative offset.
func (t StringTable) Get(offset uint32) String {
	length := binary.LittleEndian.Uint32(t.data[offset : offset+4])
	start := offset + 4
	return String{Offset: offset, Text: t.data[start : start+length]}
}

// StringIterator walks a StringTable's entries in order.
type StringIterator struct {
	table StringTable
	pos   uint32
	total uint32
}

// Iterator returns a forward iterator starting at the first string entry
// (table-relative offset 4, just past total_length).
func (t StringTable) Iterator() *StringIterator {
	return &StringIterator{table: t, pos: 4, total: t.TotalLength()}
}

// Next returns the next string and true, or a zero String and false once
// the table is exhausted.
func (it *StringIterator) Next() (String, bool) {
	if it.pos >= it.total {
		return String{}, false
	}
	s := it.table.Get(it.pos)
	it.pos += 4 + uint32(len(s.Text)) + 1
	return s, true
}

// validateStringTable walks the string table starting at fileOffset
// within buf, per the walk described in §4.1: read u32 len, require
// offset+len+5 <= total, require the terminator byte at that position is
// zero, advance offset += len+5, stop when offset == total.
//
// It returns the table's byte region (buf[fileOffset : fileOffset+total])
// so later symbol-table validation can check name_offset bounds against
// it without re-reading the header.
func validateStringTable(buf []byte, fileOffset uint32) ([]byte, error) {
	if uint64(fileOffset)+4 > uint64(len(buf)) {
		return nil, errors.Wrap(ErrInvalidData, "string table offset leaves no room for total_length")
	}
	total := binary.LittleEndian.Uint32(buf[fileOffset : fileOffset+4])
	if uint64(fileOffset)+uint64(total) > uint64(len(buf)) {
		return nil, errors.Wrapf(ErrInvalidData, "string table total_length %d runs past end of buffer", total)
	}

	region := buf[fileOffset : fileOffset+total]

	offset := uint32(4)
	for offset != total {
		if offset > total {
			return nil, errors.Wrap(ErrInvalidData, "string table entry overshoots total_length")
		}
		if uint64(offset)+5 > uint64(total) {
			return nil, errors.Wrap(ErrInvalidData, "string table entry truncated before its length header")
		}
		length := binary.LittleEndian.Uint32(region[offset : offset+4])
		if uint64(offset)+uint64(length)+5 > uint64(total) {
			return nil, errors.Wrapf(ErrInvalidData, "string table entry at offset %d (length %d) overflows declared total_length %d", offset, length, total)
		}
		termPos := offset + length + 4
		if region[termPos] != 0 {
			return nil, errors.Wrapf(ErrInvalidData, "string table entry at offset %d is missing its zero terminator", offset)
		}
		offset += length + 5
	}

	return region, nil
}

// symbolNameInBounds reports whether nameOffset points at a well-formed
// string table entry: enough room for at least a length header and a
// terminator byte beyond it. It does not re-validate tiling (already done
// by validateStringTable); it only checks the one offset a symbol entry
// references is itself inside that validated region.
func symbolNameInBounds(stringRegion []byte, nameOffset uint32) bool {
	if stringRegion == nil {
		return false
	}
	if uint64(nameOffset)+4 > uint64(len(stringRegion)) {
		return false
	}
	length := binary.LittleEndian.Uint32(stringRegion[nameOffset : nameOffset+4])
	end := uint64(nameOffset) + 4 + uint64(length) + 1
	return end <= uint64(len(stringRegion))
}
