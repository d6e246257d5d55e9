package view

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterQ32/SLF/format"
)

// slfBuf assembles an SLF byte slice for use in tests, mirroring the wire
// format field by field. Populate the fields and call bytes() to
// get the buffer; zero fields mean "absent" exactly as the real header
// does.
type slfBuf struct {
	symbolSize              format.SymbolSize
	data                    []byte
	exports, imports        []format.SymbolEntry
	relocs                  []uint32
	strings                 [][]byte
	omitStringTable         bool
	corruptStringTerminator bool
}

func (b *slfBuf) bytes() []byte {
	if b.symbolSize == 0 {
		b.symbolSize = format.Size16
	}

	buf := make([]byte, format.SectionStart)
	copy(buf[format.OffMagic:], format.Magic[:])
	buf[format.OffSymbolSize] = byte(b.symbolSize)

	buf = append(buf, b.data...)
	sectionSize := uint32(len(b.data))

	// String table, building an offset for each interned string as we go.
	nameOffsets := make(map[string]uint32)
	var stringTableOffset uint32
	if len(b.strings) > 0 || !b.omitStringTable {
		stringTableOffset = uint32(len(buf))
		region := make([]byte, 4) // total_length placeholder
		for _, s := range b.strings {
			off := uint32(len(region))
			nameOffsets[string(s)] = off
			entry := make([]byte, 4)
			binary.LittleEndian.PutUint32(entry, uint32(len(s)))
			region = append(region, entry...)
			region = append(region, s...)
			if b.corruptStringTerminator {
				region = append(region, 1)
			} else {
				region = append(region, 0)
			}
		}
		binary.LittleEndian.PutUint32(region[0:4], uint32(len(region)))
		buf = append(buf, region...)
	}

	writeSymTable := func(entries []format.SymbolEntry) uint32 {
		off := uint32(len(buf))
		region := make([]byte, 4)
		binary.LittleEndian.PutUint32(region[0:4], uint32(len(entries)))
		for _, e := range entries {
			entry := make([]byte, 8)
			binary.LittleEndian.PutUint32(entry[0:4], e.NameOffset)
			binary.LittleEndian.PutUint32(entry[4:8], e.DataOffset)
			region = append(region, entry...)
		}
		buf = append(buf, region...)
		return off
	}

	var exportOff, importOff uint32
	if len(b.exports) > 0 {
		exportOff = writeSymTable(b.exports)
	}
	if len(b.imports) > 0 {
		importOff = writeSymTable(b.imports)
	}

	var relocOff uint32
	if len(b.relocs) > 0 {
		relocOff = uint32(len(buf))
		region := make([]byte, 4)
		binary.LittleEndian.PutUint32(region[0:4], uint32(len(b.relocs)))
		for _, r := range b.relocs {
			entry := make([]byte, 4)
			binary.LittleEndian.PutUint32(entry, r)
			region = append(region, entry...)
		}
		buf = append(buf, region...)
	}

	binary.LittleEndian.PutUint32(buf[format.OffExportTable:], exportOff)
	binary.LittleEndian.PutUint32(buf[format.OffImportTable:], importOff)
	binary.LittleEndian.PutUint32(buf[format.OffRelocsTable:], relocOff)
	binary.LittleEndian.PutUint32(buf[format.OffStringTable:], stringTableOffset)
	binary.LittleEndian.PutUint32(buf[format.OffSectionStart:], format.SectionStart)
	binary.LittleEndian.PutUint32(buf[format.OffSectionSize:], sectionSize)

	return buf
}

func TestOpen_EmptyValidFile(t *testing.T) {
	buf := (&slfBuf{omitStringTable: true}).bytes()
	v, err := Open(buf, Options{})
	require.NoError(t, err)

	_, ok := v.Exports()
	assert.False(t, ok)
	_, ok = v.Imports()
	assert.False(t, ok)
	_, ok = v.Relocations()
	assert.False(t, ok)
	_, ok = v.Strings()
	assert.False(t, ok)
	assert.Empty(t, v.Data())
	assert.Equal(t, format.Size16, v.SymbolSize())
}

func TestOpen_StringTableDecode(t *testing.T) {
	b := &slfBuf{strings: [][]byte{[]byte("Hello"), []byte("World"), []byte("Zig is great!")}}
	v, err := Open(b.bytes(), Options{})
	require.NoError(t, err)

	st, ok := v.Strings()
	require.True(t, ok)

	it := st.Iterator()
	var got []string
	for {
		s, more := it.Next()
		if !more {
			break
		}
		got = append(got, string(s.Text))
	}
	assert.Equal(t, []string{"Hello", "World", "Zig is great!"}, got)

	_, more := it.Next()
	assert.False(t, more)
}

func TestOpen_MalformedInputs(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Open(nil, Options{})
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("wrong magic", func(t *testing.T) {
		_, err := Open([]byte{0x01, 0x02, 0x03, 0x04}, Options{})
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("magic only, nothing else", func(t *testing.T) {
		_, err := Open(format.Magic[:], Options{})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("header one byte short", func(t *testing.T) {
		buf := (&slfBuf{omitStringTable: true}).bytes()[:format.HeaderSize-1]
		_, err := Open(buf, Options{})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("bad symbol_size", func(t *testing.T) {
		for _, bad := range []format.SymbolSize{0, 3, 5, 7, 9} {
			buf := (&slfBuf{symbolSize: format.Size16, omitStringTable: true}).bytes()
			buf[format.OffSymbolSize] = byte(bad)
			_, err := Open(buf, Options{})
			assert.ErrorIsf(t, err, ErrInvalidData, "symbol_size=%d", bad)
		}
	})

	t.Run("table offset past end", func(t *testing.T) {
		buf := (&slfBuf{omitStringTable: true}).bytes()
		binary.LittleEndian.PutUint32(buf[format.OffImportTable:], uint32(len(buf)-3))
		_, err := Open(buf, Options{})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("string entry nonzero terminator", func(t *testing.T) {
		b := &slfBuf{strings: [][]byte{[]byte("x")}, corruptStringTerminator: true}
		_, err := Open(b.bytes(), Options{})
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("string entry overflows total_length", func(t *testing.T) {
		buf := (&slfBuf{strings: [][]byte{[]byte("Hello")}}).bytes()
		stOff := binary.LittleEndian.Uint32(buf[format.OffStringTable:])
		// Inflate the declared length of the one entry so it reads past
		// the table's total_length.
		binary.LittleEndian.PutUint32(buf[stOff+4:], 0xFFFF)
		_, err := Open(buf, Options{})
		assert.ErrorIs(t, err, ErrInvalidData)
	})
}

func TestOpen_ValidateSymbolsFlag(t *testing.T) {
	b := &slfBuf{
		data:    []byte{0x00, 0x00},
		exports: []format.SymbolEntry{{NameOffset: 4, DataOffset: 100}}, // well past the 2-byte section
		strings: [][]byte{[]byte("f")},
	}
	buf := b.bytes()

	// Structural-only validation accepts an out-of-bounds data_offset.
	_, err := Open(buf, Options{ValidateSymbols: false})
	assert.NoError(t, err)

	// Full validation rejects it.
	_, err = Open(buf, Options{ValidateSymbols: true})
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestOpen_DataRoundTrip(t *testing.T) {
	payload := []byte("Hello, World!")
	b := &slfBuf{data: payload, omitStringTable: true}
	v, err := Open(b.bytes(), Options{})
	require.NoError(t, err)
	assert.Equal(t, payload, v.Data())
}
