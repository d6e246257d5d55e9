// Package builder implements a stateful, appending writer that emits a
// well-formed SLF buffer: a growing data section, an interned string
// table, and the export/import/relocation indexes that reference it.
//
// A Builder owns its string-interning arena and in-progress index
// structures; it does not own the output stream — the stream is
// provided by the caller and must outlive Finalize, since Finalize seeks
// (via WriteAt) back to the header to patch in final table offsets. A
// purely sequential sink cannot host a Builder for exactly this reason —
// see the stream package's seekable-stream note.
package builder

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
	"github.com/MasterQ32/SLF/stream"
)

// nameOffset is one pending export or import entry: an interned name and
// its section-relative data offset. Re-adding the same name overwrites
// the offset in place (last-write-wins), so at most one entry per name
// ever reaches the finalized table.
type nameOffset struct {
	name  string
	value uint32
}

// Builder assembles an SLF buffer into stream by appending data, then
// emitting the string/export/import/reloc tables and patching the header
// on Finalize.
type Builder struct {
	out        stream.Stream
	symbolSize format.SymbolSize

	arena       []string
	internIndex map[string]int

	exports     []nameOffset
	exportIndex map[string]int
	imports     []nameOffset
	importIndex map[string]int

	relocs []uint32

	finalized bool
}

// New writes a stub header to out — real magic, 0xAA placeholders for the
// four table offsets and section_size, section_start = 0x20, the chosen
// symbolSize, and zeroed padding — then returns a Builder ready to
// receive Append/AddExport/AddImport/AddRelocation calls. The stream
// cursor is left at 0x20.
func New(symbolSize format.SymbolSize, out stream.Stream) (*Builder, error) {
	if !symbolSize.Valid() {
		return nil, errors.Wrapf(ErrInvalidSymbolSize, "symbol size %d is not one of {1,2,4,8}", symbolSize)
	}

	header := make([]byte, format.HeaderSize)
	copy(header[format.OffMagic:], format.Magic[:])
	for i := format.OffExportTable; i < format.OffSectionStart; i++ {
		header[i] = 0xAA
	}
	binary.LittleEndian.PutUint32(header[format.OffSectionStart:], format.SectionStart)
	for i := format.OffSectionSize; i < format.OffSymbolSize; i++ {
		header[i] = 0xAA
	}
	header[format.OffSymbolSize] = byte(symbolSize)

	if _, err := out.Write(header); err != nil {
		return nil, errors.Wrap(err, "writing stub header")
	}

	return &Builder{
		out:         out,
		symbolSize:  symbolSize,
		internIndex: make(map[string]int),
		exportIndex: make(map[string]int),
		importIndex: make(map[string]int),
	}, nil
}

// Offset returns the current section-relative write cursor:
// stream.position - 0x20.
func (b *Builder) Offset() (uint32, error) {
	pos, err := stream.Position(b.out)
	if err != nil {
		return 0, errors.Wrap(err, "reading stream position")
	}
	return uint32(pos) - format.SectionStart, nil
}

// Append writes data to the stream, advancing the data section.
func (b *Builder) Append(data []byte) error {
	if b.finalized {
		return errors.Wrap(ErrFinalized, "append")
	}
	if _, err := b.out.Write(data); err != nil {
		return errors.Wrap(err, "appending to data section")
	}
	return nil
}

// AddExport inserts name into the export table at the current section
// offset, returning that offset. Re-adding an already-exported name
// overwrites its offset (last-write-wins).
func (b *Builder) AddExport(name string) (uint32, error) {
	off, err := b.Offset()
	if err != nil {
		return 0, err
	}
	return off, b.AddExportAt(name, off)
}

// AddExportAt inserts name into the export table at the given
// section-relative offset.
func (b *Builder) AddExportAt(name string, offset uint32) error {
	if b.finalized {
		return errors.Wrap(ErrFinalized, "add_export")
	}
	b.intern(name)
	b.insert(&b.exports, b.exportIndex, name, offset)
	return nil
}

// AddImport inserts name into the import table at the current section
// offset, returning that offset. Re-adding an already-imported name
// overwrites its offset (last-write-wins).
func (b *Builder) AddImport(name string) (uint32, error) {
	off, err := b.Offset()
	if err != nil {
		return 0, err
	}
	return off, b.AddImportAt(name, off)
}

// AddImportAt inserts name into the import table at the given
// section-relative offset.
func (b *Builder) AddImportAt(name string, offset uint32) error {
	if b.finalized {
		return errors.Wrap(ErrFinalized, "add_import")
	}
	b.intern(name)
	b.insert(&b.imports, b.importIndex, name, offset)
	return nil
}

// AddRelocation appends the current section offset to the relocation
// list, returning it. Duplicates are preserved — the linker treats each
// as an independent patch.
func (b *Builder) AddRelocation() (uint32, error) {
	off, err := b.Offset()
	if err != nil {
		return 0, err
	}
	return off, b.AddRelocationAt(off)
}

// AddRelocationAt appends offset to the relocation list.
func (b *Builder) AddRelocationAt(offset uint32) error {
	if b.finalized {
		return errors.Wrap(ErrFinalized, "add_relocation")
	}
	b.relocs = append(b.relocs, offset)
	return nil
}

// intern records name in the arena on its first occurrence; later
// occurrences are no-ops, so every reference to the same name ends up
// pointing at the same string-table entry.
func (b *Builder) intern(name string) {
	if _, ok := b.internIndex[name]; ok {
		return
	}
	b.internIndex[name] = len(b.arena)
	b.arena = append(b.arena, name)
}

// insert applies last-write-wins semantics to an export/import table: a
// repeat name overwrites the existing slot's value instead of appending
// a second entry.
func (b *Builder) insert(table *[]nameOffset, index map[string]int, name string, value uint32) {
	if idx, ok := index[name]; ok {
		(*table)[idx].value = value
		return
	}
	index[name] = len(*table)
	*table = append(*table, nameOffset{name: name, value: value})
}

// Finalize commits the buffer: it emits the string table (if any names
// were interned), the export and import tables (if non-empty), the
// relocation table (if non-empty), each at a 4-byte-aligned position,
// then patches the header's table offsets and section_size in place.
// Builder state becomes invalid after Finalize; calling any mutating
// method afterward returns ErrFinalized.
func (b *Builder) Finalize() error {
	if b.finalized {
		return errors.Wrap(ErrFinalized, "finalize")
	}

	dataEnd, err := stream.Position(b.out)
	if err != nil {
		return errors.Wrap(err, "reading data end position")
	}

	var stringTableOff uint32
	stringOffsets := make(map[string]uint32, len(b.arena))
	if len(b.arena) > 0 {
		if err := b.padTo4(); err != nil {
			return err
		}
		pos, err := stream.Position(b.out)
		if err != nil {
			return errors.Wrap(err, "reading string table position")
		}
		stringTableOff = uint32(pos)

		region := make([]byte, format.CountFieldSize)
		for _, name := range b.arena {
			stringOffsets[name] = uint32(len(region))
			nb := []byte(name)
			entry := make([]byte, 4+len(nb)+1)
			binary.LittleEndian.PutUint32(entry[0:4], uint32(len(nb)))
			copy(entry[4:], nb)
			region = append(region, entry...)
		}
		binary.LittleEndian.PutUint32(region[0:4], uint32(len(region)))
		if _, err := b.out.Write(region); err != nil {
			return errors.Wrap(err, "writing string table")
		}
	}

	writeSymTable := func(entries []nameOffset) (uint32, error) {
		if err := b.padTo4(); err != nil {
			return 0, err
		}
		pos, err := stream.Position(b.out)
		if err != nil {
			return 0, errors.Wrap(err, "reading symbol table position")
		}
		buf := make([]byte, format.CountFieldSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
		for _, e := range entries {
			entry := make([]byte, format.SymbolEntrySize)
			binary.LittleEndian.PutUint32(entry[0:4], stringOffsets[e.name])
			binary.LittleEndian.PutUint32(entry[4:8], e.value)
			buf = append(buf, entry...)
		}
		if _, err := b.out.Write(buf); err != nil {
			return 0, errors.Wrap(err, "writing symbol table")
		}
		return uint32(pos), nil
	}

	var exportOff, importOff uint32
	if len(b.exports) > 0 {
		if exportOff, err = writeSymTable(b.exports); err != nil {
			return err
		}
	}
	if len(b.imports) > 0 {
		if importOff, err = writeSymTable(b.imports); err != nil {
			return err
		}
	}

	var relocOff uint32
	if len(b.relocs) > 0 {
		if err := b.padTo4(); err != nil {
			return err
		}
		pos, err := stream.Position(b.out)
		if err != nil {
			return errors.Wrap(err, "reading relocation table position")
		}
		relocOff = uint32(pos)

		buf := make([]byte, format.CountFieldSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(len(b.relocs)))
		for _, r := range b.relocs {
			entry := make([]byte, format.RelocEntrySize)
			binary.LittleEndian.PutUint32(entry, r)
			buf = append(buf, entry...)
		}
		if _, err := b.out.Write(buf); err != nil {
			return errors.Wrap(err, "writing relocation table")
		}
	}

	patch := make([]byte, 24) // offsets 4..27: export, import, reloc, string, section_start, section_size
	binary.LittleEndian.PutUint32(patch[0:4], exportOff)
	binary.LittleEndian.PutUint32(patch[4:8], importOff)
	binary.LittleEndian.PutUint32(patch[8:12], relocOff)
	binary.LittleEndian.PutUint32(patch[12:16], stringTableOff)
	binary.LittleEndian.PutUint32(patch[16:20], format.SectionStart)
	binary.LittleEndian.PutUint32(patch[20:24], uint32(dataEnd)-format.SectionStart)

	// WriteAt, unlike the literal seek-then-write spec wording, never
	// disturbs the cursor, so there is nothing to seek back to: it is
	// already sitting at end from the sequential writes above.
	if _, err := b.out.WriteAt(patch, format.OffExportTable); err != nil {
		return errors.Wrap(err, "patching header")
	}

	b.finalized = true
	return nil
}

func (b *Builder) padTo4() error {
	pos, err := stream.Position(b.out)
	if err != nil {
		return errors.Wrap(err, "reading position before alignment padding")
	}
	pad := (4 - int(pos%4)) % 4
	if pad == 0 {
		return nil
	}
	if _, err := b.out.Write(make([]byte, pad)); err != nil {
		return errors.Wrap(err, "writing alignment padding")
	}
	return nil
}
