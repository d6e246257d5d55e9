// Package format describes the on-disk layout of an SLF (Simple Linking
// Format) buffer: the 32-byte header, the four table shapes that hang off
// it, and the fixed-width symbol sizes a linker may patch. It holds no
// parsing or validation logic — that lives in the view, builder, and
// linker packages — only the byte-exact constants and struct shapes all
// three share.
//
// Layout (all integers little-endian):
//
//	Offset  Size  Field
//	0       4     magic = FB AD B6 02
//	4       4     export_table offset (0 = absent)
//	8       4     import_table offset (0 = absent)
//	12      4     relocs_table offset (0 = absent)
//	16      4     string_table offset (0 = absent)
//	20      4     section_start offset (conventionally 0x20)
//	24      4     section_size (bytes)
//	28      1     symbol_size ∈ {1, 2, 4, 8}
//	29      3     padding (written, unchecked)
package format

// HeaderSize is the fixed size in bytes of the SLF header.
const HeaderSize = 32

// SectionStart is the conventional section_start value written by Builder:
// the first byte after the fixed 32-byte header. View.Open does not
// require this value; it only checks that the section fits the buffer.
const SectionStart = 0x20

// Byte offsets of each header field.
const (
	OffMagic        = 0
	OffExportTable  = 4
	OffImportTable  = 8
	OffRelocsTable  = 12
	OffStringTable  = 16
	OffSectionStart = 20
	OffSectionSize  = 24
	OffSymbolSize   = 28
	OffPadding      = 29
)

// Magic identifies an SLF buffer.
var Magic = [4]byte{0xFB, 0xAD, 0xB6, 0x02}

// SymbolSize is the byte width of a pointer patched by the linker —
// equivalently, the target architecture's pointer width in bytes.
type SymbolSize uint8

// The four pointer widths SLF supports.
const (
	Size8  SymbolSize = 1
	Size16 SymbolSize = 2
	Size32 SymbolSize = 4
	Size64 SymbolSize = 8
)

// Valid reports whether s is one of the four widths SLF permits.
func (s SymbolSize) Valid() bool {
	switch s {
	case Size8, Size16, Size32, Size64:
		return true
	default:
		return false
	}
}

// Bits returns the bit width corresponding to s.
func (s SymbolSize) Bits() int {
	return int(s) * 8
}

func (s SymbolSize) String() string {
	if !s.Valid() {
		return "invalid symbol size"
	}
	return itoa(s.Bits()) + "-bit"
}

// itoa avoids importing strconv just for this one call site in a package
// that otherwise has zero dependencies.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Header is the decoded form of the 32-byte SLF header. Table offsets are
// absolute file positions; zero means the table is absent.
type Header struct {
	ExportTableOffset uint32
	ImportTableOffset uint32
	RelocsTableOffset uint32
	StringTableOffset uint32
	SectionStart      uint32
	SectionSize       uint32
	SymbolSize        SymbolSize
}

// SymbolEntry is one entry in an export or import table: 8 bytes on disk,
// { u32 name_offset; u32 data_offset }. name_offset points into the string
// table; data_offset is relative to section_start. The export and import
// tables share this single shape — presence in the export table, not a
// visibility flag, is what makes a symbol globally visible in SLF (unlike
// the single visibility-tagged symbol table of the format this one
// generalizes).
type SymbolEntry struct {
	NameOffset uint32
	DataOffset uint32
}

// SymbolEntrySize is the on-disk size of one SymbolEntry.
const SymbolEntrySize = 8

// RelocEntrySize is the on-disk size of one relocation table entry (a bare
// u32 data-section offset).
const RelocEntrySize = 4

// CountFieldSize is the size of the u32 count header that prefixes every
// table (symbol, relocation, and the string table's total-length field).
const CountFieldSize = 4
