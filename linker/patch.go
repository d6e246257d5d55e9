package linker

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
	"github.com/MasterQ32/SLF/stream"
)

// mode selects the arithmetic patch applies: replace wholesale (imports,
// which hold no meaningful prior value) or add (internal relocations,
// which already hold a section-relative value to be made absolute).
// Swapping these silently corrupts either kind of site.
type mode int

const (
	modeReplace mode = iota
	modeAdd
)

// patch reads an unsigned little-endian integer of size bytes at offset
// in s, computes replace -> value or add -> (old + value) mod 2^(8*size),
// and writes it back. Because it uses ReadAt/WriteAt rather than
// Seek+Read+Write, the stream's cursor is never touched — satisfying the
// "position unchanged" requirement without an explicit reseek.
func patch(s stream.Stream, size format.SymbolSize, offset int64, value uint64, m mode) error {
	buf := make([]byte, size)
	if _, err := s.ReadAt(buf, offset); err != nil {
		return errors.Wrapf(err, "reading patch site at 0x%X", offset)
	}

	var result uint64
	switch m {
	case modeReplace:
		if !fitsInWidth(value, size) {
			return errors.Wrapf(ErrValueDoesNotFit, "value 0x%X does not fit in a %d-byte symbol", value, size)
		}
		result = value
	case modeAdd:
		old := readWidth(buf)
		result = (old + value) & widthMask(size)
	}

	writeWidth(buf, result)
	if _, err := s.WriteAt(buf, offset); err != nil {
		return errors.Wrapf(err, "writing patch site at 0x%X", offset)
	}
	return nil
}

func readWidth(buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		return binary.LittleEndian.Uint64(buf)
	default:
		panic("slf: unreachable symbol width")
	}
}

func writeWidth(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		panic("slf: unreachable symbol width")
	}
}

// widthMask returns a mask with the low 8*size bits set.
func widthMask(size format.SymbolSize) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(size) * 8)) - 1
}

func fitsInWidth(v uint64, size format.SymbolSize) bool {
	return v&^widthMask(size) == 0
}
