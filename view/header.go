package view

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
)

// parseHeader decodes and validates the 32-byte header at the front of
// buf. It does not validate table contents; callers walk each table
// separately once its offset is known.
func parseHeader(buf []byte) (format.Header, error) {
	var h format.Header

	if len(buf) < 4 {
		return h, errors.Wrap(ErrInvalidHeader, "buffer shorter than the magic prefix")
	}
	if buf[0] != format.Magic[0] || buf[1] != format.Magic[1] ||
		buf[2] != format.Magic[2] || buf[3] != format.Magic[3] {
		return h, errors.Wrap(ErrInvalidHeader, "magic mismatch")
	}
	if len(buf) < format.HeaderSize {
		return h, errors.Wrap(ErrInvalidData, "buffer truncated before end of header")
	}

	h.ExportTableOffset = le32(buf, format.OffExportTable)
	h.ImportTableOffset = le32(buf, format.OffImportTable)
	h.RelocsTableOffset = le32(buf, format.OffRelocsTable)
	h.StringTableOffset = le32(buf, format.OffStringTable)
	h.SectionStart = le32(buf, format.OffSectionStart)
	h.SectionSize = le32(buf, format.OffSectionSize)
	h.SymbolSize = format.SymbolSize(buf[format.OffSymbolSize])

	if !h.SymbolSize.Valid() {
		return h, errors.Wrapf(ErrInvalidData, "symbol_size byte 0x%02X is not one of {1,2,4,8}", buf[format.OffSymbolSize])
	}

	bufLen := uint64(len(buf))
	tableOffsets := [...]struct {
		name string
		off  uint32
	}{
		{"export_table", h.ExportTableOffset},
		{"import_table", h.ImportTableOffset},
		{"relocs_table", h.RelocsTableOffset},
		{"string_table", h.StringTableOffset},
	}
	for _, t := range tableOffsets {
		if t.off == 0 {
			continue
		}
		if uint64(t.off)+uint64(format.CountFieldSize) > bufLen {
			return h, errors.Wrapf(ErrInvalidData, "%s offset 0x%X leaves no room for its count header", t.name, t.off)
		}
	}

	if uint64(h.SectionStart)+uint64(h.SectionSize) > bufLen {
		return h, errors.Wrapf(ErrInvalidData, "section [0x%X, +0x%X) runs past end of buffer (len=%d)",
			h.SectionStart, h.SectionSize, len(buf))
	}

	return h, nil
}

func le32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}
