// Package stream defines the random-access I/O contract SLF's Builder and
// Linker require, per the format's stream contract: read_at, write_at, a
// tracked write cursor, and seek. Both the Builder's header patch-up and
// the Linker's relocation patching seek backward after writing forward, so
// a purely sequential sink cannot host either — see the "Seekable-stream
// dependence" design note.
//
// *os.File already satisfies Stream. Package stream additionally provides
// Buffer, an in-memory implementation for callers (and tests) that don't
// want to touch the filesystem.
package stream

import "io"

// Stream is the random-access surface Builder and Linker consume. It is
// satisfied by *os.File and by Buffer.
type Stream interface {
	io.Writer
	io.ReaderAt
	io.WriterAt
	io.Seeker
}

// Position returns the stream's current write cursor, per the contract's
// "position -> u64" accessor. It is implemented in terms of Seek, the one
// primitive every Stream already provides.
func Position(s Stream) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

// Buffer is an in-memory Stream backed by a growable byte slice. Writes
// past the current end grow the buffer, zero-filling any gap — the same
// behavior a sparse file write would exhibit.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer wraps an existing byte slice as a Stream, cursor at 0. A nil
// slice is equivalent to an empty one.
func NewBuffer(initial []byte) *Buffer {
	b := &Buffer{data: make([]byte, len(initial))}
	copy(b.data, initial)
	return b
}

// Bytes returns the buffer's current contents. The returned slice aliases
// the Buffer's internal storage and must not be retained across further
// writes.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) growTo(n int64) {
	if n <= int64(len(b.data)) {
		return
	}
	grown := make([]byte, n)
	copy(grown, b.data)
	b.data = grown
}

// Write appends p at the current cursor and advances it, growing the
// buffer as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	n, err := b.WriteAt(p, b.pos)
	b.pos += int64(n)
	return n, err
}

// WriteAt writes p at the given absolute offset without moving the
// cursor, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	b.growTo(off + int64(len(p)))
	copy(b.data[off:], p)
	return len(p), nil
}

// ReadAt reads len(p) bytes starting at off. It returns io.EOF if the read
// runs past the end of the buffer, matching io.ReaderAt's contract.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		if len(p) == 0 && off == int64(len(b.data)) {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek repositions the cursor per io.Seeker semantics. SeekEnd and
// SeekCurrent are relative to the buffer's current length and position.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, io.ErrUnexpectedEOF
	}
	b.pos = base + offset
	return b.pos, nil
}
