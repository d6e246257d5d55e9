package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterQ32/SLF/format"
	"github.com/MasterQ32/SLF/stream"
	"github.com/MasterQ32/SLF/view"
)

func TestBuilder_Empty(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size16, buf)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)

	assert.Empty(t, v.Data())
	_, ok := v.Exports()
	assert.False(t, ok)
	_, ok = v.Imports()
	assert.False(t, ok)
	_, ok = v.Relocations()
	assert.False(t, ok)
	_, ok = v.Strings()
	assert.False(t, ok)
}

func TestBuilder_WithPayload(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size32, buf)
	require.NoError(t, err)

	require.NoError(t, b.Append([]byte("Hello, World!")))
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(v.Data()))
	assert.EqualValues(t, 13, len(v.Data()))
}

func TestBuilder_ExportsAndImports(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size16, buf)
	require.NoError(t, err)

	require.NoError(t, b.Append([]byte{0x00, 0x00, 0x00, 0x00}))

	off, err := b.AddExport("f")
	require.NoError(t, err)
	assert.EqualValues(t, 4, off)

	require.NoError(t, b.AddImportAt("g", 0))
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)

	exports, ok := v.Exports()
	require.True(t, ok)
	require.Equal(t, 1, exports.Count())
	strs, ok := v.Strings()
	require.True(t, ok)

	e := exports.Get(0)
	assert.Equal(t, "f", string(strs.Get(e.NameOffset).Text))
	assert.EqualValues(t, 4, e.DataOffset)

	imports, ok := v.Imports()
	require.True(t, ok)
	require.Equal(t, 1, imports.Count())
	i := imports.Get(0)
	assert.Equal(t, "g", string(strs.Get(i.NameOffset).Text))
	assert.EqualValues(t, 0, i.DataOffset)
}

// TestBuilder_LastWriteWins covers the export/import last-write-wins
// shadowing rule: re-adding the same name updates the one entry in place
// rather than appending a second.
func TestBuilder_LastWriteWins(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size16, buf)
	require.NoError(t, err)

	require.NoError(t, b.AddExportAt("f", 0))
	require.NoError(t, b.AddExportAt("f", 10))
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)

	exports, ok := v.Exports()
	require.True(t, ok)
	require.Equal(t, 1, exports.Count())
	assert.EqualValues(t, 10, exports.Get(0).DataOffset)
}

func TestBuilder_Interning(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size16, buf)
	require.NoError(t, err)

	require.NoError(t, b.AddExportAt("shared", 0))
	require.NoError(t, b.AddImportAt("shared", 4))
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)

	exports, _ := v.Exports()
	imports, _ := v.Imports()
	assert.Equal(t, exports.Get(0).NameOffset, imports.Get(0).NameOffset)

	strs, ok := v.Strings()
	require.True(t, ok)
	it := strs.Iterator()
	count := 0
	for {
		_, more := it.Next()
		if !more {
			break
		}
		count++
	}
	assert.Equal(t, 1, count, "the shared name should only appear once in the string table")
}

func TestBuilder_Relocations(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size32, buf)
	require.NoError(t, err)

	require.NoError(t, b.Append([]byte{0, 0, 0, 0}))
	require.NoError(t, b.AddRelocationAt(0))
	require.NoError(t, b.AddRelocationAt(0)) // duplicates preserved
	require.NoError(t, b.Finalize())

	v, err := view.Open(buf.Bytes(), view.Options{})
	require.NoError(t, err)
	relocs, ok := v.Relocations()
	require.True(t, ok)
	assert.Equal(t, 2, relocs.Count())
	assert.EqualValues(t, 0, relocs.Get(0))
	assert.EqualValues(t, 0, relocs.Get(1))
}

func TestBuilder_InvalidSymbolSize(t *testing.T) {
	buf := stream.NewBuffer(nil)
	_, err := New(format.SymbolSize(3), buf)
	assert.ErrorIs(t, err, ErrInvalidSymbolSize)
}

func TestBuilder_MutationAfterFinalize(t *testing.T) {
	buf := stream.NewBuffer(nil)
	b, err := New(format.Size16, buf)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())

	assert.ErrorIs(t, b.Append([]byte{1}), ErrFinalized)
	_, err = b.AddExport("x")
	assert.ErrorIs(t, err, ErrFinalized)
	assert.ErrorIs(t, b.Finalize(), ErrFinalized)
}
