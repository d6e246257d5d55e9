// Package linker concatenates a sequence of SLF modules (each a
// view.View) into a single output image, resolving imports against
// exports across modules and applying internal relocations. A Linker
// borrows zero or more Views and writes into a provided output stream;
// its auxiliary state — the symbol table and pending-patch list — is
// owned entirely by the Link call and released when it returns.
package linker

import (
	"github.com/pkg/errors"

	"github.com/MasterQ32/SLF/format"
	"github.com/MasterQ32/SLF/stream"
	"github.com/MasterQ32/SLF/view"
)

// DefaultModuleAlignment is used when Options.ModuleAlignment is left at
// its zero value.
const DefaultModuleAlignment = 16

// Options controls layout and symbol-width policy for a link.
type Options struct {
	// ModuleAlignment is the power-of-two boundary each module's base is
	// rounded up to. Zero means DefaultModuleAlignment.
	ModuleAlignment uint32

	// SymbolSize, if non-zero, overrides symbol-width inference: every
	// module must match it. Zero means "adopt the first module's
	// symbol_size", per the spec's layout pass.
	SymbolSize format.SymbolSize

	// BaseAddress is the logical address the concatenated image is
	// loaded at. Defaults to 0.
	BaseAddress uint64
}

func (o Options) alignment() uint64 {
	if o.ModuleAlignment == 0 {
		return DefaultModuleAlignment
	}
	return uint64(o.ModuleAlignment)
}

// Result is what the Linker exposes on completion: the resolved global
// symbol table (for a diagnostic layer to dump) and the names that
// remained unresolved. Link does not itself fail on unresolved externals
// — fatal-vs-warning policy belongs to the caller.
type Result struct {
	SymbolTable map[string]uint64
	Unresolved  []string
}

// Linker borrows an ordered list of Views — order is meaningful, since
// later modules' exports shadow earlier ones — and links them on Link.
type Linker struct {
	opts    Options
	modules []*view.View
}

// New returns a Linker configured with opts.
func New(opts Options) *Linker {
	return &Linker{opts: opts}
}

// AddModule appends a module to the link. Modules are processed in the
// order they were added.
func (l *Linker) AddModule(v *view.View) {
	l.modules = append(l.modules, v)
}

type pendingPatch struct {
	site uint64
	name string
}

// Link lays out, emits, and patches all added modules into out, in two
// passes: a layout pass that assigns each module a base offset, then a
// per-module emit-resolve-publish-sweep-relocate pass (§4.4). Pending
// import patches are re-swept after every module's exports are
// published — not only at the end — so a forward reference from module A
// to an export in a later module C is resolved the moment C is reached.
func (l *Linker) Link(out stream.Stream) (*Result, error) {
	if len(l.modules) == 0 {
		return nil, errors.Wrap(ErrNothingToLink, "link called with zero modules")
	}

	symbolSize := l.opts.SymbolSize
	if symbolSize == 0 {
		symbolSize = l.modules[0].SymbolSize()
	}

	baseOffsets := make([]uint64, len(l.modules))
	cursor := l.opts.BaseAddress
	align := l.opts.alignment()
	for i, m := range l.modules {
		if m.SymbolSize() != symbolSize {
			return nil, errors.Wrapf(ErrMismatchingSymbolSize, "module %d has symbol_size %s, link expects %s", i, m.SymbolSize(), symbolSize)
		}
		baseOffsets[i] = cursor
		cursor += alignUp(uint64(len(m.Data())), align)
	}

	symbolTable := make(map[string]uint64)
	var pending []pendingPatch

	for i, m := range l.modules {
		base := baseOffsets[i]

		if len(m.Data()) > 0 {
			if _, err := out.WriteAt(m.Data(), int64(base)); err != nil {
				return nil, errors.Wrapf(err, "writing module %d data at 0x%X", i, base)
			}
		}

		if imports, ok := m.Imports(); ok {
			it := imports.Iterator()
			for {
				s, more := it.Next()
				if !more {
					break
				}
				name, err := symbolName(m, s.NameOffset)
				if err != nil {
					return nil, errors.Wrapf(err, "module %d: import entry", i)
				}
				site := base + uint64(s.DataOffset)
				if addr, ok := symbolTable[name]; ok {
					if err := patch(out, symbolSize, int64(site), addr, modeReplace); err != nil {
						return nil, errors.Wrapf(err, "module %d: resolving import %q", i, name)
					}
				} else {
					pending = append(pending, pendingPatch{site: site, name: name})
				}
			}
		}

		if exports, ok := m.Exports(); ok {
			it := exports.Iterator()
			for {
				s, more := it.Next()
				if !more {
					break
				}
				name, err := symbolName(m, s.NameOffset)
				if err != nil {
					return nil, errors.Wrapf(err, "module %d: export entry", i)
				}
				symbolTable[name] = base + uint64(s.DataOffset)
			}
		}

		// Re-sweep: filter in place, keeping only entries still
		// unresolved. Safe because the write index never runs ahead of
		// the read index.
		remaining := pending[:0]
		for _, p := range pending {
			if addr, ok := symbolTable[p.name]; ok {
				if err := patch(out, symbolSize, int64(p.site), addr, modeReplace); err != nil {
					return nil, errors.Wrapf(err, "resolving pending import %q", p.name)
				}
			} else {
				remaining = append(remaining, p)
			}
		}
		pending = remaining

		if relocs, ok := m.Relocations(); ok {
			it := relocs.Iterator()
			for {
				r, more := it.Next()
				if !more {
					break
				}
				site := base + uint64(r)
				if err := patch(out, symbolSize, int64(site), base, modeAdd); err != nil {
					return nil, errors.Wrapf(err, "module %d: applying relocation at offset 0x%X", i, r)
				}
			}
		}
	}

	unresolved := make([]string, len(pending))
	for i, p := range pending {
		unresolved[i] = p.name
	}

	return &Result{SymbolTable: symbolTable, Unresolved: unresolved}, nil
}

func symbolName(m *view.View, nameOffset uint32) (string, error) {
	strs, ok := m.Strings()
	if !ok {
		return "", errors.New("module has a symbol table but no string table")
	}
	return string(strs.Get(nameOffset).Text), nil
}

func alignUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}
