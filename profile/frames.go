// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import "fmt"

// FrameLocationKind discriminates the three shapes a frame's location
// can take.
type FrameLocationKind int

const (
	// LocUnknownAddress is a frame whose address resolved to no known
	// library; the address itself is all the output preserves.
	LocUnknownAddress FrameLocationKind = iota
	// LocAddressInLib is a frame that resolved to a relative address
	// within some library.
	LocAddressInLib
	// LocLabel is a synthetic pseudo-frame (e.g. "(root)", an idle
	// bracket, a JIT tier label) carrying only a name, no address.
	LocLabel
)

// FrameLocation is the location half of an InternalFrame.
type FrameLocation struct {
	Kind FrameLocationKind

	// valid when Kind == LocUnknownAddress
	Address uint64

	// valid when Kind == LocAddressInLib
	RelativeAddress uint32
	Lib             GlobalLibIndex

	// valid when Kind == LocLabel
	Label ThreadStringIndex
}

func UnknownAddress(addr uint64) FrameLocation {
	return FrameLocation{Kind: LocUnknownAddress, Address: addr}
}

func AddressInLib(rel uint32, lib GlobalLibIndex) FrameLocation {
	return FrameLocation{Kind: LocAddressInLib, RelativeAddress: rel, Lib: lib}
}

func Label(name ThreadStringIndex) FrameLocation {
	return FrameLocation{Kind: LocLabel, Label: name}
}

// internalFrame is a thread-local frame: a location plus the category
// pair it should render under.
type internalFrame struct {
	Location FrameLocation
	Category CategoryPair
	// Flags carry frame-level metadata a visualizer might want (e.g.
	// "this is a JS frame", "this is an inlined frame"). The core
	// itself never sets anything beyond IsRecursiveFold, used by the
	// optional recursive-prefix-folding stack-assembly step.
	IsRecursiveFold bool
}

func (f internalFrame) dedupKey() interface{} {
	switch f.Location.Kind {
	case LocUnknownAddress:
		return [2]interface{}{f.Location.Kind, f.Location.Address}
	case LocAddressInLib:
		return [3]interface{}{f.Location.Kind, f.Location.RelativeAddress, f.Location.Lib}
	default:
		return [2]interface{}{f.Location.Kind, f.Location.Label}
	}
}

// frameTable is a thread-local, value-deduplicated set of frames.
type frameTable struct {
	frames []internalFrame
	index  map[interface{}]FrameIndex
}

func newFrameTable() *frameTable {
	return &frameTable{index: make(map[interface{}]FrameIndex)}
}

// indexForFrame returns the FrameIndex for f, creating one if this
// exact (location, category) combination hasn't been seen yet on this
// thread. FrameLocation is the dedup key.
func (t *frameTable) indexForFrame(f internalFrame) FrameIndex {
	key := [2]interface{}{f.dedupKey(), f.Category}
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := FrameIndex(len(t.frames))
	t.frames = append(t.frames, f)
	t.index[key] = idx
	return idx
}

// FuncNameFor returns the display name for a frame's synthesized
// one-frame "function": the library's name for AddressInLib frames (a
// real symbolicator would specialize this further once it has a symbol
// table; the core never does), the hex address for UnknownAddress
// frames, and the label string for Label frames.
func FuncNameFor(p *Profile, th *Thread, f internalFrame) string {
	switch f.Location.Kind {
	case LocUnknownAddress:
		return fmt.Sprintf("0x%x", f.Location.Address)
	case LocAddressInLib:
		lib := p.Lib(f.Location.Lib)
		if lib.Symbols != nil {
			if name, ok := lookupSymbol(lib.Symbols, f.Location.RelativeAddress); ok {
				return name
			}
		}
		return lib.Name
	default:
		return th.LocalString(f.Location.Label)
	}
}

func lookupSymbol(st *SymbolTable, rel uint32) (string, bool) {
	// Symbols are sorted by RelativeAddress; find the last symbol whose
	// address is <= rel.
	lo, hi := 0, len(st.Symbols)
	for lo < hi {
		mid := (lo + hi) / 2
		if st.Symbols[mid].RelativeAddress <= rel {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return "", false
	}
	s := st.Symbols[lo-1]
	if rel < s.RelativeAddress+s.Size {
		return s.Name, true
	}
	return "", false
}
