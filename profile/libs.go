// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import "github.com/google/uuid"

// LibraryInfo describes one shared library, executable, or synthetic
// (JIT) code region. It is content-hashed across processes: the same
// DSO loaded by many processes shares one GlobalLibIndex.
type LibraryInfo struct {
	Name      string
	DebugName string
	Path      string
	DebugPath string
	DebugID   uuid.UUID // build UUID; zero value if unknown
	DebugAge  uint32    // PDB/breakpad "age"; combines with DebugID for BreakpadID
	CodeID    string    // optional: ELF build-id hex, PE timestamp+size, or Mach-O UUID
	Arch      string
	Size      uint32 // size of the mapped/synthetic code region, for bounds-checking relative addresses

	Symbols *SymbolTable // optional, attached by an external symbolicator or by the JIT registry
}

// Symbol is one entry of an attached symbol table.
type Symbol struct {
	RelativeAddress uint32
	Size            uint32
	Name            string
}

// SymbolTable is an optional, externally-sourced (or JIT-assembled) set
// of symbols for a library. The core never builds one by resolving
// addresses itself.
type SymbolTable struct {
	Symbols []Symbol // sorted by RelativeAddress
}

// dedupKey is the value-hash key LibraryInfo dedup is keyed on: the
// whole struct except the attached symbol table (symbols are only ever
// attached after creation, by JIT or an external loader, and two
// mappings of the same build should still share a GlobalLibIndex before
// that happens).
type libDedupKey struct {
	name, debugName, path, debugPath string
	debugID                          uuid.UUID
	debugAge                         uint32
	codeID, arch                     string
	size                             uint32
}

func (l *LibraryInfo) key() libDedupKey {
	return libDedupKey{l.Name, l.DebugName, l.Path, l.DebugPath, l.DebugID, l.DebugAge, l.CodeID, l.Arch, l.Size}
}

// BreakpadID formats DebugID+DebugAge as a breakpad symbol-server key:
// 32 uppercase hex characters followed by a one-character age. See
// GLOSSARY.
func (l *LibraryInfo) BreakpadID() string {
	if l.DebugID == uuid.Nil {
		return ""
	}
	var buf [32]byte
	hex := []byte(l.DebugID.String())
	n := 0
	for _, c := range hex {
		if c == '-' {
			continue
		}
		buf[n] = upperHexDigit(c)
		n++
	}
	age := l.DebugAge
	ageChar := "0123456789abcdef"[age&0xf]
	if age > 0xf {
		// Breakpad ages beyond a single hex nibble are rare; render
		// the full value so the ID at least round-trips uniquely.
		return string(buf[:n]) + itoaHex(age)
	}
	return string(buf[:n]) + string(ageChar)
}

func upperHexDigit(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}

func itoaHex(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// globalLibTable is the Profile-wide deduplicated library store.
type globalLibTable struct {
	libs  []LibraryInfo
	index map[libDedupKey]GlobalLibIndex
}

func newGlobalLibTable() *globalLibTable {
	return &globalLibTable{index: make(map[libDedupKey]GlobalLibIndex)}
}

// add returns the GlobalLibIndex for info, creating a new entry only if
// no byte-identical (by key()) entry already exists. Global library
// indices are assigned in first-seen order.
func (t *globalLibTable) add(info LibraryInfo) GlobalLibIndex {
	k := info.key()
	if idx, ok := t.index[k]; ok {
		// Adopt a newly-attached symbol table even on a dedup hit, so
		// whichever caller loaded symbols first "wins" and is shared.
		if t.libs[idx].Symbols == nil && info.Symbols != nil {
			t.libs[idx].Symbols = info.Symbols
		}
		return idx
	}
	idx := GlobalLibIndex(len(t.libs))
	t.libs = append(t.libs, info)
	t.index[k] = idx
	return idx
}

func (t *globalLibTable) get(idx GlobalLibIndex) *LibraryInfo {
	return &t.libs[idx]
}
