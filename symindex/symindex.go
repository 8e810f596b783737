// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symindex reads and writes a sidecar index format for
// Breakpad .sym symbol files: a small fixed-layout header of byte
// offsets into five variable-length sections, so repeated symbol
// lookups against a large .sym file
// don't require re-parsing its full text on every load. It mirrors
// perffile's bufDecoder style (a little-endian cursor over a byte
// slice) rather than reaching for encoding/gob or a schema library,
// since the format is this module's own small fixed binary layout,
// not an interchange format shared with anything else.
package symindex

import (
	"encoding/binary"
	"errors"
)

// magic is the 8-byte file signature.
const magic = "SYMINDEX"

// version is the only format version this package writes or accepts.
const version = 1

// headerSize is magic(8) + version(4) + five (offset,length) u32 pairs(40).
const headerSize = 8 + 4 + 5*8

// ErrCorrupt is returned by Read when the header's magic, version, or
// section bounds don't describe a well-formed file. On corruption a
// caller should fall back to a full .sym re-parse rather than treat
// this as a fatal error.
var ErrCorrupt = errors.New("symindex: corrupt index file")

// SymbolKind discriminates a Breakpad PUBLIC record from a FUNC
// record, symbol-entry kind field.
type SymbolKind uint32

const (
	SymbolPublic SymbolKind = 0
	SymbolFunc   SymbolKind = 1
)

// FileEntry is one FILE or INLINE_ORIGIN line's index record: index is
// the Breakpad file/origin number, lineLen is the byte length of its
// recorded source line text, and offset is the byte offset of that
// text within the .sym file.
type FileEntry struct {
	Index   uint32
	LineLen uint32
	Offset  uint64
}

// SymbolEntry is one symbol's index record, parallel to the sorted
// Addresses slice (Addresses[i] is SymbolEntry i's relative address).
type SymbolEntry struct {
	Kind           SymbolKind
	LineOrBlockLen uint32
	Offset         uint64
}

// Index is the decoded contents of a symindex sidecar file: enough to
// seek directly to any module-info, file/inline-origin, or symbol
// record in the underlying .sym file without re-scanning it.
type Index struct {
	ModuleInfo    []byte
	Files         []FileEntry
	InlineOrigins []FileEntry
	// Addresses are module-relative symbol start addresses, sorted
	// ascending and parallel to Symbols.
	Addresses []uint32
	Symbols   []SymbolEntry
}

// Write serializes idx into the on-disk sidecar format.
func Write(idx *Index) []byte {
	fileBytes := encodeFileEntries(idx.Files)
	originBytes := encodeFileEntries(idx.InlineOrigins)
	addrBytes := encodeAddresses(idx.Addresses)
	symBytes := encodeSymbolEntries(idx.Symbols)

	sections := [][]byte{idx.ModuleInfo, fileBytes, originBytes, addrBytes, symBytes}

	buf := make([]byte, headerSize)
	copy(buf[:8], magic)
	binary.LittleEndian.PutUint32(buf[8:12], version)

	off := uint32(headerSize)
	pos := 12
	for _, s := range sections {
		binary.LittleEndian.PutUint32(buf[pos:pos+4], off)
		binary.LittleEndian.PutUint32(buf[pos+4:pos+8], uint32(len(s)))
		pos += 8
		off += uint32(len(s))
	}
	for _, s := range sections {
		buf = append(buf, s...)
	}
	return buf
}

// Read parses an on-disk symindex file, returning ErrCorrupt if the
// header, magic, version, or any section's bounds don't check out.
func Read(data []byte) (*Index, error) {
	if len(data) < headerSize || string(data[:8]) != magic {
		return nil, ErrCorrupt
	}
	if binary.LittleEndian.Uint32(data[8:12]) != version {
		return nil, ErrCorrupt
	}

	var offs, lens [5]uint32
	pos := 12
	for i := 0; i < 5; i++ {
		offs[i] = binary.LittleEndian.Uint32(data[pos : pos+4])
		lens[i] = binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		pos += 8
	}

	sections := make([][]byte, 5)
	for i, off := range offs {
		end := uint64(off) + uint64(lens[i])
		if end > uint64(len(data)) || uint64(off) > end {
			return nil, ErrCorrupt
		}
		sections[i] = data[off:end]
	}

	files, err := decodeFileEntries(sections[1])
	if err != nil {
		return nil, err
	}
	origins, err := decodeFileEntries(sections[2])
	if err != nil {
		return nil, err
	}
	addrs, err := decodeAddresses(sections[3])
	if err != nil {
		return nil, err
	}
	syms, err := decodeSymbolEntries(sections[4])
	if err != nil {
		return nil, err
	}
	if len(addrs) != len(syms) {
		return nil, ErrCorrupt
	}

	return &Index{
		ModuleInfo:    append([]byte(nil), sections[0]...),
		Files:         files,
		InlineOrigins: origins,
		Addresses:     addrs,
		Symbols:       syms,
	}, nil
}

const fileEntrySize = 4 + 4 + 8

func encodeFileEntries(es []FileEntry) []byte {
	buf := make([]byte, len(es)*fileEntrySize)
	for i, e := range es {
		p := buf[i*fileEntrySize:]
		binary.LittleEndian.PutUint32(p[0:4], e.Index)
		binary.LittleEndian.PutUint32(p[4:8], e.LineLen)
		binary.LittleEndian.PutUint64(p[8:16], e.Offset)
	}
	return buf
}

func decodeFileEntries(data []byte) ([]FileEntry, error) {
	if len(data)%fileEntrySize != 0 {
		return nil, ErrCorrupt
	}
	n := len(data) / fileEntrySize
	out := make([]FileEntry, n)
	for i := range out {
		p := data[i*fileEntrySize:]
		out[i] = FileEntry{
			Index:   binary.LittleEndian.Uint32(p[0:4]),
			LineLen: binary.LittleEndian.Uint32(p[4:8]),
			Offset:  binary.LittleEndian.Uint64(p[8:16]),
		}
	}
	return out, nil
}

func encodeAddresses(addrs []uint32) []byte {
	buf := make([]byte, len(addrs)*4)
	for i, a := range addrs {
		binary.LittleEndian.PutUint32(buf[i*4:], a)
	}
	return buf
}

func decodeAddresses(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, ErrCorrupt
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out, nil
}

const symbolEntrySize = 4 + 4 + 8

func encodeSymbolEntries(es []SymbolEntry) []byte {
	buf := make([]byte, len(es)*symbolEntrySize)
	for i, e := range es {
		p := buf[i*symbolEntrySize:]
		binary.LittleEndian.PutUint32(p[0:4], uint32(e.Kind))
		binary.LittleEndian.PutUint32(p[4:8], e.LineOrBlockLen)
		binary.LittleEndian.PutUint64(p[8:16], e.Offset)
	}
	return buf
}

func decodeSymbolEntries(data []byte) ([]SymbolEntry, error) {
	if len(data)%symbolEntrySize != 0 {
		return nil, ErrCorrupt
	}
	n := len(data) / symbolEntrySize
	out := make([]SymbolEntry, n)
	for i := range out {
		p := data[i*symbolEntrySize:]
		out[i] = SymbolEntry{
			Kind:           SymbolKind(binary.LittleEndian.Uint32(p[0:4])),
			LineOrBlockLen: binary.LittleEndian.Uint32(p[4:8]),
			Offset:         binary.LittleEndian.Uint64(p[8:16]),
		}
	}
	return out, nil
}

// Lookup finds the symbol whose address range contains rel, the
// module-relative address callers resolve from AddressInLib
// frames, returning its SymbolEntry and index into Symbols/Addresses,
// or ok=false if rel falls before the first symbol.
func (idx *Index) Lookup(rel uint32) (sym SymbolEntry, symIndex int, ok bool) {
	lo, hi := 0, len(idx.Addresses)
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.Addresses[mid] <= rel {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return SymbolEntry{}, 0, false
	}
	return idx.Symbols[lo-1], lo - 1, true
}
