// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *Index {
	return &Index{
		ModuleInfo: []byte("MODULE Linux x86_64 000000000000000000000000000000000 libfoo.so"),
		Files: []FileEntry{
			{Index: 0, LineLen: 12, Offset: 100},
			{Index: 1, LineLen: 20, Offset: 112},
		},
		InlineOrigins: []FileEntry{
			{Index: 0, LineLen: 8, Offset: 300},
		},
		Addresses: []uint32{0x1000, 0x2000, 0x3000},
		Symbols: []SymbolEntry{
			{Kind: SymbolFunc, LineOrBlockLen: 4, Offset: 1000},
			{Kind: SymbolPublic, LineOrBlockLen: 0, Offset: 1100},
			{Kind: SymbolFunc, LineOrBlockLen: 6, Offset: 1200},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	idx := testIndex()
	data := Write(idx)

	got, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, idx.ModuleInfo, got.ModuleInfo)
	assert.Equal(t, idx.Files, got.Files)
	assert.Equal(t, idx.InlineOrigins, got.InlineOrigins)
	assert.Equal(t, idx.Addresses, got.Addresses)
	assert.Equal(t, idx.Symbols, got.Symbols)
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := Write(testIndex())
	data[0] = 'X'
	_, err := Read(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReadRejectsBadVersion(t *testing.T) {
	data := Write(testIndex())
	data[8] = 99
	_, err := Read(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	data := Write(testIndex())
	_, err := Read(data[:len(data)-4])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReadRejectsMismatchedSectionOffset(t *testing.T) {
	data := Write(testIndex())
	// Corrupt the first section's recorded offset so it overruns the
	// file.
	data[12] = 0xff
	data[13] = 0xff
	_, err := Read(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLookupFindsContainingSymbol(t *testing.T) {
	idx := testIndex()

	sym, i, ok := idx.Lookup(0x1500)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, idx.Symbols[0], sym)

	sym, i, ok = idx.Lookup(0x3500)
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, idx.Symbols[2], sym)
}

func TestLookupBeforeFirstSymbolFails(t *testing.T) {
	idx := testIndex()
	_, _, ok := idx.Lookup(0x500)
	assert.False(t, ok)
}
