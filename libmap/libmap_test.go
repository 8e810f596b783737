// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/mstange/samply-sub000/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangesExactStartEviction(t *testing.T) {
	var r ranges
	r.Add(0x1000, 0x2000, "first")
	r.Add(0x1000, 0x1800, "second")

	lo, hi, val, ok := r.Find(0x1500)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), lo)
	assert.Equal(t, uint64(0x1800), hi)
	assert.Equal(t, "second", val)
}

func TestRangesKernelTruncation(t *testing.T) {
	var r ranges
	r.Add(0x1000, 0xffffffff, "kernel")
	r.Truncate(0x1000, 0x3000)
	r.Add(0x3000, 0x4000, "module")

	_, hi, val, ok := r.Find(0x2000)
	require.True(t, ok)
	assert.Equal(t, uint64(0x3000), hi)
	assert.Equal(t, "kernel", val)

	_, _, val, ok = r.Find(0x3500)
	require.True(t, ok)
	assert.Equal(t, "module", val)
}

func TestMapAddAndResolve(t *testing.T) {
	prof := profile.New("test", 0, 0)
	m := New(prof, zerolog.Nop())

	idx, ok := m.Add(LoadSpec{
		Start:      0x400000,
		End:        0x401000,
		FileOffset: 0,
		Sections: []SectionInfo{
			{FileOffset: 0, FileSize: 0x1000, SVMA: 0, IsSegment: true},
		},
		Name: "libfoo.so",
		Arch: "x86_64",
	})
	require.True(t, ok)
	assert.Equal(t, profile.ProcessLibIndex(0), idx)

	loc := m.Resolve(0x400010, false)
	assert.Equal(t, profile.LocAddressInLib, loc.Kind)
	assert.Equal(t, uint32(0x10), loc.RelativeAddress)

	unknown := m.Resolve(0x500000, false)
	assert.Equal(t, profile.LocUnknownAddress, unknown.Kind)
}

func TestMapAddUnresolvedWithoutMatchingSection(t *testing.T) {
	prof := profile.New("test", 0, 0)
	m := New(prof, zerolog.Nop())

	_, ok := m.Add(LoadSpec{
		Start:      0x400000,
		End:        0x401000,
		FileOffset: 0x5000, // no section covers this offset
		Sections: []SectionInfo{
			{FileOffset: 0, FileSize: 0x1000, SVMA: 0, IsSegment: true},
		},
	})
	assert.False(t, ok)
}

func TestReturnAddressAdjustment(t *testing.T) {
	prof := profile.New("test", 0, 0)
	m := New(prof, zerolog.Nop())
	_, ok := m.Add(LoadSpec{
		Start: 0x400000, End: 0x401000,
		Sections: []SectionInfo{{FileOffset: 0, FileSize: 0x1000, SVMA: 0, IsSegment: true}},
	})
	require.True(t, ok)

	loc := m.Resolve(0x400011, true) // adjusted to 0x400010 -> rel 0x10
	assert.Equal(t, profile.LocAddressInLib, loc.Kind)
	assert.Equal(t, uint32(0x10), loc.RelativeAddress)
}
