// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intern_string(s) called twice for the same s returns the same handle
//.
func TestInternStringIsIdempotent(t *testing.T) {
	p := New("test", 0, 0)
	a := p.InternString("hello")
	b := p.InternString("hello")
	c := p.InternString("world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// add_lib(info) called twice with byte-identical info returns the same
// GlobalLibIndex; a differing field forces a new entry.
func TestAddLibIsIdempotentByValue(t *testing.T) {
	p := New("test", 0, 0)
	info := LibraryInfo{Name: "libfoo.so", Arch: "x86_64", Size: 0x1000}
	a := p.AddLib(info)
	b := p.AddLib(info)
	assert.Equal(t, a, b)

	other := info
	other.Size = 0x2000
	c := p.AddLib(other)
	assert.NotEqual(t, a, c)
}

// A dedup hit that newly attaches a symbol table adopts it, so whoever
// loads symbols first is shared by every later caller with the same key.
func TestAddLibAdoptsSymbolsOnDedupHit(t *testing.T) {
	p := New("test", 0, 0)
	info := LibraryInfo{Name: "libfoo.so"}
	idx := p.AddLib(info)
	require.Nil(t, p.Lib(idx).Symbols)

	withSyms := info
	withSyms.Symbols = &SymbolTable{Symbols: []Symbol{{RelativeAddress: 0, Size: 16, Name: "f"}}}
	idx2 := p.AddLib(withSyms)

	assert.Equal(t, idx, idx2)
	require.NotNil(t, p.Lib(idx).Symbols)
	assert.Equal(t, "f", p.Lib(idx).Symbols.Symbols[0].Name)
}

// Walking a stack's prefix chain terminates at NoStack in at most
// stackTable.Len() hops.
func TestStackPrefixChainTerminates(t *testing.T) {
	p := New("test", 0, 0)
	th := p.Thread(p.AddThread(p.AddProcess(1, "app", 0), 1, 0, true))
	cat := p.OtherCategory()

	var frames []FrameIndex
	var cats []CategoryPair
	for i := 0; i < 5; i++ {
		frames = append(frames, th.AddFrame(UnknownAddress(uint64(i)), cat))
		cats = append(cats, cat)
	}
	stack := th.BuildStack(frames, cats)

	depth := th.StackDepth(stack)
	assert.Equal(t, 5, depth)

	n := 0
	for s := stack; s != NoStack; s = th.StackPrefix(s) {
		n++
		require.LessOrEqual(t, n, 5)
	}
}

// Two call chains sharing a caller-side prefix share the same prefix
// StackIndex chain rather than allocating duplicate entries.
func TestBuildStackSharesCommonPrefix(t *testing.T) {
	p := New("test", 0, 0)
	th := p.Thread(p.AddThread(p.AddProcess(1, "app", 0), 1, 0, true))
	cat := p.OtherCategory()

	root := th.AddFrame(UnknownAddress(0x1000), cat)
	leafA := th.AddFrame(UnknownAddress(0x2000), cat)
	leafB := th.AddFrame(UnknownAddress(0x3000), cat)

	stackA := th.BuildStack([]FrameIndex{root, leafA}, []CategoryPair{cat, cat})
	stackB := th.BuildStack([]FrameIndex{root, leafB}, []CategoryPair{cat, cat})

	assert.NotEqual(t, stackA, stackB)
	assert.Equal(t, th.StackPrefix(stackA), th.StackPrefix(stackB))
}

// A thread-local string interned via InternLocalString (e.g. a
// TruncatedStackMarker label) round-trips through LocalString.
func TestThreadLocalStringRoundTrips(t *testing.T) {
	p := New("test", 0, 0)
	th := p.Thread(p.AddThread(p.AddProcess(1, "app", 0), 1, 0, true))

	idx := th.InternLocalString("(truncated)")
	assert.Equal(t, "(truncated)", th.LocalString(idx))

	// Re-interning the same global string returns the same local index.
	g := p.InternString("shared")
	a := th.InternString(g)
	b := th.InternString(g)
	assert.Equal(t, a, b)
}

// AddressInLib frames carry a RelativeAddress that must stay within the
// owning library's mapped size for a well-formed capture.
func TestAddressInLibRelativeAddressWithinLibSize(t *testing.T) {
	p := New("test", 0, 0)
	lib := p.AddLib(LibraryInfo{Name: "libfoo.so", Size: 0x1000})

	loc := AddressInLib(0x800, lib)
	info := p.Lib(loc.Lib)
	assert.Less(t, loc.RelativeAddress, info.Size)
}

// Off-CPU sample groups materialize a "begin" sample plus zero or more
// zero-delta compaction samples, never a negative or zero-weight
// compaction count.
func TestCounterSamplesAccumulate(t *testing.T) {
	p := New("test", 0, 0)
	proc := p.AddProcess(1, "app", 0)
	idx := p.AddCounter(proc, "RSS", "memory", "Resident set size")

	p.AddCounterSample(idx, 100, 4096)
	p.AddCounterSample(idx, 200, 8192)

	ts, vals := p.Counters()[0].Samples()
	assert.Equal(t, []Timestamp{100, 200}, ts)
	assert.Equal(t, []int64{4096, 8192}, vals)
}

// MarkerSchema registration is first-registration-wins; re-registering
// the same name is a no-op.
func TestRegisterMarkerSchemaFirstWins(t *testing.T) {
	p := New("test", 0, 0)
	p.RegisterMarkerSchema(MarkerSchema{Name: "Mmap", DisplayName: "Memory map"})
	p.RegisterMarkerSchema(MarkerSchema{Name: "Mmap", DisplayName: "Something else"})

	schemas := p.MarkerSchemas()
	require.Len(t, schemas, 1)
	assert.Equal(t, "Memory map", schemas[0].DisplayName)
}

// Serialize never mutates the Profile and produces well-formed JSON
// whose thread/lib counts agree with what was built.
func TestSerializeRoundTripsCounts(t *testing.T) {
	p := New("acme", ReferenceTimestampFromUnixMillis(1000), SamplingInterval(1_000_000))
	proc := p.AddProcess(1, "app", 0)
	th := p.Thread(p.AddThread(proc, 1, 0, true))
	lib := p.AddLib(LibraryInfo{Name: "libfoo.so", Arch: "x86_64"})
	cat := p.OtherCategory()
	frame := th.AddFrame(AddressInLib(0x10, lib), cat)
	stack := th.BuildStack([]FrameIndex{frame}, []CategoryPair{cat})
	th.AddSample(0, stack, CpuDeltaFromNanos(1000), 1)

	before := len(p.Processes())
	data, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, before, len(p.Processes()))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "acme", doc["meta"].(map[string]interface{})["product"])
	libs := doc["libs"].([]interface{})
	assert.Len(t, libs, 1)
	threads := doc["threads"].([]interface{})
	assert.Len(t, threads, 1)
}

// PID reuse never reassigns a handle: a new Process is created and the
// old one retained with EndTime set.
func TestProcessHandlesAreNeverReused(t *testing.T) {
	p := New("test", 0, 0)
	h1 := p.AddProcess(7, "first", 0)
	p.SetProcessEndTime(h1, 100)
	h2 := p.AddProcess(7, "second", 100)

	assert.NotEqual(t, h1, h2)
	require.True(t, p.Process(h1).HasEnd)
	assert.Equal(t, Timestamp(100), p.Process(h1).EndTime)
	assert.False(t, p.Process(h2).HasEnd)
}

// MainThread returns the first thread added to a process, or -1 before
// any thread exists.
func TestProcessMainThreadConvention(t *testing.T) {
	p := New("test", 0, 0)
	h := p.AddProcess(1, "app", 0)
	proc := p.Process(h)
	assert.Equal(t, ThreadHandle(-1), proc.MainThread())

	main := p.AddThread(h, 1, 0, true)
	other := p.AddThread(h, 2, 0, false)
	assert.Equal(t, main, proc.MainThread())
	assert.NotEqual(t, other, proc.MainThread())
}
