// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/mstange/samply-sub000/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAssignsMonotonicAddresses(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, false, zerolog.Nop())
	proc := prof.AddProcess(123, "node", 0)

	a1, _ := r.Load(proc, 123, "node", "Ion:foo", 16)
	a2, _ := r.Load(proc, 123, "node", "Baseline:bar", 32)
	assert.Equal(t, uint32(0), a1)
	assert.Equal(t, uint32(16), a2)
}

func TestRecyclingReusesAddressForSameName(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, true, zerolog.Nop())
	proc := prof.AddProcess(10, "worker", 0)

	first, _ := r.Load(proc, 10, "worker", "Ion:hot", 16)
	r.Load(proc, 10, "worker", "Ion:other", 8)

	proc2 := prof.AddProcess(20, "worker", 100)
	again, _ := r.Load(proc2, 20, "worker", "Ion:hot", 16)
	assert.Equal(t, first, again)
}

func TestFinishAttachesSymbolTable(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, false, zerolog.Nop())
	proc := prof.AddProcess(5, "app", 0)
	r.Load(proc, 5, "app", "Ion:foo", 16)

	libs := r.Finish()
	global, ok := libs[proc]
	require.True(t, ok)

	info := prof.Lib(global)
	require.NotNil(t, info.Symbols)
	require.Len(t, info.Symbols.Symbols, 1)
	assert.Equal(t, "Ion:foo", info.Symbols.Symbols[0].Name)
}

func TestCategoryClassification(t *testing.T) {
	assert.Equal(t, "JIT (Ion)", Category("Ion:foo"))
	assert.Equal(t, "JIT (Baseline)", Category("Baseline:bar"))
	assert.Equal(t, "JIT", Category("mystery"))
}
