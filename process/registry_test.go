// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package process

import (
	"testing"

	"github.com/mstange/samply-sub000/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateProcessCreatesOnce(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, nil)

	h1 := r.GetOrCreateProcess(100, 1, "proc", 0)
	h2 := r.GetOrCreateProcess(100, 1, "proc", 10)
	assert.Equal(t, h1, h2)
}

func TestStartProcessHandlesPIDReuse(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, nil)

	h1 := r.StartProcess(100, 1, "first", 0)
	h2 := r.StartProcess(100, 1, "second", 50)

	assert.NotEqual(t, h1, h2)
	p1 := prof.Process(h1)
	assert.True(t, p1.HasEnd)
	assert.Equal(t, profile.Timestamp(50), p1.EndTime)

	cur, ok := r.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, h2, cur)
}

func TestThreadRecyclingByName(t *testing.T) {
	prof := profile.New("test", 0, 0)
	recycler := NewProcessRecycler()
	r := New(prof, recycler)

	pid := 200
	r.StartProcess(pid, 1, "worker-pool", 0)
	th, ok := r.GetOrCreateThread(pid, 201, "render", 5)
	require.True(t, ok)

	r.EndThread(pid, 201, 20)
	th2, ok := r.GetOrCreateThread(pid, 301, "render", 25)
	require.True(t, ok)
	assert.Equal(t, th, th2)
}

func TestProcessRecyclingByName(t *testing.T) {
	prof := profile.New("test", 0, 0)
	recycler := NewProcessRecycler()
	r := New(prof, recycler)

	h1 := r.StartProcess(10, 1, "helper", 0)
	r.EndProcess(10, 100)

	h2 := r.StartProcess(20, 1, "helper", 150)
	assert.Equal(t, h1, h2)
}

func TestLookupThreadMissing(t *testing.T) {
	prof := profile.New("test", 0, 0)
	r := New(prof, nil)
	_, ok := r.LookupThread(999, 999)
	assert.False(t, ok)
}
