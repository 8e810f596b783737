// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cswitch

import (
	"testing"

	"github.com/mstange/samply-sub000/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchOutThenInProducesGroup(t *testing.T) {
	h := New(profile.CpuDeltaFromMicros(100))
	var st ThreadState

	h.HandleOnCPUSample(0, &st)
	h.HandleSwitchOut(50, &st)
	group, ok := h.HandleSwitchIn(1050, &st)
	require.True(t, ok)
	assert.Equal(t, profile.Timestamp(50), group.BeginTs)
	assert.Equal(t, profile.Timestamp(1050), group.EndTs)
	assert.Equal(t, int64(10), group.SampleCount)
}

func TestSwitchInWithoutPriorOutIsNotAGroup(t *testing.T) {
	h := New(profile.CpuDeltaFromMicros(100))
	var st ThreadState
	_, ok := h.HandleSwitchIn(10, &st)
	assert.False(t, ok)
}

func TestConsumeCPUDeltaAccumulatesAndClears(t *testing.T) {
	h := New(profile.CpuDeltaFromMicros(100))
	var st ThreadState
	h.HandleOnCPUSample(0, &st)
	h.HandleOnCPUSample(200, &st)
	d := h.ConsumeCPUDelta(&st)
	assert.Equal(t, profile.CpuDeltaFromNanos(200), d)
	assert.True(t, h.ConsumeCPUDelta(&st).IsZero())
}

func TestMaterializeEmitsLeftoverAndWeightedSample(t *testing.T) {
	prof := profile.New("test", 0, 0)
	proc := prof.AddProcess(1, "p", 0)
	th := prof.AddThread(proc, 1, 0, true)
	thread := prof.Thread(th)

	loc := profile.UnknownAddress(0x1234)
	frame := thread.AddFrame(loc, profile.CategoryPair{Subcategory: profile.NoSubcategory})
	stack := thread.BuildStack([]profile.FrameIndex{frame}, []profile.CategoryPair{{Subcategory: profile.NoSubcategory}})

	Materialize(thread, OffCpuSampleGroup{BeginTs: 10, EndTs: 40, SampleCount: 3}, stack, profile.CpuDeltaFromNanos(5))

	ts, stacks, cpuDeltas, weights := thread.Samples()
	require.Len(t, ts, 2)
	assert.Equal(t, profile.Timestamp(10), ts[0])
	assert.Equal(t, profile.CpuDeltaFromNanos(5), cpuDeltas[0])
	assert.Equal(t, 1, weights[0])
	assert.Equal(t, profile.Timestamp(40), ts[1])
	assert.Equal(t, 2, weights[1])
	assert.Equal(t, stack, stacks[1])
}
