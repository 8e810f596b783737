// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cswitch

import "github.com/mstange/samply-sub000/profile"

// Materialize emits the samples described by an OffCpuSampleGroup onto
// th, all sharing offCPUStack (the last user stack captured before the
// switch-out): one sample at BeginTs carrying leftoverCPU
// (time the thread was on-CPU right up to the switch-out, from
// Handler.ConsumeCPUDelta), and, if SampleCount > 1, a second sample at
// EndTs with zero CPU delta and weight = SampleCount - 1 standing in
// for the rest of the paused range.
func Materialize(th *profile.Thread, g OffCpuSampleGroup, offCPUStack profile.StackIndex, leftoverCPU profile.CpuDelta) {
	th.AddSample(g.BeginTs, offCPUStack, leftoverCPU, 1)
	if g.SampleCount > 1 {
		th.AddSample(g.EndTs, offCPUStack, 0, int(g.SampleCount-1))
	}
}
