// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cswitch accounts for time a thread spends off-CPU between
// context switches, turning PERF_RECORD_SWITCH /
// PERF_RECORD_SWITCH_CPU_WIDE pairs into synthetic "off-CPU" samples so
// a profile shows continuous coverage rather than gaps wherever a
// thread was descheduled.
package cswitch

import "github.com/mstange/samply-sub000/profile"

// ThreadState is the per-thread bookkeeping the handler needs. It is
// owned by the caller (one per Thread) and passed into every call.
type ThreadState struct {
	lastOnCPU   profile.Timestamp
	haveLastOn  bool
	accumulated profile.CpuDelta
	switchOutTs profile.Timestamp
	isOffCPU    bool
}

// Handler implements the off-CPU accounting state machine. offCPUPeriod
// is the sampling period used to synthesize a sample count for a
// paused range.
type Handler struct {
	offCPUPeriod profile.CpuDelta
}

func New(offCPUPeriod profile.CpuDelta) *Handler {
	return &Handler{offCPUPeriod: offCPUPeriod}
}

// OffCpuSampleGroup describes one off-CPU period to materialize into
// samples.
type OffCpuSampleGroup struct {
	BeginTs, EndTs profile.Timestamp
	SampleCount    int64
}

// HandleSwitchOut records ts as the moment the thread went off-CPU.
func (h *Handler) HandleSwitchOut(ts profile.Timestamp, st *ThreadState) {
	st.switchOutTs = ts
	st.isOffCPU = true
	if st.haveLastOn {
		st.accumulated += profile.CpuDelta(int64(ts) - int64(st.lastOnCPU))
	}
}

// HandleSwitchIn returns the OffCpuSampleGroup describing the paused
// range ending now, if the thread was actually off-CPU (a switch-in
// with no matching switch-out, e.g. because the capture started
// mid-pause, yields ok=false).
func (h *Handler) HandleSwitchIn(ts profile.Timestamp, st *ThreadState) (OffCpuSampleGroup, bool) {
	if !st.isOffCPU {
		st.lastOnCPU = ts
		st.haveLastOn = true
		return OffCpuSampleGroup{}, false
	}
	st.isOffCPU = false
	st.lastOnCPU = ts
	st.haveLastOn = true

	begin, end := st.switchOutTs, ts
	if end < begin {
		end = begin
	}
	var count int64
	if h.offCPUPeriod > 0 {
		count = int64(end-begin) / int64(h.offCPUPeriod)
	}
	return OffCpuSampleGroup{BeginTs: begin, EndTs: end, SampleCount: count}, true
}

// HandleOnCPUSample updates the accumulator for a regular on-CPU
// sample event and returns any off-CPU group that was still pending
//.
func (h *Handler) HandleOnCPUSample(ts profile.Timestamp, st *ThreadState) {
	if st.haveLastOn {
		st.accumulated += profile.CpuDelta(int64(ts) - int64(st.lastOnCPU))
	}
	st.lastOnCPU = ts
	st.haveLastOn = true
}

// ConsumeCPUDelta returns and clears the CPU time accumulated since
// the last call.
func (h *Handler) ConsumeCPUDelta(st *ThreadState) profile.CpuDelta {
	d := st.accumulated
	st.accumulated = 0
	return d
}
