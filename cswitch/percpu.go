// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cswitch

import (
	"fmt"

	"github.com/mstange/samply-sub000/profile"
)

// PerCPUThreads models each physical CPU as a pseudo-thread owned by a
// single pseudo-process optional per-CPU virtual threads:
// samples get duplicated onto the CPU's thread (labeled with the
// originating thread) so the output also renders a per-CPU timeline.
type PerCPUThreads struct {
	prof    *profile.Profile
	process profile.ProcessHandle
	byCPU   map[int]profile.ThreadHandle
}

// NewPerCPUThreads creates the pseudo-process ("CPUs") that will own
// one pseudo-thread per physical CPU, added lazily as CPUs are seen.
func NewPerCPUThreads(prof *profile.Profile, startTs profile.Timestamp) *PerCPUThreads {
	proc := prof.AddProcess(-1, "CPUs", startTs)
	return &PerCPUThreads{prof: prof, process: proc, byCPU: make(map[int]profile.ThreadHandle)}
}

// threadFor returns (creating if necessary) the pseudo-thread for cpu.
func (p *PerCPUThreads) threadFor(cpu int, ts profile.Timestamp) profile.ThreadHandle {
	if h, ok := p.byCPU[cpu]; ok {
		return h
	}
	h := p.prof.AddThread(p.process, -(cpu + 1), ts, len(p.byCPU) == 0)
	p.prof.SetThreadName(h, fmt.Sprintf("CPU %d", cpu))
	p.byCPU[cpu] = h
	return h
}

// DuplicateSample records a sample on the CPU's own pseudo-thread.
// Stack indices are thread-local, so the caller must rebuild the
// sample's frames on the CPU thread rather than reuse the originating
// thread's StackIndex directly: it interns a label frame named for the
// originating thread as the outermost frame, then the same
// (location, category) pairs the original stack was built from.
func (p *PerCPUThreads) DuplicateSample(cpu int, ts profile.Timestamp, originatingThreadName string, locs []profile.FrameLocation, cats []profile.CategoryPair, cpuDelta profile.CpuDelta, weight int) {
	th := p.prof.Thread(p.threadFor(cpu, ts))

	labelName := th.InternLocalString(originatingThreadName)
	frames := make([]profile.FrameIndex, 0, len(locs)+1)
	frameCats := make([]profile.CategoryPair, 0, len(locs)+1)
	frames = append(frames, th.AddFrame(profile.Label(labelName), profile.CategoryPair{Subcategory: profile.NoSubcategory}))
	frameCats = append(frameCats, profile.CategoryPair{Subcategory: profile.NoSubcategory})
	for i, loc := range locs {
		frames = append(frames, th.AddFrame(loc, cats[i]))
		frameCats = append(frameCats, cats[i])
	}
	stack := th.BuildStack(frames, frameCats)
	th.AddSample(ts, stack, cpuDelta, weight)
}

// IdleBracket adds a zero-weight "Idle" sample to mark a switch-in or
// switch-out boundary on a CPU's timeline.
func (p *PerCPUThreads) IdleBracket(cpu int, ts profile.Timestamp) {
	th := p.threadFor(cpu, ts)
	p.prof.Thread(th).AddSample(ts, profile.NoStack, 0, 0)
}
