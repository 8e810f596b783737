// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"github.com/mstange/samply-sub000/libmap"
	"github.com/mstange/samply-sub000/profile"
	"github.com/mstange/samply-sub000/unwind"
)

// maxUnwindFrames bounds one call to unwind.Walk, guarding against an
// Unwinder implementation that loops on corrupt frame-pointer chains.
const maxUnwindFrames = 256

// moduleLookup adapts a process's libmap.Map (plus the shared kernel
// Map) into an unwind.ModuleLookup, routing an AVMA to whichever Map
// owns it the same way resolveAddress does for already-walked chains.
type moduleLookup struct {
	proc      *libmap.Map
	kernel    *libmap.Map
	kernelMin uint64
}

func (ml moduleLookup) ModuleFor(avma uint64) (unwind.ExplicitModuleSectionInfo, bool) {
	if avma >= ml.kernelMin {
		return ml.kernel.ModuleFor(avma)
	}
	return ml.proc.ModuleFor(avma)
}

// HandleSampleRegs finalizes the matching pending sample from a raw
// PC/SP/FP snapshot plus a captured stack-byte snapshot, for event
// sources that recorded PERF_SAMPLE_REGS_USER/PERF_SAMPLE_STACK_USER
// instead of an already-walked PERF_SAMPLE_CALLCHAIN. Without an Unwinder
// configured (Options.Unwinder), it falls back to a single-frame
// stack, the same result a disabled call-graph walker would produce.
func (c *Converter) HandleSampleRegs(rawTs int64, pid, tid int, pc, sp, fp uint64, stackBytes []byte) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok || !c.includeThread(c.isMainThread(pid, th)) {
		return
	}

	if c.opts.Unwinder == nil {
		c.finalizeStacksUpTo(th, rawTs, []uint64{pc})
		return
	}

	proc, ok := c.reg.Lookup(pid)
	if !ok {
		return
	}
	modules := moduleLookup{proc: c.libmapFor(proc), kernel: c.kernelLibmap, kernelMin: c.opts.KernelMin}
	reader := unwind.NewSliceStackReader(sp, stackBytes)

	pcs, truncated := unwind.Walk(c.opts.Unwinder, pc, sp, fp, modules, reader, maxUnwindFrames)
	stack := c.buildUnwoundStack(th, pcs, truncated)
	c.finalizeUnwoundStack(th, rawTs, stack)
}

// buildUnwoundStack resolves pcs (leaf-first, per unwind.Walk's return
// convention) against the owning process's library map, building the
// same caller-first prefix-tree chain buildStack does for an
// already-combined chain, with a trailing TruncatedStackMarker label
// frame rooting the chain when the unwinder stopped on an error rather
// than reaching the end of the stack.
func (c *Converter) buildUnwoundStack(th profile.ThreadHandle, pcs []uint64, truncated bool) profile.StackIndex {
	if len(pcs) == 0 {
		return profile.NoStack
	}
	thread := c.prof.Thread(th)
	m := c.libmapFor(thread.Owner)
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}

	var frameIdx []profile.FrameIndex
	if truncated {
		label := thread.InternLocalString(unwind.TruncatedStackMarker)
		frameIdx = append(frameIdx, thread.AddFrame(profile.Label(label), cat))
	}
	n := len(pcs)
	for i := n - 1; i >= 0; i-- {
		isLeaf := i == 0
		adjust := !isLeaf && !c.opts.AdjustedAddresses
		loc := c.resolveAddress(m, pcs[i], unwind.StackModeUser, adjust)
		frameIdx = append(frameIdx, thread.AddFrame(loc, cat))
	}

	cats := make([]profile.CategoryPair, len(frameIdx))
	for i := range cats {
		cats[i] = cat
	}
	return thread.BuildStack(frameIdx, cats)
}

// finalizeUnwoundStack drains th's pending samples the same way
// finalizeStacksUpTo does, but from an already-built StackIndex rather
// than a raw frame-address slice, since buildUnwoundStack has already
// interned the truncation marker into the chain.
func (c *Converter) finalizeUnwoundStack(th profile.ThreadHandle, rawTs int64, stack profile.StackIndex) {
	pending := c.pendingStacks[th]
	var remaining []*pendingStack
	for _, p := range pending {
		if !p.finalized && p.rawTs <= rawTs {
			thread := c.prof.Thread(th)
			delta := cswitchDelta(c, th)
			thread.AddSample(p.ts, stack, delta, 1)
			p.finalized = true
			continue
		}
		remaining = append(remaining, p)
	}
	c.pendingStacks[th] = remaining
	c.offCPUStacks[th] = stack
}
