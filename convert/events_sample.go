// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"github.com/mstange/samply-sub000/libmap"
	"github.com/mstange/samply-sub000/profile"
	"github.com/mstange/samply-sub000/unwind"
)

// HandleSample records an on-CPU sample at rawTs for the given thread;
// its stack is expected in a subsequent stack event. It also feeds the context-switch handler so any
// off-CPU group pending from an earlier switch-out gets flushed before
// this new on-CPU period starts. cpu is the originating CPU, used only
// when Options.PerCPUThreads duplicates the sample onto a per-CPU
// pseudo-thread; pass -1 if unknown.
func (c *Converter) HandleSample(rawTs int64, pid, tid, cpu int) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok || !c.includeThread(c.isMainThread(pid, th)) {
		return
	}
	ts := c.convertTime(rawTs)
	cs := c.cswitchFor(th)
	cs.handler.HandleOnCPUSample(ts, &cs.state)

	c.pendingStacks[th] = append(c.pendingStacks[th], &pendingStack{ts: ts, rawTs: rawTs, cpu: cpu})
}

// HandleStackX86 delivers one x86 stack fragment (kernel or user,
// classified by its first address) for the most recent matching
// pending sample on this thread x86 pairing rules.
func (c *Converter) HandleStackX86(rawTs int64, pid, tid int, frames []uint64) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	isKernel := len(frames) > 0 && frames[0] >= c.opts.KernelMin

	pending := c.pendingStacks[th]
	// Match against the most recent not-yet-finalized pending entry at
	// or before this stack's timestamp.
	var p *pendingStack
	for i := len(pending) - 1; i >= 0; i-- {
		if !pending[i].finalized && pending[i].rawTs <= rawTs {
			p = pending[i]
			break
		}
	}
	if p == nil {
		// A stack event with no matching pending sample is dropped
		//.
		return
	}

	if isKernel {
		if p.haveKernelFrames {
			// Tie-break: concatenate rather than drop.
			p.kernelFrames = append(p.kernelFrames, frames...)
		} else {
			p.kernelFrames = frames
			p.haveKernelFrames = true
		}
		return
	}

	// User fragment: combine with any kernel fragment (callers first)
	// and finalize every not-yet-finalized pending entry at or before
	// this timestamp.
	combined := make([]uint64, 0, len(p.kernelFrames)+len(frames))
	combined = append(combined, p.kernelFrames...)
	combined = append(combined, frames...)
	c.finalizeStacksUpTo(th, rawTs, combined)
}

// HandleStackArm64 delivers an already-combined stack and finalizes
// the matching sample immediately, with no fragment buffering.
func (c *Converter) HandleStackArm64(rawTs int64, pid, tid int, frames []uint64) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	c.finalizeStacksUpTo(th, rawTs, frames)
}

// finalizeStacksUpTo drains every not-yet-finalized pending entry at
// or before rawTs, attaching the same combined frame list to each
// (the "all pending entries share that user stack" rule from the
// context-switch-before-user-stack case in ).
func (c *Converter) finalizeStacksUpTo(th profile.ThreadHandle, rawTs int64, frames []uint64) {
	pending := c.pendingStacks[th]
	stack, locs, cats := c.buildStack(th, frames)
	var remaining []*pendingStack
	for _, p := range pending {
		if !p.finalized && p.rawTs <= rawTs {
			thread := c.prof.Thread(th)
			delta := cswitchDelta(c, th)
			thread.AddSample(p.ts, stack, delta, 1)
			if c.perCPU != nil && p.cpu >= 0 {
				c.perCPU.DuplicateSample(p.cpu, p.ts, thread.Name, locs, cats, delta, 1)
			}
			p.finalized = true
			continue
		}
		remaining = append(remaining, p)
	}
	c.pendingStacks[th] = remaining
	c.offCPUStacks[th] = stack
}

func cswitchDelta(c *Converter, th profile.ThreadHandle) profile.CpuDelta {
	cs := c.cswitchFor(th)
	return cs.handler.ConsumeCPUDelta(&cs.state)
}

// buildStack resolves each raw AVMA in frames (callee-first, innermost
// frame first) against th's owning
// process's library map and interns the resulting frame chain,
// returning the innermost StackIndex. Non-leaf (caller) frames get the
// return-address adjustment unless the converter was configured with
// AdjustedAddresses.
// It also returns the resolved (location, category) pairs in
// caller-first order so a PerCPUThreads duplication can rebuild the
// same frames on a different thread without reusing a thread-local
// StackIndex.
func (c *Converter) buildStack(th profile.ThreadHandle, frames []uint64) (profile.StackIndex, []profile.FrameLocation, []profile.CategoryPair) {
	// frames arrives callee-first; folding only ever applies at the
	// base (caller) end, which is the tail of a callee-first slice.
	frames = foldRecursiveBase(frames)
	if len(frames) == 0 {
		return profile.NoStack, nil, nil
	}
	thread := c.prof.Thread(th)
	m := c.libmapFor(thread.Owner)

	// frames is callee-first, and by construction (HandleStackX86's
	// kernel-then-user concatenation, or a source that already
	// combined them) every kernel address precedes every user address
	// with no interleaving — so unlike a raw single PERF_SAMPLE_
	// CALLCHAIN array, mode does not need to be carried from one
	// sentinel to the next: each real address is classified on its own
	// via kernelMin, and any stray PERF_CONTEXT_* sentinel that slipped
	// through is simply skipped.
	var locs []profile.FrameLocation
	n := len(frames)
	for i := n - 1; i >= 0; i-- {
		addr := frames[i]
		if unwind.IsContextFrame(addr) {
			continue
		}
		isLeaf := i == 0
		adjust := !isLeaf && !c.opts.AdjustedAddresses
		mode := unwind.StackModeUser
		if addr >= c.opts.KernelMin {
			mode = unwind.StackModeKernel
		}
		locs = append(locs, c.resolveAddress(m, addr, mode, adjust))
	}

	frameIdx := make([]profile.FrameIndex, len(locs))
	cats := make([]profile.CategoryPair, len(locs))
	for i, loc := range locs {
		cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
		frameIdx[i] = thread.AddFrame(loc, cat)
		cats[i] = cat
	}
	return thread.BuildStack(frameIdx, cats), locs, cats
}

// foldRecursiveBase applies unwind.FoldRecursivePrefix (which expects
// caller-first order) to a callee-first chain by folding its tail.
func foldRecursiveBase(frames []uint64) []uint64 {
	rev := reversed(frames)
	folded := unwind.FoldRecursivePrefix(rev)
	return reversed(folded)
}

func reversed(frames []uint64) []uint64 {
	out := make([]uint64, len(frames))
	for i, a := range frames {
		out[len(frames)-1-i] = a
	}
	return out
}

// resolveAddress routes a kernel/guest-kernel-space address to the
// shared kernel library map and everything else to the owning
// process's own map — a call chain can legitimately span both in one
// x86 sample.
func (c *Converter) resolveAddress(m *libmap.Map, addr uint64, mode unwind.StackMode, adjust bool) profile.FrameLocation {
	if mode == unwind.StackModeKernel || mode == unwind.StackModeGuestKernel {
		return c.kernelLibmap.Resolve(addr, adjust)
	}
	return m.Resolve(addr, adjust)
}
