// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unwind reconstructs call stacks from raw program-counter /
// stack-pointer / frame-pointer snapshots and kernel call chains
//. It treats the actual DWARF/frame-pointer unwinding algorithm
// as an external collaborator (the Unwinder interface) and owns only
// the bookkeeping around it: stack-mode (kernel/user) classification,
// the stack-reader adapter over a raw stack snapshot, and
// recursive-prefix folding.
package unwind

// PERF_CONTEXT_MAX and friends are the Linux kernel's perf_event
// sentinel addresses that appear inline in a PERF_SAMPLE_CALLCHAIN
// call chain to mark a transition between address spaces, rather than
// being real instruction pointers (see linux/include/uapi/linux/
// perf_event.h). A context frame's value is one of these constants
// cast to uint64 (i.e. very large, since they are small negative
// int64s).
const (
	PerfContextHV          = ^uint64(32 - 1)   // -32
	PerfContextKernel      = ^uint64(128 - 1)  // -128
	PerfContextUser        = ^uint64(512 - 1)  // -512
	PerfContextGuest       = ^uint64(2048 - 1) // -2048
	PerfContextGuestKernel = ^uint64(2176 - 1) // -2176
	PerfContextGuestUser   = ^uint64(2560 - 1) // -2560
	PerfContextMax         = ^uint64(4095)     // 0xfffffffffffff001
)

// StackMode says which address space a frame's address belongs to.
type StackMode int

const (
	StackModeUser StackMode = iota
	StackModeKernel
	StackModeGuest
	StackModeGuestKernel
	StackModeGuestUser
)

// IsContextFrame reports whether addr is a PERF_CONTEXT_* sentinel
// rather than a real instruction pointer.
func IsContextFrame(addr uint64) bool {
	return addr >= PerfContextMax
}

// ModeForContextFrame maps a PERF_CONTEXT_* sentinel to the StackMode
// subsequent frames in the call chain should adopt.
func ModeForContextFrame(addr uint64) (StackMode, bool) {
	switch addr {
	case PerfContextHV:
		return StackModeKernel, true // treated as kernel for categorization purposes
	case PerfContextKernel:
		return StackModeKernel, true
	case PerfContextUser:
		return StackModeUser, true
	case PerfContextGuest:
		return StackModeGuest, true
	case PerfContextGuestKernel:
		return StackModeGuestKernel, true
	case PerfContextGuestUser:
		return StackModeGuestUser, true
	default:
		return StackModeUser, false
	}
}

// ClassifyChain walks a raw PERF_SAMPLE_CALLCHAIN array, skipping
// context-frame sentinels and tagging every real address with the
// StackMode in effect at that point.
// The first real address's mode is determined by comparison to
// kernelMin if no context frame precedes it.
func ClassifyChain(chain []uint64, kernelMin uint64) []struct {
	Addr uint64
	Mode StackMode
} {
	var out []struct {
		Addr uint64
		Mode StackMode
	}
	mode := StackModeUser
	haveMode := false
	for _, addr := range chain {
		if IsContextFrame(addr) {
			if m, ok := ModeForContextFrame(addr); ok {
				mode = m
				haveMode = true
			}
			continue
		}
		if !haveMode {
			if addr >= kernelMin {
				mode = StackModeKernel
			} else {
				mode = StackModeUser
			}
			haveMode = true
		}
		out = append(out, struct {
			Addr uint64
			Mode StackMode
		}{addr, mode})
	}
	return out
}
