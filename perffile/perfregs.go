// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import "math/bits"

// x86-64 perf_regs.h register numbers (see linux/arch/x86/include/
// uapi/asm/perf_regs.h), the only ABI this package decodes registers
// for: PERF_SAMPLE_REGS_USER's payload is a dense array indexed by the
// popcount of EventAttr.SampleRegsUser below each set bit, not by
// register number directly, so finding one register's value means
// counting how many lower bits are set before it.
const (
	perfRegX86BP = 6
	perfRegX86SP = 19
)

// regValue returns the value of register bit within regs, given the
// mask that was sampled (attrMask), or ok=false if that register
// wasn't included in this sample.
func regValue(regs []uint64, attrMask uint64, bit uint) (uint64, bool) {
	if attrMask&(1<<bit) == 0 {
		return 0, false
	}
	idx := bits.OnesCount64(attrMask & (1<<bit - 1))
	if idx >= len(regs) {
		return 0, false
	}
	return regs[idx], true
}

// userSPAndFP extracts the stack and frame pointer from a sample's
// RegsUser payload, for the x86-64 DWARF/frame-pointer unwinding path
//. ok is false for any other register ABI (e.g. arm64, which
// this converter reaches exclusively through PERF_SAMPLE_CALLCHAIN
// instead, per HandleStackArm64).
func userSPAndFP(r *RecordSample) (sp, fp uint64, ok bool) {
	if r.RegsUserABI != SampleRegsABI64 || r.EventAttr == nil {
		return 0, 0, false
	}
	mask := r.EventAttr.SampleRegsUser
	sp, spOk := regValue(r.RegsUser, mask, perfRegX86SP)
	fp, fpOk := regValue(r.RegsUser, mask, perfRegX86BP)
	if !spOk || !fpOk {
		return 0, 0, false
	}
	return sp, fp, true
}
