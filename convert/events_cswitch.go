// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/cswitch"

// EnablePerCPUThreads turns on the optional per-CPU pseudo-thread view,
// adding a "CPUs" pseudo-process whose pseudo-threads mirror
// every sample onto the CPU that ran it. Call before feeding any
// events; startTs is the pseudo-process's creation time.
func (c *Converter) EnablePerCPUThreads(startTs int64) {
	if !c.opts.PerCPUThreads {
		return
	}
	c.perCPU = cswitch.NewPerCPUThreads(c.prof, c.convertTime(startTs))
}

// HandleCswitch records a context switch between oldTid and newTid on
// cpu, from a PERF_RECORD_SWITCH event. oldTid going off-CPU and
// newTid coming on-CPU are two independent thread
// transitions; either side may be zero (the idle thread) and is
// skipped, since the idle thread is never registered in the process
// registry.
func (c *Converter) HandleCswitch(rawTs int64, cpu, oldTid, newTid, pid int) {
	ts := c.convertTime(rawTs)

	if oldTid != 0 {
		if th, ok := c.reg.LookupThread(pid, oldTid); ok {
			cs := c.cswitchFor(th)
			cs.handler.HandleSwitchOut(ts, &cs.state)
			if c.perCPU != nil {
				c.perCPU.IdleBracket(cpu, ts)
			}
		}
	}
	if newTid != 0 {
		if th, ok := c.reg.LookupThread(pid, newTid); ok {
			cs := c.cswitchFor(th)
			group, ok := cs.handler.HandleSwitchIn(ts, &cs.state)
			if ok {
				leftover := cs.handler.ConsumeCPUDelta(&cs.state)
				thread := c.prof.Thread(th)
				stack := c.offCPUStacks[th]
				cswitch.Materialize(thread, group, stack, leftover)
			}
		}
	}
}
