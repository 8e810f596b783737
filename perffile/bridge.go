// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perffile

import (
	"fmt"

	"github.com/mstange/samply-sub000/convert"
)

// kernelPID is the pid perf.data uses for kernel-space mmaps and
// samples.
const kernelPID = -1

// Dispatch feeds one decoded Record into c, translating perf.data's
// record vocabulary into the Converter's handler calls. It is the only
// part of this package aware of convert.Converter, so the core package
// itself never imports perffile: an ETW-sourced capture drives the
// same Converter through its own set of Handle* calls, built from a
// completely different decoder.
func Dispatch(c *convert.Converter, r Record) {
	switch r := r.(type) {
	case *RecordComm:
		ts := int64(r.Time)
		if r.Exec {
			c.HandleExec(ts, r.PID, r.TID, r.Comm, nil)
			return
		}
		c.EnsureProcess(ts, r.PID, r.Comm)
		if r.PID != r.TID {
			c.EnsureThread(ts, r.PID, r.TID, "")
		}

	case *RecordFork:
		c.HandleFork(int64(r.Time), r.PID, r.PPID, r.TID, r.PTID)

	case *RecordExit:
		ts := int64(r.Time)
		if r.PID == r.TID {
			c.HandleProcessEnd(ts, r.PID)
			return
		}
		c.HandleThreadEnd(ts, r.PID, r.TID)

	case *RecordMmap:
		ts := int64(r.Time)
		isKernel := r.PID == kernelPID
		if !isKernel {
			c.EnsureProcess(ts, r.PID, "")
		}
		c.HandleMmap(ts, r.PID, r.Addr, r.Len, r.FileOffset, r.Filename, isKernel)

	case *RecordSwitch:
		ts := int64(r.Time)
		if r.Out {
			c.HandleCswitch(ts, int(r.CPU), r.TID, 0, r.PID)
		} else {
			c.HandleCswitch(ts, int(r.CPU), 0, r.TID, r.PID)
		}

	case *RecordSwitchCPUWide:
		ts := int64(r.Time)
		if r.Out {
			c.HandleCswitch(ts, int(r.CPU), r.TID, 0, r.PID)
			c.HandleCswitch(ts, int(r.CPU), 0, r.NextPrevTID, r.NextPrevPID)
		} else {
			c.HandleCswitch(ts, int(r.CPU), r.NextPrevTID, 0, r.NextPrevPID)
			c.HandleCswitch(ts, int(r.CPU), 0, r.TID, r.PID)
		}

	case *RecordSample:
		ts := int64(r.Time)
		pid, tid, cpu := r.PID, r.TID, int(r.CPU)
		if pid != kernelPID {
			c.EnsureProcess(ts, pid, "")
		}
		c.EnsureThread(ts, pid, tid, "")

		c.HandleSample(ts, pid, tid, cpu)

		if len(r.Callchain) == 0 {
			if sp, fp, ok := userSPAndFP(r); ok && len(r.StackUser) > 0 {
				c.HandleSampleRegs(ts, pid, tid, r.IP, sp, fp, r.StackUser)
				return
			}
		}
		frames := r.Callchain
		if len(frames) == 0 {
			frames = []uint64{r.IP}
		}
		c.HandleStackArm64(ts, pid, tid, frames)

	default:
		ts := int64(0)
		pid, tid := 0, 0
		if common := r.Common(); common != nil {
			ts, pid, tid = int64(common.Time), common.PID, common.TID
		}
		c.HandleUnknownEvent(ts, pid, tid, fmt.Sprintf("%v", r.Type()))
	}
}
