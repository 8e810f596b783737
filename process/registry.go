// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package process maintains the live OS process/thread tables the
// converter keys off pid/tid, handling pid/tid reuse and (optionally)
// recycling process/thread handles across exec/rename so the output's
// thread count stays bounded. Where a flat map[pid]*PIDInfo would
// suffice for the lifetime of one perf.data file, this also tracks end
// times, main threads, and recycling pools, since ETW captures (with
// DCStart/DCEnd) and long-running traces need pid/tid reuse handled
// explicitly rather than assumed away.
package process

import "github.com/mstange/samply-sub000/profile"

// Registry tracks live and recently-dead OS processes/threads and maps
// them onto Profile handles.
type Registry struct {
	prof *profile.Profile

	byPID map[int]*procEntry
	// deadReusedPIDs holds processes whose pid was reused by a later
	// start event while they were still "live" in this registry.
	deadReusedPIDs []*procEntry

	recycler *ProcessRecycler
}

type procEntry struct {
	handle  profile.ProcessHandle
	byTID   map[int]profile.ThreadHandle
	threadRecycler *ThreadRecycler
}

// New creates a Registry writing into prof. If recycler is non-nil,
// ended processes/threads with a name are pooled for reuse.
func New(prof *profile.Profile, recycler *ProcessRecycler) *Registry {
	return &Registry{prof: prof, byPID: make(map[int]*procEntry), recycler: recycler}
}

// GetOrCreateProcess implements get_or_create_process: returns the
// existing live Process for pid, or creates one (and its main thread).
// On pid reuse — a start event for a pid that's still live — the old
// Process is ended at startTs and retained; a fresh Process replaces it
// in the live table.
func (r *Registry) GetOrCreateProcess(pid, ppid int, name string, startTs profile.Timestamp) profile.ProcessHandle {
	if e, ok := r.byPID[pid]; ok {
		return e.handle
	}
	return r.startProcess(pid, name, startTs)
}

// StartProcess always creates a fresh Process for pid, ending any live
// one with the same pid first.
func (r *Registry) StartProcess(pid, ppid int, name string, startTs profile.Timestamp) profile.ProcessHandle {
	if e, ok := r.byPID[pid]; ok {
		r.prof.SetProcessEndTime(e.handle, startTs)
		r.deadReusedPIDs = append(r.deadReusedPIDs, e)
		delete(r.byPID, pid)
	}
	return r.startProcess(pid, name, startTs)
}

func (r *Registry) startProcess(pid int, name string, startTs profile.Timestamp) profile.ProcessHandle {
	var handle profile.ProcessHandle
	var mainThread profile.ThreadHandle
	var threadRecycler *ThreadRecycler
	recycled := false
	if r.recycler != nil {
		if pooled, ok := r.recycler.take(name); ok {
			handle = pooled.handle
			mainThread = pooled.mainThread
			threadRecycler = pooled.threadRecycler
			r.prof.SetProcessName(handle, name)
			recycled = true
		}
	}
	if threadRecycler == nil {
		threadRecycler = newThreadRecycler()
	}
	if !recycled {
		// Freshly allocate both process and main thread.
		handle = r.prof.AddProcess(pid, name, startTs)
		mainThread = r.prof.AddThread(handle, pid, startTs, true)
	}
	e := &procEntry{
		handle:         handle,
		byTID:          map[int]profile.ThreadHandle{pid: mainThread},
		threadRecycler: threadRecycler,
	}
	r.byPID[pid] = e
	return handle
}

// EndProcess marks pid as ended. If a ProcessRecycler is configured,
// the dying process's main thread and thread recycler are pooled keyed
// by process name so a later process with the same name can reuse them
//.
func (r *Registry) EndProcess(pid int, endTs profile.Timestamp) {
	e, ok := r.byPID[pid]
	if !ok {
		return
	}
	r.prof.SetProcessEndTime(e.handle, endTs)
	if r.recycler != nil {
		name := r.prof.Process(e.handle).Name
		r.recycler.put(name, pooledProcess{
			handle:         e.handle,
			mainThread:     e.byTID[pid],
			threadRecycler: e.threadRecycler,
		})
	}
	delete(r.byPID, pid)
}

// GetOrCreateThread returns the existing thread for (pid, tid) or
// creates one, reusing a recycled handle by name when available.
func (r *Registry) GetOrCreateThread(pid, tid int, name string, startTs profile.Timestamp) (profile.ThreadHandle, bool) {
	e, ok := r.byPID[pid]
	if !ok {
		return 0, false
	}
	if h, ok := e.byTID[tid]; ok {
		return h, true
	}
	var h profile.ThreadHandle
	recycled := false
	if name != "" {
		if pooled, ok := e.threadRecycler.take(name); ok {
			h = pooled
			r.prof.SetThreadName(h, name)
			recycled = true
		}
	}
	if !recycled {
		h = r.prof.AddThread(e.handle, tid, startTs, false)
	}
	e.byTID[tid] = h
	return h, true
}

// EndThread ends tid within pid's process and, if that thread has a
// name, pools it on the process's ThreadRecycler for reuse by a later
// same-named thread.
func (r *Registry) EndThread(pid, tid int, endTs profile.Timestamp) {
	e, ok := r.byPID[pid]
	if !ok {
		return
	}
	h, ok := e.byTID[tid]
	if !ok {
		return
	}
	r.prof.SetThreadEndTime(h, endTs)
	name := r.prof.Thread(h).Name
	if name != "" {
		e.threadRecycler.put(name, h)
	}
	delete(e.byTID, tid)
}

// SetThreadName renames a thread and, if it's being recycled by name
// elsewhere, lets a future start reuse it under the new name.
func (r *Registry) SetThreadName(pid, tid int, name string) {
	e, ok := r.byPID[pid]
	if !ok {
		return
	}
	h, ok := e.byTID[tid]
	if !ok {
		return
	}
	r.prof.SetThreadName(h, name)
}

// Lookup returns the live ProcessHandle for pid, if any.
func (r *Registry) Lookup(pid int) (profile.ProcessHandle, bool) {
	e, ok := r.byPID[pid]
	if !ok {
		return 0, false
	}
	return e.handle, true
}

// LookupThread returns the live ThreadHandle for (pid, tid), if any.
func (r *Registry) LookupThread(pid, tid int) (profile.ThreadHandle, bool) {
	e, ok := r.byPID[pid]
	if !ok {
		return 0, false
	}
	h, ok := e.byTID[tid]
	return h, ok
}

// MainThread returns the main ThreadHandle of pid, if it is live.
func (r *Registry) MainThread(pid int) (profile.ThreadHandle, bool) {
	e, ok := r.byPID[pid]
	if !ok {
		return 0, false
	}
	h, ok := e.byTID[pid]
	return h, ok
}
