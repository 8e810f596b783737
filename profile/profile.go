// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import "time"

// Timestamp is nanoseconds since the Profile's reference timestamp. The
// converter computes these via its own time-conversion logic;
// the profile package only ever stores and serializes them.
type Timestamp int64

// CpuDelta is an amount of on-CPU time, in nanoseconds. Serialized as
// integer microseconds.
type CpuDelta int64

func CpuDeltaFromNanos(ns int64) CpuDelta  { return CpuDelta(ns) }
func CpuDeltaFromMicros(us int64) CpuDelta { return CpuDelta(us * 1000) }
func (c CpuDelta) IsZero() bool            { return c == 0 }
func (c CpuDelta) Micros() int64           { return int64(c) / 1000 }

// SamplingInterval is the profile's nominal sampling period.
type SamplingInterval time.Duration

// ReferenceTimestamp anchors Timestamp(0): wall-clock milliseconds since
// the Unix epoch, carried as a float so fractional milliseconds survive
// round-tripping through JSON exactly like the upstream format.
type ReferenceTimestamp float64

func ReferenceTimestampFromUnixMillis(ms float64) ReferenceTimestamp {
	return ReferenceTimestamp(ms)
}

// Profile is the top-level, exclusive owner of every Category, Process,
// Thread, the global library table, and the global string table. All
// cross-entity references are handles into its vectors; vectors are
// append-only and handles are never reused.
type Profile struct {
	Product   string
	Reference ReferenceTimestamp
	Interval  SamplingInterval
	OSName    string

	categories []Category
	libs       *globalLibTable
	strings    *globalStringTable

	processes []*Process
	threads   []*Thread

	markerSchemas map[string]MarkerSchema
	schemaOrder   []string

	counters []*Counter

	overhead []OverheadSample
}

// New creates a Profile with category 0 = "Other".
func New(product string, reference ReferenceTimestamp, interval SamplingInterval) *Profile {
	p := &Profile{
		Product:       product,
		Reference:     reference,
		Interval:      interval,
		libs:          newGlobalLibTable(),
		strings:       newGlobalStringTable(),
		markerSchemas: make(map[string]MarkerSchema),
	}
	p.AddCategory("Other", CategoryColorGrey)
	return p
}

// SetInterval reconfigures the sampling interval.
func (p *Profile) SetInterval(interval SamplingInterval) { p.Interval = interval }

// SetProduct sets the product name shown in the output's meta.product.
func (p *Profile) SetProduct(name string) { p.Product = name }

// InternString interns a string into the global string table.
// intern_string(s) called twice for the same s returns the same handle
//.
func (p *Profile) InternString(s string) StringHandle {
	return p.strings.intern(s)
}

// AddLib interns a LibraryInfo into the global, deduplicated-by-value
// library table. add_lib(info) called twice with byte-identical info
// returns the same GlobalLibIndex.
func (p *Profile) AddLib(info LibraryInfo) GlobalLibIndex {
	return p.libs.add(info)
}

func (p *Profile) Lib(idx GlobalLibIndex) *LibraryInfo { return p.libs.get(idx) }

// Categories returns the category list (read-only use by serializers).
func (p *Profile) Categories() []Category { return p.categories }

func (p *Profile) Processes() []*Process { return p.processes }
func (p *Profile) Threads() []*Thread    { return p.threads }

// AddProcess creates a new Process and returns its handle.
func (p *Profile) AddProcess(pid int, name string, startTime Timestamp) ProcessHandle {
	h := ProcessHandle(len(p.processes))
	proc := &Process{
		handle:    h,
		PID:       pid,
		Name:      name,
		StartTime: startTime,
		HasEnd:    false,
		profile:   p,
	}
	p.processes = append(p.processes, proc)
	return h
}

func (p *Profile) Process(h ProcessHandle) *Process { return p.processes[h] }

// SetProcessEndTime marks a process as ended. End times are the only
// post-creation mutation path and never invalidate existing handles.
func (p *Profile) SetProcessEndTime(h ProcessHandle, end Timestamp) {
	proc := p.processes[h]
	proc.EndTime = end
	proc.HasEnd = true
}

func (p *Profile) SetProcessName(h ProcessHandle, name string) { p.processes[h].Name = name }

// AddThread creates a new Thread owned by process and returns its
// handle.
func (p *Profile) AddThread(owner ProcessHandle, tid int, startTime Timestamp, isMain bool) ThreadHandle {
	h := ThreadHandle(len(p.threads))
	th := &Thread{
		handle:    h,
		Owner:     owner,
		TID:       tid,
		StartTime: startTime,
		IsMain:    isMain,
		profile:   p,
		strTable:  newThreadStringTable(),
		frames:    newFrameTable(),
		stacks:    newStackTable(),
		resources: newResourceTable(),
	}
	p.threads = append(p.threads, th)
	p.processes[owner].Threads = append(p.processes[owner].Threads, h)
	return h
}

func (p *Profile) Thread(h ThreadHandle) *Thread { return p.threads[h] }

func (p *Profile) SetThreadName(h ThreadHandle, name string) { p.threads[h].Name = name }

func (p *Profile) SetThreadEndTime(h ThreadHandle, end Timestamp) {
	th := p.threads[h]
	th.EndTime = end
	th.HasEnd = true
}
