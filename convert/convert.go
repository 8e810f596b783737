// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package convert drives the profile.Profile state machine from a
// chronologically ordered stream of decoded events. It is a
// single-threaded, cooperative core: no suspension points, no
// locking, every handler call runs to completion before the next one
// starts.
package convert

import (
	"github.com/rs/zerolog"

	"github.com/mstange/samply-sub000/cswitch"
	"github.com/mstange/samply-sub000/jit"
	"github.com/mstange/samply-sub000/libmap"
	"github.com/mstange/samply-sub000/marker"
	"github.com/mstange/samply-sub000/process"
	"github.com/mstange/samply-sub000/profile"
	"github.com/mstange/samply-sub000/unwind"
)

// Options configures a Converter, gathering the per-converter flags
// that are construction-time choices rather than auto-detected state.
type Options struct {
	// MainThreadOnly drops non-main-thread events after thread
	// registration.
	MainThreadOnly bool
	// IncludedProcesses, if non-nil, is the set of process names the
	// converter keeps; events from any other process are dropped early.
	// A nil set means "keep everything".
	IncludedProcesses map[string]bool

	// AdjustedAddresses is true when the event source (simpleperf, some
	// JIT unwinders) has already applied the return-address -1
	// adjustment itself, so the converter must not apply it again.
	AdjustedAddresses bool

	// PerCPUThreads enables the optional per-CPU pseudo-thread view.
	PerCPUThreads bool

	// RecycleProcesses/RecycleThreads enable handle recycling by name
	// so a short-lived, frequently-respawned process or thread doesn't
	// grow an unbounded handle table.
	RecycleProcesses bool
	RecycleThreads   bool
	// RecycleJIT enables reusing a JIT function's relative address
	// across a recycled process.
	RecycleJIT bool

	// KernelMin is the lowest address considered kernel space, used
	// both for stack-mode classification and the Windows
	// ETW pending-table split.
	KernelMin uint64

	ProductName string

	// Logger receives every diagnostic this converter and the
	// libmap.Map/jit.Registry it owns produce: dropped mappings,
	// overlap evictions, unknown events. A zero Logger is not safe to
	// log through (its zero Level is DebugLevel, not Disabled, and its
	// writer is nil); callers that want no output pass zerolog.Nop()
	// explicitly, same as every test in this tree does.
	Logger zerolog.Logger

	// UnknownEventMarker enables the optional "unknown event type"
	// Instant marker; when false, an unrecognized event is only
	// logged, never materialized as a marker.
	UnknownEventMarker bool

	// Unwinder drives HandleSampleRegs's stack reconstruction from a
	// raw PC/SP/FP snapshot. A nil Unwinder (the default) makes
	// HandleSampleRegs fall back to a leaf-only stack; the actual
	// unwinding algorithm is an external collaborator this package
	// never implements (see the unwind package's own doc comment).
	Unwinder unwind.Unwinder
}

// Converter holds all in-progress conversion state for one capture.
// It is not safe for concurrent use; nothing in it is locked.
type Converter struct {
	opts Options
	prof *profile.Profile
	reg  *process.Registry
	jitr *jit.Registry
	pair *marker.Pairing

	libmaps      map[profile.ProcessHandle]*libmap.Map
	kernelLibmap *libmap.Map
	winRegistrar *libmap.WindowsRegistrar

	cswitchHandlers map[profile.ThreadHandle]*cswitchState
	pendingStacks   map[profile.ThreadHandle][]*pendingStack
	offCPUStacks    map[profile.ThreadHandle]profile.StackIndex
	rssCounters     map[profile.ProcessHandle]int

	referenceRaw   int64
	rawToNsFactor  float64
	haveReference  bool
	offCPUPeriodNs int64

	perCPU *cswitch.PerCPUThreads
}

type cswitchState struct {
	handler *cswitch.Handler
	state   cswitch.ThreadState
}

// pendingStack is one in-flight sample awaiting its stack event(s),
// per the x86 kernel/user stack-fragment pairing rules.
type pendingStack struct {
	ts               profile.Timestamp
	rawTs            int64
	cpu              int
	kernelFrames     []uint64
	haveKernelFrames bool
	finalized        bool
}

// New creates a Converter that will build into a fresh Profile. The
// reference timestamp and sampling interval are placeholders until
// HandleHeader/HandleCollectionStart set their real values.
func New(opts Options) *Converter {
	prof := profile.New(opts.ProductName, 0, 0)
	var recycler *process.ProcessRecycler
	if opts.RecycleProcesses {
		recycler = process.NewProcessRecycler()
	}
	c := &Converter{
		opts:            opts,
		prof:            prof,
		reg:             process.New(prof, recycler),
		jitr:            jit.New(prof, opts.RecycleJIT, opts.Logger),
		pair:            marker.NewPairing(),
		libmaps:         make(map[profile.ProcessHandle]*libmap.Map),
		kernelLibmap:    libmap.New(prof, opts.Logger),
		winRegistrar:    libmap.NewWindowsRegistrar(opts.KernelMin),
		cswitchHandlers: make(map[profile.ThreadHandle]*cswitchState),
		pendingStacks:   make(map[profile.ThreadHandle][]*pendingStack),
		offCPUStacks:    make(map[profile.ThreadHandle]profile.StackIndex),
		rssCounters:     make(map[profile.ProcessHandle]int),
	}
	return c
}

func (c *Converter) libmapFor(proc profile.ProcessHandle) *libmap.Map {
	m, ok := c.libmaps[proc]
	if !ok {
		m = libmap.New(c.prof, c.opts.Logger)
		c.libmaps[proc] = m
	}
	return m
}

func (c *Converter) cswitchFor(th profile.ThreadHandle) *cswitchState {
	s, ok := c.cswitchHandlers[th]
	if !ok {
		period := c.offCPUPeriodNs
		if period <= 0 {
			period = 1_000_000 // 1ms default until handle_collection_start sets it
		}
		s = &cswitchState{handler: cswitch.New(profile.CpuDeltaFromNanos(period))}
		c.cswitchHandlers[th] = s
	}
	return s
}

// includeProcess reports whether events naming a process with this
// name should be kept, per the IncludedProcesses filter.
func (c *Converter) includeProcess(name string) bool {
	if c.opts.IncludedProcesses == nil {
		return true
	}
	return c.opts.IncludedProcesses[name]
}

// includeThread reports whether a non-main-thread event should be kept
// under MainThreadOnly.
func (c *Converter) includeThread(isMain bool) bool {
	return !c.opts.MainThreadOnly || isMain
}
