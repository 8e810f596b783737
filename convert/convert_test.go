// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstange/samply-sub000/libmap"
	"github.com/mstange/samply-sub000/marker"
	"github.com/mstange/samply-sub000/profile"
)

func testOptions() Options {
	return Options{ProductName: "test", KernelMin: 0xffff800000000000, Logger: zerolog.Nop()}
}

// addResolvedMapping installs a mapping in pid's Map directly, bypassing
// HandleMmap's path-based section parsing (which needs a real ELF/Mach-O
// file on disk): it exercises the same libmap.Map.Add codepath an
// accepted PERF_RECORD_MMAP would, with an already-known base AVMA.
func addResolvedMapping(c *Converter, pid int, start, end uint64, name string) {
	proc, _ := c.reg.Lookup(pid)
	c.libmapFor(proc).Add(libmap.LoadSpec{
		Start: start, End: end, Name: name, Arch: "x86_64",
		BaseAVMA: start, KnownBase: true,
	})
}

// Scenario 1: a single process samples a 3-frame call chain ([ip,
// ra, ra]) inside one mapped library; the two return addresses get the
// return-address adjustment the leaf address doesn't.
func TestScenarioSingleProcessStackResolution(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(123, 123, "app", 0)
	proc, _ := c.reg.Lookup(123)
	c.libmapFor(proc).Add(libmap.LoadSpec{
		Start: 0x1000, End: 0x3000, Name: "libapp.so", Arch: "x86_64",
		BaseAVMA: 0, KnownBase: true,
	})

	c.HandleSample(0, 123, 123, 0)
	c.HandleStackX86(0, 123, 123, []uint64{0x1000, 0x2000, 0x3000})

	prof := c.Finish()
	th := prof.Thread(0)
	timestamps, stacks, _, weights := th.Samples()
	require.Len(t, timestamps, 1)
	require.Equal(t, 1, weights[0])

	// Walking the prefix chain from the sample's stack visits the leaf
	// (ip) first, then each caller outward.
	var addrs []uint32
	var libs []profile.GlobalLibIndex
	for s := stacks[0]; s != profile.NoStack; s = th.StackPrefix(s) {
		loc := th.FrameLocation(th.StackFrame(s))
		require.Equal(t, profile.LocAddressInLib, loc.Kind)
		addrs = append(addrs, loc.RelativeAddress)
		libs = append(libs, loc.Lib)
	}
	assert.Equal(t, []uint32{0x1000, 0x1fff, 0x2fff}, addrs)
	for _, l := range libs {
		assert.Equal(t, profile.GlobalLibIndex(0), l)
	}
}

// Scenario 2: two on-CPU samples on the same thread with the same
// stack and zero CPU delta between them compact into one sample row
// with weight 2.
func TestScenarioSameStackZeroCPUCompaction(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(1, 1, "app", 0)
	addResolvedMapping(c, 1, 0x1000, 0x2000, "libapp.so")

	c.HandleSample(0, 1, 1, 0)
	c.HandleStackX86(0, 1, 1, []uint64{0x1100})
	th := c.prof.Thread(0)
	th.AddSampleSameStackZeroCPU(c.convertTime(0), 1)

	_, _, _, weights := th.Samples()
	require.Len(t, weights, 1)
	assert.Equal(t, 2, weights[0])
}

// Scenario 3: a thread samples on-CPU at t=0, switches off-CPU at
// t=1.0ms and back on at t=5.0ms. With a 1ms sampling interval, the
// off-CPU period (4ms) materializes into a "begin" sample carrying the
// CPU time accrued before the switch-out, plus (period/interval - 1)
// zero-delta compaction samples covering the rest of the pause.
func TestScenarioContextSwitchOffCPUAccounting(t *testing.T) {
	c := New(testOptions())
	c.HandleHeader(0, 1e9, 0)
	c.HandleCollectionStart(1_000_000) // 1ms sampling interval
	c.reg.GetOrCreateProcess(1, 1, "app", 0)
	addResolvedMapping(c, 1, 0x1000, 0x2000, "libapp.so")

	th, _ := c.reg.LookupThread(1, 1)

	c.HandleSample(0, 1, 1, 0)
	c.HandleStackX86(0, 1, 1, []uint64{0x1100})

	c.HandleCswitch(1_000_000, 0, 1, 0, 1) // switch out at t=1.0ms
	c.HandleCswitch(5_000_000, 0, 0, 1, 1) // switch back in at t=5.0ms

	thread := c.prof.Thread(th)
	timestamps, _, cpuDeltas, weights := thread.Samples()
	require.Len(t, timestamps, 3)

	// Sample 0: the initial on-CPU sample itself, no CPU time accrued
	// yet.
	assert.Equal(t, profile.Timestamp(0), timestamps[0])
	assert.Equal(t, profile.CpuDelta(0), cpuDeltas[0])
	assert.Equal(t, 1, weights[0])

	// Sample 1: the off-CPU group's "begin" sample, carrying the 1ms of
	// on-CPU time accrued between the initial sample and the switch-out.
	assert.Equal(t, profile.Timestamp(1_000_000), timestamps[1])
	assert.Equal(t, profile.CpuDelta(1_000_000), cpuDeltas[1])
	assert.Equal(t, 1, weights[1])

	// Sample 2: the remaining (4ms / 1ms - 1) = 3 compacted zero-delta
	// samples covering the rest of the off-CPU period, up to switch-in.
	assert.Equal(t, profile.Timestamp(5_000_000), timestamps[2])
	assert.Equal(t, profile.CpuDelta(0), cpuDeltas[2])
	assert.Equal(t, 3, weights[2])
}

// Scenario 4: an exec renames pid=7 in place as two distinct
// Processes with the same pid and disjoint time ranges, not a mutation
// of the live one.
func TestScenarioExecCreatesDistinctProcess(t *testing.T) {
	c := New(testOptions())
	c.HandleHeader(0, 1e9, 0)
	c.HandleProcessStart(0, 7, 1, "bash")
	c.HandleExec(500_000, 7, 7, "myapp", nil)

	procs := c.prof.Processes()
	require.Len(t, procs, 2)
	assert.Equal(t, 7, procs[0].PID)
	assert.Equal(t, 7, procs[1].PID)
	assert.Equal(t, "bash", procs[0].Name)
	assert.Equal(t, "myapp", procs[1].Name)
	require.True(t, procs[0].HasEnd)
	assert.Equal(t, profile.Timestamp(500_000), procs[0].EndTime)
	assert.Equal(t, profile.Timestamp(500_000), procs[1].StartTime)
}

// Scenario 5: the same library mapped into two different
// processes resolves to one shared GlobalLibIndex.
func TestScenarioSharedLibraryAcrossProcesses(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(1, 1, "app1", 0)
	c.reg.GetOrCreateProcess(2, 2, "app2", 0)

	procA, _ := c.reg.Lookup(1)
	procB, _ := c.reg.Lookup(2)
	spec := libmap.LoadSpec{Start: 0x1000, End: 0x2000, Name: "libshared.so", Arch: "x86_64", BaseAVMA: 0x1000, KnownBase: true}
	_, okA := c.libmapFor(procA).Add(spec)
	_, okB := c.libmapFor(procB).Add(spec)
	require.True(t, okA)
	require.True(t, okB)

	locA := c.libmapFor(procA).Resolve(0x1100, false)
	locB := c.libmapFor(procB).Resolve(0x1100, false)
	assert.Equal(t, locA.Lib, locB.Lib)
	assert.Equal(t, profile.GlobalLibIndex(0), locA.Lib)
}

// Scenario 6: an IntervalStart/IntervalEnd pair with the same name
// on a thread merges into a single Interval marker spanning the full
// range, carrying the start event's payload.
func TestScenarioMarkerStartEndPairing(t *testing.T) {
	prof := profile.New("test", 0, 0)
	th := prof.AddThread(prof.AddProcess(1, "app", 0), 1, 0, true)
	thread := prof.Thread(th)

	p := marker.NewPairing()
	cat := prof.OtherCategory()
	payload := map[string]interface{}{"url": "https://example.com"}
	p.Start(th, "Navigation", profile.Timestamp(1_000_000), cat, payload, profile.NoStack)
	p.End(prof, th, "Navigation", profile.Timestamp(3_000_000), cat)

	markers := thread.Markers()
	require.Len(t, markers, 1)
	m := markers[0]
	assert.Equal(t, profile.TimingInterval, m.Timing.Kind)
	assert.Equal(t, profile.Timestamp(1_000_000), m.Timing.Start)
	assert.Equal(t, profile.Timestamp(3_000_000), m.Timing.End)
	assert.Equal(t, payload, m.Payload)
}

func TestOrphanStackEventIsDropped(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(1, 1, "app", 0)
	c.reg.GetOrCreateThread(1, 1, "", 0)

	// No HandleSample preceded this: the stack event has no pending
	// sample to attach to and is silently dropped.
	c.HandleStackX86(0, 1, 1, []uint64{0x1000})

	th := c.prof.Thread(0)
	timestamps, _, _, _ := th.Samples()
	assert.Empty(t, timestamps)
}

func TestOrphanSampleForUnregisteredThreadIsDropped(t *testing.T) {
	c := New(testOptions())
	// pid/tid never registered: HandleSample must not panic or create
	// stray state.
	c.HandleSample(0, 999, 999, 0)
	assert.Empty(t, c.pendingStacks)
}

func TestPIDReuseProducesDisjointProcesses(t *testing.T) {
	c := New(testOptions())
	c.HandleHeader(0, 1e9, 0)
	c.HandleProcessStart(0, 7, 1, "first")
	c.HandleProcessStart(1000, 7, 1, "second")

	procs := c.prof.Processes()
	require.Len(t, procs, 2)
	assert.True(t, procs[0].HasEnd)
	assert.Equal(t, profile.Timestamp(1000), procs[0].EndTime)
	assert.Equal(t, profile.Timestamp(1000), procs[1].StartTime)
	assert.False(t, procs[1].HasEnd)
}

// HandleRSSStat (maintainer-requested feature) feeds a process-scoped
// Counter via AddCounterSample.
func TestHandleRSSStatFeedsCounter(t *testing.T) {
	c := New(testOptions())
	c.HandleHeader(0, 1e9, 0)
	c.reg.GetOrCreateProcess(1, 1, "app", 0)

	c.HandleRSSStat(1_000_000, 1, 4096)
	c.HandleRSSStat(2_000_000, 1, 8192)

	counters := c.prof.Counters()
	require.Len(t, counters, 1)
	assert.Equal(t, rssCounterName, counters[0].Name)
	ts, vals := counters[0].Samples()
	assert.Equal(t, []profile.Timestamp{1_000_000, 2_000_000}, ts)
	assert.Equal(t, []int64{4096, 8192}, vals)
}

func TestHandleRSSStatUnregisteredPidDropped(t *testing.T) {
	c := New(testOptions())
	c.HandleRSSStat(0, 42, 4096)
	assert.Empty(t, c.prof.Counters())
}

// HandleUnknownEvent always logs and, when UnknownEventMarker is set,
// emits an Instant marker on the matching (or main) thread.
func TestHandleUnknownEventEmitsMarkerWhenEnabled(t *testing.T) {
	opts := testOptions()
	opts.UnknownEventMarker = true
	c := New(opts)
	c.reg.GetOrCreateProcess(1, 1, "app", 0)

	c.HandleUnknownEvent(0, 1, 1, "PERF_RECORD_MYSTERY")

	th := c.prof.Thread(0)
	markers := th.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, profile.TimingInstant, markers[0].Timing.Kind)
	assert.Equal(t, "PERF_RECORD_MYSTERY", markers[0].Payload["type"])
}

func TestHandleUnknownEventNoMarkerWhenDisabled(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(1, 1, "app", 0)

	c.HandleUnknownEvent(0, 1, 1, "PERF_RECORD_MYSTERY")

	th := c.prof.Thread(0)
	assert.Empty(t, th.Markers())
}

// HandleMmap emits the promised Mmap Instant marker on the owning
// process's main thread for an accepted mapping.
func TestHandleMmapEmitsMarkerOnMainThread(t *testing.T) {
	c := New(testOptions())
	c.reg.GetOrCreateProcess(1, 1, "app", 0)
	addResolvedMapping(c, 1, 0x1000, 0x2000, "libfoo.so")
	c.addMmapMarker(0, 1, "libfoo.so", 0x1000)

	th := c.prof.Thread(0)
	markers := th.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "libfoo.so", markers[0].Payload["name"])
	assert.Equal(t, uint64(0x1000), markers[0].Payload["address"])
}

func TestHandleMmapUnregisteredPidDropped(t *testing.T) {
	c := New(testOptions())
	c.HandleMmap(0, 999, 0x1000, 0x1000, 0, "/nonexistent", false)
	assert.Empty(t, c.prof.Processes())
}
