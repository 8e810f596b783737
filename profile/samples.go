// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// sampleTable stores one thread's samples as parallel columns, as // requires ("Stored as parallel columns").
type sampleTable struct {
	timestamps []Timestamp
	stacks     []StackIndex // NoStack allowed
	cpuDeltas  []CpuDelta
	weights    []int
}

func (s *sampleTable) Len() int { return len(s.timestamps) }

// AddSample appends a new sample add_sample.
func (t *Thread) AddSample(ts Timestamp, stack StackIndex, cpuDelta CpuDelta, weight int) {
	t.samples.timestamps = append(t.samples.timestamps, ts)
	t.samples.stacks = append(t.samples.stacks, stack)
	t.samples.cpuDeltas = append(t.samples.cpuDeltas, cpuDelta)
	t.samples.weights = append(t.samples.weights, weight)
}

// AddSampleSameStackZeroCPU implements add_sample_same_stack_zero_cpu:
// if the previous sample on this thread had zero CPU delta and shares
// its stack with this new zero-CPU sample, merge into it (advance its
// timestamp and accumulate weight) instead of appending a new row.
// Otherwise append a new sample with cpu_delta = 0.
func (t *Thread) AddSampleSameStackZeroCPU(ts Timestamp, weight int) {
	n := t.samples.Len()
	if n > 0 {
		last := n - 1
		if t.samples.cpuDeltas[last].IsZero() {
			t.samples.timestamps[last] = ts
			t.samples.weights[last] += weight
			return
		}
	}
	// No compatible previous sample: the "same stack" is whatever
	// stack the previous sample used, or NoStack if this is the first
	// sample on the thread.
	stack := StackIndex(NoStack)
	if n > 0 {
		stack = t.samples.stacks[n-1]
	}
	t.AddSample(ts, stack, 0, weight)
}

// Samples exposes the parallel sample columns for serialization.
func (t *Thread) Samples() (timestamps []Timestamp, stacks []StackIndex, cpuDeltas []CpuDelta, weights []int) {
	return t.samples.timestamps, t.samples.stacks, t.samples.cpuDeltas, t.samples.weights
}
