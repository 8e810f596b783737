// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// Counter is a named, process-scoped time series (e.g. RSS in bytes)
// sampled alongside the main profile.
type Counter struct {
	Name        string
	Category    string
	Description string
	Owner       ProcessHandle

	timestamps []Timestamp
	values     []int64 // delta since previous sample, like CPU delta
}

// AddCounter registers a new counter owned by process and returns a
// handle (its index into Profile.counters).
func (p *Profile) AddCounter(owner ProcessHandle, name, category, description string) int {
	idx := len(p.counters)
	p.counters = append(p.counters, &Counter{
		Name: name, Category: category, Description: description, Owner: owner,
	})
	return idx
}

// AddCounterSample appends one (timestamp, value) pair to counter idx.
func (p *Profile) AddCounterSample(idx int, ts Timestamp, value int64) {
	c := p.counters[idx]
	c.timestamps = append(c.timestamps, ts)
	c.values = append(c.values, value)
}

func (p *Profile) Counters() []*Counter { return p.counters }

func (c *Counter) Samples() ([]Timestamp, []int64) { return c.timestamps, c.values }
