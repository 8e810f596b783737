// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// rssCounterName/Category/Description label the RSS counter the way
// add_counter's caller would: one counter per process, in bytes.
const (
	rssCounterName        = "RSS"
	rssCounterCategory    = "memory"
	rssCounterDescription = "Resident set size"
)

// HandleRSSStat ingests a PERF_RECORD_RSS_STAT (or the ETW memory
// equivalent) sample: rssBytes is the process's resident set size at
// rawTs. It feeds an RSS Counter, lazily registering one
// profile.Counter per process on first use the same way cswitchFor
// lazily registers one cswitch.Handler per thread.
func (c *Converter) HandleRSSStat(rawTs int64, pid int, rssBytes int64) {
	proc, ok := c.reg.Lookup(pid)
	if !ok {
		c.opts.Logger.Warn().Int("pid", pid).Msg("convert: rss-stat for unregistered pid, dropping")
		return
	}
	idx := c.rssCounterFor(proc)
	c.prof.AddCounterSample(idx, c.convertTime(rawTs), rssBytes)
}

// rssCounterFor returns proc's RSS counter index, registering it on
// first use.
func (c *Converter) rssCounterFor(proc profile.ProcessHandle) int {
	idx, ok := c.rssCounters[proc]
	if !ok {
		idx = c.prof.AddCounter(proc, rssCounterName, rssCounterCategory, rssCounterDescription)
		c.rssCounters[proc] = idx
	}
	return idx
}
