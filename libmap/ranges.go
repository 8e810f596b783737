// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package libmap resolves AVMA addresses seen in samples and call
// chains to (relative address, library) pairs. ranges is a sorted-range
// lookup structure holding per-process library mappings, with
// eviction-on-overlap and kernel-image-truncation-on-overlap policies
// layered on top of the basic interval search.
package libmap

import "sort"

// ranges is a sorted list of non-overlapping half-open [lo, hi) AVMA
// intervals, each carrying a payload. Add actively enforces an overlap
// policy rather than leaving overlapping adds undefined: an
// exact-start match evicts the old entry in place, and the
// kernel-image-truncation case is handled by the caller via Truncate
// before the conflicting Add.
type ranges struct {
	rs     []rangeEnt
	sorted bool
}

type rangeEnt struct {
	lo, hi uint64
	val    interface{}
}

// Add inserts val for [lo, hi). If an existing entry starts at exactly
// lo, it is replaced in place.
func (r *ranges) Add(lo, hi uint64, val interface{}) {
	for i := range r.rs {
		if r.rs[i].lo == lo {
			r.rs[i] = rangeEnt{lo, hi, val}
			r.sorted = false
			return
		}
	}
	r.rs = append(r.rs, rangeEnt{lo, hi, val})
	r.sorted = false
}

// Truncate shortens the range starting at lo (if one exists) to end at
// newHi. Used for the kernel-image-overlap case.
func (r *ranges) Truncate(lo, newHi uint64) bool {
	for i := range r.rs {
		if r.rs[i].lo == lo {
			r.rs[i].hi = newHi
			r.sorted = false
			return true
		}
	}
	return false
}

func (r *ranges) ensureSorted() {
	if r.sorted {
		return
	}
	sort.Slice(r.rs, func(i, j int) bool { return r.rs[i].lo < r.rs[j].lo })
	r.sorted = true
}

// Find looks up the range (if any) containing addr: exact match on
// start wins outright; otherwise the range immediately preceding the
// insertion point is checked against its end.
func (r *ranges) Find(addr uint64) (lo, hi uint64, val interface{}, ok bool) {
	if r == nil || len(r.rs) == 0 {
		return 0, 0, nil, false
	}
	r.ensureSorted()
	rs := r.rs
	i := sort.Search(len(rs), func(i int) bool { return rs[i].lo > addr })
	if i > 0 {
		cand := rs[i-1]
		if cand.lo <= addr && addr < cand.hi {
			return cand.lo, cand.hi, cand.val, true
		}
	}
	return 0, 0, nil, false
}

// Remove deletes the range starting at lo, if present.
func (r *ranges) Remove(lo uint64) {
	for i := range r.rs {
		if r.rs[i].lo == lo {
			r.rs = append(r.rs[:i], r.rs[i+1:]...)
			return
		}
	}
}
