// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// RegisterMarkerType registers a marker schema once, ahead of any
// events of that type. Converters that ingest a fixed set of
// marker kinds should call this once per kind during setup.
func (c *Converter) RegisterMarkerType(schema profile.MarkerSchema) {
	c.prof.RegisterMarkerSchema(schema)
}

// HandleMarkerInstant records an instant marker directly, with no
// Start/End pairing.
func (c *Converter) HandleMarkerInstant(rawTs int64, pid, tid int, name string, payload map[string]interface{}) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	thread := c.prof.Thread(th)
	nameHandle := c.prof.InternString(name)
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	thread.AddMarker(nameHandle, profile.Instant(c.convertTime(rawTs)), cat, payload, profile.NoStack)
}

// HandleMarkerIntervalStart begins a paired interval marker;
// the matching End arrives as a separate event sharing name.
func (c *Converter) HandleMarkerIntervalStart(rawTs int64, pid, tid int, name string, payload map[string]interface{}) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	c.pair.Start(th, name, c.convertTime(rawTs), cat, payload, profile.NoStack)
}

// HandleMarkerIntervalEnd closes a paired interval marker, merging
// with its Start if one is pending.
func (c *Converter) HandleMarkerIntervalEnd(rawTs int64, pid, tid int, name string) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	c.pair.End(c.prof, th, name, c.convertTime(rawTs), cat)
}

// HandleMarkerInterval records an already-complete interval marker in
// one event (the fourth timing variant, alongside Instant,
// IntervalStart, and IntervalEnd).
func (c *Converter) HandleMarkerInterval(rawStart, rawEnd int64, pid, tid int, name string, payload map[string]interface{}) {
	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		return
	}
	thread := c.prof.Thread(th)
	nameHandle := c.prof.InternString(name)
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	timing := profile.Interval(c.convertTime(rawStart), c.convertTime(rawEnd))
	thread.AddMarker(nameHandle, timing, cat, payload, profile.NoStack)
}
