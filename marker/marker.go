// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package marker provides the convenience layer on top of
// profile.Thread's marker table that describes: pairing
// freeform IntervalStart/IntervalEnd events with the same name on a
// thread into one Interval marker, since pairing Start/End by name is
// explicitly the caller's responsibility, not the Profile's.
package marker

import "github.com/mstange/samply-sub000/profile"

// pendingKey identifies one in-flight Start/End pairing.
type pendingKey struct {
	thread profile.ThreadHandle
	name   string
}

type pendingStart struct {
	timing  profile.MarkerTiming
	payload map[string]interface{}
	cat     profile.CategoryPair
	stack   profile.StackIndex
}

// Pairing tracks pending IntervalStart markers per (thread, name) so a
// later IntervalEnd with the same name merges into a single Interval
// marker.
type Pairing struct {
	pending map[pendingKey]pendingStart
}

func NewPairing() *Pairing {
	return &Pairing{pending: make(map[pendingKey]pendingStart)}
}

// Start records an IntervalStart marker for later pairing instead of
// emitting it immediately.
func (p *Pairing) Start(th profile.ThreadHandle, name string, startTs profile.Timestamp, cat profile.CategoryPair, payload map[string]interface{}, stack profile.StackIndex) {
	p.pending[pendingKey{th, name}] = pendingStart{
		timing:  profile.IntervalStart(startTs),
		payload: payload,
		cat:     cat,
		stack:   stack,
	}
}

// End resolves a matching pending Start (if any) and emits a single
// Interval marker spanning [start, endTs] carrying the start event's
// payload scenario 6. If no Start is pending under this name,
// it emits a bare IntervalEnd marker instead, which is still valid
// output — just less informative.
func (p *Pairing) End(prof *profile.Profile, th profile.ThreadHandle, name string, endTs profile.Timestamp, cat profile.CategoryPair) {
	thread := prof.Thread(th)
	nameHandle := prof.InternString(name)

	key := pendingKey{th, name}
	start, ok := p.pending[key]
	if !ok {
		thread.AddMarker(nameHandle, profile.IntervalEnd(endTs), cat, nil, profile.NoStack)
		return
	}
	delete(p.pending, key)
	thread.AddMarker(nameHandle, profile.Interval(start.timing.Start, endTs), start.cat, start.payload, start.stack)
}

// Flush emits any Start markers that never got a matching End as bare
// IntervalStart markers, so capture truncation doesn't silently drop
// them. Call once at Finish.
func (p *Pairing) Flush(prof *profile.Profile) {
	for key, start := range p.pending {
		thread := prof.Thread(key.thread)
		nameHandle := prof.InternString(key.name)
		thread.AddMarker(nameHandle, start.timing, start.cat, start.payload, start.stack)
	}
	p.pending = make(map[pendingKey]pendingStart)
}
