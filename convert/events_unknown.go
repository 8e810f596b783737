// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// HandleUnknownEvent records an event type this converter has no
// dedicated handler for. It is always logged; when
// Options.UnknownEventMarker is set it additionally emits an Instant
// marker on the thread (falling back to the process's main thread, or
// being dropped entirely if neither is registered), so the gap is
// visible in the resulting profile rather than only in a log stream.
func (c *Converter) HandleUnknownEvent(rawTs int64, pid, tid int, eventType string) {
	c.opts.Logger.Warn().Int("pid", pid).Int("tid", tid).Str("type", eventType).
		Msg("convert: unrecognized event type, dropping")
	if !c.opts.UnknownEventMarker {
		return
	}

	th, ok := c.reg.LookupThread(pid, tid)
	if !ok {
		th, ok = c.reg.MainThread(pid)
		if !ok {
			return
		}
	}
	thread := c.prof.Thread(th)
	nameHandle := c.prof.InternString("UnknownEvent")
	payload := map[string]interface{}{"type": eventType}
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	thread.AddMarker(nameHandle, profile.Instant(c.convertTime(rawTs)), cat, payload, profile.NoStack)
}
