// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// HandleJitMethodLoad ingests one JIT code load: addr is
// the real AVMA the JIT engine placed the compiled code at. It
// assigns the method a relative address in the process's synthetic
// JIT library, maps that AVMA range against the library immediately
// (so samples landing in it before the capture ends still resolve),
// and records a JitFunctionAdd marker on the process's main thread.
func (c *Converter) HandleJitMethodLoad(rawTs int64, pid int, addr uint64, size uint32, name string) {
	proc, ok := c.reg.Lookup(pid)
	if !ok {
		return
	}
	main, ok := c.reg.MainThread(pid)
	if !ok {
		return
	}
	processName := c.prof.Processes()[proc].Name

	relAddr, global := c.jitr.Load(proc, pid, processName, name, size)

	m := c.libmapFor(proc)
	m.AddKnownLib(addr, addr+uint64(size), global, addr-uint64(relAddr), false)

	ts := c.convertTime(rawTs)
	thread := c.prof.Thread(main)
	nameHandle := c.prof.InternString("JitFunctionAdd")
	payload := map[string]interface{}{"functionName": name}
	thread.AddMarker(nameHandle, profile.Instant(ts), profile.CategoryPair{Subcategory: profile.NoSubcategory}, payload, profile.NoStack)
}
