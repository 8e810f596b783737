// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// Resource is a thread-local entry referencing a library, interned the
// first time a frame on this thread resolves into that library. The
// funcTable's resource column points here (or -1).
type Resource struct {
	Name ThreadStringIndex
	Lib  GlobalLibIndex
}

type resourceTable struct {
	resources []Resource
	index     map[GlobalLibIndex]ResourceIndex
}

func newResourceTable() *resourceTable {
	return &resourceTable{index: make(map[GlobalLibIndex]ResourceIndex)}
}

// ResourceForLib interns lib into this thread's resource table,
// re-interning its name as a local string.
func (t *Thread) ResourceForLib(lib GlobalLibIndex) ResourceIndex {
	if idx, ok := t.resources.index[lib]; ok {
		return idx
	}
	name := t.InternLocalString(t.profile.Lib(lib).Name)
	idx := ResourceIndex(len(t.resources.resources))
	t.resources.resources = append(t.resources.resources, Resource{Name: name, Lib: lib})
	t.resources.index[lib] = idx
	return idx
}

func (t *Thread) Resources() []Resource { return t.resources.resources }
