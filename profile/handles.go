// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profile builds the columnar, self-contained profile document
// that downstream visualizers consume: a deduplicated global string and
// library table, plus per-thread frame, stack, sample, marker, and
// resource tables. It does not decide what goes into those tables; the
// convert package drives it event by event.
package profile

// Handles are opaque, dense, append-only indices into the Profile's
// vectors. They are stable for the lifetime of a Profile: entries are
// never removed, only marked ended.

// ProcessHandle identifies a Process in Profile.Processes.
type ProcessHandle int

// ThreadHandle identifies a Thread in Profile.Threads.
type ThreadHandle int

// CategoryHandle identifies a Category in Profile.Categories.
type CategoryHandle uint16

// GlobalLibIndex identifies a LibraryInfo in the deduplicated global
// library table.
type GlobalLibIndex int

// ProcessLibIndex identifies a library mapping local to one process's
// library-mapping timeline (see libmap.Map).
type ProcessLibIndex int

// StringHandle identifies a string in the global string table.
type StringHandle int

// ThreadStringIndex identifies a string in one thread's local string
// table, re-interned from the global table on first use by that thread.
type ThreadStringIndex int

// ResourceIndex identifies an entry in a thread's local resource table
// (one resource per library referenced by that thread's frames).
type ResourceIndex int

// FrameIndex identifies an entry in a thread's local frame table.
type FrameIndex int

// FuncIndex identifies an entry in a thread's local function table.
// This implementation keeps one function per frame (no cross-frame
// function dedup), so FuncIndex always equals the FrameIndex
// that created it.
type FuncIndex int

// StackIndex identifies an entry in a thread's local stack table, the
// prefix tree samples index into.
type StackIndex int

// NoStack is the sentinel "no stack" value for a Sample or Marker.
const NoStack StackIndex = -1

// NoSubcategory means a CategoryPair carries no subcategory.
const NoSubcategory = -1

// CategoryPair is a category together with an optional subcategory.
type CategoryPair struct {
	Category    CategoryHandle
	Subcategory int // NoSubcategory, or an index into that Category's Subcategories
}
