// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// stackEntry is one node of the per-thread stack prefix tree. prefix is
// NoStack for a one-frame stack (the root of a call chain).
type stackEntry struct {
	Prefix   StackIndex
	Frame    FrameIndex
	Category CategoryPair
}

// stackTable is a thread-local prefix tree: stacks sharing a caller-side
// prefix share the same StackIndex chain, keyed by (prefix, frame).
type stackTable struct {
	entries []stackEntry
	index   map[[2]int]StackIndex
}

func newStackTable() *stackTable {
	return &stackTable{index: make(map[[2]int]StackIndex)}
}

// indexForStack returns the StackIndex for appending frame on top of
// prefix (prefix may be NoStack), creating a new entry only if this
// exact (prefix, frame) pair hasn't been seen before on this thread.
func (t *stackTable) indexForStack(prefix StackIndex, frame FrameIndex, cat CategoryPair) StackIndex {
	key := [2]int{int(prefix), int(frame)}
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := StackIndex(len(t.entries))
	t.entries = append(t.entries, stackEntry{Prefix: prefix, Frame: frame, Category: cat})
	t.index[key] = idx
	return idx
}

// Prefix and Frame are exposed read-only accessors used by the
// serializer and by invariant checks.
func (t *stackTable) Prefix(i StackIndex) StackIndex { return t.entries[i].Prefix }
func (t *stackTable) Frame(i StackIndex) FrameIndex  { return t.entries[i].Frame }
func (t *stackTable) Len() int                       { return len(t.entries) }

// BuildStack interns a full callee-first list of (frame, category)
// pairs into the prefix tree, from caller (index 0) to callee (last),
// and returns the StackIndex of the full stack (i.e. pointing at the
// last/innermost frame).
func (t *Thread) BuildStack(frames []FrameIndex, cats []CategoryPair) StackIndex {
	prefix := NoStack
	for i, f := range frames {
		prefix = t.stacks.indexForStack(prefix, f, cats[i])
	}
	return prefix
}

// AddFrame interns one frame on this thread and returns its FrameIndex.
func (t *Thread) AddFrame(loc FrameLocation, cat CategoryPair) FrameIndex {
	return t.frames.indexForFrame(internalFrame{Location: loc, Category: cat})
}

// StackDepth walks the prefix chain starting at s and returns its
// length. Walking a stack's prefix chain always terminates at NoStack
// in at most stackTable.Len() hops.
func (t *Thread) StackDepth(s StackIndex) int {
	n := 0
	for s != NoStack {
		s = t.stacks.Prefix(s)
		n++
	}
	return n
}

// StackPrefix and StackFrame expose one stack entry's prefix chain and
// frame, for callers (serializers, invariant checks, tests) that need
// to walk a stack outside this package.
func (t *Thread) StackPrefix(s StackIndex) StackIndex { return t.stacks.Prefix(s) }
func (t *Thread) StackFrame(s StackIndex) FrameIndex  { return t.stacks.Frame(s) }

// FrameLocation returns the location an interned frame resolved to.
func (t *Thread) FrameLocation(f FrameIndex) FrameLocation { return t.frames.frames[f].Location }
