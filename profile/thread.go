// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// Thread is one OS thread. It exclusively owns its local string,
// frame, stack, sample, marker, and resource tables; all access goes
// through the owning Profile via ThreadHandle.
type Thread struct {
	handle ThreadHandle

	Owner     ProcessHandle
	TID       int
	Name      string
	StartTime Timestamp
	EndTime   Timestamp
	HasEnd    bool
	IsMain    bool

	strTable  *threadStringTable
	frames    *frameTable
	stacks    *stackTable
	resources *resourceTable
	samples   sampleTable
	markers   markerTable

	profile *Profile
}

func (t *Thread) Handle() ThreadHandle { return t.handle }

// InternString re-interns a global string into this thread's local
// string table.
func (t *Thread) InternString(h StringHandle) ThreadStringIndex {
	return t.strTable.internGlobal(t.profile.strings, h)
}

// InternLocalString interns a string directly into this thread's local
// table, bypassing the global table (used for synthesized names like
// hex addresses).
func (t *Thread) InternLocalString(s string) ThreadStringIndex {
	return t.strTable.internLocal(s)
}

func (t *Thread) LocalString(i ThreadStringIndex) string { return t.strTable.strings[i] }
