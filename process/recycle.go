// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package process

import "github.com/mstange/samply-sub000/profile"

// pooledProcess is what a ProcessRecycler keeps for one ended process
// so a later process with the same name can inherit its Profile rows.
type pooledProcess struct {
	handle         profile.ProcessHandle
	mainThread     profile.ThreadHandle
	threadRecycler *ThreadRecycler
}

// ProcessRecycler pools ended processes keyed by name so a later
// process with the same name reuses the old one's ProcessHandle and
// main-thread handle instead of allocating a new row in the output
//.
type ProcessRecycler struct {
	pool map[string][]pooledProcess
}

func NewProcessRecycler() *ProcessRecycler {
	return &ProcessRecycler{pool: make(map[string][]pooledProcess)}
}

func (pr *ProcessRecycler) put(name string, p pooledProcess) {
	if name == "" {
		return
	}
	pr.pool[name] = append(pr.pool[name], p)
}

func (pr *ProcessRecycler) take(name string) (pooledProcess, bool) {
	if name == "" {
		return pooledProcess{}, false
	}
	q := pr.pool[name]
	if len(q) == 0 {
		return pooledProcess{}, false
	}
	p := q[len(q)-1]
	pr.pool[name] = q[:len(q)-1]
	return p, true
}

// ThreadRecycler pools ended threads, scoped to one process, keyed by
// thread name.
type ThreadRecycler struct {
	pool map[string][]profile.ThreadHandle
}

func newThreadRecycler() *ThreadRecycler {
	return &ThreadRecycler{pool: make(map[string][]profile.ThreadHandle)}
}

func (tr *ThreadRecycler) put(name string, h profile.ThreadHandle) {
	tr.pool[name] = append(tr.pool[name], h)
}

func (tr *ThreadRecycler) take(name string) (profile.ThreadHandle, bool) {
	q := tr.pool[name]
	if len(q) == 0 {
		return 0, false
	}
	h := q[len(q)-1]
	tr.pool[name] = q[:len(q)-1]
	return h, true
}
