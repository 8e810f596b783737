// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jit ingests JIT-compiled-code-load events into a synthetic
// per-process library with a monotonically growing relative-address
// space, so JIT'd functions resolve and categorize the same way
// mapped-from-disk library code does.
package jit

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/mstange/samply-sub000/profile"
)

// Registry tracks one synthetic JIT library per process.
type Registry struct {
	prof      *profile.Profile
	byProcess map[profile.ProcessHandle]*jitLib
	recycle   bool
	// byNameRecycled maps (process name, function name) to a
	// previously-used relative address, for the optional "JIT
	// recycling" feature.
	byNameRecycled map[recycleKey]uint32
	logger         zerolog.Logger
}

type recycleKey struct {
	processName, funcName string
}

type jitLib struct {
	process     profile.ProcessHandle
	pid         int
	nextAddr    uint32
	pending     []profile.Symbol
	processName string

	global     profile.GlobalLibIndex
	haveGlobal bool
}

// New creates a Registry. If recycle is true, a function reloaded
// under the same name in a recycled process (see process.ProcessRecycler)
// is assigned the same relative address it had before. logger receives
// this Registry's diagnostics.
func New(prof *profile.Profile, recycle bool, logger zerolog.Logger) *Registry {
	return &Registry{
		prof:           prof,
		byProcess:      make(map[profile.ProcessHandle]*jitLib),
		recycle:        recycle,
		byNameRecycled: make(map[recycleKey]uint32),
		logger:         logger,
	}
}

func (r *Registry) libFor(owner profile.ProcessHandle, pid int, processName string) *jitLib {
	l, ok := r.byProcess[owner]
	if ok {
		return l
	}
	l = &jitLib{process: owner, pid: pid, processName: processName}
	r.byProcess[owner] = l
	return l
}

// Category classifies a JIT function name into a category/subcategory
// label.
func Category(name string) string {
	switch {
	case strings.HasPrefix(name, "Ion:"):
		return "JIT (Ion)"
	case strings.HasPrefix(name, "Baseline:"):
		return "JIT (Baseline)"
	case strings.Contains(name, "[Stub]"):
		return "JIT (Stub)"
	case strings.HasSuffix(name, "[R2R]"), strings.Contains(name, "ReadyToRun"):
		return "JIT (R2R)"
	case strings.Contains(name, "[QuickJit]"), strings.Contains(name, "QuickJitted"):
		return "JIT (QuickJit)"
	case strings.Contains(name, "[OptimizedTier1]"):
		return "JIT (Tier1)"
	default:
		return "JIT"
	}
}

// Load registers one JIT code load: size bytes of machine code for
// name, returning the relative address it was assigned within the
// process's synthetic library and that library's GlobalLibIndex. The
// library is interned on first use (with Size growing as code loads)
// rather than at Finish, so the caller can enqueue a LibMappingOp
// for this particular load immediately, letting samples
// between this load and the end of the capture resolve against it.
// The caller is still responsible for the mapping op itself and for
// emitting the JitFunctionAdd marker (step 4), since those require the
// Profile's Thread and libmap.Map, which this package intentionally
// doesn't import to avoid a dependency cycle with convert.
func (r *Registry) Load(owner profile.ProcessHandle, pid int, processName, name string, size uint32) (addr uint32, global profile.GlobalLibIndex) {
	if size == 0 {
		r.logger.Warn().Int("pid", pid).Str("name", name).Msg("jit: zero-size code load")
	}
	l := r.libFor(owner, pid, processName)

	if r.recycle {
		if prev, ok := r.byNameRecycled[recycleKey{processName, name}]; ok {
			addr = prev
		} else {
			addr = l.nextAddr
			l.nextAddr += size
			r.byNameRecycled[recycleKey{processName, name}] = addr
		}
	} else {
		addr = l.nextAddr
		l.nextAddr += size
	}

	l.pending = append(l.pending, profile.Symbol{RelativeAddress: addr, Size: size, Name: name})

	if !l.haveGlobal {
		l.global = r.prof.AddLib(profile.LibraryInfo{Name: LibName(pid)})
		l.haveGlobal = true
	}
	if lib := r.prof.Lib(l.global); lib.Size < l.nextAddr {
		lib.Size = l.nextAddr
	}
	return addr, l.global
}

// LibName is the synthetic library name for a process
// ("JIT-<pid>").
func LibName(pid int) string {
	return "JIT-" + itoa(pid)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Finish attaches each process's accumulated pending symbols as its
// already-interned synthetic library's symbol table and
// returns the GlobalLibIndex for each process that produced any JIT
// code.
func (r *Registry) Finish() map[profile.ProcessHandle]profile.GlobalLibIndex {
	out := make(map[profile.ProcessHandle]profile.GlobalLibIndex)
	for owner, l := range r.byProcess {
		if !l.haveGlobal || len(l.pending) == 0 {
			continue
		}
		lib := r.prof.Lib(l.global)
		lib.Symbols = &profile.SymbolTable{Symbols: append([]profile.Symbol(nil), l.pending...)}
		out[owner] = l.global
	}
	return out
}
