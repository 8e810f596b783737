// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"debug/elf"
	"debug/macho"
	"os"

	"github.com/google/uuid"

	"github.com/mstange/samply-sub000/libmap"
	"github.com/mstange/samply-sub000/profile"
)

// HandleImageID records an ETW ImageID record's fields, the first of
// the three that together register a Windows image load.
func (c *Converter) HandleImageID(pid int, imageBase, imageSize uint64, timestamp uint32, originalName string) {
	c.winRegistrar.HandleImageID(pid, imageBase, imageSize, timestamp, originalName)
}

// HandleImageDebugID records an ETW DbgID_RSDS record's fields.
func (c *Converter) HandleImageDebugID(pid int, imageBase uint64, debugID uuid.UUID, age uint32, pdbName string) {
	c.winRegistrar.HandleDbgIDRSDS(pid, imageBase, debugID, age, pdbName)
}

// HandleImageLoad finalizes a pending Windows image registration,
// inserting the mapping into the owning process's Map (or the shared
// kernel Map, for a driver or pid==0 image).
func (c *Converter) HandleImageLoad(pid int, imageBase, imageEndOrSize uint64, devicePath string) {
	m := c.kernelLibmap
	if proc, ok := c.reg.Lookup(pid); ok && imageBase < c.opts.KernelMin {
		m = c.libmapFor(proc)
	}
	c.winRegistrar.HandleImageLoad(m, pid, imageBase, imageEndOrSize, devicePath)
}

// HandleMmap registers a Linux/Android PERF_RECORD_MMAP(2) mapping.
// path is opened to read the binary's segment/section table for the
// base-AVMA computation; a path that can't be opened or parsed
// (anonymous mappings, deleted files, non-ELF/Mach-O images) yields an
// unresolved mapping rather than aborting the conversion.
func (c *Converter) HandleMmap(rawTs int64, pid int, start, length, pageOffset uint64, path string, isKernel bool) {
	var proc profile.ProcessHandle
	m := c.kernelLibmap
	if !isKernel {
		p, ok := c.reg.Lookup(pid)
		if !ok {
			c.opts.Logger.Warn().Int("pid", pid).Str("path", path).
				Msg("convert: mmap for unregistered pid, dropping")
			return
		}
		proc = p
		m = c.libmapFor(proc)
	}

	spec := libmap.LoadSpec{
		Start:      start,
		End:        start + length,
		FileOffset: pageOffset,
		IsKernel:   isKernel,
		Name:       baseFileName(path),
		Path:       path,
	}
	fillSectionsAndBuildID(&spec, path)
	if _, ok := m.Add(spec); !ok || isKernel {
		return
	}
	c.addMmapMarker(rawTs, pid, spec.Name, start)
}

// addMmapMarker emits an Instant marker recording a library mapping
// for every accepted mmap, on the owning process's main thread.
func (c *Converter) addMmapMarker(rawTs int64, pid int, name string, addr uint64) {
	main, ok := c.reg.MainThread(pid)
	if !ok {
		return
	}
	thread := c.prof.Thread(main)
	nameHandle := c.prof.InternString("Mmap")
	payload := map[string]interface{}{"name": name, "address": addr}
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	thread.AddMarker(nameHandle, profile.Instant(c.convertTime(rawTs)), cat, payload, profile.NoStack)
}

// HandleMmap2 is PERF_RECORD_MMAP2: the same as HandleMmap but the
// kernel also supplies inode/device info this converter doesn't need,
// since build-id identification comes from the file itself.
func (c *Converter) HandleMmap2(rawTs int64, pid int, start, length, pageOffset uint64, path string, isKernel bool) {
	c.HandleMmap(rawTs, pid, start, length, pageOffset, path, isKernel)
}

// HandleUnloadLib drops the range starting at start from pid's Map, if
// present, so later addresses in that range report unknown rather than
// resolving against a since-unmapped library.
func (c *Converter) HandleUnloadLib(pid int, start uint64) {
	proc, ok := c.reg.Lookup(pid)
	if !ok {
		c.opts.Logger.Warn().Int("pid", pid).Uint64("start", start).
			Msg("convert: unload for unregistered pid, dropping")
		return
	}
	c.libmapFor(proc).RemoveMapping(start)
}

func fillSectionsAndBuildID(spec *libmap.LoadSpec, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	if ef, err := elf.NewFile(f); err == nil {
		spec.Sections = libmap.ELFSections(ef)
		spec.CodeID = libmap.ELFBuildID(ef)
		return
	}
	f.Seek(0, 0)
	if mf, err := macho.NewFile(f); err == nil {
		spec.Sections = libmap.MachOSections(mf)
		if id, ok := libmap.MachOUUID(mf); ok {
			spec.DebugID = id
		}
	}
}

func baseFileName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
