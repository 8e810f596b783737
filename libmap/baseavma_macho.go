// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import (
	"debug/macho"
	"encoding/binary"
)

// lcUUID is LC_UUID, which debug/macho doesn't parse itself.
const lcUUID = 0x1b

// MachOSections converts a Mach-O file's load-command segments into
// SectionInfo, so that computeBaseAVMA's "the __TEXT segment start"
// rule falls out of the same segment-table walk used for ELF
// and PE: the __TEXT segment, having file offset 0, naturally becomes
// the matching range for any mapping that starts at the image's first
// page.
func MachOSections(f *macho.File) []SectionInfo {
	var out []SectionInfo
	for _, l := range f.Loads {
		seg, ok := l.(*macho.Segment)
		if !ok {
			continue
		}
		out = append(out, SectionInfo{
			FileOffset: seg.Offset,
			FileSize:   seg.Filesz,
			SVMA:       seg.Addr,
			IsSegment:  true,
		})
	}
	return out
}

// MachOUUID extracts the LC_UUID load command's build UUID, if present.
// debug/macho's Raw() returns the whole command including its 8-byte
// cmd/cmdsize header, so the 16 UUID bytes start at offset 8.
func MachOUUID(f *macho.File) ([16]byte, bool) {
	for _, l := range f.Loads {
		b := l.Raw()
		if len(b) < 24 {
			continue
		}
		cmd := binary.LittleEndian.Uint32(b[0:4])
		if cmd != lcUUID {
			continue
		}
		var out [16]byte
		copy(out[:], b[8:24])
		return out, true
	}
	return [16]byte{}, false
}
