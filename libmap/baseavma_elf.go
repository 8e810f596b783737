// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import (
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// ELFSections reads an ELF file's program headers (segments) and
// section headers and converts them into the SectionInfo list
// computeBaseAVMA expects. Segments are preferred; of the sections,
// only text-like (SHF_EXECINSTR) ones are included as a fallback.
//
// No third-party ELF parser fits this job; debug/elf already handles
// this kind of segment/section walk directly, so this stays on the
// standard library (see DESIGN.md).
func ELFSections(f *elf.File) []SectionInfo {
	var out []SectionInfo
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		out = append(out, SectionInfo{
			FileOffset: prog.Off,
			FileSize:   prog.Filesz,
			SVMA:       prog.Vaddr,
			IsSegment:  true,
		})
	}
	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		if sec.Type == elf.SHT_NOBITS {
			continue
		}
		out = append(out, SectionInfo{
			FileOffset: sec.Offset,
			FileSize:   sec.Size,
			SVMA:       sec.Addr,
			IsSegment:  false,
		})
	}
	return out
}

// ELFBuildID extracts the GNU build-id note (if present) as a hex
// string, for use as LoadSpec.CodeID.
func ELFBuildID(f *elf.File) string {
	bid, err := buildIDFromNotes(f)
	if err != nil {
		return ""
	}
	return bid
}

// buildIDFromNotes scans .note.gnu.build-id for the first NT_GNU_BUILD_ID
// note, per the ELF note-section layout (namesz, descsz, type, name,
// desc, each name/desc padded to 4 bytes).
func buildIDFromNotes(f *elf.File) (string, error) {
	sec := f.Section(".note.gnu.build-id")
	if sec == nil {
		return "", errors.New("no .note.gnu.build-id section")
	}
	data, err := sec.Data()
	if err != nil {
		return "", err
	}
	const noteTypeGNUBuildID = 3
	for len(data) >= 12 {
		nameSz := binary.LittleEndian.Uint32(data[0:4])
		descSz := binary.LittleEndian.Uint32(data[4:8])
		noteType := binary.LittleEndian.Uint32(data[8:12])
		data = data[12:]
		nameEnd := align4(nameSz)
		if uint32(len(data)) < nameEnd {
			break
		}
		data = data[nameEnd:]
		descEnd := align4(descSz)
		if uint32(len(data)) < descEnd {
			break
		}
		desc := data[:descSz]
		data = data[descEnd:]
		if noteType == noteTypeGNUBuildID {
			return hex.EncodeToString(desc), nil
		}
	}
	return "", errors.New("no NT_GNU_BUILD_ID note found")
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}
