// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import peparser "github.com/saferwall/pe"

// PESections converts a parsed PE file's section table into
// SectionInfo. Unlike ELF/Mach-O, a PE image's RVA space already has
// its base folded in (VirtualAddress is relative to ImageBase), so
// these entries carry SVMA as a plain RVA and PEBaseAVMA supplies the
// ImageBase separately; computeBaseAVMA still works unmodified because
// it only ever needs the bias between a reference range's file offset
// and its SVMA.
//
// Live ETW captures normally skip this and use the image_base carried
// directly by the ImageID record; this path exists for symbol-index building and
// offline re-resolution against a PE file on disk.
func PESections(f *peparser.File) []SectionInfo {
	var out []SectionInfo
	for _, sec := range f.Sections {
		h := sec.Header
		if h.Characteristics&peCntCode == 0 {
			continue
		}
		out = append(out, SectionInfo{
			FileOffset: uint64(h.PointerToRawData),
			FileSize:   uint64(h.SizeOfRawData),
			SVMA:       uint64(h.VirtualAddress),
			IsSegment:  false,
		})
	}
	return out
}

// peCntCode is IMAGE_SCN_CNT_CODE.
const peCntCode = 0x00000020

// PEImageBase returns the image's preferred load address, which on
// Windows doubles as the base AVMA once the image is actually loaded
// at that address.
func PEImageBase(f *peparser.File) (uint64, bool) {
	switch oh := f.NtHeader.OptionalHeader.(type) {
	case peparser.ImageOptionalHeader32:
		return uint64(oh.ImageBase), true
	case peparser.ImageOptionalHeader64:
		return oh.ImageBase, true
	default:
		return 0, false
	}
}
