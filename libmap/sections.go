// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libmap

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// SectionBytes reads a (possibly compressed) ELF section's full
// contents given the underlying file, needed because debug/elf's own
// Data()/Open() transparently decompress using an internal, vendored
// zstd reader it doesn't expose — symindex building wants its
// own decompression path so it can report corrupt-section errors
// distinctly from "no symbols" rather than opaque debug/elf
// FormatErrors. r must be the same ReaderAt the *elf.File was opened
// from.
func SectionBytes(r io.ReaderAt, sec *elf.Section) ([]byte, error) {
	if sec.Flags&elf.SHF_COMPRESSED == 0 {
		return sec.Data()
	}
	raw := make([]byte, sec.FileSize)
	if _, err := io.ReadFull(io.NewSectionReader(r, int64(sec.Offset), int64(sec.FileSize)), raw); err != nil {
		return nil, err
	}
	if len(raw) < 12 {
		return nil, errors.New("libmap: truncated compressed section header")
	}
	compressionType := binary.LittleEndian.Uint32(raw[0:4])
	// Elf64_Chdr: ch_type(4) ch_reserved(4) ch_size(8) ch_addralign(8) = 24 bytes.
	// Elf32_Chdr: ch_type(4) ch_size(4) ch_addralign(4) = 12 bytes.
	var payload []byte
	if len(raw) >= 24 {
		payload = raw[24:]
	} else {
		payload = raw[12:]
	}

	switch compressionType {
	case 1: // ELFCOMPRESS_ZLIB
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case 2: // ELFCOMPRESS_ZSTD
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, errors.New("libmap: unsupported ELF section compression type")
	}
}
