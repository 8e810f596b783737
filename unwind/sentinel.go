// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unwind

// TruncatedStackMarker is the sentinel pseudo-frame name appended when
// an Unwinder stops because of an error (rather than naturally
// reaching the end of the stack), so the truncation is visible in the
// output instead of silently producing a shorter-than-real stack
//.
const TruncatedStackMarker = "<truncated stack>"
