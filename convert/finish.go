// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import "github.com/mstange/samply-sub000/profile"

// Finish flushes any still-pending state (unmatched marker Starts) and
// returns the completed Profile, ready for serialization. The
// Converter must not be used again afterward.
func (c *Converter) Finish() *profile.Profile {
	c.pair.Flush(c.prof)
	c.jitr.Finish()
	return c.prof
}
