// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package marker

import (
	"testing"

	"github.com/mstange/samply-sub000/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartEndPairing(t *testing.T) {
	prof := profile.New("test", 0, 0)
	proc := prof.AddProcess(1, "p", 0)
	th := prof.AddThread(proc, 1, 0, true)

	p := NewPairing()
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	payload := map[string]interface{}{"x": 1}

	p.Start(th, "X", 1, cat, payload, profile.NoStack)
	p.End(prof, th, "X", 3, cat)

	markers := prof.Thread(th).Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, profile.TimingInterval, markers[0].Timing.Kind)
	assert.Equal(t, profile.Timestamp(1), markers[0].Timing.Start)
	assert.Equal(t, profile.Timestamp(3), markers[0].Timing.End)
	assert.Equal(t, payload, markers[0].Payload)
}

func TestEndWithoutStartEmitsBareEnd(t *testing.T) {
	prof := profile.New("test", 0, 0)
	proc := prof.AddProcess(1, "p", 0)
	th := prof.AddThread(proc, 1, 0, true)

	p := NewPairing()
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	p.End(prof, th, "Y", 5, cat)

	markers := prof.Thread(th).Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, profile.TimingIntervalEnd, markers[0].Timing.Kind)
}

func TestFlushEmitsUnmatchedStarts(t *testing.T) {
	prof := profile.New("test", 0, 0)
	proc := prof.AddProcess(1, "p", 0)
	th := prof.AddThread(proc, 1, 0, true)

	p := NewPairing()
	cat := profile.CategoryPair{Subcategory: profile.NoSubcategory}
	p.Start(th, "Z", 7, cat, nil, profile.NoStack)
	p.Flush(prof)

	markers := prof.Thread(th).Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, profile.TimingIntervalStart, markers[0].Timing.Kind)
}
