// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"time"

	"github.com/mstange/samply-sub000/cswitch"
	"github.com/mstange/samply-sub000/profile"
)

// HandleHeader establishes the raw-timestamp-to-nanosecond conversion
// factor and the reference raw timestamp. perfFreqHz is the
// clock's ticks-per-second (e.g. perf.data's nanosecond clock reports
// 1e9); rawReference is the raw timestamp all subsequent conversions
// are relative to.
func (c *Converter) HandleHeader(rawReference int64, perfFreqHz float64, unixMillisAtReference float64) {
	c.referenceRaw = rawReference
	if perfFreqHz <= 0 {
		perfFreqHz = 1e9
	}
	c.rawToNsFactor = 1e9 / perfFreqHz
	c.haveReference = true
	c.prof.Reference = profile.ReferenceTimestampFromUnixMillis(unixMillisAtReference)
}

// HandleCollectionStart sets the profile's sampling interval and
// reconfigures the context-switch handler's expected off-CPU sampling
// period to match.
func (c *Converter) HandleCollectionStart(intervalRaw int64) {
	ns := c.convertDuration(intervalRaw)
	c.prof.SetInterval(profile.SamplingInterval(time.Duration(ns)))
	c.offCPUPeriodNs = ns
	for _, s := range c.cswitchHandlers {
		s.handler = cswitch.New(profile.CpuDeltaFromNanos(ns))
	}
}

// convertTime implements convert_time: (raw - reference_raw) *
// raw_to_ns_factor, with saturating subtraction so a late event with
// raw < reference_raw yields 0 instead of a negative timestamp.
func (c *Converter) convertTime(raw int64) profile.Timestamp {
	if !c.haveReference || raw < c.referenceRaw {
		return 0
	}
	delta := raw - c.referenceRaw
	return profile.Timestamp(float64(delta) * c.rawToNsFactor)
}

// convertDuration scales a raw duration (not anchored to the
// reference) by the same factor, for things like the sampling
// interval that aren't themselves timestamps.
func (c *Converter) convertDuration(raw int64) int64 {
	return int64(float64(raw) * c.rawToNsFactor)
}

// ConvertUs implements convert_us: raw microseconds to nanoseconds,
// with no reference-timestamp anchoring.
func ConvertUs(rawUs int64) int64 {
	return rawUs * 1000
}
