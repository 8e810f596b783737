// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// OverheadSample is one entry of the output's profilerOverhead array
//: how much CPU and memory the converter itself was using while
// it ran, sampled at a fixed cadence during Finish. This is real
// self-measurement (via gopsutil), not a synthetic placeholder.
type OverheadSample struct {
	Timestamp  Timestamp
	CPUPercent float64
	RSSBytes   uint64
}

// OverheadSampler periodically samples the current process's own
// resource usage, grounded on alexandrem-coral's system_collector.go,
// which samples cpu/mem/disk/net via gopsutil on a fixed cadence; here
// the "system" being observed is the converter's own process.
type OverheadSampler struct {
	proc  *process.Process
	start time.Time
}

// NewOverheadSampler opens a gopsutil handle on the calling OS process.
// Returns an error (to be logged and ignored) if gopsutil can't
// find the process, e.g. on an unsupported platform.
func NewOverheadSampler() (*OverheadSampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &OverheadSampler{proc: p, start: time.Now()}, nil
}

// Sample takes one self-measurement and returns it for the caller to
// append to the Profile via AddOverheadSample.
func (s *OverheadSampler) Sample() (OverheadSample, error) {
	cpuPct, err := s.proc.CPUPercent()
	if err != nil {
		return OverheadSample{}, err
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return OverheadSample{}, err
	}
	return OverheadSample{
		Timestamp:  Timestamp(time.Since(s.start).Nanoseconds()),
		CPUPercent: cpuPct,
		RSSBytes:   mem.RSS,
	}, nil
}

// AddOverheadSample appends a self-measurement to the profile's
// profilerOverhead output array.
func (p *Profile) AddOverheadSample(s OverheadSample) {
	p.overhead = append(p.overhead, s)
}

func (p *Profile) OverheadSamples() []OverheadSample { return p.overhead }
