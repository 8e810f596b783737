// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"encoding/json"
	"sort"
	"time"
)

const profileVersion = 1

// Serialize renders the Profile into the Firefox Profiler's external
// JSON document format. It never mutates the Profile; Finish() (in
// the convert package) is the last mutating step.
func (p *Profile) Serialize() ([]byte, error) {
	return json.Marshal(p.document())
}

type jsonDocument struct {
	Meta             jsonMeta         `json:"meta"`
	Libs             []jsonLib        `json:"libs"`
	Threads          []jsonThread     `json:"threads"`
	Pages            []jsonPage       `json:"pages"`
	ProfilerOverhead []jsonOverhead   `json:"profilerOverhead"`
	Counters         []jsonCounter    `json:"counters"`
}

type jsonMeta struct {
	Product         string            `json:"product"`
	Interval        float64           `json:"interval"` // ms
	StartTime       float64           `json:"startTime"` // ms since Unix epoch
	Categories      []jsonCategory    `json:"categories"`
	SampleUnits     jsonSampleUnits   `json:"sampleUnits"`
	MarkerSchema    []MarkerSchema    `json:"markerSchema"`
	Version         int               `json:"version"`
	OSName          string            `json:"oscpu,omitempty"`
}

type jsonSampleUnits struct {
	Time           string `json:"time"`
	EventDelay     string `json:"eventDelay"`
	ThreadCPUDelta string `json:"threadCPUDelta"`
}

type jsonCategory struct {
	Name          string   `json:"name"`
	Color         string   `json:"color"`
	Subcategories []string `json:"subcategories"`
}

type jsonLib struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	DebugName  string `json:"debugName"`
	DebugPath  string `json:"debugPath"`
	BreakpadID string `json:"breakpadId"`
	CodeID     string `json:"codeId"`
	Arch       string `json:"arch"`
}

type jsonPage struct{}

type jsonOverhead struct {
	Timestamp  float64 `json:"timestamp"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
}

type jsonCounter struct {
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Pid         int       `json:"pid"`
	Samples     jsonTable `json:"samples"`
}

type jsonThread struct {
	Pid            int           `json:"pid"`
	Tid            int           `json:"tid"`
	Name           string        `json:"name"`
	IsMainThread   bool           `json:"isMainThread"`
	RegisterTime   float64       `json:"registerTime"`
	UnregisterTime *float64      `json:"unregisterTime"`
	FrameTable     jsonTable     `json:"frameTable"`
	FuncTable      jsonTable     `json:"funcTable"`
	StackTable     jsonTable     `json:"stackTable"`
	SampleTable    jsonTable     `json:"samples"`
	MarkerTable    jsonTable     `json:"markers"`
	ResourceTable  jsonTable     `json:"resourceTable"`
	StringArray    []string      `json:"stringArray"`
}

// jsonTable is a columnar table: a schema (field names, in column
// order) plus the row data, one slice per field. This mirrors the
// Firefox Profiler format's "table of arrays" encoding and is how every
// per-thread table (frame/func/stack/sample/marker/resource) is
// rendered.
type jsonTable struct {
	Length int                        `json:"length"`
	Data   map[string]json.RawMessage `json:"-"`
}

func (t jsonTable) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(t.Data)+1)
	out["length"] = t.Length
	for k, v := range t.Data {
		out[k] = v
	}
	return json.Marshal(out)
}

func col(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // only ever called with marshalable slices built below
	}
	return b
}

func (p *Profile) document() jsonDocument {
	doc := jsonDocument{
		Meta: jsonMeta{
			Product:   p.Product,
			Interval:  time.Duration(p.Interval).Seconds() * 1000,
			StartTime: float64(p.Reference),
			SampleUnits: jsonSampleUnits{
				Time: "ms", EventDelay: "ms", ThreadCPUDelta: "µs",
			},
			MarkerSchema: p.MarkerSchemas(),
			Version:      profileVersion,
			OSName:       p.OSName,
		},
		Pages:            []jsonPage{},
		ProfilerOverhead: make([]jsonOverhead, 0, len(p.overhead)),
		Counters:         make([]jsonCounter, 0, len(p.counters)),
	}
	for _, c := range p.categories {
		doc.Meta.Categories = append(doc.Meta.Categories, jsonCategory{
			Name: c.Name, Color: string(c.Color), Subcategories: append([]string(nil), c.Subcategories...),
		})
	}
	for _, idx := range p.libs.libs {
		doc.Libs = append(doc.Libs, jsonLib{
			Name: idx.Name, Path: idx.Path, DebugName: idx.DebugName, DebugPath: idx.DebugPath,
			BreakpadID: idx.BreakpadID(), CodeID: idx.CodeID, Arch: idx.Arch,
		})
	}
	for _, o := range p.overhead {
		doc.ProfilerOverhead = append(doc.ProfilerOverhead, jsonOverhead{
			Timestamp: nsToMs(int64(o.Timestamp)), CPUPercent: o.CPUPercent, RSSBytes: o.RSSBytes,
		})
	}
	for _, c := range p.counters {
		ts, vals := c.Samples()
		doc.Counters = append(doc.Counters, jsonCounter{
			Name: c.Name, Category: c.Category, Description: c.Description, Pid: p.processes[c.Owner].PID,
			Samples: jsonTable{
				Length: len(ts),
				Data: map[string]json.RawMessage{
					"time":  col(msColumn(ts)),
					"count": col(vals),
				},
			},
		})
	}

	for _, th := range p.orderedThreads() {
		doc.Threads = append(doc.Threads, p.threadDocument(th))
	}
	return doc
}

func nsToMs(ns int64) float64 { return float64(ns) / 1e6 }

func msColumn(ts []Timestamp) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = nsToMs(int64(t))
	}
	return out
}

// orderedThreads returns threads sorted: by owning process
// start-time ascending then pid ascending, then within a process by
// thread start-time ascending, then name (lexicographic, None last),
// then tid ascending.
func (p *Profile) orderedThreads() []*Thread {
	out := append([]*Thread(nil), p.threads...)
	procOf := func(t *Thread) *Process { return p.processes[t.Owner] }
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := procOf(out[i]), procOf(out[j])
		if pi.StartTime != pj.StartTime {
			return pi.StartTime < pj.StartTime
		}
		if pi.PID != pj.PID {
			return pi.PID < pj.PID
		}
		ti, tj := out[i], out[j]
		if ti.StartTime != tj.StartTime {
			return ti.StartTime < tj.StartTime
		}
		if (ti.Name == "") != (tj.Name == "") {
			return ti.Name != "" // non-empty name sorts before empty ("None last")
		}
		if ti.Name != tj.Name {
			return ti.Name < tj.Name
		}
		return ti.TID < tj.TID
	})
	return out
}

func (p *Profile) threadDocument(t *Thread) jsonThread {
	jt := jsonThread{
		Pid:          p.processes[t.Owner].PID,
		Tid:          t.TID,
		Name:         t.Name,
		IsMainThread: t.IsMain,
		RegisterTime: nsToMs(int64(t.StartTime)),
		StringArray:  append([]string(nil), t.strTable.strings...),
	}
	if t.HasEnd {
		v := nsToMs(int64(t.EndTime))
		jt.UnregisterTime = &v
	}
	jt.FrameTable = frameTableJSON(t)
	jt.FuncTable = funcTableJSON(p, t)
	jt.StackTable = stackTableJSON(t)
	jt.SampleTable = sampleTableJSON(t)
	jt.MarkerTable = markerTableJSON(t)
	jt.ResourceTable = resourceTableJSON(t)
	return jt
}

func frameTableJSON(t *Thread) jsonTable {
	n := len(t.frames.frames)
	addr := make([]int64, n)
	category := make([]CategoryHandle, n)
	subcategory := make([]int, n)
	funcIdx := make([]int, n)
	for i, f := range t.frames.frames {
		switch f.Location.Kind {
		case LocAddressInLib:
			addr[i] = int64(f.Location.RelativeAddress)
		default:
			addr[i] = -1
		}
		category[i] = f.Category.Category
		subcategory[i] = f.Category.Subcategory
		funcIdx[i] = i // one function per frame, }
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"address":     col(addr),
		"category":    col(category),
		"subcategory": col(subcategory),
		"func":        col(funcIdx),
	}}
}

func funcTableJSON(p *Profile, t *Thread) jsonTable {
	n := len(t.frames.frames)
	name := make([]ThreadStringIndex, n)
	isJS := make([]bool, n)
	resource := make([]int, n)
	for i, f := range t.frames.frames {
		name[i] = t.InternLocalString(FuncNameFor(p, t, f))
		if f.Location.Kind == LocAddressInLib {
			resource[i] = int(t.ResourceForLib(f.Location.Lib))
		} else {
			resource[i] = -1
		}
	}
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"name":     col(name),
		"isJS":     col(isJS),
		"resource": col(resource),
	}}
}

func stackTableJSON(t *Thread) jsonTable {
	n := t.stacks.Len()
	prefix := make([]interface{}, n)
	frame := make([]FrameIndex, n)
	category := make([]CategoryHandle, n)
	subcategory := make([]int, n)
	for i := 0; i < n; i++ {
		e := t.stacks.entries[i]
		if e.Prefix == NoStack {
			prefix[i] = nil
		} else {
			prefix[i] = e.Prefix
		}
		frame[i] = e.Frame
		category[i] = e.Category.Category
		subcategory[i] = e.Category.Subcategory
	}
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"prefix":      col(prefix),
		"frame":       col(frame),
		"category":    col(category),
		"subcategory": col(subcategory),
	}}
}

func sampleTableJSON(t *Thread) jsonTable {
	ts, stacks, cpu, weight := t.Samples()
	n := len(ts)
	stackCol := make([]interface{}, n)
	cpuCol := make([]int64, n)
	for i := range ts {
		if stacks[i] == NoStack {
			stackCol[i] = nil
		} else {
			stackCol[i] = stacks[i]
		}
		cpuCol[i] = cpu[i].Micros()
	}
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"time":           col(msColumn(ts)),
		"stack":          col(stackCol),
		"threadCPUDelta": col(cpuCol),
		"weight":         col(weight),
	}}
}

func markerTableJSON(t *Thread) jsonTable {
	ms := t.Markers()
	n := len(ms)
	name := make([]ThreadStringIndex, n)
	startTime := make([]interface{}, n)
	endTime := make([]interface{}, n)
	phase := make([]int, n)
	category := make([]CategoryHandle, n)
	data := make([]map[string]interface{}, n)
	stack := make([]interface{}, n)
	for i, m := range ms {
		name[i] = m.Name
		category[i] = m.Category.Category
		data[i] = m.Payload
		if m.Stack == NoStack {
			stack[i] = nil
		} else {
			stack[i] = m.Stack
		}
		switch m.Timing.Kind {
		case TimingInstant:
			startTime[i] = nsToMs(int64(m.Timing.Start))
			endTime[i] = nil
			phase[i] = 0
		case TimingInterval:
			startTime[i] = nsToMs(int64(m.Timing.Start))
			endTime[i] = nsToMs(int64(m.Timing.End))
			phase[i] = 1
		case TimingIntervalStart:
			startTime[i] = nsToMs(int64(m.Timing.Start))
			endTime[i] = nil
			phase[i] = 2
		case TimingIntervalEnd:
			startTime[i] = nil
			endTime[i] = nsToMs(int64(m.Timing.End))
			phase[i] = 3
		}
	}
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"name":      col(name),
		"startTime": col(startTime),
		"endTime":   col(endTime),
		"phase":     col(phase),
		"category":  col(category),
		"data":      col(data),
		"stack":     col(stack),
	}}
}

func resourceTableJSON(t *Thread) jsonTable {
	rs := t.Resources()
	n := len(rs)
	name := make([]ThreadStringIndex, n)
	lib := make([]GlobalLibIndex, n)
	for i, r := range rs {
		name[i] = r.Name
		lib[i] = r.Lib
	}
	return jsonTable{Length: n, Data: map[string]json.RawMessage{
		"name": col(name),
		"lib":  col(lib),
	}}
}
