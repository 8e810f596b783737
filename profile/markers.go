// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// MarkerTimingKind discriminates the four timing variants markers can
// carry.
type MarkerTimingKind int

const (
	TimingInstant MarkerTimingKind = iota
	TimingInterval
	TimingIntervalStart
	TimingIntervalEnd
)

// MarkerTiming is when (and for how long) a marker applies.
type MarkerTiming struct {
	Kind  MarkerTimingKind
	Start Timestamp // valid for Instant, Interval, IntervalStart
	End   Timestamp // valid for Interval, IntervalEnd
}

func Instant(t Timestamp) MarkerTiming          { return MarkerTiming{Kind: TimingInstant, Start: t} }
func Interval(start, end Timestamp) MarkerTiming {
	return MarkerTiming{Kind: TimingInterval, Start: start, End: end}
}
func IntervalStart(t Timestamp) MarkerTiming { return MarkerTiming{Kind: TimingIntervalStart, Start: t} }
func IntervalEnd(t Timestamp) MarkerTiming   { return MarkerTiming{Kind: TimingIntervalEnd, End: t} }

// MarkerFieldFormat is the display hint for one field of a marker
// schema, mirroring the upstream Firefox Profiler marker schema format.
type MarkerFieldFormat string

const (
	FieldString       MarkerFieldFormat = "string"
	FieldDuration     MarkerFieldFormat = "duration"
	FieldTime         MarkerFieldFormat = "time"
	FieldMilliseconds MarkerFieldFormat = "milliseconds"
	FieldURL          MarkerFieldFormat = "url"
	FieldFilePath     MarkerFieldFormat = "file-path"
	FieldInteger      MarkerFieldFormat = "integer"
)

// MarkerSchemaField describes one field of a marker's payload.
type MarkerSchemaField struct {
	Key    string
	Label  string
	Format MarkerFieldFormat
}

// MarkerSchema is registered once per marker type name, on first use,
// and surfaces in meta.markerSchema.
type MarkerSchema struct {
	Name        string
	DisplayName string
	Fields      []MarkerSchemaField
	// TableLabel and ChartLabel are display templates referencing
	// Fields by `{key}`; left blank here, visualizer-side concern.
	TableLabel string
	ChartLabel string
}

// RegisterMarkerSchema records schema under its Name if not already
// present. Re-registering the same name is a no-op: schemas are
// registered on first use of each marker type, and the first
// registration wins.
func (p *Profile) RegisterMarkerSchema(schema MarkerSchema) {
	if _, ok := p.markerSchemas[schema.Name]; ok {
		return
	}
	p.markerSchemas[schema.Name] = schema
	p.schemaOrder = append(p.schemaOrder, schema.Name)
}

func (p *Profile) MarkerSchemas() []MarkerSchema {
	out := make([]MarkerSchema, 0, len(p.schemaOrder))
	for _, name := range p.schemaOrder {
		out = append(out, p.markerSchemas[name])
	}
	return out
}

// Marker is one thread-local marker entry.
type Marker struct {
	Name     ThreadStringIndex
	Timing   MarkerTiming
	Category CategoryPair
	Payload  map[string]interface{} // JSON-serializable payload
	Stack    StackIndex              // NoStack if not attached to a stack
}

type markerTable struct {
	markers []Marker
}

// AddMarker appends a marker to this thread's local marker table
//.
func (t *Thread) AddMarker(name StringHandle, timing MarkerTiming, cat CategoryPair, payload map[string]interface{}, stack StackIndex) {
	localName := t.InternString(name)
	t.markers.markers = append(t.markers.markers, Marker{
		Name:     localName,
		Timing:   timing,
		Category: cat,
		Payload:  payload,
		Stack:    stack,
	})
}

func (t *Thread) Markers() []Marker { return t.markers.markers }
