package flamegraph

import (
	"io"

	"github.com/google/pprof/profile"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/writer"
)

// ThreadLabel is the sample label holding the flame graph name.
const ThreadLabel = "thread"

// ProfileBuilder converts flame graphs into a pprof profile. Every frame with
// self time becomes one sample whose stack is the path to the frame.
type ProfileBuilder struct {
	prof      *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
}

// NewProfileBuilder creates a builder whose self time values are in unit.
func NewProfileBuilder(unit string) *ProfileBuilder {
	if unit == "" {
		unit = "nanoseconds"
	}
	return &ProfileBuilder{
		prof: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "self", Unit: unit},
				{Type: "calls", Unit: "count"},
			},
			DefaultSampleType: "self",
			PeriodType:        &profile.ValueType{Type: "self", Unit: unit},
			Period:            1,
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
	}
}

// Add appends the samples of one flame graph, labelled with its name.
func (b *ProfileBuilder) Add(fg *FlameGraph) error {
	b.prof.DurationNanos += fg.TotalValue
	return fg.Walk(func(stack []string, node *Node) error {
		if node.Self <= 0 {
			return nil
		}
		// pprof stacks are leaf first.
		locs := make([]*profile.Location, len(stack))
		for i, name := range stack {
			locs[len(stack)-1-i] = b.location(name)
		}
		b.prof.Sample = append(b.prof.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{node.Self, node.Calls},
			Label:    map[string][]string{ThreadLabel: {fg.Name}},
		})
		return nil
	})
}

func (b *ProfileBuilder) location(name string) *profile.Location {
	if loc, ok := b.locations[name]; ok {
		return loc
	}
	fn, ok := b.functions[name]
	if !ok {
		fn = &profile.Function{
			ID:         uint64(len(b.prof.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		b.functions[name] = fn
		b.prof.Function = append(b.prof.Function, fn)
	}
	loc := &profile.Location{
		ID:   uint64(len(b.prof.Location) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	b.locations[name] = loc
	b.prof.Location = append(b.prof.Location, loc)
	return loc
}

// Build returns the profile after checking it is well formed.
func (b *ProfileBuilder) Build() (*profile.Profile, error) {
	if err := b.prof.CheckValid(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeExportError, "invalid pprof profile", err)
	}
	return b.prof, nil
}

// PprofWriter writes flame graphs as a gzipped pprof protobuf.
type PprofWriter struct {
	Unit string
}

// NewPprofWriter creates a pprof writer with nanosecond values.
func NewPprofWriter() *PprofWriter {
	return &PprofWriter{Unit: "nanoseconds"}
}

// Write writes fg as a pprof profile.
func (w *PprofWriter) Write(fg *FlameGraph, out io.Writer) error {
	return w.WriteAll([]*FlameGraph{fg}, out)
}

// WriteAll writes several flame graphs into one profile, one label value per
// graph.
func (w *PprofWriter) WriteAll(graphs []*FlameGraph, out io.Writer) error {
	b := NewProfileBuilder(w.Unit)
	for _, fg := range graphs {
		if err := b.Add(fg); err != nil {
			return apperrors.Wrap(apperrors.CodeExportError, "failed to convert "+fg.Name+" to pprof", err)
		}
	}
	prof, err := b.Build()
	if err != nil {
		return err
	}
	if err := prof.Write(out); err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to write pprof profile", err)
	}
	return nil
}

// WriteToFile writes fg as a pprof profile to a file.
func (w *PprofWriter) WriteToFile(fg *FlameGraph, path string) error {
	return writer.ToFile[*FlameGraph](w, fg, path)
}

// WriteAllToFile writes several flame graphs into one profile file.
func (w *PprofWriter) WriteAllToFile(graphs []*FlameGraph, path string) error {
	return writer.WriteFile(path, func(out io.Writer) error { return w.WriteAll(graphs, out) })
}
