package flamegraph

import (
	"io"
	"time"

	"github.com/google/pprof/profile"
)

// BuildProfile converts the tree into a wall-time pprof profile with one
// sample per node that has positive self time. Stacks are leaf first.
func BuildProfile(t *Tree, window time.Duration) *profile.Profile {
	p := &profile.Profile{
		SampleType:    []*profile.ValueType{{Type: "wall", Unit: "nanoseconds"}},
		PeriodType:    &profile.ValueType{Type: "wall", Unit: "nanoseconds"},
		Period:        1,
		DurationNanos: window.Nanoseconds(),
	}

	locations := make(map[string]*profile.Location)
	location := func(name string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		id := uint64(len(locations) + 1)
		fn := &profile.Function{ID: id, Name: name, SystemName: name}
		loc := &profile.Location{ID: id, Line: []profile.Line{{Function: fn}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		locations[name] = loc
		return loc
	}

	t.Walk(func(path []string, n *Node, _ int) bool {
		self := SelfTime(n)
		if self == 0 {
			return true
		}
		stack := make([]*profile.Location, len(path))
		for i, name := range path {
			stack[len(path)-1-i] = location(name)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: stack,
			Value:    []int64{int64(self)},
		})
		return true
	})
	return p
}

// WritePprof writes the tree as a gzipped pprof profile.
func WritePprof(w io.Writer, t *Tree, window time.Duration) error {
	return BuildProfile(t, window).Write(w)
}
