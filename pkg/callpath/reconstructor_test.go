package callpath

import (
	"testing"

	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	names      []string
	start, end uint64
}

type recordingSink struct {
	records []record
}

func (s *recordingSink) Insert(names []string, start, end uint64) {
	s.records = append(s.records, record{names: names, start: start, end: end})
}

func enter(id uint64, name string, ts uint64) probe.RawEvent {
	return probe.RawEvent{PathID: id, Name: name, Timestamp: ts, Kind: probe.Enter}
}

func exit(id uint64, ts uint64) probe.RawEvent {
	return probe.RawEvent{PathID: id, Timestamp: ts, Kind: probe.Exit}
}

func TestReconstructorPairsEnterExit(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(enter(1, "a", 0))
	r.Handle(enter(1, "b", 1))
	assert.Equal(t, 1, r.OpenPaths())
	r.Handle(exit(1, 10))

	require.Len(t, sink.records, 1)
	assert.Equal(t, []string{"a", "a", "b"}, sink.records[0].names)
	assert.Equal(t, uint64(0), sink.records[0].start)
	assert.Equal(t, uint64(10), sink.records[0].end)
	assert.Zero(t, r.OpenPaths())
	assert.Equal(t, 1, r.Stats().Completed)
}

func TestReconstructorStrayExit(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(exit(99, 5))

	assert.Empty(t, sink.records)
	assert.Equal(t, 1, r.Stats().StrayExits)
}

func TestReconstructorInterleavedPaths(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(enter(1, "main", 0))
	r.Handle(enter(2, "worker", 2))
	r.Handle(enter(1, "parse", 3))
	r.Handle(exit(2, 6))
	r.Handle(exit(1, 8))

	require.Len(t, sink.records, 2)
	assert.Equal(t, []string{"worker", "worker"}, sink.records[0].names)
	assert.Equal(t, []string{"main", "main", "parse"}, sink.records[1].names)
}

func TestReconstructorIdentifierReuse(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(enter(1, "a", 0))
	r.Handle(exit(1, 4))
	r.Handle(enter(1, "b", 5))
	r.Handle(exit(1, 7))

	require.Len(t, sink.records, 2)
	assert.Equal(t, []string{"b", "b"}, sink.records[1].names)
	assert.Equal(t, uint64(5), sink.records[1].start)
}

func TestReconstructorDropsUnexpected(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(probe.RawEvent{PathID: 1, Name: "a", Kind: probe.EventKind(3)})
	r.Handle(enter(2, "", 0))

	assert.Zero(t, r.OpenPaths())
	assert.Equal(t, 2, r.Stats().Dropped)
	assert.Empty(t, sink.records)
}

func TestReconstructorDiscard(t *testing.T) {
	sink := &recordingSink{}
	r := NewReconstructor(sink, nil)

	r.Handle(enter(1, "a", 0))
	r.Handle(enter(2, "b", 0))

	assert.Equal(t, 2, r.Discard())
	assert.Zero(t, r.OpenPaths())
	assert.Equal(t, 2, r.Stats().Discarded)

	// An exit arriving after the discard is stray.
	r.Handle(exit(1, 3))
	assert.Empty(t, sink.records)
	assert.Equal(t, 1, r.Stats().StrayExits)
}
