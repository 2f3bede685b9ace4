// Package probe decodes function enter/exit events emitted by the kernel-side
// probe program and manages the BPF session that produces them.
package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// EventKind tells whether a probe fired on function entry or exit.
type EventKind uint8

const (
	Enter EventKind = 0
	Exit  EventKind = 1
)

func (k EventKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// MaxNameLen is the size of the fixed name buffer in a kernel record.
const MaxNameLen = 64

// RecordSize is the size in bytes of one kernel record.
const RecordSize = 96

// ErrShortRecord is returned when a perf sample cannot hold a full record.
var ErrShortRecord = errors.New("probe: short record")

// RawEvent is one decoded probe observation.
type RawEvent struct {
	PID       uint32
	PathID    uint64 // call-path identifier, only meaningful within one run
	Timestamp uint64 // monotonic nanoseconds
	Kind      EventKind
	Name      string
}

// wireEvent mirrors the C layout of the producer's record, padding included.
type wireEvent struct {
	Pid       uint32
	_         [4]byte
	StackID   uint64
	Timestamp uint64
	EventType uint8
	DataLen   uint8
	Data      [MaxNameLen]byte
	_         [6]byte
}

// DecodeRawEvent decodes one kernel record. Trailing bytes past RecordSize
// are ignored. The name is truncated at MaxNameLen and invalid UTF-8 is
// replaced rather than rejected.
func DecodeRawEvent(b []byte) (RawEvent, error) {
	if len(b) < RecordSize {
		return RawEvent{}, fmt.Errorf("%w: %d bytes, want %d", ErrShortRecord, len(b), RecordSize)
	}

	var w wireEvent
	if err := binary.Read(bytes.NewReader(b[:RecordSize]), binary.NativeEndian, &w); err != nil {
		return RawEvent{}, fmt.Errorf("decoding record: %w", err)
	}

	n := int(w.DataLen)
	if n > MaxNameLen {
		n = MaxNameLen
	}

	return RawEvent{
		PID:       w.Pid,
		PathID:    w.StackID,
		Timestamp: w.Timestamp,
		Kind:      EventKind(w.EventType),
		Name:      strings.ToValidUTF8(string(w.Data[:n]), "\uFFFD"),
	}, nil
}

// MarshalBinary encodes the event in the kernel record layout. Names longer
// than MaxNameLen are truncated.
func (e RawEvent) MarshalBinary() ([]byte, error) {
	w := wireEvent{
		Pid:       e.PID,
		StackID:   e.PathID,
		Timestamp: e.Timestamp,
		EventType: uint8(e.Kind),
	}
	w.DataLen = uint8(copy(w.Data[:], e.Name))

	var buf bytes.Buffer
	buf.Grow(RecordSize)
	if err := binary.Write(&buf, binary.NativeEndian, &w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
