// Package samplertest provides a scripted stand-in for the perf reader.
package samplertest

import (
	"os"
	"sync"
	"time"

	"github.com/cilium/ebpf/perf"
	"github.com/danpilch/pidflame/pkg/probe"
)

// Result is one scripted outcome of Read.
type Result struct {
	Record perf.Record
	Err    error
}

// Event scripts a record carrying ev on the given CPU.
func Event(cpu int, ev probe.RawEvent) Result {
	raw, err := ev.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return Result{Record: perf.Record{CPU: cpu, RawSample: raw}}
}

// Lost scripts a lost-samples notification.
func Lost(cpu int, n uint64) Result {
	return Result{Record: perf.Record{CPU: cpu, LostSamples: n}}
}

// Raw scripts a record with arbitrary sample bytes.
func Raw(cpu int, b []byte) Result {
	return Result{Record: perf.Record{CPU: cpu, RawSample: b}}
}

// Timeout scripts an immediate deadline expiry.
func Timeout() Result {
	return Result{Err: os.ErrDeadlineExceeded}
}

// Fail scripts a read error.
func Fail(err error) Result {
	return Result{Err: err}
}

// Reader replays scripted results. Once the script is exhausted it blocks
// until the current deadline and reports os.ErrDeadlineExceeded, like an
// idle perf reader.
type Reader struct {
	mu        sync.Mutex
	script    []Result
	deadline  time.Time
	deadlines int
}

// NewReader returns a reader replaying results in order.
func NewReader(results ...Result) *Reader {
	return &Reader{script: results}
}

func (r *Reader) SetDeadline(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadline = t
	r.deadlines++
}

func (r *Reader) Read() (perf.Record, error) {
	r.mu.Lock()
	if len(r.script) > 0 {
		res := r.script[0]
		r.script = r.script[1:]
		r.mu.Unlock()
		return res.Record, res.Err
	}
	deadline := r.deadline
	r.mu.Unlock()

	if wait := time.Until(deadline); wait > 0 {
		time.Sleep(wait)
	}
	return perf.Record{}, os.ErrDeadlineExceeded
}

// Deadlines reports how many times SetDeadline was called.
func (r *Reader) Deadlines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deadlines
}

// Remaining reports how many scripted results have not been read.
func (r *Reader) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.script)
}
