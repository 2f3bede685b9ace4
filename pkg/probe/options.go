package probe

import (
	"errors"
	"fmt"
)

// AttachMode selects how the probe program is hooked to the target.
type AttachMode string

const (
	// AttachPerf attaches the program to a cpu-clock software perf event
	// scoped to the target pid.
	AttachPerf AttachMode = "perf"
	// AttachUprobe attaches entry and return programs to a symbol of the
	// target's executable.
	AttachUprobe AttachMode = "uprobe"
)

// Program and map names expected in the BPF object.
const (
	PerfProgram  = "trace_function"
	EnterProgram = "trace_enter"
	ExitProgram  = "trace_exit"
	EventsMap    = "EVENTS"
)

var (
	ErrNotLinux        = errors.New("probe: BPF probes require a Linux kernel")
	ErrProcessNotFound = errors.New("probe: target process not found")
)

// Options configures a probe session.
type Options struct {
	PID             int
	ObjectPath      string // pre-compiled BPF object
	Mode            AttachMode
	Binary          string // uprobe mode only
	Symbol          string // uprobe mode only
	Frequency       int    // perf mode sampling frequency in Hz
	PerfBufferPages int    // per-CPU ring size in pages
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ObjectPath:      "pidflame.bpf.o",
		Mode:            AttachPerf,
		Frequency:       99,
		PerfBufferPages: 64,
	}
}

// Validate reports option combinations that cannot be attached.
func (o Options) Validate() error {
	if o.PID <= 0 {
		return fmt.Errorf("probe: invalid pid %d", o.PID)
	}
	if o.ObjectPath == "" {
		return errors.New("probe: no BPF object path")
	}
	if o.PerfBufferPages <= 0 {
		return fmt.Errorf("probe: invalid perf buffer size %d pages", o.PerfBufferPages)
	}
	switch o.Mode {
	case AttachPerf:
		if o.Frequency <= 0 {
			return fmt.Errorf("probe: invalid sampling frequency %d", o.Frequency)
		}
	case AttachUprobe:
		if o.Binary == "" || o.Symbol == "" {
			return errors.New("probe: uprobe mode needs a binary and a symbol")
		}
	default:
		return fmt.Errorf("probe: unknown attach mode %q", o.Mode)
	}
	return nil
}
