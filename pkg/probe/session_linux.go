//go:build linux

package probe

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/perf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Session owns the loaded BPF collection, its attachments and the perf
// reader draining the per-CPU event buffers.
type Session struct {
	coll    *ebpf.Collection
	links   []link.Link
	perfFDs []int
	reader  *perf.Reader
	logger  *logrus.Logger
}

// CheckProcess reports whether pid names a live process.
func CheckProcess(pid int) error {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return nil
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	default:
		return fmt.Errorf("checking pid %d: %w", pid, err)
	}
}

// Open loads the BPF object, attaches it to the target and opens the perf
// reader. Any failure tears down what was set up so far.
func Open(opts Options, logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := CheckProcess(opts.PID); err != nil {
		return nil, err
	}

	// Allow the current process to lock memory for eBPF resources.
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("removing memlock limit: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(opts.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("loading BPF object %s: %w", opts.ObjectPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		var verr *ebpf.VerifierError
		if errors.As(err, &verr) {
			logger.Errorf("verifier rejected program:\n%+v", verr)
		}
		return nil, fmt.Errorf("loading BPF collection: %w", err)
	}

	s := &Session{coll: coll, logger: logger}
	if err := s.attach(opts); err != nil {
		return nil, multierr.Append(err, s.Close())
	}

	events, ok := coll.Maps[EventsMap]
	if !ok {
		return nil, multierr.Append(fmt.Errorf("BPF object has no %s map", EventsMap), s.Close())
	}
	s.reader, err = perf.NewReader(events, opts.PerfBufferPages*os.Getpagesize())
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("creating perf reader: %w", err), s.Close())
	}

	logger.WithFields(logrus.Fields{
		"pid":    opts.PID,
		"mode":   opts.Mode,
		"object": opts.ObjectPath,
	}).Info("Probes attached")
	return s, nil
}

func (s *Session) program(name string) (*ebpf.Program, error) {
	prog, ok := s.coll.Programs[name]
	if !ok {
		return nil, fmt.Errorf("BPF object has no program %q", name)
	}
	return prog, nil
}

func (s *Session) attach(opts Options) error {
	switch opts.Mode {
	case AttachUprobe:
		return s.attachUprobes(opts)
	default:
		return s.attachPerfEvent(opts)
	}
}

func (s *Session) attachPerfEvent(opts Options) error {
	prog, err := s.program(PerfProgram)
	if err != nil {
		return err
	}

	attr := unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_SOFTWARE,
		Config: unix.PERF_COUNT_SW_CPU_CLOCK,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Sample: uint64(opts.Frequency),
		Bits:   unix.PerfBitFreq | unix.PerfBitDisabled | unix.PerfBitInherit,
	}
	fd, err := unix.PerfEventOpen(&attr, opts.PID, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("opening cpu-clock perf event for pid %d: %w", opts.PID, err)
	}
	s.perfFDs = append(s.perfFDs, fd)

	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_SET_BPF, prog.FD()); err != nil {
		return fmt.Errorf("attaching %s to perf event: %w", PerfProgram, err)
	}
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		return fmt.Errorf("enabling perf event: %w", err)
	}
	return nil
}

func (s *Session) attachUprobes(opts Options) error {
	enter, err := s.program(EnterProgram)
	if err != nil {
		return err
	}
	exit, err := s.program(ExitProgram)
	if err != nil {
		return err
	}

	ex, err := link.OpenExecutable(opts.Binary)
	if err != nil {
		return fmt.Errorf("opening executable %s: %w", opts.Binary, err)
	}
	uopts := &link.UprobeOptions{PID: opts.PID}

	up, err := ex.Uprobe(opts.Symbol, enter, uopts)
	if err != nil {
		return fmt.Errorf("linking uprobe %s: %w", opts.Symbol, err)
	}
	s.links = append(s.links, up)

	uret, err := ex.Uretprobe(opts.Symbol, exit, uopts)
	if err != nil {
		return fmt.Errorf("linking uretprobe %s: %w", opts.Symbol, err)
	}
	s.links = append(s.links, uret)
	return nil
}

// Reader returns the perf reader over the per-CPU event buffers.
func (s *Session) Reader() *perf.Reader {
	return s.reader
}

// Close detaches all probes and releases the collection.
func (s *Session) Close() error {
	var err error
	if s.reader != nil {
		err = multierr.Append(err, s.reader.Close())
		s.reader = nil
	}
	for _, l := range s.links {
		err = multierr.Append(err, l.Close())
	}
	s.links = nil
	for _, fd := range s.perfFDs {
		_ = unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
		err = multierr.Append(err, unix.Close(fd))
	}
	s.perfFDs = nil
	if s.coll != nil {
		s.coll.Close()
		s.coll = nil
	}
	return err
}
