// Package sampler drains probe events from the per-CPU perf buffers for the
// length of a sampling window.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cilium/ebpf/perf"
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/sirupsen/logrus"
)

// Reader is the subset of *perf.Reader the sampler needs. Read must return
// os.ErrDeadlineExceeded once the deadline passes with no record pending.
type Reader interface {
	SetDeadline(t time.Time)
	Read() (perf.Record, error)
}

// Options configures a sampling run.
type Options struct {
	Duration    time.Duration // sampling window
	PollTimeout time.Duration // upper bound on a single wait
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Duration:    10 * time.Second,
		PollTimeout: 100 * time.Millisecond,
	}
}

// Stats describes a finished run.
type Stats struct {
	Passes      int           `json:"passes"`
	Records     int           `json:"records"`
	Lost        uint64        `json:"lost"`
	Malformed   int           `json:"malformed"`
	Interrupted bool          `json:"interrupted"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Sampler runs the poll-and-drain loop. Events are handed to the handler on
// the calling goroutine, one buffer's records in the order they were read.
type Sampler struct {
	reader  Reader
	opts    Options
	metrics *Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

// New creates a sampler over reader. metrics may be nil.
func New(reader Reader, opts Options, metrics *Metrics, logger *logrus.Logger) *Sampler {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultOptions().PollTimeout
	}
	return &Sampler{
		reader:  reader,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run polls until the window elapses, ctx is cancelled or the reader is
// closed. A cancelled context or closed reader ends the run early without an
// error. A read failure ends the run with an error; Stats still reports the
// passes completed before it.
func (s *Sampler) Run(ctx context.Context, handle func(probe.RawEvent)) (stats Stats, err error) {
	start := s.now()
	deadline := start.Add(s.opts.Duration)
	defer func() { stats.Elapsed = s.now().Sub(start) }()

	s.logger.WithFields(logrus.Fields{
		"window": s.opts.Duration,
		"poll":   s.opts.PollTimeout,
	}).Debug("Sampling started")

	for {
		if ctx.Err() != nil {
			stats.Interrupted = true
			s.logger.Info("Sampling interrupted")
			return stats, nil
		}

		now := s.now()
		if !now.Before(deadline) {
			return stats, nil
		}
		pollEnd := now.Add(s.opts.PollTimeout)
		if pollEnd.After(deadline) {
			pollEnd = deadline
		}

		s.reader.SetDeadline(pollEnd)
		closed, err := s.drain(pollEnd, handle, &stats)
		if err != nil {
			return stats, err
		}
		stats.Passes++
		s.metrics.pass()
		if closed {
			stats.Interrupted = true
			s.logger.Info("Event reader closed, stopping")
			return stats, nil
		}
	}
}

// drain reads records until the poll deadline. Under a steady stream Read
// never times out, so the deadline is also checked between records.
func (s *Sampler) drain(pollEnd time.Time, handle func(probe.RawEvent), stats *Stats) (bool, error) {
	for {
		rec, err := s.reader.Read()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				return false, nil
			case errors.Is(err, perf.ErrClosed):
				return true, nil
			default:
				return false, fmt.Errorf("polling perf buffers: %w", err)
			}
		}

		if rec.LostSamples > 0 {
			stats.Lost += rec.LostSamples
			s.metrics.lost(rec.LostSamples)
			s.logger.WithFields(logrus.Fields{
				"cpu":  rec.CPU,
				"lost": rec.LostSamples,
			}).Warn("Perf buffer full, samples dropped")
		} else {
			ev, err := probe.DecodeRawEvent(rec.RawSample)
			if err != nil {
				stats.Malformed++
				s.metrics.malformed()
				s.logger.WithField("cpu", rec.CPU).WithError(err).Debug("Dropping malformed record")
			} else {
				stats.Records++
				s.metrics.record(ev.Kind)
				handle(ev)
			}
		}

		if !s.now().Before(pollEnd) {
			return false, nil
		}
	}
}
