// Package flamegraph aggregates reconstructed call paths into a call tree and
// renders it as an SVG flame graph.
package flamegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/danpilch/pidflame/pkg/callpath"
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/danpilch/pidflame/pkg/sampler"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// CaptureOptions configures a flame graph capture session.
type CaptureOptions struct {
	Probe    probe.Options
	Sampling sampler.Options
	Metrics  *sampler.Metrics     // optional
	Trace    func(probe.RawEvent) // optional, sees every decoded event
}

// DefaultCaptureOptions returns sensible defaults.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Probe:    probe.DefaultOptions(),
		Sampling: sampler.DefaultOptions(),
	}
}

// CaptureResult holds the result of a capture.
type CaptureResult struct {
	Tree     *Tree
	Sampling sampler.Stats
	Paths    callpath.Stats
}

// Capture attaches the probes to the target and samples for the configured
// window. Setup failures return no result. If sampling fails after at least
// one completed poll pass, the partial result is returned with the error.
func Capture(ctx context.Context, opts CaptureOptions, logger *logrus.Logger) (*CaptureResult, error) {
	session, err := probe.Open(opts.Probe, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up probes: %w", err)
	}

	res, err := Collect(ctx, session.Reader(), opts, logger)
	if cerr := session.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("detaching probes: %w", cerr))
	}
	return res, err
}

// Collect runs the sampling loop over reader and aggregates what it reads.
func Collect(ctx context.Context, reader sampler.Reader, opts CaptureOptions, logger *logrus.Logger) (*CaptureResult, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	tree := NewTree()
	rec := callpath.NewReconstructor(tree, logger)
	handle := rec.Handle
	if opts.Trace != nil {
		handle = func(ev probe.RawEvent) {
			opts.Trace(ev)
			rec.Handle(ev)
		}
	}

	start := time.Now()
	stats, err := sampler.New(reader, opts.Sampling, opts.Metrics, logger).Run(ctx, handle)
	rec.Discard()

	res := &CaptureResult{
		Tree:     tree,
		Sampling: stats,
		Paths:    rec.Stats(),
	}
	logger.WithFields(logrus.Fields{
		"elapsed":   time.Since(start),
		"passes":    stats.Passes,
		"records":   stats.Records,
		"completed": res.Paths.Completed,
		"discarded": res.Paths.Discarded,
	}).Info("Sampling finished")

	if err != nil {
		if stats.Passes == 0 {
			return nil, err
		}
		return res, fmt.Errorf("sampling aborted after %d passes: %w", stats.Passes, err)
	}
	return res, nil
}
