package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/danpilch/pidflame/pkg/config"
	"github.com/danpilch/pidflame/pkg/debug"
	"github.com/danpilch/pidflame/pkg/flamegraph"
	"github.com/danpilch/pidflame/pkg/output"
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/danpilch/pidflame/pkg/sampler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

var (
	rootCmd = &cobra.Command{
		Use:           "pidflame",
		Short:         "Generate a flame graph for a running process",
		Long:          "Attach eBPF probes to one process, sample its call paths for a fixed window and render them as an SVG flame graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	configPath string
)

func init() {
	po := probe.DefaultOptions()
	so := sampler.DefaultOptions()

	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, toml or json)")
	f.IntP("pid", "p", 0, "id of the process to trace")
	f.IntP("duration", "d", 10, "sampling window in seconds")
	f.StringP("output", "o", "flamegraph.svg", "path of the rendered SVG")
	f.String("object", po.ObjectPath, "path to the compiled eBPF object")
	f.String("mode", string(po.Mode), "attach mode, one of `perf` or `uprobe`")
	f.String("binary", "", "executable to attach uprobes to (uprobe mode)")
	f.String("symbol", "", "symbol to attach uprobes to (uprobe mode)")
	f.Int("frequency", po.Frequency, "perf event sampling frequency in Hz (perf mode)")
	f.Int("perf-buffer-pages", po.PerfBufferPages, "per-CPU perf buffer size in pages")
	f.Duration("poll-timeout", so.PollTimeout, "upper bound on a single poll pass")
	f.String("folded", "", "also write folded stacks to this path")
	f.String("pprof", "", "also write a gzipped pprof profile to this path")
	f.String("format", "table", "run summary format, one of `table` or `json`")
	f.StringP("log-level", "l", "info", "log level, one of `debug`, `info`, `warn`, `error`")
	f.String("debug-addr", "", "serve pprof and /metrics on this address while running")
	f.Bool("trace", false, "print every decoded probe event to stderr")
	f.Bool("dump-tree", false, "print the aggregated call tree to stderr")
	f.Bool("timing", false, "print phase timings to stderr")

	_ = rootCmd.MarkFlagFilename("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(viper.New(), cmd.Flags(), configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := cfg.CaptureOptions()
	opts.Metrics = sampler.NewMetrics(reg)
	if cfg.Trace {
		opts.Trace = debug.NewTraceLogger(os.Stderr).LogEvent
	}

	if cfg.DebugAddr != "" {
		shutdown, err := debug.StartServer(cfg.DebugAddr, reg)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	logger.WithFields(logrus.Fields{
		"pid":      cfg.PID,
		"mode":     cfg.Mode,
		"duration": cfg.Window(),
		"output":   cfg.Output,
	}).Info("starting capture")

	var (
		timer debug.Timer
		res   *flamegraph.CaptureResult
	)
	captureErr := timer.Time("capture", func() error {
		var err error
		res, err = flamegraph.Capture(ctx, opts, logger)
		return err
	})
	if res == nil {
		return captureErr
	}
	err = captureErr

	summary := output.Summary{
		PID:      uint32(cfg.PID),
		Window:   cfg.Window(),
		Sampling: res.Sampling,
		Paths:    res.Paths,
	}
	summary.Nodes, summary.Depth = res.Tree.Size()

	fs := afero.NewOsFs()
	renderErr := timer.Time("render", func() error {
		return render(fs, cfg, res, &summary)
	})
	err = multierr.Append(err, renderErr)

	if cfg.DumpTree {
		debug.DumpTree(os.Stderr, res.Tree, flamegraph.DefaultCanvas().MaxDepth())
	}
	if cfg.Timing {
		debug.TimingReport(os.Stderr, timer.Timings)
	}

	if err != nil {
		summary.Error = err.Error()
	}
	if ferr := output.NewFormatter(output.Format(cfg.Format), os.Stdout).Render(summary); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("writing summary: %w", ferr))
	}
	return err
}

// render writes the SVG and any requested exports. Each file is replaced
// atomically; a failed write leaves the previous contents in place.
func render(fs afero.Fs, cfg config.Config, res *flamegraph.CaptureResult, summary *output.Summary) error {
	err := flamegraph.WriteFileAtomic(fs, cfg.Output, func(w io.Writer) error {
		n, err := flamegraph.GenerateSVG(res.Tree, w, flamegraph.DefaultSVGOptions())
		summary.Rects = n
		return err
	})
	if err != nil {
		return fmt.Errorf("writing flame graph: %w", err)
	}
	summary.Output = cfg.Output
	if fi, err := fs.Stat(cfg.Output); err == nil {
		summary.Bytes = fi.Size()
	}

	if cfg.Folded != "" {
		if err := flamegraph.WriteFileAtomic(fs, cfg.Folded, func(w io.Writer) error {
			return flamegraph.WriteFolded(w, res.Tree)
		}); err != nil {
			return fmt.Errorf("writing folded stacks: %w", err)
		}
	}
	if cfg.Pprof != "" {
		if err := flamegraph.WriteFileAtomic(fs, cfg.Pprof, func(w io.Writer) error {
			return flamegraph.WritePprof(w, res.Tree, cfg.Window())
		}); err != nil {
			return fmt.Errorf("writing pprof profile: %w", err)
		}
	}
	return nil
}
