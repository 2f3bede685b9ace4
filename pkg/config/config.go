// Package config loads pidflame settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danpilch/pidflame/pkg/flamegraph"
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/danpilch/pidflame/pkg/sampler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PIDFLAME_DURATION.
const EnvPrefix = "PIDFLAME"

var ErrMissingPID = errors.New("a target pid is required")

// Config is the resolved run configuration.
type Config struct {
	PID             int           `mapstructure:"pid"`
	Duration        int           `mapstructure:"duration"` // seconds
	Output          string        `mapstructure:"output"`
	Object          string        `mapstructure:"object"`
	Mode            string        `mapstructure:"mode"`
	Binary          string        `mapstructure:"binary"`
	Symbol          string        `mapstructure:"symbol"`
	Frequency       int           `mapstructure:"frequency"`
	PerfBufferPages int           `mapstructure:"perf-buffer-pages"`
	PollTimeout     time.Duration `mapstructure:"poll-timeout"`
	Folded          string        `mapstructure:"folded"`
	Pprof           string        `mapstructure:"pprof"`
	Format          string        `mapstructure:"format"`
	LogLevel        string        `mapstructure:"log-level"`
	DebugAddr       string        `mapstructure:"debug-addr"`
	Trace           bool          `mapstructure:"trace"`
	DumpTree        bool          `mapstructure:"dump-tree"`
	Timing          bool          `mapstructure:"timing"`
}

// SetDefaults registers the default value of every setting.
func SetDefaults(v *viper.Viper) {
	po := probe.DefaultOptions()
	so := sampler.DefaultOptions()

	v.SetDefault("duration", int(so.Duration/time.Second))
	v.SetDefault("output", "flamegraph.svg")
	v.SetDefault("object", po.ObjectPath)
	v.SetDefault("mode", string(po.Mode))
	v.SetDefault("frequency", po.Frequency)
	v.SetDefault("perf-buffer-pages", po.PerfBufferPages)
	v.SetDefault("poll-timeout", so.PollTimeout)
	v.SetDefault("format", "table")
	v.SetDefault("log-level", "info")
}

// Load resolves the configuration. Precedence, highest first: flags set on
// the command line, PIDFLAME_* environment variables, the config file, then
// defaults. flags may be nil and configFile may be empty.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings needed before any probe is attached.
func (c Config) Validate() error {
	if c.PID <= 0 {
		return ErrMissingPID
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %d", c.Duration)
	}
	if c.Output == "" {
		return errors.New("output path must not be empty")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.PollTimeout)
	}
	switch c.Format {
	case "table", "json":
	default:
		return fmt.Errorf("unknown summary format %q", c.Format)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return c.ProbeOptions().Validate()
}

// Window returns the sampling window.
func (c Config) Window() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

// ProbeOptions maps the config onto the probe session options.
func (c Config) ProbeOptions() probe.Options {
	return probe.Options{
		PID:             c.PID,
		ObjectPath:      c.Object,
		Mode:            probe.AttachMode(c.Mode),
		Binary:          c.Binary,
		Symbol:          c.Symbol,
		Frequency:       c.Frequency,
		PerfBufferPages: c.PerfBufferPages,
	}
}

// CaptureOptions maps the config onto a capture session.
func (c Config) CaptureOptions() flamegraph.CaptureOptions {
	return flamegraph.CaptureOptions{
		Probe: c.ProbeOptions(),
		Sampling: sampler.Options{
			Duration:    c.Window(),
			PollTimeout: c.PollTimeout,
		},
	}
}
