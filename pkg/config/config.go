// Package config resolves spike-spy settings from defaults, a YAML file, the environment and the command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/srodi/spike-spy/pkg/frame"
	"github.com/srodi/spike-spy/pkg/report"
	"github.com/srodi/spike-spy/pkg/types"
)

const (
	DefaultPollInterval   = time.Second
	DefaultSpikeThreshold = 10.0
	DefaultUpdateInterval = 5 * time.Second

	ProviderPsutil = "psutil"
	ProviderProcfs = "procfs"
	ProviderSched  = "sched"
)

// ErrConflictingPolicy is returned when more than one ranking policy is selected.
var ErrConflictingPolicy = errors.New("expected at most one of --all, --over, or --top")

type Config struct {
	ConfigFile string `yaml:"-"`

	PollInterval   time.Duration `yaml:"poll_interval" validate:"gte=0"`
	SpikeThreshold float64       `yaml:"spike_threshold" validate:"gte=0,lte=100"`
	UpdateInterval time.Duration `yaml:"update_interval" validate:"gte=0"`
	NoUpdate       bool          `yaml:"no_update"`
	SuppressUpdate bool          `yaml:"suppress_update"`

	All  bool     `yaml:"all"`
	Over *float64 `yaml:"over" validate:"omitempty,gte=0,lte=100"`
	Top  *int     `yaml:"top" validate:"omitempty,gt=0"`

	NoiseFloor float64 `yaml:"noise_floor" validate:"gte=0"`

	Provider  string `yaml:"provider" validate:"oneof=psutil procfs sched"`
	BPFObject string `yaml:"bpf_object" validate:"required_if=Provider sched"`
	ProcRoot  string `yaml:"proc_root"`

	HideKernel bool   `yaml:"hide_kernel"`
	NameFilter string `yaml:"name_filter"`
	NoColor    bool   `yaml:"no_color"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		PollInterval:   DefaultPollInterval,
		SpikeThreshold: DefaultSpikeThreshold,
		UpdateInterval: DefaultUpdateInterval,
		NoiseFloor:     types.DefaultNoiseFloor,
		Provider:       ProviderPsutil,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load resolves the configuration for args (without the program name).
// Later sources win: defaults, YAML file, environment, flags, positional arguments.
func Load(args []string) (*Config, error) {
	// First pass only discovers --config and rejects malformed flags.
	first := Default()
	if _, err := parse(newFlagSet(first, &policyFlags{}), args); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.ConfigFile = first.ConfigFile
	loadDotEnv()
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = lookupEnv("CONFIG")
	}
	if cfg.ConfigFile != "" {
		if err := loadFile(cfg.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	var policy policyFlags
	fs := newFlagSet(cfg, &policy)
	fs.SetOutput(io.Discard)
	positional, err := parse(fs, args)
	if err != nil {
		return nil, err
	}
	policy.apply(cfg)
	if err := applyPositional(cfg, positional); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and the policy exclusivity rule.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Over != nil && c.Top != nil || c.All && (c.Over != nil || c.Top != nil) {
		return ErrConflictingPolicy
	}
	return nil
}

// Policy maps the selected display mode onto a ranking policy. --over is a percent of the peak delta.
func (c *Config) Policy() frame.Policy {
	switch {
	case c.Top != nil:
		return frame.TopNPolicy(*c.Top)
	case c.Over != nil:
		return frame.OverThresholdPolicy(*c.Over / 100)
	default:
		return frame.AllPolicy()
	}
}

// FrameUpdateInterval reports the periodic baseline refresh interval, if enabled.
func (c *Config) FrameUpdateInterval() (time.Duration, bool) {
	if c.NoUpdate {
		return 0, false
	}
	return c.UpdateInterval, true
}

// Filters returns the offender display filters.
func (c *Config) Filters() report.FilterConfig {
	return report.FilterConfig{HideKernel: c.HideKernel, NameFilter: c.NameFilter}
}

func (c *Config) String() string {
	return fmt.Sprintf("provider=%s interval=%v threshold=%.2f%% update=%v policy=%s",
		c.Provider, c.PollInterval, c.SpikeThreshold, c.UpdateInterval, c.Policy())
}
