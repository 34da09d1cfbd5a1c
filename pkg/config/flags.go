package config

import (
	"flag"
	"fmt"
	"strconv"
)

// policyFlags collects --all/--over/--top so a command line choice replaces the policy from lower layers.
type policyFlags struct {
	seen bool
	all  bool
	over *float64
	top  *int
}

func (p *policyFlags) apply(cfg *Config) {
	if !p.seen {
		return
	}
	cfg.All, cfg.Over, cfg.Top = p.all, p.over, p.top
}

// newFlagSet binds flags to cfg, using its current values as defaults so unset flags keep them.
func newFlagSet(cfg *Config, policy *policyFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("spikespy", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Monitors for CPU spikes.\n\nusage: spikespy [flags] [poll_interval_ms] [spike_threshold] [update_interval_ms]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file")
	fs.DurationVar(&cfg.PollInterval, "interval", cfg.PollInterval, "poll interval (e.g. 500ms, 2s)")
	fs.Float64Var(&cfg.SpikeThreshold, "threshold", cfg.SpikeThreshold, "CPU spike threshold (0-100%)")
	fs.DurationVar(&cfg.UpdateInterval, "update-interval", cfg.UpdateInterval, "baseline frame update interval")
	boolVar(fs, &cfg.NoUpdate, cfg.NoUpdate, "disable periodic frame updates", "no-update", "n")
	boolVar(fs, &cfg.SuppressUpdate, cfg.SuppressUpdate, "suppress the [Frame update] message", "suppress-update", "s")

	for _, name := range []string{"all", "a"} {
		fs.BoolFunc(name, "display every offender (default)", func(string) error {
			policy.seen, policy.all = true, true
			return nil
		})
	}
	for _, name := range []string{"over", "o"} {
		fs.Func(name, "display offenders over this percent of the largest delta (0-100)", func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			policy.seen, policy.over = true, &v
			return nil
		})
	}
	for _, name := range []string{"top", "t"} {
		fs.Func(name, "display the top N offenders (>0)", func(s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			policy.seen, policy.top = true, &v
			return nil
		})
	}

	fs.Float64Var(&cfg.NoiseFloor, "noise-floor", cfg.NoiseFloor, "ignore per-process CPU changes at or below this delta")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "process table provider: psutil, procfs or sched")
	fs.StringVar(&cfg.BPFObject, "bpf-object", cfg.BPFObject, "compiled sched_switch eBPF object (sched provider)")
	fs.StringVar(&cfg.ProcRoot, "proc-root", cfg.ProcRoot, "procfs mount point (procfs provider)")
	fs.BoolVar(&cfg.HideKernel, "hide-kernel", cfg.HideKernel, "hide kernel threads such as kworker, ksoftirqd, etc")
	fs.StringVar(&cfg.NameFilter, "name-filter", cfg.NameFilter, "only show processes whose name contains this substring (case-insensitive)")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable ANSI colors")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	return fs
}

func boolVar(fs *flag.FlagSet, p *bool, value bool, usage string, names ...string) {
	for _, name := range names {
		fs.BoolVar(p, name, value, usage)
	}
}

// parse accepts flags before, between and after positional arguments.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
