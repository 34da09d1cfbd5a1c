package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/srodi/spike-spy/pkg/collector/procfs"
	"github.com/srodi/spike-spy/pkg/collector/psutil"
	"github.com/srodi/spike-spy/pkg/collector/sched"
	"github.com/srodi/spike-spy/pkg/config"
	"github.com/srodi/spike-spy/pkg/logger"
	"github.com/srodi/spike-spy/pkg/monitor"
	"github.com/srodi/spike-spy/pkg/system"
	"github.com/srodi/spike-spy/pkg/ui"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := openProvider(cfg)
	if err != nil {
		return fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				appLog.WithError(err).WithField("provider", cfg.Provider).Warn("closing provider")
			}
		}()
	}

	tty := ui.IsTerminal(os.Stdout)
	palette := ui.Palette{Enabled: tty && !cfg.NoColor}
	if tty {
		fmt.Print(palette.Banner())
	}

	state, err := system.New(ctx, provider)
	if err != nil {
		return fmt.Errorf("sampling initial baseline: %w", err)
	}

	updateInterval, frameUpdates := cfg.FrameUpdateInterval()
	settings := monitor.Settings{
		PollInterval:   cfg.PollInterval,
		SpikeThreshold: cfg.SpikeThreshold,
		UpdateInterval: updateInterval,
		FrameUpdates:   frameUpdates,
		SuppressUpdate: cfg.SuppressUpdate,
		NoiseFloor:     cfg.NoiseFloor,
		Policy:         cfg.Policy(),
		Filters:        cfg.Filters(),
	}
	appLog.WithFields(log.Fields{
		"config":    cfg.String(),
		"processes": state.Baseline().Len(),
	}).Info("monitoring")

	return monitor.New(state, settings, os.Stdout, palette, appLog).Run(ctx)
}

func openProvider(cfg *config.Config) (system.Provider, error) {
	switch cfg.Provider {
	case config.ProviderProcfs:
		p, err := procfs.New(cfg.ProcRoot)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderSched:
		p, err := sched.Open(cfg.BPFObject)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return psutil.New(), nil
	}
}
