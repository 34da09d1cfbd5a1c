// Package monitor drives the poll loop: refresh, detect spikes, report offenders and advance the baseline.
package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/srodi/spike-spy/pkg/frame"
	"github.com/srodi/spike-spy/pkg/report"
	"github.com/srodi/spike-spy/pkg/system"
	"github.com/srodi/spike-spy/pkg/ui"
)

// Settings are the loop parameters resolved from configuration.
type Settings struct {
	PollInterval   time.Duration
	SpikeThreshold float64 // aggregate CPU percent points
	UpdateInterval time.Duration
	FrameUpdates   bool
	SuppressUpdate bool
	NoiseFloor     float64
	Policy         frame.Policy
	Filters        report.FilterConfig
}

// Outcome is what a single tick did with the baseline.
type Outcome int

const (
	// Skipped: the provider could not be refreshed; nothing was committed.
	Skipped Outcome = iota
	// Aggregate: only the aggregate CPU baseline advanced.
	Aggregate
	// FrameUpdate: the update interval elapsed and the whole baseline advanced.
	FrameUpdate
	// Spike: offenders were reported and the whole baseline advanced.
	Spike
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Aggregate:
		return "aggregate"
	case FrameUpdate:
		return "frame-update"
	case Spike:
		return "spike"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Monitor struct {
	state    *system.State
	settings Settings
	out      io.Writer
	palette  ui.Palette
	log      log.FieldLogger
}

func New(state *system.State, settings Settings, out io.Writer, palette ui.Palette, logger log.FieldLogger) *Monitor {
	return &Monitor{
		state:    state,
		settings: settings,
		out:      out,
		palette:  palette,
		log:      logger,
	}
}

// Run ticks until ctx is cancelled. The poll interval is slept after each tick.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(m.settings.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := m.Tick(ctx); err != nil {
			return err
		}

		timer.Reset(m.settings.PollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Tick performs one poll. Provider failures are logged and skip the tick; output and commit failures are returned.
func (m *Monitor) Tick(ctx context.Context) (Outcome, error) {
	if err := m.state.Refresh(ctx); err != nil {
		m.log.WithError(err).Warn("refresh failed, skipping tick")
		return Skipped, nil
	}

	delta := m.state.Delta()
	cpuDelta := delta.CPUTotalDelta()

	if cpuDelta > m.settings.SpikeThreshold {
		return Spike, m.reportSpike(delta, cpuDelta)
	}

	if m.settings.FrameUpdates && delta.Elapsed() > m.settings.UpdateInterval {
		if !m.settings.SuppressUpdate {
			if err := report.RenderFrameUpdate(m.out, m.palette); err != nil {
				return FrameUpdate, fmt.Errorf("write frame update: %w", err)
			}
		}
		fd := delta.FrameDelta()
		if err := fd.Update(); err != nil {
			return FrameUpdate, fmt.Errorf("commit frame: %w", err)
		}
		m.log.WithFields(log.Fields{
			"processes": fd.Current().Len(),
			"cpu_total": delta.CPUTotal(),
		}).Debug("frame update")
		return FrameUpdate, nil
	}

	if err := delta.Update(); err != nil {
		return Aggregate, fmt.Errorf("commit aggregate: %w", err)
	}
	return Aggregate, nil
}

func (m *Monitor) reportSpike(delta *system.Delta, cpuDelta float64) error {
	fd := delta.FrameDelta()
	ranked := fd.Deltas(m.settings.NoiseFloor).Rank(m.settings.Policy)
	offenders := report.BuildOffenders(ranked, fd, m.settings.Filters)
	spike := report.NewSpike(cpuDelta, fd.Elapsed(), offenders)

	m.log.WithFields(log.Fields{
		"spike_id":  spike.ID.String(),
		"cpu_delta": cpuDelta,
		"window":    spike.Window,
		"policy":    m.settings.Policy.String(),
		"offenders": len(offenders),
	}).Info("cpu spike")

	if err := report.Render(m.out, spike, m.palette); err != nil {
		return fmt.Errorf("write spike %s: %w", spike.ID, err)
	}
	if err := fd.Update(); err != nil {
		return fmt.Errorf("commit frame: %w", err)
	}
	return nil
}
