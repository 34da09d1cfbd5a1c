package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/srodi/spike-spy/pkg/frame"
	"github.com/srodi/spike-spy/pkg/types"
)

// timeNow allows tests to control commit timestamps.
var timeNow = time.Now

// ErrStaleView is returned when a view is committed after the baseline already moved.
var ErrStaleView = errors.New("system view is stale: baseline already committed")

// Provider is the process-table source sampled on every tick.
type Provider interface {
	// Refresh re-samples the underlying OS source.
	Refresh(ctx context.Context) error
	// CPUTotal is the host-wide busy percent at the last refresh.
	CPUTotal() float64
	// Processes lists every process seen at the last refresh.
	Processes() []types.Process
	// Process looks up one process from the last refresh.
	Process(pid types.PID) (types.Process, bool)
}

// State owns the baseline the monitor compares against. It is not safe for concurrent
// use; the poll loop is its only owner and every mutation goes through a view commit.
type State struct {
	provider     Provider
	prevCPUTotal float64
	prevFrame    *frame.Frame
	lastFrameAt  time.Time
	generation   uint64
}

// New samples the provider once and records the result as the initial baseline.
func New(ctx context.Context, provider Provider) (*State, error) {
	if err := provider.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial refresh: %w", err)
	}
	return &State{
		provider:     provider,
		prevCPUTotal: provider.CPUTotal(),
		prevFrame:    frame.FromProcesses(provider),
		lastFrameAt:  timeNow(),
	}, nil
}

// Refresh re-samples the provider without touching the baseline.
func (s *State) Refresh(ctx context.Context) error {
	return s.provider.Refresh(ctx)
}

// Delta opens a comparison between the provider's current aggregate CPU and the baseline.
func (s *State) Delta() *Delta {
	return &Delta{
		state:        s,
		generation:   s.generation,
		currCPUTotal: s.provider.CPUTotal(),
	}
}

// Process looks up a process in the provider's latest sample.
func (s *State) Process(pid types.PID) (types.Process, bool) {
	return s.provider.Process(pid)
}

// Baseline returns the committed frame. Callers must not modify it.
func (s *State) Baseline() *frame.Frame { return s.prevFrame }

// BaselineCPU returns the committed aggregate CPU percent.
func (s *State) BaselineCPU() float64 { return s.prevCPUTotal }

// LastCommit returns when the baseline frame was last replaced.
func (s *State) LastCommit() time.Time { return s.lastFrameAt }

func (s *State) elapsed() time.Duration {
	return timeNow().Sub(s.lastFrameAt)
}

func (s *State) commitCPU(generation uint64, cpuTotal float64) error {
	if generation != s.generation {
		return ErrStaleView
	}
	s.prevCPUTotal = cpuTotal
	s.generation++
	return nil
}

func (s *State) commitFrame(generation uint64, cpuTotal float64, f *frame.Frame) error {
	if generation != s.generation {
		return ErrStaleView
	}
	s.prevFrame = f
	s.lastFrameAt = timeNow()
	return s.commitCPU(generation, cpuTotal)
}
