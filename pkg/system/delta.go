package system

import (
	"time"

	"github.com/srodi/spike-spy/pkg/frame"
	"github.com/srodi/spike-spy/pkg/types"
)

// Delta compares the provider's current aggregate CPU against the baseline. It is
// scoped to one tick and commits at most once, either via Update or via the
// FrameDelta it upgrades to.
type Delta struct {
	state        *State
	generation   uint64
	currCPUTotal float64
}

// CPUTotalDelta is the current aggregate CPU minus the baseline; it may be negative.
func (d *Delta) CPUTotalDelta() float64 {
	return d.currCPUTotal - d.state.prevCPUTotal
}

// CPUTotal is the aggregate CPU captured when the view was opened.
func (d *Delta) CPUTotal() float64 {
	return d.currCPUTotal
}

// Elapsed is the time since the baseline frame was last committed.
func (d *Delta) Elapsed() time.Duration {
	return d.state.elapsed()
}

// Update commits only the aggregate CPU; the baseline frame and its timestamp stay put.
func (d *Delta) Update() error {
	return d.state.commitCPU(d.generation, d.currCPUTotal)
}

// FrameDelta samples a fresh frame from the provider and pairs it with this view.
func (d *Delta) FrameDelta() *FrameDelta {
	return &FrameDelta{
		delta:     d,
		currFrame: frame.FromProcesses(d.state.provider),
	}
}

// FrameDelta compares a freshly sampled frame against the baseline frame.
type FrameDelta struct {
	delta     *Delta
	currFrame *frame.Frame
}

// Deltas diffs the current frame against the baseline. It does not commit and may be
// called more than once.
func (fd *FrameDelta) Deltas(noiseFloor float64) frame.FrameDelta {
	return fd.currFrame.Delta(fd.delta.state.prevFrame, noiseFloor)
}

// CPUTotalDelta is forwarded from the aggregate view.
func (fd *FrameDelta) CPUTotalDelta() float64 {
	return fd.delta.CPUTotalDelta()
}

func (fd *FrameDelta) Elapsed() time.Duration {
	return fd.delta.Elapsed()
}

func (fd *FrameDelta) Process(pid types.PID) (types.Process, bool) {
	return fd.delta.state.Process(pid)
}

// Current returns the frame sampled for this view.
func (fd *FrameDelta) Current() *frame.Frame {
	return fd.currFrame
}

// Update replaces the baseline frame, restamps it and commits the aggregate CPU with it.
func (fd *FrameDelta) Update() error {
	d := fd.delta
	return d.state.commitFrame(d.generation, d.currCPUTotal, fd.currFrame)
}
