package frame

import (
	"sort"

	"github.com/srodi/spike-spy/pkg/types"
)

// Lister enumerates every process visible at the provider's last refresh.
type Lister interface {
	Processes() []types.Process
}

// Frame is a complete process-table sample keyed by PID.
type Frame struct {
	snapshots map[types.PID]Snapshot
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{snapshots: make(map[types.PID]Snapshot)}
}

// FromProcesses builds a frame from a single enumeration of the lister, so every
// snapshot in it belongs to the same sampling instant.
func FromProcesses(l Lister) *Frame {
	procs := l.Processes()
	f := &Frame{snapshots: make(map[types.PID]Snapshot, len(procs))}
	for _, proc := range procs {
		f.Add(NewSnapshot(proc.PID, proc))
	}
	return f
}

// Add inserts the snapshot, replacing any previous one for the same PID.
func (f *Frame) Add(s Snapshot) {
	f.snapshots[s.PID()] = s
}

// Get looks up a PID. A missing PID simply was not alive when the frame was taken.
func (f *Frame) Get(pid types.PID) (Snapshot, bool) {
	if f == nil {
		return Snapshot{}, false
	}
	s, ok := f.snapshots[pid]
	return s, ok
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.snapshots)
}

// PIDs returns the frame's identities in ascending order.
func (f *Frame) PIDs() []types.PID {
	if f == nil {
		return nil
	}
	pids := make([]types.PID, 0, len(f.snapshots))
	for pid := range f.snapshots {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// Delta compares f against baseline. Continuing processes are kept only when their CPU
// grew by more than noiseFloor; processes missing from baseline are kept with their full
// CPU usage whatever the floor. Processes that exited since baseline contribute nothing.
func (f *Frame) Delta(baseline *Frame, noiseFloor float64) FrameDelta {
	deltas := make([]types.Delta, 0)
	for pid, snap := range f.snapshots {
		prev, ok := baseline.Get(pid)
		if !ok {
			deltas = append(deltas, types.Delta{PID: pid, CPU: snap.CPU()})
			continue
		}
		if d := snap.CPU() - prev.CPU(); d > noiseFloor {
			deltas = append(deltas, types.Delta{PID: pid, CPU: d})
		}
	}
	return FrameDelta{deltas: deltas}
}
