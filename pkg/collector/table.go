// Package collector holds the plumbing shared by the process-table providers.
package collector

import (
	"sort"

	"github.com/srodi/spike-spy/pkg/types"
)

// Table is the read side of a provider: the result of its latest refresh.
// Providers embed it and Replace the contents at the end of each refresh.
type Table struct {
	cpuTotal float64
	procs    map[types.PID]types.Process
}

// Replace swaps in a new sample atomically from the reader's point of view.
func (t *Table) Replace(cpuTotal float64, procs map[types.PID]types.Process) {
	t.cpuTotal = cpuTotal
	t.procs = procs
}

// CPUTotal returns the host-wide busy percent of the latest sample.
func (t *Table) CPUTotal() float64 {
	return t.cpuTotal
}

// Processes returns the latest sample ordered by PID.
func (t *Table) Processes() []types.Process {
	out := make([]types.Process, 0, len(t.procs))
	for _, proc := range t.procs {
		out = append(out, proc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Process looks up one PID in the latest sample.
func (t *Table) Process(pid types.PID) (types.Process, bool) {
	proc, ok := t.procs[pid]
	return proc, ok
}
