package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srodi/spike-spy/pkg/types"
)

// timeNow allows tests to pin spike timestamps.
var timeNow = time.Now

// Offender is one ranked process shown under a spike.
type Offender struct {
	PID         types.PID
	Name        string
	CPUDelta    float64
	MemoryBytes uint64
}

// Spike is everything reported for one tick whose aggregate CPU jumped past the threshold.
type Spike struct {
	ID        uuid.UUID
	At        time.Time
	CPUDelta  float64
	Window    time.Duration // time since the baseline frame the offenders were diffed against
	Offenders []Offender
}

// NewSpike stamps a spike with a fresh ID so its log lines can be correlated.
func NewSpike(cpuDelta float64, window time.Duration, offenders []Offender) Spike {
	return Spike{
		ID:        uuid.New(),
		At:        timeNow(),
		CPUDelta:  cpuDelta,
		Window:    window,
		Offenders: offenders,
	}
}

// Lookup resolves a PID to its latest provider record.
type Lookup interface {
	Process(pid types.PID) (types.Process, bool)
}

// FilterConfig controls which offenders are displayed.
type FilterConfig struct {
	HideKernel bool
	NameFilter string // case-insensitive substring; empty matches everything
}

// BuildOffenders resolves ranked deltas into display rows, keeping the ranking order.
// A PID that has exited since the frame was sampled is skipped.
func BuildOffenders(deltas []types.Delta, lookup Lookup, cfg FilterConfig) []Offender {
	rows := make([]Offender, 0, len(deltas))
	for _, d := range deltas {
		proc, ok := lookup.Process(d.PID)
		if !ok {
			continue
		}
		row := Offender{
			PID:         d.PID,
			Name:        proc.Name,
			CPUDelta:    d.CPU,
			MemoryBytes: proc.MemoryBytes,
		}
		if passesFilters(row, cfg) {
			rows = append(rows, row)
		}
	}
	return rows
}

func passesFilters(row Offender, cfg FilterConfig) bool {
	if cfg.HideKernel && isKernelThread(row) {
		return false
	}
	if cfg.NameFilter != "" {
		name := strings.ToLower(row.Name)
		if !strings.Contains(name, strings.ToLower(cfg.NameFilter)) {
			return false
		}
	}
	return true
}

func isKernelThread(row Offender) bool {
	if row.PID == 0 {
		return true
	}
	name := strings.ToLower(row.Name)
	switch {
	case strings.HasPrefix(name, "kworker"), strings.HasPrefix(name, "ksoftirqd"), strings.HasPrefix(name, "kthreadd"),
		strings.HasPrefix(name, "migration"), strings.HasPrefix(name, "watchdog"), strings.HasPrefix(name, "rcu"),
		strings.HasPrefix(name, "irq/"):
		return true
	}
	return false
}
