// Package psutil samples the process table through gopsutil, which works on every
// platform gopsutil supports.
package psutil

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/srodi/spike-spy/pkg/collector"
	"github.com/srodi/spike-spy/pkg/types"
)

// procReader is the subset of *process.Process the provider reads.
type procReader interface {
	NameWithContext(ctx context.Context) (string, error)
	TimesWithContext(ctx context.Context) (*cpu.TimesStat, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	CreateTimeWithContext(ctx context.Context) (int64, error)
}

type handle struct {
	pid    int32
	reader procReader
}

// These allow tests to stub the OS.
var (
	listProcesses = func(ctx context.Context) ([]handle, error) {
		procs, err := process.ProcessesWithContext(ctx)
		if err != nil {
			return nil, err
		}
		handles := make([]handle, 0, len(procs))
		for _, p := range procs {
			if p == nil {
				continue
			}
			handles = append(handles, handle{pid: p.Pid, reader: p})
		}
		return handles, nil
	}
	cpuPercent = cpu.PercentWithContext
	timeNow    = time.Now
)

// Provider is a gopsutil-backed process table.
type Provider struct {
	collector.Table
	usage collector.Usage
}

func New() *Provider {
	return &Provider{}
}

// Refresh enumerates every process and recomputes CPU usage since the previous refresh.
// Processes that vanish while being read are skipped.
func (p *Provider) Refresh(ctx context.Context) error {
	totals, err := cpuPercent(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("reading cpu percent: %w", err)
	}
	var cpuTotal float64
	if len(totals) > 0 {
		cpuTotal = totals[0]
	}

	handles, err := listProcesses(ctx)
	if err != nil {
		return fmt.Errorf("listing processes: %w", err)
	}
	now := timeNow()

	procs := make(map[types.PID]types.Process, len(handles))
	samples := make([]collector.CPUTime, 0, len(handles))
	for _, h := range handles {
		if h.pid <= 0 {
			continue
		}
		times, err := h.reader.TimesWithContext(ctx)
		if err != nil || times == nil {
			continue
		}
		pid := types.PID(h.pid)

		name, err := h.reader.NameWithContext(ctx)
		if err != nil || name == "" {
			name = fmt.Sprintf("pid-%d", pid)
		}
		var rss uint64
		if mem, err := h.reader.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			rss = mem.RSS
		}
		var started time.Time
		if ms, err := h.reader.CreateTimeWithContext(ctx); err == nil && ms > 0 {
			started = time.UnixMilli(ms)
		}

		procs[pid] = types.Process{PID: pid, Name: name, MemoryBytes: rss}
		samples = append(samples, collector.CPUTime{
			PID:     pid,
			Seconds: times.User + times.System,
			Started: started,
		})
	}

	for pid, pct := range p.usage.Update(now, samples) {
		proc := procs[pid]
		proc.CPUPercent = pct
		procs[pid] = proc
	}
	p.Replace(cpuTotal, procs)
	return nil
}
