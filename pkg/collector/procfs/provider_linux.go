//go:build linux
// +build linux

package procfs

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"

	"github.com/srodi/spike-spy/pkg/collector"
	"github.com/srodi/spike-spy/pkg/types"
)

// userHZ is the kernel clock tick rate used for /proc/[pid]/stat start times.
const userHZ = 100

// timeNow allows tests to pin the sampling instant.
var timeNow = time.Now

// Provider reads the process table straight from procfs.
type Provider struct {
	collector.Table
	fs    procfs.FS
	usage collector.Usage
	busy  collector.BusyPercent
}

// New opens procfs at mountPoint, or at the default /proc when it is empty.
func New(mountPoint string) (*Provider, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", mountPoint, err)
	}
	return &Provider{fs: fs}, nil
}

// Refresh reads /proc/stat and every /proc/[pid]/stat. Processes that exit while
// being read are skipped.
func (p *Provider) Refresh(ctx context.Context) error {
	stat, err := p.fs.Stat()
	if err != nil {
		return fmt.Errorf("reading /proc/stat: %w", err)
	}
	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	total := c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
	cpuTotal := p.busy.Update(total-idle, total)

	all, err := p.fs.AllProcs()
	if err != nil {
		return fmt.Errorf("listing processes: %w", err)
	}
	now := timeNow()
	boot := time.Unix(int64(stat.BootTime), 0)

	procs := make(map[types.PID]types.Process, len(all))
	samples := make([]collector.CPUTime, 0, len(all))
	for _, proc := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := proc.Stat()
		if err != nil {
			continue
		}
		pid := types.PID(proc.PID)
		procs[pid] = types.Process{
			PID:         pid,
			Name:        st.Comm,
			MemoryBytes: uint64(st.ResidentMemory()),
		}
		samples = append(samples, collector.CPUTime{
			PID:     pid,
			Seconds: st.CPUTime(),
			Started: boot.Add(time.Duration(st.Starttime) * (time.Second / userHZ)),
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
