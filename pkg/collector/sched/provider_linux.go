//go:build linux
// +build linux

package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"golang.org/x/sys/unix"

	"github.com/srodi/spike-spy/pkg/collector"
)

const (
	programName       = "handle_sched_switch"
	statsMapName      = "pid_stats"
	resetSweepRetries = 3
)

// timeNow allows tests to pin window boundaries.
var timeNow = time.Now

// Provider accounts CPU time per PID with an eBPF program on sched/sched_switch.
// Each refresh drains the map, so usage always covers the window since the
// previous refresh.
type Provider struct {
	collector.Table
	coll  *ebpf.Collection
	stats *ebpf.Map
	tp    link.Link
	last  time.Time
}

// Open loads the compiled object at objectPath and attaches its program to the
// sched_switch tracepoint.
func Open(objectPath string) (*Provider, error) {
	if objectPath == "" {
		return nil, errors.New("sched provider needs a compiled eBPF object path")
	}
	// Raise rlimit for locked memory to allow eBPF programs to load.
	if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &unix.Rlimit{
		Cur: unix.RLIM_INFINITY,
		Max: unix.RLIM_INFINITY,
	}); err != nil {
		return nil, fmt.Errorf("raising rlimit memlock: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(objectPath)
	if err != nil {
		return nil, fmt.Errorf("loading bpf object %s: %w", objectPath, err)
	}
	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("loading bpf collection: %w", err)
	}

	prog, ok := coll.Programs[programName]
	if !ok {
		coll.Close()
		return nil, fmt.Errorf("bpf object has no program %q", programName)
	}
	stats, ok := coll.Maps[statsMapName]
	if !ok {
		coll.Close()
		return nil, fmt.Errorf("bpf object has no map %q", statsMapName)
	}

	tp, err := link.Tracepoint("sched", "sched_switch", prog, nil)
	if err != nil {
		coll.Close()
		return nil, fmt.Errorf("attaching tracepoint: %w", err)
	}

	return &Provider{coll: coll, stats: stats, tp: tp, last: timeNow()}, nil
}

// Close detaches the tracepoint and releases the BPF resources.
func (p *Provider) Close() error {
	var err error
	if p.tp != nil {
		err = p.tp.Close()
	}
	p.coll.Close()
	return err
}

// Refresh drains the window's accounting and rebuilds the process table.
func (p *Provider) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := timeNow()
	elapsed := now.Sub(p.last)

	// List PIDs before draining so a /proc failure keeps the window in the map.
	live, err := livePIDs()
	if err != nil {
		return err
	}
	window, err := p.drain()
	if err != nil {
		return err
	}
	p.last = now

	cpuTotal, procs := buildSample(window, live, elapsed, runtime.NumCPU())
	p.Replace(cpuTotal, procs)
	return nil
}

// drain reads every entry of the stats map and then deletes what it read so the
// next window accumulates fresh values.
func (p *Provider) drain() (map[uint32]pidStat, error) {
	var window map[uint32]pidStat
	for attempt := 1; attempt <= resetSweepRetries; attempt++ {
		window = make(map[uint32]pidStat)
		iter := p.stats.Iterate()
		var pid uint32
		var stat pidStat
		for iter.Next(&pid, &stat) {
			window[pid] = stat
		}
		if err := iter.Err(); err != nil {
			if errors.Is(err, ebpf.ErrIterationAborted) && attempt < resetSweepRetries {
				continue
			}
			return nil, fmt.Errorf("iterating cpu stats: %w", err)
		}
		break
	}

	for pid := range window {
		if err := p.stats.Delete(&pid); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
			return nil, fmt.Errorf("clearing pid %d: %w", pid, err)
		}
	}
	return window, nil
}
