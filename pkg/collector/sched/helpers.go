package sched

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/srodi/spike-spy/pkg/types"
)

// These allow tests to stub reads under /proc.
var (
	procReadFile = os.ReadFile
	procReadDir  = os.ReadDir
	pageSize     = os.Getpagesize()
)

// pidStat mirrors the value layout of the pid_stats map.
type pidStat struct {
	CPUTimeNS uint64
	Comm      [16]byte
	Cgroup    [64]byte
}

func cStr(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n == -1 {
		return string(b)
	}
	return string(b[:n])
}

func commForPID(pid uint32, cache map[uint32]string) string {
	if pid == 0 {
		return "idle"
	}
	if name, ok := cache[pid]; ok {
		return name
	}
	path := filepath.Join("/proc", strconv.FormatUint(uint64(pid), 10), "comm")
	data, err := procReadFile(path)
	if err != nil {
		name := fmt.Sprintf("pid-%d", pid)
		cache[pid] = name
		return name
	}
	comm := strings.TrimSpace(string(data))
	if comm == "" {
		comm = fmt.Sprintf("pid-%d", pid)
	}
	cache[pid] = comm
	return comm
}

// rssBytes returns the resident set size for a single PID.
func rssBytes(pid uint32) (uint64, error) {
	if pid == 0 {
		return 0, fmt.Errorf("invalid pid %d", pid)
	}
	statmPath := filepath.Join("/proc", strconv.FormatUint(uint64(pid), 10), "statm")
	data, err := procReadFile(statmPath)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("unexpected statm format for pid %d", pid)
	}
	rssPages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return rssPages * uint64(pageSize), nil
}

// livePIDs lists the numeric entries of /proc in ascending order.
func livePIDs() ([]uint32, error) {
	entries, err := procReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("listing /proc: %w", err)
	}
	pids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		pid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil || pid == 0 {
			continue
		}
		pids = append(pids, uint32(pid))
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}

// buildSample turns one window of sched_switch accounting into a process table.
// Every live PID is present, with zero CPU if it never ran during the window, so
// identities stay stable across refreshes. The aggregate is busy time over the
// capacity of all CPUs; the idle task (PID 0) does not count as busy.
func buildSample(window map[uint32]pidStat, live []uint32, elapsed time.Duration, ncpu int) (float64, map[types.PID]types.Process) {
	cache := make(map[uint32]string)
	procs := make(map[types.PID]types.Process, len(live))
	elapsedNs := float64(elapsed.Nanoseconds())

	for _, pid := range live {
		stat := window[pid]
		name := cStr(stat.Comm[:])
		if name == "" {
			name = commForPID(pid, cache)
		}
		rss, _ := rssBytes(pid)

		var pct float64
		if elapsedNs > 0 {
			pct = 100 * float64(stat.CPUTimeNS) / elapsedNs
		}
		procs[types.PID(pid)] = types.Process{
			PID:         types.PID(pid),
			Name:        name,
			CPUPercent:  pct,
			MemoryBytes: rss,
		}
	}

	var busyNs uint64
	for pid, stat := range window {
		if pid != 0 {
			busyNs += stat.CPUTimeNS
		}
	}
	capacity := elapsedNs * float64(ncpu)
	if capacity <= 0 {
		return 0, procs
	}
	total := 100 * float64(busyNs) / capacity
	if total > 100 {
		total = 100
	}
	return total, procs
}
