package frame

import "github.com/srodi/spike-spy/pkg/types"

// Snapshot is the resource usage of one process at one sampling instant.
type Snapshot struct {
	pid types.PID
	cpu float64
	mem uint64
}

// NewSnapshot copies CPU and memory usage out of a provider record.
func NewSnapshot(pid types.PID, proc types.Process) Snapshot {
	return Snapshot{
		pid: pid,
		cpu: proc.CPUPercent,
		mem: proc.MemoryBytes,
	}
}

func (s Snapshot) PID() types.PID { return s.pid }

func (s Snapshot) CPU() float64 { return s.cpu }

func (s Snapshot) Memory() uint64 { return s.mem }
