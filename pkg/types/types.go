package types

// ReportFloor is the minimum CPU delta (percentage points) a ranked view will surface.
const ReportFloor = 0.5

// DefaultNoiseFloor filters continuing processes whose CPU barely moved between frames.
const DefaultNoiseFloor = 0.5

// PID identifies a process for as long as it lives.
type PID int32

// Process is one provider record: the usage of a live process at the last refresh.
type Process struct {
	PID         PID
	Name        string
	CPUPercent  float64 // percent of one core; may exceed 100 on multi-core hosts
	MemoryBytes uint64
}

// Delta pairs a process with the change in its CPU usage between two frames.
type Delta struct {
	PID PID
	CPU float64
}
