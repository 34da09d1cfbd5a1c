package collector

import (
	"time"

	"github.com/srodi/spike-spy/pkg/types"
)

// CPUTime is the cumulative CPU time a process had consumed at sampling time.
type CPUTime struct {
	PID     types.PID
	Seconds float64
	Started time.Time // zero when the provider cannot tell
}

// Usage turns cumulative per-process CPU time into a percent of one core since the
// previous sample. A process seen for the first time reports its average since it
// started, or zero when the start time is unknown.
type Usage struct {
	prev map[types.PID]float64
	last time.Time
}

// Update records the samples taken at now and returns each PID's CPU percent.
func (u *Usage) Update(now time.Time, samples []CPUTime) map[types.PID]float64 {
	elapsed := now.Sub(u.last).Seconds()
	next := make(map[types.PID]float64, len(samples))
	out := make(map[types.PID]float64, len(samples))

	for _, s := range samples {
		next[s.PID] = s.Seconds

		if prev, ok := u.prev[s.PID]; ok && elapsed > 0 {
			delta := s.Seconds - prev
			if delta < 0 {
				// counter went backwards: the PID was reused between samples
				delta = 0
			}
			out[s.PID] = 100 * delta / elapsed
			continue
		}

		if s.Started.IsZero() {
			out[s.PID] = 0
			continue
		}
		if age := now.Sub(s.Started).Seconds(); age > 0 {
			out[s.PID] = 100 * s.Seconds / age
		} else {
			out[s.PID] = 0
		}
	}

	u.prev = next
	u.last = now
	return out
}

// BusyPercent converts cumulative host CPU counters (busy and total, any unit) into a
// busy percent since the previous call.
type BusyPercent struct {
	prevBusy, prevTotal float64
	primed              bool
}

// Update returns the busy percent since the previous call; the first call reports
// the average since boot.
func (b *BusyPercent) Update(busy, total float64) float64 {
	dBusy, dTotal := busy, total
	if b.primed {
		dBusy, dTotal = busy-b.prevBusy, total-b.prevTotal
	}
	b.prevBusy, b.prevTotal, b.primed = busy, total, true

	if dTotal <= 0 {
		return 0
	}
	pct := 100 * dBusy / dTotal
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
