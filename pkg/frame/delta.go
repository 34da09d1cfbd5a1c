package frame

import (
	"math"
	"sort"

	"github.com/srodi/spike-spy/pkg/types"
)

// FrameDelta holds the unordered per-process CPU changes between two frames.
// Each view ranks a private copy, but a FrameDelta is meant to be ranked once.
type FrameDelta struct {
	deltas []types.Delta
}

// NewFrameDelta wraps precomputed deltas.
func NewFrameDelta(deltas []types.Delta) FrameDelta {
	return FrameDelta{deltas: append([]types.Delta(nil), deltas...)}
}

func (fd FrameDelta) Len() int {
	return len(fd.deltas)
}

// All returns every delta above types.ReportFloor, largest first.
func (fd FrameDelta) All() []types.Delta {
	sorted := fd.sorted()
	out := sorted[:0]
	for _, d := range sorted {
		if d.CPU > types.ReportFloor {
			out = append(out, d)
		}
	}
	return out
}

// TopN returns at most n entries of All.
func (fd FrameDelta) TopN(n int) []types.Delta {
	if n <= 0 {
		return nil
	}
	all := fd.All()
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// OverThreshold returns the deltas strictly above ratio times the largest delta,
// largest first. ratio is a fraction of the maximum, so 1.0 never matches anything.
func (fd FrameDelta) OverThreshold(ratio float64) []types.Delta {
	sorted := fd.sorted()
	var peak float64
	for _, d := range sorted {
		if d.CPU > peak {
			peak = d.CPU
		}
	}
	cutoff := peak * ratio

	out := sorted[:0]
	for _, d := range sorted {
		if d.CPU > cutoff {
			out = append(out, d)
		}
	}
	return out
}

// Rank applies the view selected by p.
func (fd FrameDelta) Rank(p Policy) []types.Delta {
	switch p.Kind {
	case PolicyTopN:
		return fd.TopN(p.N)
	case PolicyOverThreshold:
		return fd.OverThreshold(p.Ratio)
	default:
		return fd.All()
	}
}

// sorted copies the deltas in descending order. NaN sorts after every number and
// equal values fall back to ascending PID.
func (fd FrameDelta) sorted() []types.Delta {
	out := append([]types.Delta(nil), fd.deltas...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aNaN, bNaN := math.IsNaN(a.CPU), math.IsNaN(b.CPU)
		switch {
		case aNaN || bNaN:
			if aNaN == bNaN {
				return a.PID < b.PID
			}
			return bNaN
		case a.CPU == b.CPU:
			return a.PID < b.PID
		default:
			return a.CPU > b.CPU
		}
	})
	return out
}
