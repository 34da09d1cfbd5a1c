package frame

import "fmt"

// PolicyKind selects how a FrameDelta is ranked for display.
type PolicyKind int

const (
	PolicyAll PolicyKind = iota
	PolicyTopN
	PolicyOverThreshold
)

// Policy is one of the mutually exclusive ranking views. N is used by PolicyTopN and
// Ratio (a fraction of the largest delta, 0..1) by PolicyOverThreshold.
type Policy struct {
	Kind  PolicyKind
	N     int
	Ratio float64
}

func AllPolicy() Policy { return Policy{Kind: PolicyAll} }

func TopNPolicy(n int) Policy { return Policy{Kind: PolicyTopN, N: n} }

func OverThresholdPolicy(ratio float64) Policy {
	return Policy{Kind: PolicyOverThreshold, Ratio: ratio}
}

func (p Policy) String() string {
	switch p.Kind {
	case PolicyTopN:
		return fmt.Sprintf("top %d", p.N)
	case PolicyOverThreshold:
		return fmt.Sprintf("over %.0f%% of max", p.Ratio*100)
	default:
		return "all"
	}
}
