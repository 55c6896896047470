// Package evaluator scores a terminated VmSession in [0, 1].
package evaluator

import "github.com/disdain-project/beast/vm"

// Evaluator assigns a fitness score to a session that has already run to
// termination. Implementations must be pure and stateless: the same
// session always yields the same score.
type Evaluator interface {
	Evaluate(s *vm.VmSession) float64
}

// clamp01 clamps v into [0, 1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
