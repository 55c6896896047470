package evaluator

import (
	"github.com/disdain-project/beast/analysis"
	"github.com/disdain-project/beast/vm"
)

// StaticHygieneEvaluator rewards programs with no provably dead jump
// targets and no out-of-range string table references, independent of
// any particular run. It composes with RuntimeStatisticsEvaluator for
// multi-objective scoring.
type StaticHygieneEvaluator struct {
	// StringTableCount is the capacity the session's string table was
	// constructed with; FindOutOfRangeStringRefs checks against it.
	StringTableCount int
}

// Evaluate implements Evaluator. The session's own Program is analyzed;
// s need not have run to completion, but analyzing a session that
// faulted mid-run is equally valid since this pass never executes code.
func (e StaticHygieneEvaluator) Evaluate(s *vm.VmSession) float64 {
	program := s.Program()
	deadJumps := analysis.FindDeadJumpTargets(program)
	badStrings := analysis.FindOutOfRangeStringRefs(program, e.StringTableCount)

	instructions := analysis.CountInstructions(program)
	if instructions < 1 {
		instructions = 1
	}
	penalized := len(deadJumps) + len(badStrings)
	return clamp01(1 - float64(penalized)/float64(instructions))
}
