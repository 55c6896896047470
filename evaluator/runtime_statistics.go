package evaluator

import (
	"github.com/disdain-project/beast/analysis"
	"github.com/disdain-project/beast/vm"
)

// RuntimeStatisticsEvaluator scores a session by how little of its
// execution was wasted: the fraction of instructions that ran with no
// observable effect (dynamically and statically), and the fraction of
// the program that was actually exercised.
type RuntimeStatisticsEvaluator struct {
	DynNoopWeight  float64
	StatNoopWeight float64
	PrgExecWeight  float64
}

// Evaluate implements Evaluator. s must already be terminated.
func (e RuntimeStatisticsEvaluator) Evaluate(s *vm.VmSession) float64 {
	program := s.Program()
	instructions := s.InstructionCount()
	if instructions < 1 {
		instructions = 1
	}
	dynScore := 1 - minFloat(1, float64(s.DynamicNoOpCount())/float64(instructions))

	staticNoops := analysis.CountStaticNoOps(program)
	programInstructions := analysis.CountInstructions(program)
	if programInstructions < 1 {
		programInstructions = 1
	}
	statScore := 1 - minFloat(1, float64(staticNoops)/float64(programInstructions))

	programBytes := program.Len()
	if programBytes < 1 {
		programBytes = 1
	}
	execScore := float64(s.ExecutedByteCount()) / float64(programBytes)

	weightSum := e.DynNoopWeight + e.StatNoopWeight + e.PrgExecWeight
	if weightSum <= 0 {
		return 0
	}

	score := (dynScore*e.DynNoopWeight + statScore*e.StatNoopWeight + execScore*e.PrgExecWeight) / weightSum
	return clamp01(score)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
