package evaluator

import (
	"testing"

	"github.com/disdain-project/beast/asm"
	"github.com/disdain-project/beast/vm"
)

func mustRun(t *testing.T, source string) *vm.VmSession {
	t.Helper()
	program, err := asm.Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	s := vm.NewVmSession(*program, 4, 4, 32, 1)
	s.Run()
	return s
}

func TestRuntimeStatisticsEvaluatorScoresCleanProgramHighly(t *testing.T) {
	s := mustRun(t, `
		register_variable 0 0
		set_variable_value 0 0 5
		add_constant_to_variable 0 0 3
		terminate 0
	`)

	e := RuntimeStatisticsEvaluator{DynNoopWeight: 1, StatNoopWeight: 1, PrgExecWeight: 2}
	score := e.Evaluate(s)
	if score <= 0.5 {
		t.Fatalf("expected a high score for a fully executed, no-op-free program, got %v", score)
	}
}

func TestRuntimeStatisticsEvaluatorPenalizesStaticNoOps(t *testing.T) {
	clean := mustRun(t, `
		register_variable 0 0
		add_constant_to_variable 0 0 3
		terminate 0
	`)
	noisy := mustRun(t, `
		register_variable 0 0
		add_constant_to_variable 0 0 0
		add_constant_to_variable 0 0 3
		terminate 0
	`)

	e := RuntimeStatisticsEvaluator{DynNoopWeight: 1, StatNoopWeight: 1, PrgExecWeight: 2}
	if e.Evaluate(noisy) >= e.Evaluate(clean) {
		t.Fatalf("expected the program with an identity add to score lower")
	}
}

func TestRuntimeStatisticsEvaluatorZeroWeightSumScoresZero(t *testing.T) {
	s := mustRun(t, `terminate 0`)
	e := RuntimeStatisticsEvaluator{}
	if got := e.Evaluate(s); got != 0 {
		t.Fatalf("expected 0 when all weights are zero, got %v", got)
	}
}

func TestStaticHygieneEvaluatorPenalizesDeadJump(t *testing.T) {
	clean := mustRun(t, `
		ajmp @skip
		@skip:
		terminate 0
	`)
	broken := mustRun(t, `ajmp 9999`)

	e := StaticHygieneEvaluator{StringTableCount: 4}
	if e.Evaluate(broken) >= e.Evaluate(clean) {
		t.Fatalf("expected the program with a dead jump target to score lower")
	}
}

func TestStaticHygieneEvaluatorPenalizesOutOfRangeStringRef(t *testing.T) {
	clean := mustRun(t, `
		set_string_table_entry 0 "hi"
		terminate 0
	`)
	broken := mustRun(t, `
		set_string_table_entry 999 "hi"
		terminate 0
	`)

	e := StaticHygieneEvaluator{StringTableCount: 4}
	if e.Evaluate(broken) >= e.Evaluate(clean) {
		t.Fatalf("expected the out-of-range string reference to score lower")
	}
}
