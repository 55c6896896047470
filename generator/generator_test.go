package generator

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/disdain-project/beast/vm"
)

func TestRandomProgramRunsToTermination(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	opts := RandomOptions{VariableCount: 4, InstructionCount: 20, ConstantRange: 50}

	program := Random(rng, opts)
	s := vm.NewVmSession(vm.NewProgram(program), opts.VariableCount, 0, 0, 1)
	code := s.Run()

	if code != vm.ReturnCodeOK {
		t.Fatalf("expected a generated program to terminate cleanly, got code %d", code)
	}
}

func TestSourcePipeEmitsExactlyPopulationSize(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	opts := RandomOptions{VariableCount: 2, InstructionCount: 4, ConstantRange: 10}
	p := NewSourcePipe(rng, opts, 3)

	for i := 0; i < 10; i++ {
		p.Execute(context.Background())
	}

	count := 0
	for p.HasOutput(0) {
		if p.DrawOutput(0) == nil {
			t.Fatal("expected non-nil candidate")
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected exactly 3 emitted candidates, got %d", count)
	}
}
