package pipe

import (
	"context"
	"testing"

	"github.com/disdain-project/beast/vm"
)

type scriptedEvaluator struct {
	scores map[string]float64
}

func (e *scriptedEvaluator) Evaluate(s *vm.VmSession) float64 {
	return e.scores[string(s.Program().Bytes())]
}

func TestSinkPipeRetainsHighestScoringCandidate(t *testing.T) {
	low := []byte{byte(vm.OpTerminate), 0}
	high := []byte{byte(vm.OpTerminate), 1}

	eval := &scriptedEvaluator{scores: map[string]float64{
		string(low):  0.1,
		string(high): 0.9,
	}}

	sink := NewSinkPipe(eval, newTestSession)
	sink.AddInput(0, low)
	sink.AddInput(0, high)

	if err := sink.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	program, score, ok := sink.Best()
	if !ok {
		t.Fatal("expected a best candidate after Execute")
	}
	if score != 0.9 {
		t.Fatalf("expected best score 0.9, got %v", score)
	}
	if string(program) != string(high) {
		t.Fatalf("expected the higher-scoring candidate to be retained")
	}
}

func TestSinkPipeKeepsPreviousBestAcrossExecuteCalls(t *testing.T) {
	first := []byte{byte(vm.OpTerminate), 0}
	second := []byte{byte(vm.OpTerminate), 1}

	eval := &scriptedEvaluator{scores: map[string]float64{
		string(first):  0.8,
		string(second): 0.2,
	}}

	sink := NewSinkPipe(eval, newTestSession)

	sink.AddInput(0, first)
	if err := sink.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	sink.AddInput(0, second)
	if err := sink.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	_, score, ok := sink.Best()
	if !ok {
		t.Fatal("expected a best candidate")
	}
	if score != 0.8 {
		t.Fatalf("expected the earlier, higher-scoring candidate to survive, got score %v", score)
	}
}

func TestSinkPipeHasNoOutputSlots(t *testing.T) {
	sink := NewSinkPipe(&scriptedEvaluator{scores: map[string]float64{}}, newTestSession)
	if sink.OutputSlotCount() != 0 {
		t.Fatalf("expected 0 output slots, got %d", sink.OutputSlotCount())
	}
	if sink.HasOutput(0) {
		t.Fatal("expected HasOutput to always report false")
	}
}
