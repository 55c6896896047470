package analysis

import (
	"testing"

	"github.com/disdain-project/beast/asm"
	"github.com/disdain-project/beast/vm"
)

func mustAssemble(t *testing.T, source string) *vm.Program {
	t.Helper()
	p, err := asm.Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	return p
}

func TestCountInstructionsCountsEachDecodedOp(t *testing.T) {
	p := mustAssemble(t, `
		nop
		nop
		terminate 0
	`)
	if got := CountInstructions(p); got != 3 {
		t.Fatalf("expected 3 instructions, got %d", got)
	}
}

func TestCountStaticNoOpsDetectsIdentityAdd(t *testing.T) {
	p := mustAssemble(t, `
		register_variable 0 0
		add_constant_to_variable 0 0 0
		terminate 0
	`)
	if got := CountStaticNoOps(p); got != 1 {
		t.Fatalf("expected 1 static no-op, got %d", got)
	}
	if got := CountInstructions(p); got != 3 {
		t.Fatalf("expected 3 instructions, got %d", got)
	}
}

func TestCountStaticNoOpsIgnoresNonIdentityAdd(t *testing.T) {
	p := mustAssemble(t, `
		register_variable 0 0
		add_constant_to_variable 0 0 5
		terminate 0
	`)
	if got := CountStaticNoOps(p); got != 0 {
		t.Fatalf("expected 0 static no-ops, got %d", got)
	}
}

func TestFindDeadJumpTargetsFlagsOutOfRangeAbsoluteJump(t *testing.T) {
	p := mustAssemble(t, `ajmp 9999`)
	diags := FindDeadJumpTargets(p)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %+v", len(diags), diags)
	}
}

func TestFindDeadJumpTargetsIgnoresInRangeJump(t *testing.T) {
	p := mustAssemble(t, `
		ajmp @skip
		@skip:
		terminate 0
	`)
	diags := FindDeadJumpTargets(p)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}
}

func TestFindOutOfRangeStringRefsFlagsBadIndex(t *testing.T) {
	p := mustAssemble(t, `
		set_string_table_entry 999 "hi"
		terminate 0
	`)
	diags := FindOutOfRangeStringRefs(p, 4)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %+v", len(diags), diags)
	}
}

func TestFindOutOfRangeStringRefsIgnoresInRangeIndex(t *testing.T) {
	p := mustAssemble(t, `
		set_string_table_entry 0 "hi"
		terminate 0
	`)
	diags := FindOutOfRangeStringRefs(p, 4)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}
}
