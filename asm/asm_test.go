package asm

import (
	"strings"
	"testing"

	"github.com/disdain-project/beast/vm"
)

func TestAssembleSimpleProgramRunsToTermination(t *testing.T) {
	source := `
		register_variable 0 0
		set_variable_value 0 0 42
		terminate 0
	`
	program, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	s := vm.NewVmSession(*program, 1, 0, 0, 1)
	code := s.Run()
	if code != vm.ReturnCodeOK {
		t.Fatalf("expected clean termination, got code %d", code)
	}
}

func TestAssembleResolvesForwardLabel(t *testing.T) {
	source := `
		register_variable 0 0
		set_variable_value 0 0 0
		rjmp @skip
		set_variable_value 0 0 99
		@skip:
		terminate 0
	`
	program, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	s := vm.NewVmSession(*program, 1, 0, 0, 1)
	code := s.Run()
	if code != vm.ReturnCodeOK {
		t.Fatalf("expected clean termination, got code %d", code)
	}
}

func TestAssembleRejectsUnknownMnemonic(t *testing.T) {
	_, err := Assemble("frobnicate 1 2 3")
	if err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestAssembleRejectsWrongOperandCount(t *testing.T) {
	_, err := Assemble("terminate")
	if err == nil {
		t.Fatal("expected an error for a missing operand")
	}
}

func TestAssembleRejectsUndefinedLabel(t *testing.T) {
	_, err := Assemble("rjmp @nowhere\nterminate 0")
	if err == nil {
		t.Fatal("expected an error for an undefined label")
	}
}

func TestAssembleRejectsDuplicateLabel(t *testing.T) {
	source := `
		@here:
		terminate 0
		@here:
		terminate 0
	`
	_, err := Assemble(source)
	if err == nil {
		t.Fatal("expected an error for a redefined label")
	}
}

func TestStringTableDirectiveRoundTrips(t *testing.T) {
	source := `
		.string 0 "hello"
		terminate 0
	`
	program, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	disassembled := Disassemble(program)
	if !strings.Contains(disassembled, `"hello"`) {
		t.Fatalf("expected disassembly to contain the string literal, got:\n%s", disassembled)
	}
}

func TestDisassembleThenAssembleAgreeOnLength(t *testing.T) {
	source := `
		register_variable 0 0
		add_constant_to_variable 0 0 5
		terminate 0
	`
	program, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	text := Disassemble(program)
	if !strings.Contains(text, "add_constant_to_variable") {
		t.Fatalf("expected disassembly to contain the mnemonic, got:\n%s", text)
	}

	reassembled, err := Assemble(text)
	if err != nil {
		t.Fatalf("re-Assemble of disassembled text failed: %v", err)
	}
	if reassembled.Len() != program.Len() {
		t.Fatalf("round trip changed program length: %d vs %d", reassembled.Len(), program.Len())
	}
}
