package vm

import "testing"

// asmBuf is a tiny hand-rolled assembler used only by tests: it
// writes opcode bytes and operands in the same order decodeAndDispatch
// expects them.
type asmBuf struct {
	data []byte
}

func (b *asmBuf) op(o Opcode) *asmBuf {
	b.data = append(b.data, byte(o))
	return b
}
func (b *asmBuf) i32(v int32) *asmBuf {
	b.data = PutData4(b.data, v)
	return b
}
func (b *asmBuf) i8(v int8) *asmBuf {
	b.data = PutData1(b.data, v)
	return b
}
func (b *asmBuf) follow(v bool) *asmBuf {
	if v {
		return b.i8(1)
	}
	return b.i8(0)
}
func (b *asmBuf) str(s string) *asmBuf {
	b.data = PutData4(b.data, int32(len(s)))
	b.data = append(b.data, s...)
	return b
}

func newSession(prog *asmBuf, variableCount int) *VmSession {
	p := NewProgram(prog.data)
	return NewVmSession(p, variableCount, 8, 64, 1)
}

func TestAddConstantPrintTerminate(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpSetVariableValue).i32(0).follow(false).i32(40)
	b.op(OpAddConstantToVariable).i32(0).follow(false).i32(2)
	b.op(OpAppendVariableToPrintBuffer).i32(0).follow(false).i8(0)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 4)
	code := s.Run()

	if code != ReturnCodeOK {
		t.Fatalf("expected ok return code, got %d", code)
	}
	if got := s.GetPrintBuffer(); got != "42" {
		t.Fatalf("expected print buffer %q, got %q", "42", got)
	}
	if !s.IsTerminated() {
		t.Fatal("expected session to be terminated")
	}
}

func TestLinkChainIsTransparent(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpRegisterVariable).i32(1).i8(int8(VarLink))
	b.op(OpSetVariableValue).i32(1).follow(false).i32(0)
	b.op(OpSetVariableValue).i32(1).follow(true).i32(7)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 4)
	s.Run()

	if v := s.GetVariableValue(0, false); v != 7 {
		t.Fatalf("expected variable 0 to hold 7 through the link, got %d", v)
	}
}

func TestLinkCycleFaults(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 4, 4, 16, 1)
	s.RegisterVariable(0, VarLink)
	s.RegisterVariable(1, VarLink)
	s.SetVariableValue(0, false, 1)
	s.SetVariableValue(1, false, 0)

	s.GetVariableValue(0, true)

	if !s.IsTerminated() || s.ReturnCode() != ReturnCodeFault {
		t.Fatalf("expected link cycle to fault the session, got terminated=%v code=%d", s.IsTerminated(), s.ReturnCode())
	}
}

func TestArithmeticWraparound(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1)
	s.RegisterVariable(0, VarInt32)
	s.SetVariableValue(0, false, 2147483647)
	s.AddConstantToVariable(0, 1, false)

	if got := s.GetVariableValue(0, false); got != -2147483648 {
		t.Fatalf("expected wraparound to math.MinInt32, got %d", got)
	}
}

func TestRotateVariableRoundTrips(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1)
	s.RegisterVariable(0, VarInt32)
	s.SetVariableValue(0, false, 0x12345678)
	s.RotateVariable(0, false, 8)
	s.RotateVariable(0, false, -8)

	if got := s.GetVariableValue(0, false); got != 0x12345678 {
		t.Fatalf("expected rotate by 8 then -8 to round-trip, got %#x", uint32(got))
	}
}

func TestModuloByZeroFaults(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1)
	s.RegisterVariable(0, VarInt32)
	s.SetVariableValue(0, false, 10)
	s.ModuloVariableByConstant(0, false, 0)

	if !s.IsTerminated() || s.ReturnCode() != ReturnCodeFault {
		t.Fatalf("expected modulo by zero to fault, got terminated=%v code=%d", s.IsTerminated(), s.ReturnCode())
	}
}

func TestUnconditionalRelativeJumpSkipsInstruction(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpSetVariableValue).i32(0).follow(false).i32(0)

	b.op(OpUnconditionalJumpToRelativeAddress)
	skip := asmBuf{}
	skip.op(OpSetVariableValue).i32(0).follow(false).i32(999)
	b.i32(int32(len(skip.data)))
	b.data = append(b.data, skip.data...)
	b.op(OpSetVariableValue).i32(0).follow(false).i32(5)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 2)
	s.Run()

	if got := s.GetVariableValue(0, false); got != 5 {
		t.Fatalf("expected the skipped write to be bypassed, got %d", got)
	}
}

func TestStackIsLifo(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpRegisterVariable).i32(1).i8(int8(VarInt32))
	b.op(OpRegisterVariable).i32(2).i8(int8(VarInt32))
	b.op(OpPushConstantOnStack).i32(0).follow(false).i32(1)
	b.op(OpPushConstantOnStack).i32(0).follow(false).i32(2)
	b.op(OpPopVariableFromStack).i32(0).i32(1).follow(false).follow(false)
	b.op(OpPopVariableFromStack).i32(0).i32(2).follow(false).follow(false)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 4)
	s.Run()

	if got := s.GetVariableValue(1, false); got != 2 {
		t.Fatalf("expected first pop to yield the last push (2), got %d", got)
	}
	if got := s.GetVariableValue(2, false); got != 1 {
		t.Fatalf("expected second pop to yield the first push (1), got %d", got)
	}
}

func TestPopFromEmptyStackFaults(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1)
	s.RegisterVariable(0, VarInt32)
	s.PopFromStack(0, false)

	if !s.IsTerminated() || s.ReturnCode() != ReturnCodeFault {
		t.Fatalf("expected popping an empty stack to fault, got terminated=%v code=%d", s.IsTerminated(), s.ReturnCode())
	}
}

func TestStringTableRoundTrip(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpSetVariableValue).i32(0).follow(false).i32(0)
	b.op(OpSetStringTableEntry).i32(0).str("hi")
	b.op(OpPrintVariableStringFromStringTable).i32(0).follow(false)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 2)
	s.Run()

	if got := s.GetPrintBuffer(); got != "hi" {
		t.Fatalf("expected print buffer %q, got %q", "hi", got)
	}
}

func TestStringTableOutOfRangeFaults(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 4, 16, 1)
	s.SetStringTableEntry(99, "x")

	if !s.IsTerminated() || s.ReturnCode() != ReturnCodeFault {
		t.Fatalf("expected out-of-range string table index to fault, got terminated=%v code=%d", s.IsTerminated(), s.ReturnCode())
	}
}

func TestConditionalJumpNotTakenCountsAsDynamicNoOp(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1)
	s.RegisterVariable(0, VarInt32)
	s.SetVariableValue(0, false, 0)
	s.RelativeJumpToAddressIfVariableGt0(0, false, 4)

	if s.DynamicNoOpCount() != 1 {
		t.Fatalf("expected untaken conditional jump to count as a dynamic no-op, got %d", s.DynamicNoOpCount())
	}
	if s.IsTerminated() {
		t.Fatal("an untaken jump must not terminate the session")
	}
}

func TestOutOfRangeJumpFaults(t *testing.T) {
	s := NewVmSession(NewProgram(make([]byte, 4)), 2, 0, 0, 1)
	s.UnconditionalJumpToAbsoluteAddress(1000)

	if !s.IsTerminated() || s.ReturnCode() != ReturnCodeFault {
		t.Fatalf("expected out-of-range jump to fault, got terminated=%v code=%d", s.IsTerminated(), s.ReturnCode())
	}
}

func TestTerminateIsAbsorbing(t *testing.T) {
	s := NewVmSession(NewProgram(nil), 1, 0, 0, 1)
	s.Terminate(5)
	s.Terminate(9)

	if s.ReturnCode() != 5 {
		t.Fatalf("expected the first Terminate to win, got %d", s.ReturnCode())
	}
}

func TestInstructionPointerMonotonicWithoutJumps(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpSetVariableValue).i32(0).follow(false).i32(1)
	b.op(OpAddConstantToVariable).i32(0).follow(false).i32(1)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 2)
	last := int32(-1)
	for !s.IsTerminated() {
		addr := s.CurrentAddress()
		if addr < last {
			t.Fatalf("instruction pointer went backwards: %d after %d", addr, last)
		}
		last = addr
		if !s.Step() {
			break
		}
	}
}

func TestSysCallTableDispatch(t *testing.T) {
	table := SysCallTable{
		{1, 2}: func(s *VmSession) int32 { return 123 },
	}
	s := NewVmSession(NewProgram(nil), 2, 0, 0, 1).WithSysCalls(table)
	s.RegisterVariable(0, VarInt32)
	s.PerformSystemCall(1, 2, 0, false)

	if got := s.GetVariableValue(0, false); got != 123 {
		t.Fatalf("expected registered syscall to run, got %d", got)
	}

	s.PerformSystemCall(9, 9, 0, false)
	if got := s.GetVariableValue(0, false); got != sysCallUnknown {
		t.Fatalf("expected unknown syscall to write sentinel, got %d", got)
	}
	if s.IsTerminated() {
		t.Fatal("an unknown syscall must not terminate the session")
	}
}

func TestExecutedByteCountTracksOnlyRunBytes(t *testing.T) {
	var b asmBuf
	b.op(OpRegisterVariable).i32(0).i8(int8(VarInt32))
	b.op(OpUnconditionalJumpToRelativeAddress)
	skip := asmBuf{}
	skip.op(OpSetVariableValue).i32(0).follow(false).i32(999)
	b.i32(int32(len(skip.data)))
	b.data = append(b.data, skip.data...)
	b.op(OpTerminate).i8(ReturnCodeOK)

	s := newSession(&b, 2)
	s.Run()

	if s.ExecutedByteCount() >= s.ProgramLen() {
		t.Fatalf("expected the jumped-over bytes to be excluded from the executed count: executed=%d total=%d", s.ExecutedByteCount(), s.ProgramLen())
	}
}
