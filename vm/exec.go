package vm

// Instruction decoding and the run loop. A Program is a flat byte stream;
// Step decodes exactly one instruction at the current cursor and applies
// it to the session, advancing the cursor past the instruction's operands
// (jumps may then move the cursor again). Operand order, for every
// opcode, is: primary variable index/indices first (4 bytes each, signed
// little-endian), then follow-link flags (1 byte each, nonzero is true),
// then any constant operand, then any string-table content (4-byte
// length prefix followed by that many raw bytes).
//
// A malformed operand stream (one that runs past the end of the program)
// is treated the same as any other VM fault: the session terminates with
// ReturnCodeFault.

// MaxSteps bounds Run's loop as a last-resort guard against programs that
// never reach Terminate; callers evolving programs should prefer
// cooperative cancellation via their own step budget.
const MaxSteps = 1 << 20

func (s *VmSession) readVar() (int32, bool) { return s.program.getData4() }

func (s *VmSession) readFollow() (bool, bool) {
	b, ok := s.program.getData1()
	return b != 0, ok
}

func (s *VmSession) readConst1() (int8, bool) { return s.program.getData1() }
func (s *VmSession) readConst4() (int32, bool) { return s.program.getData4() }

func (s *VmSession) readString() (string, bool) {
	n, ok := s.program.getData4()
	if !ok || n < 0 {
		return "", false
	}
	raw, ok := s.program.getBytes(int(n))
	if !ok {
		return "", false
	}
	return string(raw), true
}

// Step decodes and executes exactly one instruction. It returns false
// once the session has terminated (either the decoded instruction
// terminated it, or decoding itself failed) or the program has no more
// bytes to decode.
func (s *VmSession) Step() bool {
	if s.IsTerminated() {
		return false
	}
	if s.program.IsAtEnd() {
		s.Terminate(ReturnCodeOK)
		return false
	}

	start := s.program.Cursor()
	opByte, ok := s.program.getData1()
	if !ok {
		s.fail()
		return false
	}
	op := Opcode(uint8(opByte))

	if !s.decodeAndDispatch(op) {
		s.fail()
		return false
	}

	s.instructions++
	// A taken jump has already moved the cursor, so jumps use their fixed width.
	end := s.program.Cursor()
	switch op {
	case OpRelativeJumpToAddressIfGt0, OpRelativeJumpToAddressIfLt0, OpRelativeJumpToAddressIfEq0,
		OpAbsoluteJumpToAddressIfGt0, OpAbsoluteJumpToAddressIfLt0, OpAbsoluteJumpToAddressIfEq0:
		end = start + 10
	case OpRelativeJumpToVariableAddressIfGt0, OpRelativeJumpToVariableAddressIfLt0, OpRelativeJumpToVariableAddressIfEq0,
		OpAbsoluteJumpToVariableAddressIfGt0, OpAbsoluteJumpToVariableAddressIfLt0, OpAbsoluteJumpToVariableAddressIfEq0:
		end = start + 11
	case OpUnconditionalJumpToRelativeAddress, OpUnconditionalJumpToAbsoluteAddress:
		end = start + 5
	case OpUnconditionalJumpToRelativeVariableAddress, OpUnconditionalJumpToAbsoluteVariableAddress:
		end = start + 6
	}
	s.markExecuted(start, end)
	if op == OpNop {
		s.dynamicNoOps++
	}
	return !s.IsTerminated()
}

// Run steps the session until it terminates, the program is exhausted, or
// MaxSteps instructions have executed. It returns the session's return
// code once terminated; a program that runs away without terminating
// ends with ReturnCodeFault.
func (s *VmSession) Run() int8 {
	for i := 0; i < MaxSteps; i++ {
		if !s.Step() {
			break
		}
	}
	if !s.IsTerminated() {
		s.fail()
	}
	return s.ReturnCode()
}

// decodeAndDispatch reads op's operands and invokes the corresponding
// VmSession method. It returns false on any operand decode failure; the
// caller terminates the session in that case. Opcodes whose operands
// decoded fine but whose semantics then faulted (bad variable index, OOB
// jump, ...) already left the session Terminated by the time this
// returns true, which Step's post-check picks up.
func (s *VmSession) decodeAndDispatch(op Opcode) bool {
	switch op {
	case OpNop:
		return true

	case OpRegisterVariable:
		idx, ok1 := s.readVar()
		kind, ok2 := s.readConst1()
		if !ok1 || !ok2 {
			return false
		}
		s.RegisterVariable(idx, VariableType(kind))
		return true

	case OpUnregisterVariable:
		idx, ok := s.readVar()
		if !ok {
			return false
		}
		s.UnregisterVariable(idx)
		return true

	case OpSetVariableBehavior:
		idx, ok1 := s.readVar()
		behavior, ok2 := s.readConst1()
		if !ok1 || !ok2 {
			return false
		}
		s.SetVariableBehavior(idx, VariableIoBehavior(behavior))
		return true

	case OpSetVariableValue:
		idx, ok1 := s.readVar()
		follow, ok2 := s.readFollow()
		value, ok3 := s.readConst4()
		if !ok1 || !ok2 || !ok3 {
			return false
		}
		s.SetVariableValue(idx, follow, value)
		return true

	case OpCopyVariable:
		src, dst, followSrc, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.CopyVariable(src, followSrc, dst, followDst)
		return true

	case OpSwapVariables:
		a, b, followA, followB, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.SwapVariables(a, followA, b, followB)
		return true

	case OpCheckIfVariableIsInput:
		src, dst, followSrc, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.CheckIfVariableIsInput(src, followSrc, dst, followDst)
		return true

	case OpCheckIfVariableIsOutput:
		src, dst, followSrc, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.CheckIfVariableIsOutput(src, followSrc, dst, followDst)
		return true

	case OpCheckIfInputWasSet:
		idx, dst, follow, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.CheckIfInputWasSet(idx, follow, dst, followDst)
		return true

	case OpAddConstantToVariable:
		idx, follow, constant, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.AddConstantToVariable(idx, constant, follow)
		return true

	case OpSubtractConstantFromVariable:
		idx, follow, constant, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.SubtractConstantFromVariable(idx, constant, follow)
		return true

	case OpAddVariableToVariable:
		src, dst, followSrc, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.AddVariableToVariable(src, dst, followSrc, followDst)
		return true

	case OpSubtractVariableFromVariable:
		src, dst, followSrc, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.SubtractVariableFromVariable(src, dst, followSrc, followDst)
		return true

	case OpBitwiseAndTwoVariables:
		a, b, followA, followB, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.BitWiseAndTwoVariables(a, followA, b, followB)
		return true

	case OpBitwiseOrTwoVariables:
		a, b, followA, followB, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.BitWiseOrTwoVariables(a, followA, b, followB)
		return true

	case OpBitwiseXorTwoVariables:
		a, b, followA, followB, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.BitWiseXorTwoVariables(a, followA, b, followB)
		return true

	case OpBitwiseInvertVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.BitWiseInvertVariable(idx, follow)
		return true

	case OpBitShiftVariable:
		idx, follow, places, ok := s.readVarFollowConst1()
		if !ok {
			return false
		}
		s.BitShiftVariable(idx, follow, places)
		return true

	case OpVariableBitShiftVariable:
		idx, placesVar, follow, placesFollow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.VariableBitShiftVariable(idx, follow, placesVar, placesFollow)
		return true

	case OpRotateVariable:
		idx, follow, places, ok := s.readVarFollowConst1()
		if !ok {
			return false
		}
		s.RotateVariable(idx, follow, places)
		return true

	case OpVariableRotateVariable:
		idx, placesVar, follow, placesFollow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.VariableRotateVariable(idx, follow, placesVar, placesFollow)
		return true

	case OpModuloVariableByConstant:
		idx, follow, constant, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.ModuloVariableByConstant(idx, follow, constant)
		return true

	case OpModuloVariableByVariable:
		idx, modVar, follow, modFollow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.ModuloVariableByVariable(idx, follow, modVar, modFollow)
		return true

	case OpRelativeJumpToAddressIfGt0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.RelativeJumpToAddressIfVariableGt0(cond, follow, addr)
		return true
	case OpRelativeJumpToAddressIfLt0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.RelativeJumpToAddressIfVariableLt0(cond, follow, addr)
		return true
	case OpRelativeJumpToAddressIfEq0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.RelativeJumpToAddressIfVariableEq0(cond, follow, addr)
		return true
	case OpAbsoluteJumpToAddressIfGt0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.AbsoluteJumpToAddressIfVariableGt0(cond, follow, addr)
		return true
	case OpAbsoluteJumpToAddressIfLt0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.AbsoluteJumpToAddressIfVariableLt0(cond, follow, addr)
		return true
	case OpAbsoluteJumpToAddressIfEq0:
		cond, follow, addr, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.AbsoluteJumpToAddressIfVariableEq0(cond, follow, addr)
		return true

	case OpRelativeJumpToVariableAddressIfGt0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.RelativeJumpToVariableAddressIfVariableGt0(cond, follow, addrVar, followAddr)
		return true
	case OpRelativeJumpToVariableAddressIfLt0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.RelativeJumpToVariableAddressIfVariableLt0(cond, follow, addrVar, followAddr)
		return true
	case OpRelativeJumpToVariableAddressIfEq0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.RelativeJumpToVariableAddressIfVariableEq0(cond, follow, addrVar, followAddr)
		return true
	case OpAbsoluteJumpToVariableAddressIfGt0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.AbsoluteJumpToVariableAddressIfVariableGt0(cond, follow, addrVar, followAddr)
		return true
	case OpAbsoluteJumpToVariableAddressIfLt0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.AbsoluteJumpToVariableAddressIfVariableLt0(cond, follow, addrVar, followAddr)
		return true
	case OpAbsoluteJumpToVariableAddressIfEq0:
		cond, addrVar, follow, followAddr, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.AbsoluteJumpToVariableAddressIfVariableEq0(cond, follow, addrVar, followAddr)
		return true

	case OpUnconditionalJumpToRelativeAddress:
		addr, ok := s.readConst4()
		if !ok {
			return false
		}
		s.UnconditionalJumpToRelativeAddress(addr)
		return true
	case OpUnconditionalJumpToAbsoluteAddress:
		addr, ok := s.readConst4()
		if !ok {
			return false
		}
		s.UnconditionalJumpToAbsoluteAddress(addr)
		return true
	case OpUnconditionalJumpToRelativeVariableAddress:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.UnconditionalJumpToRelativeVariableAddress(idx, follow)
		return true
	case OpUnconditionalJumpToAbsoluteVariableAddress:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.UnconditionalJumpToAbsoluteVariableAddress(idx, follow)
		return true

	case OpSetStringTableEntry:
		idx, ok1 := s.readVar()
		content, ok2 := s.readString()
		if !ok1 || !ok2 {
			return false
		}
		s.SetStringTableEntry(idx, content)
		return true

	case OpSetVariableStringTableEntry:
		idx, follow, ok1 := s.readVarFollow()
		content, ok2 := s.readString()
		if !ok1 || !ok2 {
			return false
		}
		s.SetVariableStringTableEntry(idx, follow, content)
		return true

	case OpLoadStringItemLengthIntoVariable:
		strIdx, dst, _, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.LoadStringItemLengthIntoVariable(strIdx, dst, followDst)
		return true

	case OpLoadVariableStringItemLengthIntoVariable:
		strVar, dst, strFollow, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.LoadVariableStringItemLengthIntoVariable(strVar, strFollow, dst, followDst)
		return true

	case OpLoadStringItemIntoVariables:
		strIdx, start, _, followStart, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.LoadStringItemIntoVariables(strIdx, start, followStart)
		return true

	case OpLoadVariableStringItemIntoVariables:
		strVar, dst, strFollow, followDst, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.LoadVariableStringItemIntoVariables(strVar, strFollow, dst, followDst)
		return true

	case OpPrintVariableStringFromStringTable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.PrintVariableStringFromStringTable(idx, follow)
		return true

	case OpAppendVariableToPrintBuffer:
		idx, follow, ok1 := s.readVarFollow()
		asChar, ok2 := s.readConst1()
		if !ok1 || !ok2 {
			return false
		}
		s.AppendVariableToPrintBuffer(idx, follow, asChar != 0)
		return true

	case OpLoadMemorySizeIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadMemorySizeIntoVariable(idx, follow)
		return true
	case OpLoadInputCountIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadInputCountIntoVariable(idx, follow)
		return true
	case OpLoadOutputCountIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadOutputCountIntoVariable(idx, follow)
		return true
	case OpLoadCurrentAddressIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadCurrentAddressIntoVariable(idx, follow)
		return true
	case OpLoadStringTableLimitIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadStringTableLimitIntoVariable(idx, follow)
		return true
	case OpLoadStringTableItemLengthLimitIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadStringTableItemLengthLimitIntoVariable(idx, follow)
		return true
	case OpLoadRandomValueIntoVariable:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.LoadRandomValueIntoVariable(idx, follow)
		return true

	case OpPushVariableOnStack:
		holder, idx, holderFollow, follow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.PushVariableOnStack(holder, holderFollow, idx, follow)
		return true

	case OpPushConstantOnStack:
		holder, holderFollow, constant, ok := s.readVarFollowConst4()
		if !ok {
			return false
		}
		s.PushConstantOnStack(holder, holderFollow, constant)
		return true

	case OpPopVariableFromStack:
		holder, idx, holderFollow, follow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.PopVariableFromStack(holder, holderFollow, idx, follow)
		return true

	case OpPopFromStack:
		holder, holderFollow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.PopFromStack(holder, holderFollow)
		return true

	case OpCheckIfStackIsEmpty:
		holder, idx, holderFollow, follow, ok := s.readTwoVarsFollow()
		if !ok {
			return false
		}
		s.CheckIfStackIsEmpty(holder, holderFollow, idx, follow)
		return true

	case OpPerformSystemCall:
		major, ok1 := s.readConst1()
		minor, ok2 := s.readConst1()
		idx, ok3 := s.readVar()
		follow, ok4 := s.readFollow()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return false
		}
		s.PerformSystemCall(major, minor, idx, follow)
		return true

	case OpTerminate:
		code, ok := s.readConst1()
		if !ok {
			return false
		}
		s.Terminate(code)
		return true

	case OpTerminateWithVariableReturnCode:
		idx, follow, ok := s.readVarFollow()
		if !ok {
			return false
		}
		s.TerminateWithVariableReturnCode(idx, follow)
		return true

	default:
		return false
	}
}

// readVarFollow reads one variable index and its follow-link flag.
func (s *VmSession) readVarFollow() (idx int32, follow bool, ok bool) {
	idx, ok1 := s.readVar()
	follow, ok2 := s.readFollow()
	return idx, follow, ok1 && ok2
}

// readVarFollowConst1 reads one variable index, its follow flag, then a
// one-byte constant.
func (s *VmSession) readVarFollowConst1() (idx int32, follow bool, constant int8, ok bool) {
	idx, follow, ok1 := s.readVarFollow()
	constant, ok2 := s.readConst1()
	return idx, follow, constant, ok1 && ok2
}

// readVarFollowConst4 reads one variable index, its follow flag, then a
// four-byte constant.
func (s *VmSession) readVarFollowConst4() (idx int32, follow bool, constant int32, ok bool) {
	idx, follow, ok1 := s.readVarFollow()
	constant, ok2 := s.readConst4()
	return idx, follow, constant, ok1 && ok2
}

// readTwoVarsFollow reads two (variable index, follow flag) pairs in
// sequence: A's index, B's index, A's follow flag, B's follow flag -
// matching the operand order described in the package doc comment
// (indices first, then flags).
func (s *VmSession) readTwoVarsFollow() (a, b int32, followA, followB bool, ok bool) {
	a, ok1 := s.readVar()
	b, ok2 := s.readVar()
	followA, ok3 := s.readFollow()
	followB, ok4 := s.readFollow()
	return a, b, followA, followB, ok1 && ok2 && ok3 && ok4
}
