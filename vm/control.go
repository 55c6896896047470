package vm

// Control flow: conditional and unconditional jumps in absolute/relative
// and constant-address/variable-address addressing modes. Relative jumps
// are relative to the instruction pointer after the jump instruction
// itself has been decoded (i.e. the session's current cursor position at
// the moment the jump method runs). Jumps landing outside the program
// range terminate the session.

type jumpCondition func(v int32) bool

func condGt0(v int32) bool { return v > 0 }
func condLt0(v int32) bool { return v < 0 }
func condEq0(v int32) bool { return v == 0 }

// jumpAbsolute moves the instruction pointer to addr, failing if out of
// range.
func (s *VmSession) jumpAbsolute(addr int32) {
	if addr < 0 || int(addr) > s.program.Len() {
		s.fail()
		return
	}
	s.program.SetCursor(int(addr))
}

// jumpRelative moves the instruction pointer by offset relative to the
// current cursor, failing if the result is out of range.
func (s *VmSession) jumpRelative(offset int32) {
	target := int64(s.program.Cursor()) + int64(offset)
	if target < 0 || target > int64(s.program.Len()) {
		s.fail()
		return
	}
	s.program.SetCursor(int(target))
}

func (s *VmSession) conditionalJump(conditionVariable int32, followConditionLinks bool, cond jumpCondition, relative bool, addr int32) {
	if !s.beginOp() {
		return
	}
	v := s.GetVariableValue(conditionVariable, followConditionLinks)
	if s.IsTerminated() {
		return
	}
	if !cond(v) {
		s.dynamicNoOps++
		return
	}
	if relative {
		s.jumpRelative(addr)
	} else {
		s.jumpAbsolute(addr)
	}
}

func (s *VmSession) conditionalVariableJump(conditionVariable int32, followConditionLinks bool, cond jumpCondition, relative bool, addrVariable int32, followAddrLinks bool) {
	if !s.beginOp() {
		return
	}
	v := s.GetVariableValue(conditionVariable, followConditionLinks)
	if s.IsTerminated() {
		return
	}
	if !cond(v) {
		s.dynamicNoOps++
		return
	}
	addr := s.GetVariableValue(addrVariable, followAddrLinks)
	if s.IsTerminated() {
		return
	}
	if relative {
		s.jumpRelative(addr)
	} else {
		s.jumpAbsolute(addr)
	}
}

// RelativeJumpToAddressIfVariableGt0 jumps by addr (relative) if
// conditionVariable > 0.
func (s *VmSession) RelativeJumpToAddressIfVariableGt0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condGt0, true, addr)
}

// RelativeJumpToAddressIfVariableLt0 jumps by addr (relative) if
// conditionVariable < 0.
func (s *VmSession) RelativeJumpToAddressIfVariableLt0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condLt0, true, addr)
}

// RelativeJumpToAddressIfVariableEq0 jumps by addr (relative) if
// conditionVariable == 0.
func (s *VmSession) RelativeJumpToAddressIfVariableEq0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condEq0, true, addr)
}

// AbsoluteJumpToAddressIfVariableGt0 jumps to addr if conditionVariable > 0.
func (s *VmSession) AbsoluteJumpToAddressIfVariableGt0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condGt0, false, addr)
}

// AbsoluteJumpToAddressIfVariableLt0 jumps to addr if conditionVariable < 0.
func (s *VmSession) AbsoluteJumpToAddressIfVariableLt0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condLt0, false, addr)
}

// AbsoluteJumpToAddressIfVariableEq0 jumps to addr if conditionVariable == 0.
func (s *VmSession) AbsoluteJumpToAddressIfVariableEq0(conditionVariable int32, followConditionLinks bool, addr int32) {
	s.conditionalJump(conditionVariable, followConditionLinks, condEq0, false, addr)
}

// RelativeJumpToVariableAddressIfVariableGt0 jumps by the value of
// addrVariable (relative) if conditionVariable > 0.
func (s *VmSession) RelativeJumpToVariableAddressIfVariableGt0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condGt0, true, addrVariable, followAddrLinks)
}

// RelativeJumpToVariableAddressIfVariableLt0 jumps by the value of
// addrVariable (relative) if conditionVariable < 0.
func (s *VmSession) RelativeJumpToVariableAddressIfVariableLt0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condLt0, true, addrVariable, followAddrLinks)
}

// RelativeJumpToVariableAddressIfVariableEq0 jumps by the value of
// addrVariable (relative) if conditionVariable == 0.
func (s *VmSession) RelativeJumpToVariableAddressIfVariableEq0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condEq0, true, addrVariable, followAddrLinks)
}

// AbsoluteJumpToVariableAddressIfVariableGt0 jumps to the value of
// addrVariable if conditionVariable > 0.
func (s *VmSession) AbsoluteJumpToVariableAddressIfVariableGt0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condGt0, false, addrVariable, followAddrLinks)
}

// AbsoluteJumpToVariableAddressIfVariableLt0 jumps to the value of
// addrVariable if conditionVariable < 0.
func (s *VmSession) AbsoluteJumpToVariableAddressIfVariableLt0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condLt0, false, addrVariable, followAddrLinks)
}

// AbsoluteJumpToVariableAddressIfVariableEq0 jumps to the value of
// addrVariable if conditionVariable == 0.
func (s *VmSession) AbsoluteJumpToVariableAddressIfVariableEq0(conditionVariable int32, followConditionLinks bool, addrVariable int32, followAddrLinks bool) {
	s.conditionalVariableJump(conditionVariable, followConditionLinks, condEq0, false, addrVariable, followAddrLinks)
}

// UnconditionalJumpToRelativeAddress jumps by addr relative to the
// current cursor.
func (s *VmSession) UnconditionalJumpToRelativeAddress(addr int32) {
	if !s.beginOp() {
		return
	}
	s.jumpRelative(addr)
}

// UnconditionalJumpToAbsoluteAddress jumps to addr.
func (s *VmSession) UnconditionalJumpToAbsoluteAddress(addr int32) {
	if !s.beginOp() {
		return
	}
	s.jumpAbsolute(addr)
}

// UnconditionalJumpToRelativeVariableAddress jumps by the value of
// variableIndex relative to the current cursor.
func (s *VmSession) UnconditionalJumpToRelativeVariableAddress(variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	addr := s.GetVariableValue(variableIndex, followLinks)
	if s.IsTerminated() {
		return
	}
	s.jumpRelative(addr)
}

// UnconditionalJumpToAbsoluteVariableAddress jumps to the value of
// variableIndex.
func (s *VmSession) UnconditionalJumpToAbsoluteVariableAddress(variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	addr := s.GetVariableValue(variableIndex, followLinks)
	if s.IsTerminated() {
		return
	}
	s.jumpAbsolute(addr)
}
