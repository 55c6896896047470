package vm

// Introspection loads let a program read session limits and counters
// back into its own variables, and performSystemCall provides a single
// escape hatch to host-provided functionality.

// LoadMemorySizeIntoVariable writes the session's variable capacity into
// variableIndex.
func (s *VmSession) LoadMemorySizeIntoVariable(variableIndex int32, followLinks bool) {
	s.loadConstant(variableIndex, followLinks, int32(s.variableCount))
}

// LoadInputCountIntoVariable writes the number of currently registered
// Input-behavior variables into variableIndex.
func (s *VmSession) LoadInputCountIntoVariable(variableIndex int32, followLinks bool) {
	count := 0
	for _, slot := range s.variables {
		if slot.behavior == BehaviorInput {
			count++
		}
	}
	s.loadConstant(variableIndex, followLinks, int32(count))
}

// LoadOutputCountIntoVariable writes the number of currently registered
// Output-behavior variables into variableIndex.
func (s *VmSession) LoadOutputCountIntoVariable(variableIndex int32, followLinks bool) {
	count := 0
	for _, slot := range s.variables {
		if slot.behavior == BehaviorOutput {
			count++
		}
	}
	s.loadConstant(variableIndex, followLinks, int32(count))
}

// LoadCurrentAddressIntoVariable writes the instruction pointer's current
// byte offset into variableIndex.
func (s *VmSession) LoadCurrentAddressIntoVariable(variableIndex int32, followLinks bool) {
	s.loadConstant(variableIndex, followLinks, s.CurrentAddress())
}

// LoadStringTableLimitIntoVariable writes the string table's entry
// capacity into variableIndex.
func (s *VmSession) LoadStringTableLimitIntoVariable(variableIndex int32, followLinks bool) {
	s.loadConstant(variableIndex, followLinks, int32(s.stringTableCount))
}

// LoadStringTableItemLengthLimitIntoVariable writes the string table's
// per-entry maximum length into variableIndex.
func (s *VmSession) LoadStringTableItemLengthLimitIntoVariable(variableIndex int32, followLinks bool) {
	s.loadConstant(variableIndex, followLinks, int32(s.maxStringSize))
}

// LoadRandomValueIntoVariable writes a pseudo-random Int32 drawn from this
// session's own PRNG stream into variableIndex.
func (s *VmSession) LoadRandomValueIntoVariable(variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	value := int32(s.rng.Uint32())
	s.SetVariableValue(variableIndex, followLinks, value)
}

func (s *VmSession) loadConstant(variableIndex int32, followLinks bool, value int32) {
	if !s.beginOp() {
		return
	}
	s.SetVariableValue(variableIndex, followLinks, value)
}

// PerformSystemCall dispatches to the session's SysCallTable by
// (majorCode, minorCode). Unknown pairs write a distinguished error code
// into the target variable but do not terminate the session.
func (s *VmSession) PerformSystemCall(majorCode int8, minorCode int8, variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	var result int32
	if fn, ok := s.sysCalls[[2]int8{majorCode, minorCode}]; ok {
		result = fn(s)
	} else {
		result = sysCallUnknown
	}
	s.SetVariableValue(variableIndex, followLinks, result)
}
