package vm

import "strconv"

// String table storage and the print buffer. Writing past the table
// capacity or the per-entry length limit fails without partial state
// change.

// SetStringTableEntry stores content at stringTableIndex after validating
// it against the session's capacity and per-entry length limits.
func (s *VmSession) SetStringTableEntry(stringTableIndex int32, content string) {
	if !s.beginOp() {
		return
	}
	if stringTableIndex < 0 || int(stringTableIndex) >= s.stringTableCount {
		s.fail()
		return
	}
	if len(content) > s.maxStringSize {
		s.fail()
		return
	}
	s.stringTable[stringTableIndex] = content
}

// SetVariableStringTableEntry resolves variableIndex to a string table
// index first, then stores content there.
func (s *VmSession) SetVariableStringTableEntry(variableIndex int32, followLinks bool, content string) {
	if !s.beginOp() {
		return
	}
	idx := s.GetVariableValue(variableIndex, followLinks)
	if s.IsTerminated() {
		return
	}
	s.SetStringTableEntry(idx, content)
}

// GetStringTableEntry returns the string stored at stringTableIndex, or
// "" if nothing is stored there.
func (s *VmSession) GetStringTableEntry(stringTableIndex int32) string {
	return s.stringTable[stringTableIndex]
}

// LoadStringItemLengthIntoVariable writes the length of the string stored
// at stringTableIndex into variableIndex.
func (s *VmSession) LoadStringItemLengthIntoVariable(stringTableIndex int32, variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	if stringTableIndex < 0 || int(stringTableIndex) >= s.stringTableCount {
		s.fail()
		return
	}
	s.SetVariableValue(variableIndex, followLinks, int32(len(s.stringTable[stringTableIndex])))
}

// LoadVariableStringItemLengthIntoVariable resolves stringItemVariableIndex
// to a string table index first.
func (s *VmSession) LoadVariableStringItemLengthIntoVariable(stringItemVariableIndex int32, stringItemFollowLinks bool, variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	idx := s.GetVariableValue(stringItemVariableIndex, stringItemFollowLinks)
	if s.IsTerminated() {
		return
	}
	s.LoadStringItemLengthIntoVariable(idx, variableIndex, followLinks)
}

// LoadStringItemIntoVariables writes one code unit per byte of the string
// at stringTableIndex into successive variables starting at
// startVariableIndex. Those variables must already be registered.
func (s *VmSession) LoadStringItemIntoVariables(stringTableIndex int32, startVariableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	if stringTableIndex < 0 || int(stringTableIndex) >= s.stringTableCount {
		s.fail()
		return
	}
	content := s.stringTable[stringTableIndex]
	for i := 0; i < len(content); i++ {
		s.SetVariableValue(startVariableIndex+int32(i), followLinks, int32(content[i]))
		if s.IsTerminated() {
			return
		}
	}
}

// LoadVariableStringItemIntoVariables resolves stringItemVariableIndex to
// a string table index first.
func (s *VmSession) LoadVariableStringItemIntoVariables(stringItemVariableIndex int32, stringItemFollowLinks bool, variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	idx := s.GetVariableValue(stringItemVariableIndex, stringItemFollowLinks)
	if s.IsTerminated() {
		return
	}
	s.LoadStringItemIntoVariables(idx, variableIndex, followLinks)
}

// PrintVariableStringFromStringTable resolves variableIndex to a string
// table index and appends that string to the print buffer.
func (s *VmSession) PrintVariableStringFromStringTable(variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	idx := s.GetVariableValue(variableIndex, followLinks)
	if s.IsTerminated() {
		return
	}
	if idx < 0 || int(idx) >= s.stringTableCount {
		s.fail()
		return
	}
	s.printBuffer.WriteString(s.stringTable[idx])
}

// AppendToPrintBuffer appends a literal string to the print buffer.
func (s *VmSession) AppendToPrintBuffer(content string) {
	if !s.beginOp() {
		return
	}
	s.printBuffer.WriteString(content)
}

// AppendVariableToPrintBuffer appends a variable's value to the print
// buffer, either as decimal text or as a single code unit.
func (s *VmSession) AppendVariableToPrintBuffer(variableIndex int32, followLinks bool, asChar bool) {
	if !s.beginOp() {
		return
	}
	v := s.GetVariableValue(variableIndex, followLinks)
	if s.IsTerminated() {
		return
	}
	if asChar {
		s.printBuffer.WriteRune(rune(v))
	} else {
		s.printBuffer.WriteString(strconv.FormatInt(int64(v), 10))
	}
}
