package analysis

import (
	"encoding/binary"

	"github.com/disdain-project/beast/vm"
)

// fixedOperandWidth gives, for every opcode, the number of operand bytes
// that precede any string-table payload. This mirrors vm/exec.go's
// decodeAndDispatch byte-for-byte; the two must be kept in lockstep since
// both decode the same one true instruction set.
var fixedOperandWidth = map[vm.Opcode]int{
	vm.OpNop: 0,

	vm.OpRegisterVariable:        5,
	vm.OpUnregisterVariable:      4,
	vm.OpSetVariableBehavior:     5,
	vm.OpSetVariableValue:        9,
	vm.OpCopyVariable:            10,
	vm.OpSwapVariables:           10,
	vm.OpCheckIfVariableIsInput:  10,
	vm.OpCheckIfVariableIsOutput: 10,
	vm.OpCheckIfInputWasSet:      10,

	vm.OpAddConstantToVariable:        9,
	vm.OpSubtractConstantFromVariable: 9,
	vm.OpAddVariableToVariable:        10,
	vm.OpSubtractVariableFromVariable: 10,

	vm.OpBitwiseAndTwoVariables:   10,
	vm.OpBitwiseOrTwoVariables:    10,
	vm.OpBitwiseXorTwoVariables:   10,
	vm.OpBitwiseInvertVariable:    5,
	vm.OpBitShiftVariable:         6,
	vm.OpVariableBitShiftVariable: 10,
	vm.OpRotateVariable:           6,
	vm.OpVariableRotateVariable:   10,

	vm.OpModuloVariableByConstant: 9,
	vm.OpModuloVariableByVariable: 10,

	vm.OpRelativeJumpToAddressIfGt0: 9,
	vm.OpRelativeJumpToAddressIfLt0: 9,
	vm.OpRelativeJumpToAddressIfEq0: 9,
	vm.OpAbsoluteJumpToAddressIfGt0: 9,
	vm.OpAbsoluteJumpToAddressIfLt0: 9,
	vm.OpAbsoluteJumpToAddressIfEq0: 9,

	vm.OpRelativeJumpToVariableAddressIfGt0: 10,
	vm.OpRelativeJumpToVariableAddressIfLt0: 10,
	vm.OpRelativeJumpToVariableAddressIfEq0: 10,
	vm.OpAbsoluteJumpToVariableAddressIfGt0: 10,
	vm.OpAbsoluteJumpToVariableAddressIfLt0: 10,
	vm.OpAbsoluteJumpToVariableAddressIfEq0: 10,

	vm.OpUnconditionalJumpToRelativeAddress:         4,
	vm.OpUnconditionalJumpToAbsoluteAddress:         4,
	vm.OpUnconditionalJumpToRelativeVariableAddress: 5,
	vm.OpUnconditionalJumpToAbsoluteVariableAddress: 5,

	vm.OpSetStringTableEntry:         4, // + string
	vm.OpSetVariableStringTableEntry: 5, // + string

	vm.OpLoadStringItemLengthIntoVariable:         10,
	vm.OpLoadVariableStringItemLengthIntoVariable:  10,
	vm.OpLoadStringItemIntoVariables:               10,
	vm.OpLoadVariableStringItemIntoVariables:        10,
	vm.OpPrintVariableStringFromStringTable:         5,
	vm.OpAppendVariableToPrintBuffer:                6,

	vm.OpLoadMemorySizeIntoVariable:                5,
	vm.OpLoadInputCountIntoVariable:                5,
	vm.OpLoadOutputCountIntoVariable:               5,
	vm.OpLoadCurrentAddressIntoVariable:            5,
	vm.OpLoadStringTableLimitIntoVariable:          5,
	vm.OpLoadStringTableItemLengthLimitIntoVariable: 5,
	vm.OpLoadRandomValueIntoVariable:               5,

	vm.OpPushVariableOnStack:  10,
	vm.OpPushConstantOnStack:  9,
	vm.OpPopVariableFromStack: 10,
	vm.OpPopFromStack:         5,
	vm.OpCheckIfStackIsEmpty:  10,

	vm.OpPerformSystemCall: 7,

	vm.OpTerminate:                       1,
	vm.OpTerminateWithVariableReturnCode: 5,
}

// opcodesWithStringSuffix decode a 4-byte length prefix and that many
// bytes immediately after their fixed operand bytes.
var opcodesWithStringSuffix = map[vm.Opcode]bool{
	vm.OpSetStringTableEntry:         true,
	vm.OpSetVariableStringTableEntry: true,
}

// operandWidth reports the fixed operand byte count for op, or false if
// op is unknown. String-suffixed opcodes report only their fixed prefix
// width here; walk appends the string bytes separately.
func operandWidth(op vm.Opcode) (int, bool) {
	w, ok := fixedOperandWidth[op]
	return w, ok
}

func readByte(p *vm.Program) (byte, bool) {
	b, ok := readN(p, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func readInt32(p *vm.Program) (int32, bool) {
	b, ok := readN(p, 4)
	if !ok {
		return 0, false
	}
	return decodeInt32(b), true
}

func readN(p *vm.Program, n int) ([]byte, bool) {
	start := p.Cursor()
	if start+n > p.Len() {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, p.Bytes()[start:start+n])
	p.SetCursor(start + n)
	return out, true
}

func decodeInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}
