// Package asm assembles human-readable BEAST assembly into vm.Program
// bytes, and disassembles a Program back into that same text form. Both
// directions decode against the identical per-opcode operand table, so
// they are guaranteed to agree with each other and with vm/exec.go's
// dispatcher, which this table mirrors byte-for-byte.
package asm

import "github.com/disdain-project/beast/vm"

// operandKind identifies one operand's wire shape.
type operandKind int

const (
	kindInt32 operandKind = iota
	kindInt8
	kindBool
	kindString
)

// addrMode marks an int32 operand that names a jump target, and how that
// target is interpreted relative to the instruction.
type addrMode int

const (
	addrNone addrMode = iota
	addrAbsolute
	addrRelative
)

// operand describes one operand slot in an instruction's encoding.
type operand struct {
	kind operandKind
	addr addrMode
}

func i32() operand          { return operand{kind: kindInt32} }
func i32Abs() operand       { return operand{kind: kindInt32, addr: addrAbsolute} }
func i32Rel() operand       { return operand{kind: kindInt32, addr: addrRelative} }
func i8() operand           { return operand{kind: kindInt8} }
func boolean() operand      { return operand{kind: kindBool} }
func str() operand          { return operand{kind: kindString} }

func fourVar() []operand { return []operand{i32(), i32(), boolean(), boolean()} }

// operandSpecs gives, for every opcode, its ordered operand list. This is
// the encode-side twin of vm/exec.go's decodeAndDispatch and
// analysis/decode.go's fixedOperandWidth; all three must describe the
// same bytes.
var operandSpecs = map[vm.Opcode][]operand{
	vm.OpNop: {},

	vm.OpRegisterVariable:        {i32(), i8()},
	vm.OpUnregisterVariable:      {i32()},
	vm.OpSetVariableBehavior:     {i32(), i8()},
	vm.OpSetVariableValue:        {i32(), boolean(), i32()},
	vm.OpCopyVariable:            fourVar(),
	vm.OpSwapVariables:           fourVar(),
	vm.OpCheckIfVariableIsInput:  fourVar(),
	vm.OpCheckIfVariableIsOutput: fourVar(),
	vm.OpCheckIfInputWasSet:      fourVar(),

	vm.OpAddConstantToVariable:        {i32(), boolean(), i32()},
	vm.OpSubtractConstantFromVariable: {i32(), boolean(), i32()},
	vm.OpAddVariableToVariable:        fourVar(),
	vm.OpSubtractVariableFromVariable: fourVar(),

	vm.OpBitwiseAndTwoVariables:   fourVar(),
	vm.OpBitwiseOrTwoVariables:    fourVar(),
	vm.OpBitwiseXorTwoVariables:   fourVar(),
	vm.OpBitwiseInvertVariable:    {i32(), boolean()},
	vm.OpBitShiftVariable:         {i32(), boolean(), i8()},
	vm.OpVariableBitShiftVariable: fourVar(),
	vm.OpRotateVariable:           {i32(), boolean(), i8()},
	vm.OpVariableRotateVariable:   fourVar(),

	vm.OpModuloVariableByConstant: {i32(), boolean(), i32()},
	vm.OpModuloVariableByVariable: fourVar(),

	vm.OpRelativeJumpToAddressIfGt0: {i32(), boolean(), i32Rel()},
	vm.OpRelativeJumpToAddressIfLt0: {i32(), boolean(), i32Rel()},
	vm.OpRelativeJumpToAddressIfEq0: {i32(), boolean(), i32Rel()},
	vm.OpAbsoluteJumpToAddressIfGt0: {i32(), boolean(), i32Abs()},
	vm.OpAbsoluteJumpToAddressIfLt0: {i32(), boolean(), i32Abs()},
	vm.OpAbsoluteJumpToAddressIfEq0: {i32(), boolean(), i32Abs()},

	vm.OpRelativeJumpToVariableAddressIfGt0: fourVar(),
	vm.OpRelativeJumpToVariableAddressIfLt0: fourVar(),
	vm.OpRelativeJumpToVariableAddressIfEq0: fourVar(),
	vm.OpAbsoluteJumpToVariableAddressIfGt0: fourVar(),
	vm.OpAbsoluteJumpToVariableAddressIfLt0: fourVar(),
	vm.OpAbsoluteJumpToVariableAddressIfEq0: fourVar(),

	vm.OpUnconditionalJumpToRelativeAddress:         {i32Rel()},
	vm.OpUnconditionalJumpToAbsoluteAddress:         {i32Abs()},
	vm.OpUnconditionalJumpToRelativeVariableAddress: {i32(), boolean()},
	vm.OpUnconditionalJumpToAbsoluteVariableAddress: {i32(), boolean()},

	vm.OpSetStringTableEntry:         {i32(), str()},
	vm.OpSetVariableStringTableEntry: {i32(), boolean(), str()},

	vm.OpLoadStringItemLengthIntoVariable:          fourVar(),
	vm.OpLoadVariableStringItemLengthIntoVariable:   fourVar(),
	vm.OpLoadStringItemIntoVariables:                fourVar(),
	vm.OpLoadVariableStringItemIntoVariables:        fourVar(),
	vm.OpPrintVariableStringFromStringTable:         {i32(), boolean()},
	vm.OpAppendVariableToPrintBuffer:                {i32(), boolean(), i8()},

	vm.OpLoadMemorySizeIntoVariable:                {i32(), boolean()},
	vm.OpLoadInputCountIntoVariable:                {i32(), boolean()},
	vm.OpLoadOutputCountIntoVariable:                {i32(), boolean()},
	vm.OpLoadCurrentAddressIntoVariable:            {i32(), boolean()},
	vm.OpLoadStringTableLimitIntoVariable:          {i32(), boolean()},
	vm.OpLoadStringTableItemLengthLimitIntoVariable: {i32(), boolean()},
	vm.OpLoadRandomValueIntoVariable:               {i32(), boolean()},

	vm.OpPushVariableOnStack:  fourVar(),
	vm.OpPushConstantOnStack:  {i32(), boolean(), i32()},
	vm.OpPopVariableFromStack: fourVar(),
	vm.OpPopFromStack:         {i32(), boolean()},
	vm.OpCheckIfStackIsEmpty:  fourVar(),

	vm.OpPerformSystemCall: {i8(), i8(), i32(), boolean()},

	vm.OpTerminate:                       {i8()},
	vm.OpTerminateWithVariableReturnCode: {i32(), boolean()},
}
