package vm

// Opcode identifies a single BEAST bytecode instruction. Encoding is
// implementation-defined but stable within a build: one byte per opcode,
// values assigned densely starting at zero. The asm and analysis packages
// decode against this same table, so it is the one true instruction set.
type Opcode byte

const (
	OpNop Opcode = iota

	OpRegisterVariable
	OpUnregisterVariable
	OpSetVariableBehavior
	OpSetVariableValue
	OpCopyVariable
	OpSwapVariables
	OpCheckIfVariableIsInput
	OpCheckIfVariableIsOutput
	OpCheckIfInputWasSet

	OpAddConstantToVariable
	OpSubtractConstantFromVariable
	OpAddVariableToVariable
	OpSubtractVariableFromVariable

	OpBitwiseAndTwoVariables
	OpBitwiseOrTwoVariables
	OpBitwiseXorTwoVariables
	OpBitwiseInvertVariable
	OpBitShiftVariable
	OpVariableBitShiftVariable
	OpRotateVariable
	OpVariableRotateVariable

	OpModuloVariableByConstant
	OpModuloVariableByVariable

	OpRelativeJumpToAddressIfGt0
	OpRelativeJumpToAddressIfLt0
	OpRelativeJumpToAddressIfEq0
	OpAbsoluteJumpToAddressIfGt0
	OpAbsoluteJumpToAddressIfLt0
	OpAbsoluteJumpToAddressIfEq0
	OpRelativeJumpToVariableAddressIfGt0
	OpRelativeJumpToVariableAddressIfLt0
	OpRelativeJumpToVariableAddressIfEq0
	OpAbsoluteJumpToVariableAddressIfGt0
	OpAbsoluteJumpToVariableAddressIfLt0
	OpAbsoluteJumpToVariableAddressIfEq0
	OpUnconditionalJumpToRelativeAddress
	OpUnconditionalJumpToAbsoluteAddress
	OpUnconditionalJumpToRelativeVariableAddress
	OpUnconditionalJumpToAbsoluteVariableAddress

	OpSetStringTableEntry
	OpSetVariableStringTableEntry
	OpLoadStringItemLengthIntoVariable
	OpLoadVariableStringItemLengthIntoVariable
	OpLoadStringItemIntoVariables
	OpLoadVariableStringItemIntoVariables
	OpPrintVariableStringFromStringTable
	OpAppendVariableToPrintBuffer

	OpLoadMemorySizeIntoVariable
	OpLoadInputCountIntoVariable
	OpLoadOutputCountIntoVariable
	OpLoadCurrentAddressIntoVariable
	OpLoadStringTableLimitIntoVariable
	OpLoadStringTableItemLengthLimitIntoVariable
	OpLoadRandomValueIntoVariable

	OpPushVariableOnStack
	OpPushConstantOnStack
	OpPopVariableFromStack
	OpPopFromStack
	OpCheckIfStackIsEmpty

	OpPerformSystemCall

	OpTerminate
	OpTerminateWithVariableReturnCode

	opcodeCount
)

// opcodeNames backs Opcode.String() and the asm package's mnemonic table.
var opcodeNames = map[Opcode]string{
	OpNop:                          "nop",
	OpRegisterVariable:             "register_variable",
	OpUnregisterVariable:           "unregister_variable",
	OpSetVariableBehavior:          "set_variable_behavior",
	OpSetVariableValue:             "set_variable_value",
	OpCopyVariable:                 "copy_variable",
	OpSwapVariables:                "swap_variables",
	OpCheckIfVariableIsInput:       "check_if_variable_is_input",
	OpCheckIfVariableIsOutput:      "check_if_variable_is_output",
	OpCheckIfInputWasSet:           "check_if_input_was_set",
	OpAddConstantToVariable:        "add_constant_to_variable",
	OpSubtractConstantFromVariable: "subtract_constant_from_variable",
	OpAddVariableToVariable:        "add_variable_to_variable",
	OpSubtractVariableFromVariable: "subtract_variable_from_variable",
	OpBitwiseAndTwoVariables:       "bitwise_and_two_variables",
	OpBitwiseOrTwoVariables:        "bitwise_or_two_variables",
	OpBitwiseXorTwoVariables:       "bitwise_xor_two_variables",
	OpBitwiseInvertVariable:        "bitwise_invert_variable",
	OpBitShiftVariable:             "bit_shift_variable",
	OpVariableBitShiftVariable:     "variable_bit_shift_variable",
	OpRotateVariable:               "rotate_variable",
	OpVariableRotateVariable:       "variable_rotate_variable",
	OpModuloVariableByConstant:     "modulo_variable_by_constant",
	OpModuloVariableByVariable:     "modulo_variable_by_variable",

	OpRelativeJumpToAddressIfGt0:                 "rjmp_gt0",
	OpRelativeJumpToAddressIfLt0:                 "rjmp_lt0",
	OpRelativeJumpToAddressIfEq0:                 "rjmp_eq0",
	OpAbsoluteJumpToAddressIfGt0:                 "ajmp_gt0",
	OpAbsoluteJumpToAddressIfLt0:                 "ajmp_lt0",
	OpAbsoluteJumpToAddressIfEq0:                 "ajmp_eq0",
	OpRelativeJumpToVariableAddressIfGt0:         "rjmpv_gt0",
	OpRelativeJumpToVariableAddressIfLt0:         "rjmpv_lt0",
	OpRelativeJumpToVariableAddressIfEq0:         "rjmpv_eq0",
	OpAbsoluteJumpToVariableAddressIfGt0:         "ajmpv_gt0",
	OpAbsoluteJumpToVariableAddressIfLt0:         "ajmpv_lt0",
	OpAbsoluteJumpToVariableAddressIfEq0:         "ajmpv_eq0",
	OpUnconditionalJumpToRelativeAddress:         "rjmp",
	OpUnconditionalJumpToAbsoluteAddress:         "ajmp",
	OpUnconditionalJumpToRelativeVariableAddress: "rjmpv",
	OpUnconditionalJumpToAbsoluteVariableAddress: "ajmpv",

	OpSetStringTableEntry:                       "set_string_table_entry",
	OpSetVariableStringTableEntry:                "set_variable_string_table_entry",
	OpLoadStringItemLengthIntoVariable:           "load_string_item_length",
	OpLoadVariableStringItemLengthIntoVariable:   "load_variable_string_item_length",
	OpLoadStringItemIntoVariables:                "load_string_item",
	OpLoadVariableStringItemIntoVariables:        "load_variable_string_item",
	OpPrintVariableStringFromStringTable:         "print_variable_string",
	OpAppendVariableToPrintBuffer:                "print_variable",

	OpLoadMemorySizeIntoVariable:                 "load_memory_size",
	OpLoadInputCountIntoVariable:                 "load_input_count",
	OpLoadOutputCountIntoVariable:                "load_output_count",
	OpLoadCurrentAddressIntoVariable:              "load_current_address",
	OpLoadStringTableLimitIntoVariable:            "load_string_table_limit",
	OpLoadStringTableItemLengthLimitIntoVariable:  "load_string_table_item_length_limit",
	OpLoadRandomValueIntoVariable:                 "load_random_value",

	OpPushVariableOnStack:    "push_variable",
	OpPushConstantOnStack:    "push_constant",
	OpPopVariableFromStack:   "pop_variable",
	OpPopFromStack:           "pop",
	OpCheckIfStackIsEmpty:    "check_stack_empty",

	OpPerformSystemCall: "syscall",

	OpTerminate:                       "terminate",
	OpTerminateWithVariableReturnCode: "terminate_variable",
}

// String renders the opcode's mnemonic, or "?unknown?" if out of range.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "?unknown?"
}

var mnemonicToOpcode map[string]Opcode

func init() {
	mnemonicToOpcode = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		mnemonicToOpcode[name] = op
	}
}

// LookupMnemonic resolves an assembly mnemonic to its Opcode.
func LookupMnemonic(mnemonic string) (Opcode, bool) {
	op, ok := mnemonicToOpcode[mnemonic]
	return op, ok
}
