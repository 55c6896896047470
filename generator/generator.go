// Package generator builds random, syntactically valid BEAST programs to
// seed an evolutionary pipeline's first generation.
package generator

import (
	"math/rand/v2"

	"github.com/disdain-project/beast/vm"
)

// RandomOptions bounds a generated program's shape.
type RandomOptions struct {
	VariableCount    int
	InstructionCount int
	// ConstantRange bounds the magnitude of generated integer constants;
	// values are drawn from [-ConstantRange, ConstantRange].
	ConstantRange int32
}

// simpleOps lists the opcodes Random is willing to emit mid-program: ones
// whose operands are trivially safe to generate at random (in-range
// variable indices, bounded constants) without risking an immediate
// fault that would make most random programs score zero on dyn_score.
var simpleOps = []vm.Opcode{
	vm.OpSetVariableValue,
	vm.OpAddConstantToVariable,
	vm.OpSubtractConstantFromVariable,
	vm.OpAddVariableToVariable,
	vm.OpSubtractVariableFromVariable,
	vm.OpBitwiseAndTwoVariables,
	vm.OpBitwiseOrTwoVariables,
	vm.OpBitwiseXorTwoVariables,
	vm.OpBitwiseInvertVariable,
	vm.OpRotateVariable,
	vm.OpAppendVariableToPrintBuffer,
	vm.OpLoadRandomValueIntoVariable,
	vm.OpNop,
}

// Random builds a candidate program: a preamble registering
// opts.VariableCount Int32 variables, opts.InstructionCount randomly
// chosen simple instructions with in-range operands, and a trailing
// terminate.
func Random(rng *rand.Rand, opts RandomOptions) []byte {
	var buf []byte

	for i := 0; i < opts.VariableCount; i++ {
		buf = append(buf, byte(vm.OpRegisterVariable))
		buf = vm.PutData4(buf, int32(i))
		buf = vm.PutData1(buf, int8(vm.VarInt32))
	}

	for i := 0; i < opts.InstructionCount; i++ {
		op := simpleOps[rng.IntN(len(simpleOps))]
		buf = appendInstruction(buf, rng, op, opts)
	}

	buf = append(buf, byte(vm.OpTerminate))
	buf = vm.PutData1(buf, vm.ReturnCodeOK)
	return buf
}

func (o RandomOptions) randomVar(rng *rand.Rand) int32 {
	return int32(rng.IntN(o.VariableCount))
}

func (o RandomOptions) randomConstant(rng *rand.Rand) int32 {
	if o.ConstantRange <= 0 {
		return 0
	}
	return int32(rng.IntN(int(2*o.ConstantRange+1))) - o.ConstantRange
}

func appendInstruction(buf []byte, rng *rand.Rand, op vm.Opcode, opts RandomOptions) []byte {
	buf = append(buf, byte(op))
	switch op {
	case vm.OpNop:
		// no operands

	case vm.OpSetVariableValue:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
		buf = vm.PutData4(buf, opts.randomConstant(rng))

	case vm.OpAddConstantToVariable, vm.OpSubtractConstantFromVariable:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
		buf = vm.PutData4(buf, opts.randomConstant(rng))

	case vm.OpAddVariableToVariable, vm.OpSubtractVariableFromVariable,
		vm.OpBitwiseAndTwoVariables, vm.OpBitwiseOrTwoVariables, vm.OpBitwiseXorTwoVariables:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
		buf = vm.PutData1(buf, 0)

	case vm.OpBitwiseInvertVariable:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)

	case vm.OpRotateVariable:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
		buf = vm.PutData1(buf, int8(rng.IntN(31)+1))

	case vm.OpAppendVariableToPrintBuffer:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
		buf = vm.PutData1(buf, 0)

	case vm.OpLoadRandomValueIntoVariable:
		buf = vm.PutData4(buf, opts.randomVar(rng))
		buf = vm.PutData1(buf, 0)
	}
	return buf
}
