// Package analysis performs static passes over a BEAST Program: counting
// provable no-ops, flagging dead jump targets, and flagging out-of-range
// string table references, all without executing the program.
package analysis

import (
	"encoding/binary"

	"github.com/disdain-project/beast/vm"
)

// Diagnostic is one finding from a static pass, located by byte offset.
type Diagnostic struct {
	Offset  int
	Message string
}

// decodeStep is shared by every pass in this package: it decodes exactly
// one instruction's opcode and the byte range its operands occupy,
// without interpreting them, by walking the same operand shapes the VM
// dispatcher uses.
type decodeStep struct {
	offset  int
	op      vm.Opcode
	operand []byte
}

// walk decodes every instruction in p in order, calling visit with each
// step. Decoding stops at the first malformed instruction (same
// truncated-operand condition the VM itself would fault on).
func walk(p *vm.Program, visit func(decodeStep)) {
	prog := *p
	prog.SetCursor(0)
	for !prog.IsAtEnd() {
		start := prog.Cursor()
		opByte, ok := readByte(&prog)
		if !ok {
			return
		}
		op := vm.Opcode(opByte)
		width, ok := operandWidth(op)
		if !ok {
			return
		}
		operand, ok := readN(&prog, width)
		if !ok {
			return
		}
		if opcodesWithStringSuffix[op] {
			n, ok := readInt32(&prog)
			if !ok {
				return
			}
			if n < 0 {
				return
			}
			strBytes, ok := readN(&prog, int(n))
			if !ok {
				return
			}
			operand = append(operand, binary.LittleEndian.AppendUint32(nil, uint32(n))...)
			operand = append(operand, strBytes...)
		}
		visit(decodeStep{offset: start, op: op, operand: operand})
	}
}

// CountInstructions counts the instructions a linear decode of p yields,
// independent of any particular execution path. Used as the denominator
// for the static no-op ratio.
func CountInstructions(p *vm.Program) int {
	count := 0
	walk(p, func(decodeStep) { count++ })
	return count
}

// CountStaticNoOps counts instructions that are provably no-ops without
// running them: explicit Nop, unconditional jumps whose target is the
// address of the immediately following instruction, and arithmetic,
// shift, or rotate-by-constant operations whose constant is the
// operation's identity element (add/subtract 0, shift/rotate by 0).
func CountStaticNoOps(p *vm.Program) int {
	count := 0
	walk(p, func(step decodeStep) {
		switch step.op {
		case vm.OpNop:
			count++
		case vm.OpUnconditionalJumpToRelativeAddress:
			if offset := decodeInt32(step.operand); offset == 0 {
				count++
			}
		case vm.OpAddConstantToVariable, vm.OpSubtractConstantFromVariable:
			if constant := decodeInt32(step.operand[5:9]); constant == 0 {
				count++
			}
		case vm.OpBitShiftVariable, vm.OpRotateVariable:
			if places := int8(step.operand[5]); places == 0 {
				count++
			}
		case vm.OpUnconditionalJumpToAbsoluteAddress:
			if target := decodeInt32(step.operand); int(target) == step.offset+1+len(step.operand) {
				count++
			}
		}
	})
	return count
}

// FindDeadJumpTargets reports every unconditional jump to a constant
// absolute address that falls outside the program, or to an address that
// is itself inside that same jump instruction's own encoded bytes
// (an unreachable self-loop a generator should never produce but a
// mutation might).
func FindDeadJumpTargets(p *vm.Program) []Diagnostic {
	var diags []Diagnostic
	walk(p, func(step decodeStep) {
		if step.op != vm.OpUnconditionalJumpToAbsoluteAddress {
			return
		}
		addr := decodeInt32(step.operand)
		if addr < 0 || int(addr) > p.Len() {
			diags = append(diags, Diagnostic{
				Offset:  step.offset,
				Message: "unconditional jump targets an out-of-range address",
			})
		} else if int(addr) >= step.offset && int(addr) < step.offset+1+len(step.operand) {
			diags = append(diags, Diagnostic{
				Offset:  step.offset,
				Message: "unconditional jump targets its own instruction bytes",
			})
		}
	})
	return diags
}

// FindOutOfRangeStringRefs reports every setStringTableEntry whose index
// falls outside [0, stringTableCount).
func FindOutOfRangeStringRefs(p *vm.Program, stringTableCount int) []Diagnostic {
	var diags []Diagnostic
	walk(p, func(step decodeStep) {
		if step.op != vm.OpSetStringTableEntry {
			return
		}
		idx := decodeInt32(step.operand[:4])
		if idx < 0 || int(idx) >= stringTableCount {
			diags = append(diags, Diagnostic{
				Offset:  step.offset,
				Message: "string table entry index out of range",
			})
		}
	})
	return diags
}
