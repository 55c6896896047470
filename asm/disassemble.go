package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disdain-project/beast/vm"
)

// Disassemble renders a Program back into BEAST assembly text, one
// instruction per line preceded by an offset comment. Jump operands are
// rendered as raw byte offsets rather than synthesized labels, since a
// Program carries no label names of its own.
func Disassemble(p *vm.Program) string {
	prog := *p
	prog.SetCursor(0)

	var out strings.Builder
	for prog.Cursor() < prog.Len() {
		offset := prog.Cursor()
		opByte, ok := readByte(&prog)
		if !ok {
			break
		}
		op := vm.Opcode(opByte)
		specs, known := operandSpecs[op]
		if !known {
			fmt.Fprintf(&out, "; offset %d: unknown opcode %d\n", offset, opByte)
			break
		}

		tokens := make([]string, 0, len(specs))
		ok = true
		for _, spec := range specs {
			tok, good := decodeOperand(&prog, spec)
			if !good {
				ok = false
				break
			}
			tokens = append(tokens, tok)
		}
		if !ok {
			fmt.Fprintf(&out, "; offset %d: truncated operand for %s\n", offset, op)
			break
		}

		fmt.Fprintf(&out, "; %d\n", offset)
		if len(tokens) == 0 {
			fmt.Fprintf(&out, "%s\n", op)
		} else {
			fmt.Fprintf(&out, "%s %s\n", op, strings.Join(tokens, " "))
		}
	}
	return out.String()
}

func decodeOperand(prog *vm.Program, spec operand) (string, bool) {
	switch spec.kind {
	case kindInt32:
		v, ok := readInt32(prog)
		if !ok {
			return "", false
		}
		return strconv.Itoa(int(v)), true
	case kindInt8:
		b, ok := readByte(prog)
		if !ok {
			return "", false
		}
		return strconv.Itoa(int(int8(b))), true
	case kindBool:
		b, ok := readByte(prog)
		if !ok {
			return "", false
		}
		if b != 0 {
			return "1", true
		}
		return "0", true
	case kindString:
		length, ok := readInt32(prog)
		if !ok || length < 0 {
			return "", false
		}
		raw, ok := readN(prog, int(length))
		if !ok {
			return "", false
		}
		return strconv.Quote(string(raw)), true
	}
	return "", false
}
