package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disdain-project/beast/vm"
)

// instruction is one parsed source line awaiting label resolution and
// encoding.
type instruction struct {
	lineNo int
	offset int
	op     vm.Opcode
	specs  []operand
	tokens []string
}

// Assemble compiles BEAST assembly source into a Program. Source syntax:
// one instruction per line ("mnemonic arg arg ..."), "@name:" to define a
// label at the current byte offset, "@name" as an int32 operand to
// reference one, and a leading ";" for a comment-only line. Bool operands
// accept "1"/"0"/"true"/"false", optionally prefixed with "$" for
// readability ("$1" reads as "follow links: yes"). String operands are
// double-quoted.
func Assemble(source string) (*vm.Program, error) {
	labels := map[string]int{}
	var instructions []instruction
	offset := 0

	for lineNo, rawLine := range strings.Split(source, "\n") {
		line := stripComment(rawLine)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "@") && strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(strings.TrimPrefix(line, "@"), ":")
			if name == "" {
				return nil, fmt.Errorf("asm: line %d: empty label name", lineNo+1)
			}
			if _, exists := labels[name]; exists {
				return nil, fmt.Errorf("asm: line %d: label %q redefined", lineNo+1, name)
			}
			labels[name] = offset
			continue
		}

		tokens := strings.Fields(line)
		mnemonic := tokens[0]
		args := tokens[1:]

		if mnemonic == ".string" {
			width, err := stringDirectiveWidth(lineNo, args)
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, instruction{lineNo: lineNo, offset: offset, op: vm.OpSetStringTableEntry, specs: operandSpecs[vm.OpSetStringTableEntry], tokens: args})
			offset += 1 + width
			continue
		}

		op, ok := vm.LookupMnemonic(mnemonic)
		if !ok {
			return nil, fmt.Errorf("asm: line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}
		specs, ok := operandSpecs[op]
		if !ok {
			return nil, fmt.Errorf("asm: line %d: opcode %q has no operand spec", lineNo+1, mnemonic)
		}
		if len(args) != len(specs) {
			return nil, fmt.Errorf("asm: line %d: %q expects %d operands, got %d", lineNo+1, mnemonic, len(specs), len(args))
		}

		width, err := instructionWidth(lineNo, specs, args)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instruction{lineNo: lineNo, offset: offset, op: op, specs: specs, tokens: args})
		offset += 1 + width
	}

	var buf []byte
	for _, instr := range instructions {
		encoded, err := encodeInstruction(instr, labels, offset)
		if err != nil {
			return nil, err
		}
		buf = append(buf, encoded...)
	}

	program := vm.NewProgram(buf)
	return &program, nil
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// instructionWidth computes the byte width of one instruction's operands
// (not counting the opcode byte itself), needed up front so later labels
// can be resolved against correct offsets.
func instructionWidth(lineNo int, specs []operand, args []string) (int, error) {
	width := 0
	for i, spec := range specs {
		switch spec.kind {
		case kindInt32:
			width += 4
		case kindInt8:
			width += 1
		case kindBool:
			width += 1
		case kindString:
			content, err := parseStringLiteral(args[i])
			if err != nil {
				return 0, fmt.Errorf("asm: line %d: %w", lineNo+1, err)
			}
			width += 4 + len(content)
		}
	}
	return width, nil
}

func stringDirectiveWidth(lineNo int, args []string) (int, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("asm: line %d: .string expects 2 arguments (index, content)", lineNo+1)
	}
	content, err := parseStringLiteral(args[1])
	if err != nil {
		return 0, fmt.Errorf("asm: line %d: %w", lineNo+1, err)
	}
	return 4 + 4 + len(content), nil
}

func encodeInstruction(instr instruction, labels map[string]int, programLen int) ([]byte, error) {
	buf := []byte{byte(instr.op)}
	nextOffset := instr.offset + 1 + widthOf(instr.specs, instr.tokens)

	for i, spec := range instr.specs {
		tok := instr.tokens[i]
		switch spec.kind {
		case kindInt32:
			value, err := resolveInt32(tok, spec.addr, labels, nextOffset, instr.lineNo)
			if err != nil {
				return nil, err
			}
			buf = vm.PutData4(buf, value)
		case kindInt8:
			v, err := strconv.ParseInt(tok, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("asm: line %d: bad int8 operand %q: %w", instr.lineNo+1, tok, err)
			}
			buf = vm.PutData1(buf, int8(v))
		case kindBool:
			buf = vm.PutData1(buf, boolByte(parseBool(tok)))
		case kindString:
			content, err := parseStringLiteral(tok)
			if err != nil {
				return nil, fmt.Errorf("asm: line %d: %w", instr.lineNo+1, err)
			}
			buf = vm.PutData4(buf, int32(len(content)))
			buf = append(buf, content...)
		}
	}
	return buf, nil
}

func widthOf(specs []operand, tokens []string) int {
	width := 0
	for i, spec := range specs {
		switch spec.kind {
		case kindInt32:
			width += 4
		case kindInt8, kindBool:
			width += 1
		case kindString:
			content, _ := parseStringLiteral(tokens[i])
			width += 4 + len(content)
		}
	}
	return width
}

func resolveInt32(tok string, mode addrMode, labels map[string]int, nextOffset int, lineNo int) (int32, error) {
	if strings.HasPrefix(tok, "@") {
		name := strings.TrimPrefix(tok, "@")
		target, ok := labels[name]
		if !ok {
			return 0, fmt.Errorf("asm: line %d: undefined label %q", lineNo+1, name)
		}
		switch mode {
		case addrRelative:
			return int32(target - nextOffset), nil
		default:
			return int32(target), nil
		}
	}
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("asm: line %d: bad int32 operand %q: %w", lineNo+1, tok, err)
	}
	return int32(v), nil
}

func parseBool(tok string) bool {
	switch strings.TrimPrefix(tok, "$") {
	case "1", "true":
		return true
	default:
		return false
	}
}

func boolByte(v bool) int8 {
	if v {
		return 1
	}
	return 0
}

func parseStringLiteral(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", fmt.Errorf("bad string literal %q, expected double quotes", tok)
	}
	return tok[1 : len(tok)-1], nil
}
