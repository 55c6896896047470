package asm

import (
	"encoding/binary"

	"github.com/disdain-project/beast/vm"
)

// readByte, readInt32 and readN give Disassemble cursor-based access to a
// Program's bytes without reaching into vm's unexported decode helpers;
// Program's exported accessors are Bytes/Len/Cursor/SetCursor/IsAtEnd; analysis/decode.go
// uses the identical pattern for the same reason.

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
	return int32(binary.LittleEndian.Uint32(b)), true
}

func readN(p *vm.Program, n int) ([]byte, bool) {
	start := p.Cursor()
	if n < 0 || start+n > p.Len() {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, p.Bytes()[start:start+n])
	p.SetCursor(start + n)
	return out, true
}
