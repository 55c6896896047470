// Package vm implements the BEAST bytecode virtual machine: an immutable
// Program container and a stateful VmSession that executes one Program.
package vm

import "encoding/binary"

// Program is an immutable, append-only sequence of bytecode bytes. It
// exposes a read cursor consumed by a VmSession while it decodes and
// executes instructions.
type Program struct {
	data   []byte
	cursor int
}

// NewProgram wraps raw bytecode bytes. The returned Program owns a copy of
// data so callers may reuse their buffer afterwards.
func NewProgram(data []byte) Program {
	owned := make([]byte, len(data))
	copy(owned, data)
	return Program{data: owned}
}

// Len returns the number of bytes in the program.
func (p *Program) Len() int {
	return len(p.data)
}

// Bytes returns the raw program bytes. The returned slice must not be
// mutated by callers.
func (p *Program) Bytes() []byte {
	return p.data
}

// Cursor returns the current read position.
func (p *Program) Cursor() int {
	return p.cursor
}

// SetCursor repositions the read cursor, clamped to [0, Len()].
func (p *Program) SetCursor(pos int) {
	switch {
	case pos < 0:
		p.cursor = 0
	case pos > len(p.data):
		p.cursor = len(p.data)
	default:
		p.cursor = pos
	}
}

// IsAtEnd reports whether the cursor has consumed the entire program.
func (p *Program) IsAtEnd() bool {
	return p.cursor >= len(p.data)
}

// getData1 consumes one signed byte at the cursor and advances it. ok is
// false if the cursor was already past the end; the cursor does not
// advance past end.
func (p *Program) getData1() (value int8, ok bool) {
	if p.cursor+1 > len(p.data) {
		return 0, false
	}
	value = int8(p.data[p.cursor])
	p.cursor++
	return value, true
}

// getData2 consumes two little-endian bytes as a signed 16-bit value.
func (p *Program) getData2() (value int16, ok bool) {
	if p.cursor+2 > len(p.data) {
		return 0, false
	}
	value = int16(binary.LittleEndian.Uint16(p.data[p.cursor:]))
	p.cursor += 2
	return value, true
}

// getData4 consumes four little-endian bytes as a signed 32-bit value.
func (p *Program) getData4() (value int32, ok bool) {
	if p.cursor+4 > len(p.data) {
		return 0, false
	}
	value = int32(binary.LittleEndian.Uint32(p.data[p.cursor:]))
	p.cursor += 4
	return value, true
}

// getBytes consumes n raw bytes at the cursor and advances it.
func (p *Program) getBytes(n int) ([]byte, bool) {
	if n < 0 || p.cursor+n > len(p.data) {
		return nil, false
	}
	b := p.data[p.cursor : p.cursor+n]
	p.cursor += n
	return b, true
}

// PutData1 appends a signed byte. Used by asm and generator to build
// programs.
func PutData1(buf []byte, v int8) []byte {
	return append(buf, byte(v))
}

// PutData2 appends a little-endian signed 16-bit value.
func PutData2(buf []byte, v int16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(v))
	return append(buf, tmp[:]...)
}

// PutData4 appends a little-endian signed 32-bit value.
func PutData4(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}
