package bytecode

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder is the byte order of every multi-byte operand. The assembler
// and the VM both encode through it.
var ByteOrder = binary.LittleEndian

// Program is an assembled instruction stream: opcode bytes each followed by
// their fixed-width operand. There is no header.
type Program struct {
	Code []byte
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{Code: make([]byte, 0, 64)}
}

// Emit appends an operand-less opcode and returns its offset.
func (p *Program) Emit(op Opcode) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	return offset
}

// EmitInt32 appends an opcode with a 4-byte operand and returns its offset.
func (p *Program) EmitInt32(op Opcode, v int32) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op))
	p.Code = ByteOrder.AppendUint32(p.Code, uint32(v))
	return offset
}

// EmitIndex appends an opcode with a 1-byte memory index and returns its offset.
func (p *Program) EmitIndex(op Opcode, idx uint8) int {
	offset := len(p.Code)
	p.Code = append(p.Code, byte(op), idx)
	return offset
}

// EmitInstruction appends op with operand encoded at the width op requires.
// The operand is ignored for opcodes that take none.
func (p *Program) EmitInstruction(op Opcode, operand int32) (int, error) {
	switch op.OperandLen() {
	case 0:
		if !op.Valid() {
			return 0, fmt.Errorf("cannot emit %s", op)
		}
		return p.Emit(op), nil
	case 1:
		if operand < 0 || operand > 0xFF {
			return 0, fmt.Errorf("%w: %s %d does not fit in one byte", ErrOperandRange, op, operand)
		}
		return p.EmitIndex(op, uint8(operand)), nil
	case 4:
		return p.EmitInt32(op, operand), nil
	}
	return 0, fmt.Errorf("cannot emit %s", op)
}

// CurrentOffset returns the offset the next instruction will be emitted at.
func (p *Program) CurrentOffset() int {
	return len(p.Code)
}

// Bytes returns the encoded program.
func (p *Program) Bytes() []byte {
	return p.Code
}

// decodeInt32 reads a 4-byte operand at offset. The caller checks bounds.
func decodeInt32(code []byte, offset int) int32 {
	return int32(ByteOrder.Uint32(code[offset:]))
}
