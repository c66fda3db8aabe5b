package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of code. Each line carries
// the instruction offset as a comment, so the listing assembles back to
// the same bytes as long as it contains no unknown opcodes.
func Disassemble(code []byte) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; %d bytes\n", len(code)))
	offset := 0
	for offset < len(code) {
		line, instrLen := DisassembleInstruction(code, offset)
		sb.WriteString(fmt.Sprintf("%-24s ; %04X\n", line, offset))
		offset += instrLen
	}

	return sb.String()
}

// DisassembleInstruction disassembles the instruction at offset.
// Returns the formatted text and the number of bytes it occupies.
func DisassembleInstruction(code []byte, offset int) (string, int) {
	if offset < 0 || offset >= len(code) {
		return "<end of code>", 0
	}

	op := Opcode(code[offset])
	info, ok := opcodeInfoTable[op]
	if !ok {
		return fmt.Sprintf(".byte 0x%02X", byte(op)), 1
	}

	operandStart := offset + 1
	if operandStart+info.OperandLen > len(code) {
		return fmt.Sprintf("%s <truncated operand>", info.Name), len(code) - offset
	}

	switch info.OperandLen {
	case 4:
		return fmt.Sprintf("%s %d", info.Name, decodeInt32(code, operandStart)), op.InstructionLen()
	case 1:
		return fmt.Sprintf("%s %d", info.Name, code[operandStart]), op.InstructionLen()
	default:
		return info.Name, op.InstructionLen()
	}
}
