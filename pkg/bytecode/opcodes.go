package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Values are a versioned contract: changing one breaks every compiled program.
type Opcode byte

const (
	// OpInvalid is the zero byte that fills the unused tail of the code
	// buffer. It is never a valid instruction.
	OpInvalid Opcode = 0x00

	// ========================================================================
	// Stack manipulation (0x01-0x03)
	// ========================================================================

	OpPush Opcode = 0x01 // Push operand: OpPush <value:i32>
	OpPop  Opcode = 0x02 // Pop and discard top of stack
	OpDup  Opcode = 0x03 // Duplicate top of stack

	// ========================================================================
	// Arithmetic and comparison (0x04-0x08)
	// ========================================================================

	OpAdd Opcode = 0x04 // Pop two, push a + b
	OpSub Opcode = 0x05 // Pop two, push a - b (b is TOS)
	OpMul Opcode = 0x06 // Pop two, push a * b
	OpDiv Opcode = 0x07 // Pop two, push a / b, truncating toward zero
	OpCmp Opcode = 0x08 // Pop two, push 1 if a < b else 0

	// ========================================================================
	// Control flow (0x09-0x0B)
	// ========================================================================

	OpJmp Opcode = 0x09 // Unconditional jump: OpJmp <addr:i32>
	OpJz  Opcode = 0x0A // Pop, jump if zero: OpJz <addr:i32>
	OpJnz Opcode = 0x0B // Pop, jump if not zero: OpJnz <addr:i32>

	// ========================================================================
	// Memory bank (0x0C-0x0D)
	// ========================================================================

	OpStore Opcode = 0x0C // Pop into memory: OpStore <index:u8>
	OpLoad  Opcode = 0x0D // Push from memory: OpLoad <index:u8>

	// ========================================================================
	// Subroutines and termination (0x0E-0x10)
	// ========================================================================

	OpCall Opcode = 0x0E // Push return address, jump: OpCall <addr:i32>
	OpRet  Opcode = 0x0F // Pop return address into PC
	OpHalt Opcode = 0x10 // Stop and report top of stack
)

// OpcodeInfo provides metadata about each opcode for the assembler,
// the disassembler and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic as written in assembly source
	StackPop   int    // How many values popped from the operand stack
	StackPush  int    // How many values pushed to the operand stack
	OperandLen int    // Number of operand bytes following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPush: {"PUSH", 0, 1, 4},
	OpPop:  {"POP", 1, 0, 0},
	OpDup:  {"DUP", 1, 2, 0},

	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpCmp: {"CMP", 2, 1, 0},

	OpJmp: {"JMP", 0, 0, 4},
	OpJz:  {"JZ", 1, 0, 4},
	OpJnz: {"JNZ", 1, 0, 4},

	OpStore: {"STORE", 1, 0, 1},
	OpLoad:  {"LOAD", 0, 1, 1},

	OpCall: {"CALL", 0, 0, 4},
	OpRet:  {"RET", 0, 0, 0},
	OpHalt: {"HALT", 0, 0, 0},
}

// mnemonics is the reverse of opcodeInfoTable, built once at init.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupMnemonic maps an assembly mnemonic to its opcode.
// Matching is exact; "push" is not "PUSH".
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a member of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// AllOpcodes returns all defined opcodes in numeric order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := OpPush; op <= OpHalt; op++ {
		if op.Valid() {
			opcodes = append(opcodes, op)
		}
	}
	return opcodes
}
