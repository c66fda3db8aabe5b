package bytecode

import (
	"errors"
	"fmt"
)

// Fault conditions. Every fault halts the VM; none is recoverable.
var (
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrCallStackOverflow  = errors.New("call stack overflow")
	ErrCallStackUnderflow = errors.New("call stack underflow")
	ErrMemoryOutOfBounds  = errors.New("memory index out of bounds")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrPCOutOfBounds      = errors.New("PC out of bounds")
	ErrStepLimit          = errors.New("step limit exceeded")
)

// ErrNotRunning is returned by Step and Run once the VM has halted or faulted.
var ErrNotRunning = errors.New("vm is not running")

// ErrOperandRange is returned by EmitInstruction when an operand does not
// fit the width of its opcode.
var ErrOperandRange = errors.New("operand out of range")

// ErrProgramTooLarge is returned when a program does not fit in the code buffer.
var ErrProgramTooLarge = errors.New("program exceeds code buffer")

// Fault records the condition that stopped the VM and where it happened.
type Fault struct {
	Kind error  // One of the Err* fault sentinels
	PC   int    // Address of the faulting instruction
	Op   Opcode // Opcode being executed; OpInvalid when the fetch itself failed
}

func (f *Fault) Error() string {
	switch {
	case f.Kind == ErrInvalidOpcode:
		return fmt.Sprintf("%v 0x%02X at 0x%04X", f.Kind, byte(f.Op), f.PC)
	case !f.Op.Valid():
		return fmt.Sprintf("%v at 0x%04X", f.Kind, f.PC)
	}
	return fmt.Sprintf("%v at 0x%04X (%s)", f.Kind, f.PC, f.Op)
}

// Unwrap lets errors.Is match a fault against its sentinel.
func (f *Fault) Unwrap() error {
	return f.Kind
}

// AsFault returns the Fault in err's chain, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
