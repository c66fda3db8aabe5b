// Package bytecode provides a minimal stack-based virtual machine and the
// binary format it executes.
//
// A program is a flat byte stream with no header: each instruction is one
// opcode byte followed by a fixed-width operand of 0, 1 or 4 bytes.
// Four-byte operands are little-endian int32 values (see ByteOrder); the
// one-byte operand of STORE and LOAD is an unsigned memory index.
//
// # Architecture Overview
//
//   - Opcodes: sixteen instructions covering the operand stack, integer
//     arithmetic, comparison, absolute jumps, a byte-indexed memory bank and
//     subroutine calls. Opcode values are stable; 0x00 is never valid so
//     that running off the end of a program into the zero-filled code
//     buffer faults instead of executing.
//
//   - Program: an encoder for the instruction stream, shared by the
//     assembler and tests.
//
//   - VM: a fetch-decode-execute loop over a fixed-size code buffer,
//     operand stack, call stack and memory bank, sized by Config.
//
// # Failure Model
//
// Every capacity and operand check runs before the mutation it guards.
// A failing check stops the VM with a *Fault naming the condition, the
// address of the instruction and its opcode; the machine state is left
// exactly as it was before that instruction. Faults are terminal.
//
// The VM is single-threaded and has no cancellation. Config.MaxSteps lets
// a host bound programs that never halt.
package bytecode
