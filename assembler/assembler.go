// Package assembler translates textual stack machine assembly into the
// bytecode format executed by pkg/bytecode.
//
// Source is a sequence of whitespace-separated words. Every word is either
// an upper-case mnemonic or, directly after a mnemonic that takes one, a
// decimal integer operand. Addresses are literal byte offsets; there are no
// labels. Assembly is single pass and performs no semantic checks on jump
// targets or call/return balance.
package assembler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackvm/pkg/bytecode"
)

var log = commonlog.GetLogger("stackvm.assembler")

// Assembly failure conditions.
var (
	ErrUnknownMnemonic = errors.New("unknown instruction")
	ErrMissingOperand  = errors.New("missing operand")
	ErrBadOperand      = errors.New("operand is not a decimal 32-bit integer")
	ErrIndexOutOfRange = errors.New("memory index out of range 0..255")
)

// Error reports the token that stopped assembly.
type Error struct {
	Pos   Position
	Token string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Pos, e.Err, e.Token)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Assemble translates source into bytecode. On error no bytes are returned.
func Assemble(source string) ([]byte, error) {
	lex := NewLexer(source)
	prog := bytecode.NewProgram()

	for {
		tok, ok := lex.Next()
		if !ok {
			break
		}

		op, known := bytecode.LookupMnemonic(tok.Literal)
		if !known {
			return nil, &Error{Pos: tok.Pos, Token: tok.Literal, Err: ErrUnknownMnemonic}
		}

		if op.OperandLen() == 0 {
			if _, err := prog.EmitInstruction(op, 0); err != nil {
				return nil, &Error{Pos: tok.Pos, Token: tok.Literal, Err: err}
			}
			continue
		}

		arg, ok := lex.Next()
		if !ok {
			return nil, &Error{Pos: tok.Pos, Token: tok.Literal, Err: ErrMissingOperand}
		}
		v, err := strconv.ParseInt(arg.Literal, 10, 32)
		if err != nil {
			return nil, &Error{Pos: arg.Pos, Token: arg.Literal, Err: ErrBadOperand}
		}

		if _, err := prog.EmitInstruction(op, int32(v)); err != nil {
			if errors.Is(err, bytecode.ErrOperandRange) {
				err = ErrIndexOutOfRange
			}
			return nil, &Error{Pos: arg.Pos, Token: arg.Literal, Err: err}
		}
	}

	log.Debugf("assembled %d bytes", prog.CurrentOffset())
	return prog.Bytes(), nil
}

// AssembleReader reads all of r and assembles it.
func AssembleReader(r io.Reader) ([]byte, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return Assemble(string(src))
}
