package assembler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"

	"github.com/chazu/stackvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustAssemble(t *testing.T, source string) []byte {
	t.Helper()
	code, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble(%q): %v", source, err)
	}
	return code
}

// run assembles source and executes it under the default configuration.
func run(t *testing.T, source string) (*bytecode.VM, bytecode.Result, error) {
	t.Helper()
	vm, err := bytecode.NewVM(bytecode.DefaultConfig())
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	if err := vm.Load(mustAssemble(t, source)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := vm.Run()
	return vm, res, err
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func TestAssembleEncoding(t *testing.T) {
	tests := []struct {
		source string
		want   []byte
	}{
		{"PUSH 2", []byte{0x01, 0x02, 0x00, 0x00, 0x00}},
		{"PUSH -1", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"PUSH +7", []byte{0x01, 0x07, 0x00, 0x00, 0x00}},
		{"PUSH 2147483647", []byte{0x01, 0xFF, 0xFF, 0xFF, 0x7F}},
		{"PUSH -2147483648", []byte{0x01, 0x00, 0x00, 0x00, 0x80}},
		{"JMP 256", []byte{0x09, 0x00, 0x01, 0x00, 0x00}},
		{"JZ 5", []byte{0x0A, 0x05, 0x00, 0x00, 0x00}},
		{"JNZ 6", []byte{0x0B, 0x06, 0x00, 0x00, 0x00}},
		{"CALL 20", []byte{0x0E, 0x14, 0x00, 0x00, 0x00}},
		{"STORE 0", []byte{0x0C, 0x00}},
		{"LOAD 255", []byte{0x0D, 0xFF}},
		{"POP DUP ADD SUB MUL DIV CMP RET HALT", []byte{0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x0F, 0x10}},
		{"", []byte{}},
		{"; nothing but a comment\n", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := mustAssemble(t, tt.source)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Assemble(%q) = % X, want % X", tt.source, got, tt.want)
			}
		})
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	source := `
		PUSH 10 STORE 0
		LOAD 0 PUSH 1 SUB DUP STORE 0
		JNZ 7
		HALT
	`
	a := mustAssemble(t, source)
	b := mustAssemble(t, source)
	if !bytes.Equal(a, b) {
		t.Errorf("two assemblies differ:\n% X\n% X", a, b)
	}
}

func TestAssembleReader(t *testing.T) {
	code, err := AssembleReader(strings.NewReader("PUSH 1 HALT"))
	if err != nil {
		t.Fatalf("AssembleReader: %v", err)
	}
	if want := []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x10}; !bytes.Equal(code, want) {
		t.Errorf("got % X, want % X", code, want)
	}
}

func TestAssembleLogsSize(t *testing.T) {
	var buf bytes.Buffer
	backend := simple.NewBackend()
	backend.Buffered = false
	backend.Configure(2, nil)
	backend.Writer = &buf
	commonlog.SetBackend(backend)
	t.Cleanup(func() { commonlog.SetBackend(nil) })

	mustAssemble(t, "PUSH 1 HALT")
	mustAssemble(t, "HALT")

	out := buf.String()
	if !strings.Contains(out, "assembled 6 bytes") || !strings.Contains(out, "assembled 1 bytes") {
		t.Errorf("debug log = %q, want both assembly sizes", out)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
		token  string
		line   int
		col    int
	}{
		{"unknown mnemonic", "PUSH 1\nNOP", ErrUnknownMnemonic, "NOP", 2, 1},
		{"lower case", "halt", ErrUnknownMnemonic, "halt", 1, 1},
		{"stray integer", "PUSH 1 2", ErrUnknownMnemonic, "2", 1, 8},
		{"missing operand", "ADD PUSH", ErrMissingOperand, "PUSH", 1, 5},
		{"missing operand before comment", "JMP ; where?", ErrMissingOperand, "JMP", 1, 1},
		{"operand is mnemonic", "PUSH HALT", ErrBadOperand, "HALT", 1, 6},
		{"hex operand", "PUSH 0x10", ErrBadOperand, "0x10", 1, 6},
		{"operand too large", "PUSH 2147483648", ErrBadOperand, "2147483648", 1, 6},
		{"index too large", "STORE 256", ErrIndexOutOfRange, "256", 1, 7},
		{"negative index", "LOAD -1", ErrIndexOutOfRange, "-1", 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Assemble(tt.source)
			if code != nil {
				t.Errorf("Assemble returned %d bytes alongside an error", len(code))
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var aerr *Error
			if !errors.As(err, &aerr) {
				t.Fatalf("error %T is not *Error", err)
			}
			if aerr.Token != tt.token {
				t.Errorf("token = %q, want %q", aerr.Token, tt.token)
			}
			if aerr.Pos.Line != tt.line || aerr.Pos.Column != tt.col {
				t.Errorf("pos = %s, want %d:%d", aerr.Pos, tt.line, tt.col)
			}
		})
	}
}

func TestErrorMessageNamesToken(t *testing.T) {
	_, err := Assemble("PUSH 1\n  FROB")
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), `2:3: unknown instruction: "FROB"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Assemble and execute
// ---------------------------------------------------------------------------

func TestRoundTripAdd(t *testing.T) {
	_, res, err := run(t, "PUSH 2 PUSH 3 ADD HALT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Empty || res.Value != 5 {
		t.Errorf("result = %+v, want 5", res)
	}
}

func TestUnderflowOnEmptyStack(t *testing.T) {
	vm, _, err := run(t, "ADD HALT")
	if !errors.Is(err, bytecode.ErrStackUnderflow) {
		t.Fatalf("error = %v, want stack underflow", err)
	}
	if vm.State() != bytecode.StateFaulted {
		t.Errorf("state = %s, want faulted", vm.State())
	}
}

func TestDivisionByZeroPushesNothing(t *testing.T) {
	vm, _, err := run(t, "PUSH 5 PUSH 0 DIV HALT")
	if !errors.Is(err, bytecode.ErrDivisionByZero) {
		t.Fatalf("error = %v, want division by zero", err)
	}
	if got := vm.Stack(); len(got) != 2 || got[0] != 5 || got[1] != 0 {
		t.Errorf("stack = %v, want [5 0]", got)
	}
}

func TestConditionalSkip(t *testing.T) {
	// PUSH 0 (0) JZ (5) PUSH 1 (10) HALT (15) PUSH 99 (16) HALT (21)
	_, res, err := run(t, "PUSH 0 JZ 16 PUSH 1 HALT PUSH 99 HALT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Value != 99 {
		t.Errorf("result = %d, want 99", res.Value)
	}
}

func TestCallAndReturn(t *testing.T) {
	// CALL (0) HALT (5) PUSH 7 (6) RET (11)
	vm, res, err := run(t, "CALL 6 HALT PUSH 7 RET")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Value != 7 {
		t.Errorf("result = %d, want 7", res.Value)
	}
	if vm.PC() != 6 {
		t.Errorf("PC = %d, want 6: execution resumes after the CALL", vm.PC())
	}
}

func TestFactorial(t *testing.T) {
	// mem[0] = n, mem[1] = acc
	source := `
		PUSH 5  STORE 0      ; 0
		PUSH 1  STORE 1      ; 7
		LOAD 1  LOAD 0  MUL  ; 14: loop
		STORE 1
		LOAD 0  PUSH 1  SUB
		DUP     STORE 0
		JNZ 14               ; 32
		LOAD 1
		HALT
	`
	_, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Value != 120 {
		t.Errorf("5! = %d, want 120", res.Value)
	}
}

func TestDisassemblyReassembles(t *testing.T) {
	source := "PUSH -4 STORE 3 LOAD 3 DUP MUL CALL 21 HALT PUSH 1 ADD RET JMP 0 JZ 1 JNZ 2 POP SUB DIV CMP"
	code := mustAssemble(t, source)

	again := mustAssemble(t, bytecode.Disassemble(code))
	if !bytes.Equal(code, again) {
		t.Errorf("reassembled disassembly differs:\n% X\n% X", code, again)
	}
}
