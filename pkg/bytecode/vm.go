package bytecode

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// State is the lifecycle state of a VM.
type State int

const (
	StateReady   State = iota // Loaded, no instruction executed yet
	StateRunning              // Executing
	StateHalted               // Stopped by HALT
	StateFaulted              // Stopped by a fault
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is what a clean HALT reports.
type Result struct {
	Value int32  // Top of stack at HALT; meaningless when Empty
	Empty bool   // The operand stack was empty at HALT
	Steps uint64 // Instructions executed, HALT included
}

func (r Result) String() string {
	if r.Empty {
		return "Stack empty"
	}
	return fmt.Sprintf("Top of stack = %d", r.Value)
}

// VM executes one program against a fixed-capacity machine.
// A VM is single-use and not safe for concurrent use.
type VM struct {
	id  uuid.UUID
	cfg Config
	log commonlog.Logger

	code []byte // Code buffer, always cfg.CodeSize bytes, zero filled
	size int    // Length of the loaded program
	pc   int    // Program counter

	stack []int32 // Operand stack, capacity cfg.StackSize
	sp    int     // Stack pointer: number of live values

	memory []int32 // Memory bank, cfg.MemorySize cells

	calls []int // Return addresses, capacity cfg.CallStackSize
	csp   int   // Call stack pointer

	state  State
	fault  *Fault
	steps  uint64
	result Result
}

// NewVM creates a zeroed VM sized by cfg.
func NewVM(cfg Config) (*VM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vm config: %w", err)
	}
	return &VM{
		id:     uuid.New(),
		cfg:    cfg,
		log:    commonlog.GetLogger("stackvm.bytecode"),
		code:   make([]byte, cfg.CodeSize),
		stack:  make([]int32, cfg.StackSize),
		memory: make([]int32, cfg.MemorySize),
		calls:  make([]int, cfg.CallStackSize),
	}, nil
}

// Load copies a program into the code buffer and resets all machine state.
func (vm *VM) Load(code []byte) error {
	if len(code) > len(vm.code) {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrProgramTooLarge, len(code), len(vm.code))
	}
	clear(vm.code)
	copy(vm.code, code)
	vm.size = len(code)

	clear(vm.stack)
	clear(vm.memory)
	clear(vm.calls)
	vm.pc, vm.sp, vm.csp = 0, 0, 0
	vm.state = StateReady
	vm.fault = nil
	vm.steps = 0
	vm.result = Result{}

	vm.log.Infof("run %s: loaded %d bytes", vm.id, vm.size)
	return nil
}

// LoadFrom reads a whole program from r and loads it.
func (vm *VM) LoadFrom(r io.Reader) error {
	code, err := io.ReadAll(io.LimitReader(r, int64(len(vm.code))+1))
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	return vm.Load(code)
}

// Run executes until HALT or a fault.
// A fault is returned as a *Fault wrapping one of the Err* sentinels.
func (vm *VM) Run() (Result, error) {
	if err := vm.begin(); err != nil {
		return Result{}, err
	}
	for vm.state == StateRunning {
		if err := vm.step(); err != nil {
			return Result{}, err
		}
	}
	vm.log.Infof("run %s: halted after %d steps, %s", vm.id, vm.steps, vm.result)
	return vm.result, nil
}

// Step executes a single instruction.
func (vm *VM) Step() error {
	if err := vm.begin(); err != nil {
		return err
	}
	return vm.step()
}

func (vm *VM) begin() error {
	switch vm.state {
	case StateReady:
		vm.state = StateRunning
	case StateHalted, StateFaulted:
		return ErrNotRunning
	}
	return nil
}

// step runs one fetch-decode-execute cycle. Every check happens before
// the mutation it guards, so a fault leaves the machine as it was.
func (vm *VM) step() error {
	at := vm.pc
	if vm.cfg.MaxSteps > 0 && vm.steps >= vm.cfg.MaxSteps {
		return vm.fail(ErrStepLimit, at, OpInvalid)
	}
	if at < 0 || at >= len(vm.code) {
		return vm.fail(ErrPCOutOfBounds, at, OpInvalid)
	}

	op := Opcode(vm.code[at])
	info, ok := opcodeInfoTable[op]
	if !ok {
		return vm.fail(ErrInvalidOpcode, at, op)
	}
	if at+1+info.OperandLen > len(vm.code) {
		return vm.fail(ErrPCOutOfBounds, at, op)
	}
	if vm.sp < info.StackPop {
		return vm.fail(ErrStackUnderflow, at, op)
	}
	if vm.sp-info.StackPop+info.StackPush > len(vm.stack) {
		return vm.fail(ErrStackOverflow, at, op)
	}

	if vm.cfg.Trace {
		line, _ := DisassembleInstruction(vm.code, at)
		vm.log.Debugf("[%04x] %-16s sp=%d csp=%d", at, line, vm.sp, vm.csp)
	}

	vm.pc = at + 1

	switch op {
	// ============ Stack Operations ============
	case OpPush:
		vm.push(vm.readInt32())

	case OpPop:
		vm.sp--

	case OpDup:
		vm.push(vm.stack[vm.sp-1])

	// ============ Arithmetic ============
	case OpAdd:
		b, a := vm.pop(), vm.pop()
		vm.push(a + b)

	case OpSub:
		b, a := vm.pop(), vm.pop()
		vm.push(a - b)

	case OpMul:
		b, a := vm.pop(), vm.pop()
		vm.push(a * b)

	case OpDiv:
		if vm.stack[vm.sp-1] == 0 {
			return vm.fail(ErrDivisionByZero, at, op)
		}
		b, a := vm.pop(), vm.pop()
		vm.push(a / b)

	case OpCmp:
		b, a := vm.pop(), vm.pop()
		if a < b {
			vm.push(1)
		} else {
			vm.push(0)
		}

	// ============ Control Flow ============
	case OpJmp:
		vm.pc = int(vm.readInt32())

	case OpJz:
		addr := vm.readInt32()
		if vm.pop() == 0 {
			vm.pc = int(addr)
		}

	case OpJnz:
		addr := vm.readInt32()
		if vm.pop() != 0 {
			vm.pc = int(addr)
		}

	// ============ Memory ============
	case OpStore:
		idx := int(vm.code[vm.pc])
		if idx >= len(vm.memory) {
			return vm.fail(ErrMemoryOutOfBounds, at, op)
		}
		vm.pc++
		vm.memory[idx] = vm.pop()

	case OpLoad:
		idx := int(vm.code[vm.pc])
		if idx >= len(vm.memory) {
			return vm.fail(ErrMemoryOutOfBounds, at, op)
		}
		vm.pc++
		vm.push(vm.memory[idx])

	// ============ Subroutines ============
	case OpCall:
		if vm.csp >= len(vm.calls) {
			return vm.fail(ErrCallStackOverflow, at, op)
		}
		addr := vm.readInt32()
		vm.calls[vm.csp] = vm.pc
		vm.csp++
		vm.pc = int(addr)

	case OpRet:
		if vm.csp == 0 {
			return vm.fail(ErrCallStackUnderflow, at, op)
		}
		vm.csp--
		vm.pc = vm.calls[vm.csp]

	case OpHalt:
		vm.state = StateHalted
		vm.result = Result{Empty: vm.sp == 0, Steps: vm.steps + 1}
		if vm.sp > 0 {
			vm.result.Value = vm.stack[vm.sp-1]
		}

	default:
		// Unreachable: every member of opcodeInfoTable has a case above.
		return vm.fail(ErrInvalidOpcode, at, op)
	}
	vm.steps++
	return nil
}

// fail records a fault and stops the machine. The program counter is
// left on the faulting instruction.
func (vm *VM) fail(kind error, at int, op Opcode) error {
	f := &Fault{Kind: kind, PC: at, Op: op}
	vm.pc = at
	vm.state = StateFaulted
	vm.fault = f
	vm.log.Infof("run %s: %v", vm.id, f)
	return f
}

// Stack helpers. Capacity is checked in step before these run.

func (vm *VM) push(v int32) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() int32 {
	vm.sp--
	return vm.stack[vm.sp]
}

// readInt32 consumes a 4-byte operand at the program counter.
func (vm *VM) readInt32() int32 {
	v := decodeInt32(vm.code, vm.pc)
	vm.pc += 4
	return v
}

// ID returns the run identifier used in logs and snapshots.
func (vm *VM) ID() uuid.UUID { return vm.id }

// Config returns the capacities the VM was built with.
func (vm *VM) Config() Config { return vm.cfg }

// State returns the lifecycle state.
func (vm *VM) State() State { return vm.state }

// Fault returns the fault that stopped the VM, or nil.
func (vm *VM) Fault() *Fault { return vm.fault }

// PC returns the program counter.
func (vm *VM) PC() int { return vm.pc }

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() uint64 { return vm.steps }

// ProgramLen returns the length of the loaded program.
func (vm *VM) ProgramLen() int { return vm.size }

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []int32 {
	return append([]int32(nil), vm.stack[:vm.sp]...)
}

// CallStack returns a copy of the pending return addresses, oldest first.
func (vm *VM) CallStack() []int {
	return append([]int(nil), vm.calls[:vm.csp]...)
}

// Memory returns a copy of the memory bank.
func (vm *VM) Memory() []int32 {
	return append([]int32(nil), vm.memory...)
}
