package bytecode

import "fmt"

// Default capacities.
const (
	DefaultStackSize     = 1024
	DefaultMemorySize    = 256
	DefaultCodeSize      = 4096
	DefaultCallStackSize = 256

	// MaxMemorySize is the largest memory bank a single-byte index can address.
	MaxMemorySize = 256
)

// Config sizes a VM. The zero value is not usable; start from DefaultConfig.
type Config struct {
	StackSize     int // Operand stack capacity, in values
	MemorySize    int // Memory bank size, 1..MaxMemorySize
	CodeSize      int // Code buffer capacity, in bytes
	CallStackSize int // Call stack capacity, in return addresses

	// MaxSteps bounds the number of executed instructions. 0 means unlimited.
	MaxSteps uint64

	// Trace logs every fetched instruction at debug level.
	Trace bool
}

// DefaultConfig returns the capacities the machine has always shipped with.
func DefaultConfig() Config {
	return Config{
		StackSize:     DefaultStackSize,
		MemorySize:    DefaultMemorySize,
		CodeSize:      DefaultCodeSize,
		CallStackSize: DefaultCallStackSize,
	}
}

// Validate checks that every capacity is usable.
func (c Config) Validate() error {
	if c.StackSize <= 0 {
		return fmt.Errorf("stack size must be positive, got %d", c.StackSize)
	}
	if c.MemorySize <= 0 || c.MemorySize > MaxMemorySize {
		return fmt.Errorf("memory size must be between 1 and %d, got %d", MaxMemorySize, c.MemorySize)
	}
	if c.CodeSize <= 0 {
		return fmt.Errorf("code size must be positive, got %d", c.CodeSize)
	}
	if c.CallStackSize <= 0 {
		return fmt.Errorf("call stack size must be positive, got %d", c.CallStackSize)
	}
	return nil
}
