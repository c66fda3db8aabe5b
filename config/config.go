// Package config handles stackvm.toml machine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/stackvm/pkg/bytecode"
)

// FileName is the name FindAndLoad looks for.
const FileName = "stackvm.toml"

// File represents a stackvm.toml configuration.
type File struct {
	Machine Machine `toml:"machine"`
	Run     Run     `toml:"run"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Machine sizes the VM.
type Machine struct {
	StackSize     int `toml:"stack-size"`
	MemorySize    int `toml:"memory-size"`
	CodeSize      int `toml:"code-size"`
	CallStackSize int `toml:"call-stack-size"`
}

// Run configures execution.
type Run struct {
	MaxSteps int64 `toml:"max-steps"`
	Trace    bool  `toml:"trace"`
}

// Default returns the configuration used when no file is present.
func Default() *File {
	d := bytecode.DefaultConfig()
	return &File{
		Machine: Machine{
			StackSize:     d.StackSize,
			MemorySize:    d.MemorySize,
			CodeSize:      d.CodeSize,
			CallStackSize: d.CallStackSize,
		},
	}
}

// Load parses the stackvm.toml file in dir.
func Load(dir string) (*File, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file. Keys absent from the file keep
// their defaults; unknown keys are an error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	f := Default()
	md, err := toml.Decode(string(data), f)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	f.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if f.Run.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: run.max-steps must not be negative, got %d", path, f.Run.MaxSteps)
	}
	if err := f.VMConfig().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// FindAndLoad walks up from startDir to find a stackvm.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*File, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// VMConfig converts the file into a bytecode.Config.
func (f *File) VMConfig() bytecode.Config {
	return bytecode.Config{
		StackSize:     f.Machine.StackSize,
		MemorySize:    f.Machine.MemorySize,
		CodeSize:      f.Machine.CodeSize,
		CallStackSize: f.Machine.CallStackSize,
		MaxSteps:      uint64(f.Run.MaxSteps),
		Trace:         f.Run.Trace,
	}
}
