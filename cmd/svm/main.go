// svm - runs stack machine bytecode
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackvm/config"
	"github.com/chazu/stackvm/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1 // usage, I/O or configuration error
	exitFault = 2 // the program faulted
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("svm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Configuration file (default: nearest "+config.FileName+")")
	stackSize := fs.Int("stack", bytecode.DefaultStackSize, "Operand stack capacity")
	memorySize := fs.Int("memory", bytecode.DefaultMemorySize, "Memory bank size (1-256)")
	codeSize := fs.Int("code", bytecode.DefaultCodeSize, "Code buffer capacity in bytes")
	callStackSize := fs.Int("calls", bytecode.DefaultCallStackSize, "Call stack capacity")
	maxSteps := fs.Uint64("max-steps", 0, "Fault after this many instructions (0 = unlimited)")
	trace := fs.Bool("trace", false, "Log every executed instruction")
	disasm := fs.Bool("d", false, "Print a disassembly instead of running")
	dumpPath := fs.String("dump", "", "Write a CBOR snapshot of the machine after the run")
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: svm [options] <program.bc>\n\n")
		fmt.Fprintf(stderr, "Runs a bytecode program and reports the top of stack on HALT.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExit status is 0 on HALT, 1 on usage or I/O errors, 2 on a VM fault.\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitError
	}
	programPath := fs.Arg(0)

	file, err := loadConfig(*configPath, filepath.Dir(programPath))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	cfg := file.VMConfig()

	// Flags given explicitly override the configuration file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stack":
			cfg.StackSize = *stackSize
		case "memory":
			cfg.MemorySize = *memorySize
		case "code":
			cfg.CodeSize = *codeSize
		case "calls":
			cfg.CallStackSize = *callStackSize
		case "max-steps":
			cfg.MaxSteps = *maxSteps
		case "trace":
			cfg.Trace = *trace
		}
	})

	switch {
	case cfg.Trace:
		commonlog.Configure(2, nil)
	case *verbose:
		commonlog.Configure(1, nil)
	default:
		commonlog.Configure(0, nil)
	}

	if *disasm {
		code, err := os.ReadFile(programPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		fmt.Fprint(stdout, bytecode.Disassemble(code))
		return exitOK
	}

	vmInst, err := bytecode.NewVM(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	if err := loadProgram(vmInst, programPath); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	if *verbose {
		fmt.Fprintf(stdout, "Loaded %d bytes (run %s)\n", vmInst.ProgramLen(), vmInst.ID())
	}

	result, runErr := vmInst.Run()

	if *dumpPath != "" {
		if err := writeSnapshot(vmInst, *dumpPath); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "error: %v\n", runErr)
		return exitFault
	}

	fmt.Fprintf(stdout, "VM HALT. %s\n", result)
	if *verbose {
		fmt.Fprintf(stdout, "Executed %d instructions\n", result.Steps)
	}
	return exitOK
}

// loadConfig reads an explicit configuration file, or the nearest
// stackvm.toml above dir, or falls back to defaults.
func loadConfig(path, dir string) (*config.File, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	f, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return config.Default(), nil
	}
	return f, nil
}

func loadProgram(vmInst *bytecode.VM, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := vmInst.LoadFrom(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeSnapshot(vmInst *bytecode.VM, path string) error {
	data, err := bytecode.MarshalSnapshot(vmInst.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
