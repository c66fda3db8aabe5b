// svasm - assembles stack machine source into bytecode
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackvm/assembler"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("svasm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: svasm [options] <input.asm> <output.bc>\n\n")
		fmt.Fprintf(stderr, "Assembles whitespace-separated instructions into bytecode.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 1
	}

	if *verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	input, output := fs.Arg(0), fs.Arg(1)

	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	// Nothing is written unless the whole source assembles.
	code, err := assembler.Assemble(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "error: %s:%v\n", input, err)
		return 1
	}

	if err := os.WriteFile(output, code, 0644); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Fprintf(stdout, "Wrote %d bytes to %s\n", len(code), output)
	}
	return 0
}
