// Command tcc compiles the restricted C-like language described by this
// repository into x86-64 assembly text (System V ABI, Linux exit(2)
// termination), grounded on the teacher's cmd/retro/main.go: flag-based
// option parsing and a single atExit error-reporting path.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ericwu2003/tcc/asmtext"
	"github.com/ericwu2003/tcc/codegen"
	"github.com/ericwu2003/tcc/parser"
	"github.com/ericwu2003/tcc/tac"
	"github.com/ericwu2003/tcc/token"
)

var (
	outFileName string
	dumpAST     bool
	dumpTAC     bool
	emitAsmOnly bool
	debug       bool
)

func atExit(err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}
	os.Exit(1)
}

func main() {
	flag.StringVar(&outFileName, "o", "", "write assembly to `file` instead of stdout")
	flag.BoolVar(&dumpAST, "dump-ast", false, "dump the parsed AST to stderr")
	flag.BoolVar(&dumpTAC, "dump-tac", false, "dump lowered three-address code to stderr")
	flag.BoolVar(&emitAsmOnly, "S", false, "emit assembly only (the only supported mode; accepted for CLI-surface compatibility)")
	flag.BoolVar(&debug, "debug", false, "show the full error chain on failure")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tcc [-o file] [-dump-ast] [-dump-tac] [-S] SOURCE")
		os.Exit(1)
	}
	srcPath := flag.Arg(0)

	var err error
	defer func() { atExit(err) }()

	f, err := os.Open(srcPath)
	if err != nil {
		err = errors.Wrap(err, "opening source file")
		return
	}
	defer f.Close()

	out := os.Stdout
	if outFileName != "" {
		var of *os.File
		of, err = os.Create(outFileName)
		if err != nil {
			err = errors.Wrap(err, "creating output file")
			return
		}
		defer of.Close()
		out = of
	}

	err = Compile(srcPath, f, out)
}

// Compile runs the full pipeline: lex, parse, lower to TAC, allocate and
// generate x86-64, emit assembly text. InternalInvariant panics raised by
// the allocator or codegen are recovered exactly once here, at the top
// of the pipeline (spec.md §7).
func Compile(name string, r io.Reader, w io.Writer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("%v", rec)
		}
	}()

	toks, lexErr := token.Lex(name, r)
	if lexErr != nil {
		return lexErr
	}

	prog, parseErr := parser.Parse(toks)
	if parseErr != nil {
		return parseErr
	}
	if dumpAST {
		dumpASTTo(os.Stderr, prog)
	}

	unit, lowerErr := tac.LowerProgram(prog)
	if lowerErr != nil {
		return lowerErr
	}
	if dumpTAC {
		dumpTACTo(os.Stderr, unit)
	}

	funcs, genErr := codegen.GenProgram(unit)
	if genErr != nil {
		return genErr
	}

	return asmtext.Emit(w, funcs)
}
