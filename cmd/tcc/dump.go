package main

import (
	"fmt"
	"io"

	"github.com/ericwu2003/tcc/ast"
	ioutilx "github.com/ericwu2003/tcc/internal/ioutil"
	"github.com/ericwu2003/tcc/tac"
)

// dumpASTTo writes a flat, one-statement-per-line rendering of the
// parsed program to w, grounded on the teacher's dumpVM/dumpSlice
// pattern of wrapping a single ErrWriter and ignoring errors until the
// end of the dump.
func dumpASTTo(w io.Writer, prog *ast.Program) error {
	ew := ioutilx.NewErrWriter(w)
	for _, fn := range prog.Functions {
		fmt.Fprintf(ew, "func %s(", fn.Name)
		for i, p := range fn.Params {
			if i > 0 {
				io.WriteString(ew, ", ")
			}
			fmt.Fprintf(ew, "%s", p.Name)
		}
		fmt.Fprintln(ew, ")")
		for _, s := range fn.Body {
			fmt.Fprintf(ew, "  %+v\n", s)
		}
	}
	return ew.Err
}

// dumpTACTo writes every function's lowered instruction stream to w, one
// instruction per line.
func dumpTACTo(w io.Writer, prog *tac.Program) error {
	ew := ioutilx.NewErrWriter(w)
	for _, fn := range prog.Functions {
		fmt.Fprintf(ew, "%s:\n", fn.Name)
		for _, in := range fn.Instrs {
			fmt.Fprintf(ew, "  %+v\n", in)
		}
	}
	return ew.Err
}
