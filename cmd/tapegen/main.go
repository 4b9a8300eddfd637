// Package main provides tapegen: an offline generator that re-emits
// targets/aarch64's semantics tape as a standalone Go source file,
// rather than relying on it being built in-process at package init()
// time. It exists so the tape can also be produced out-of-process and
// checked in as a generated artifact, the way a real table-driven
// instruction selector's tablegen step works.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/dctranslate/sema"
	"github.com/sarchlab/dctranslate/targets/aarch64"
)

var outPath = flag.String("o", "", "output path for the generated Go source file (default: stdout)")

func main() {
	flag.Parse()

	src := generate(aarch64.Tape)

	if *outPath == "" {
		fmt.Print(src)
		return
	}
	if err := os.WriteFile(*outPath, []byte(src), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "tapegen: %v\n", err)
		os.Exit(1)
	}
}

// generate renders tape as a Go source file defining a package-level
// *sema.Tape literal named GeneratedTape, byte-identical in content to
// whatever tapebuilder.go built in-process.
func generate(tape *sema.Tape) string {
	out := "// Code generated by cmd/tapegen. DO NOT EDIT.\n\n"
	out += "package aarch64\n\n"
	out += "import \"github.com/sarchlab/dctranslate/sema\"\n\n"
	out += "// GeneratedTape is tapegen's checked-in snapshot of Tape (tables.go),\n"
	out += "// produced out-of-process instead of at package init() time.\n"
	out += "var GeneratedTape = &sema.Tape{\n"
	out += "\tOpcodeToSemaIdx: " + uint32SliceLiteral(tape.OpcodeToSemaIdx) + ",\n"
	out += "\tSemanticsArray: " + uint32SliceLiteral(tape.SemanticsArray) + ",\n"
	out += "\tConstantArray: " + uint64SliceLiteral(tape.ConstantArray) + ",\n"
	out += "}\n"
	return out
}

func uint32SliceLiteral(vals []uint32) string {
	s := "[]uint32{"
	for i, v := range vals {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", v)
	}
	return s + "}"
}

func uint64SliceLiteral(vals []uint64) string {
	s := "[]uint64{"
	for i, v := range vals {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", v)
	}
	return s + "}"
}
