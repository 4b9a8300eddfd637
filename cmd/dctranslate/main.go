// Package main provides the entry point for dctranslate: a static
// binary-to-LLVM-IR translator for a representative AArch64 subset.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/loader"
	"github.com/sarchlab/dctranslate/targets/aarch64"
	"github.com/sarchlab/dctranslate/translate"
)

var (
	addr      = flag.Uint64("addr", 0, "address of the function to translate (default: ELF entry point)")
	length    = flag.Uint64("length", 256, "number of bytes to decode starting at addr")
	diff      = flag.Bool("regset-diff", false, "enable register-set diff mode")
	instAddrs = flag.Bool("inst-addrs", false, "store each translated instruction's address into the current_instr global")
	undef     = flag.Bool("unknown-to-undef", true, "translate unmapped opcodes to trap+unreachable instead of failing")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: dctranslate [options] <program.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	startAddr := *addr
	if startAddr == 0 {
		startAddr = prog.EntryPoint
	}

	code, err := extractCode(prog, startAddr, *length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading code: %v\n", err)
		os.Exit(1)
	}

	mod, err := translateFunction(code, startAddr, *diff, *instAddrs, *undef)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error translating: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(mod.String())
}

// extractCode returns the length bytes starting at addr from whichever
// loaded segment contains it.
func extractCode(prog *loader.Program, addr, length uint64) ([]byte, error) {
	for _, seg := range prog.Segments {
		if addr < seg.VirtAddr || addr+length > seg.VirtAddr+seg.MemSize {
			continue
		}
		off := addr - seg.VirtAddr
		code := make([]byte, length)
		for i := range code {
			if off+uint64(i) < uint64(len(seg.Data)) {
				code[i] = seg.Data[off+uint64(i)]
			}
		}
		return code, nil
	}
	return nil, fmt.Errorf("address %#x not covered by any loaded segment", addr)
}

// translateFunction wires decoder, register semantics, target hooks, and
// the register-file global together exactly the way a target's
// front end does per spec.md §6: one Policy, one Builder, one bound
// RSI/Hooks pair, one FunctionTranslator per decoded function.
func translateFunction(code []byte, startAddr uint64, diffOn, instAddrsOn, undefOn bool) (*ir.Module, error) {
	dec := aarch64.NewDecoder()
	mcFn, err := dec.DecodeFunction(code, startAddr, "")
	if err != nil {
		return nil, err
	}

	irb := irbuild.NewBuilder(64)

	regfileTy := types.NewArray(272, types.I8)
	regfile := irb.Module.NewGlobalDef("regfile", constant.NewZeroInitializer(regfileTy))

	rsi := aarch64.NewRSI(diffOn)
	rsi.SetBase(regfile)
	hooks := aarch64.NewHooks(rsi)

	var opts []translate.Option
	if diffOn {
		opts = append(opts, translate.WithRegSetDiff())
	}
	if instAddrsOn {
		opts = append(opts, translate.WithInstAddrSave())
	}
	if undefOn {
		opts = append(opts, translate.WithUnknownToUndef())
	}
	policy := translate.NewPolicy(opts...)

	ft, err := translate.NewFunctionTranslator(irb, aarch64.Tape, rsi, hooks, policy, 64, mcFn)
	if err != nil {
		return nil, err
	}
	if err := ft.TranslateFunction(mcFn); err != nil {
		return nil, err
	}

	return irb.Module, nil
}
