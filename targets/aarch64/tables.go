package aarch64

import "github.com/sarchlab/dctranslate/sema"

// allOnes64 is the constant-pool entry tables.go reaches for whenever a
// bitwise-NOT is needed: the builtin opcode set has no dedicated NOT, so
// "not x" is expressed the way LLVM itself lowers it, "x xor -1".
const allOnes64 = ^uint64(0)

// Tape is the semantics tape covering this target's table-driven
// opcodes: arithmetic/logical (register and immediate forms), move-wide
// immediate, and unsigned-immediate load/store. Control flow and the
// fixed NOP/BRK/SVC triad are translated entirely by Hooks and never
// reach this tape (see hooks.go's TranslateTargetInst).
var Tape *sema.Tape

func init() {
	Tape = buildTape()
}

func buildTape() *sema.Tape {
	b := newTapeBuilder()

	// ADD Xd, Xn, #imm   — operands [Rd, Rn, Imm]
	b.begin(OpADDImm).
		getReg(1, sema.EVTI64).
		immOperand(2).
		binOp(sema.OpADD).
		putReg(0).
		end()

	// SUB Xd, Xn, #imm
	b.begin(OpSUBImm).
		getReg(1, sema.EVTI64).
		immOperand(2).
		binOp(sema.OpSUB).
		putReg(0).
		end()

	// ADD Xd, Xn, Xm{, shift #amount}   — operands [Rd, Rn, Rm, packed-shift]
	b.begin(OpADDReg).
		getReg(1, sema.EVTI64).
		getReg(2, sema.EVTI64).
		customOp(3, CustomShiftedReg).
		binOp(sema.OpADD).
		putReg(0).
		end()

	// SUB Xd, Xn, Xm{, shift #amount}
	b.begin(OpSUBReg).
		getReg(1, sema.EVTI64).
		getReg(2, sema.EVTI64).
		customOp(3, CustomShiftedReg).
		binOp(sema.OpSUB).
		putReg(0).
		end()

	// AND Xd, Xn, Xm{, shift #amount}
	b.begin(OpAND).
		getReg(1, sema.EVTI64).
		getReg(2, sema.EVTI64).
		customOp(3, CustomShiftedReg).
		binOp(sema.OpAND).
		putReg(0).
		end()

	// ORR Xd, Xn, Xm{, shift #amount}
	b.begin(OpORR).
		getReg(1, sema.EVTI64).
		getReg(2, sema.EVTI64).
		customOp(3, CustomShiftedReg).
		binOp(sema.OpOR).
		putReg(0).
		end()

	// EOR Xd, Xn, Xm{, shift #amount}
	b.begin(OpEOR).
		getReg(1, sema.EVTI64).
		getReg(2, sema.EVTI64).
		customOp(3, CustomShiftedReg).
		binOp(sema.OpXOR).
		putReg(0).
		end()

	// MOVZ Xd, #imm16, LSL #hw   — operands [Rd, Imm16, Imm(hw*16)]
	// Rd = imm16 << hw.
	b.begin(OpMOVZ).
		immOperand(1).
		immOperand(2).
		binOp(sema.OpSHL).
		putReg(0).
		end()

	// MOVN Xd, #imm16, LSL #hw — Rd = ~(imm16 << hw).
	b.begin(OpMOVN).
		immOperand(1).
		immOperand(2).
		binOp(sema.OpSHL).
		constOp(allOnes64, sema.EVTI64).
		binOp(sema.OpXOR).
		putReg(0).
		end()

	// MOVK Xd, #imm16, LSL #hw — Rd = (Rd & ~(0xFFFF << hw)) | (imm16 << hw),
	// a read-modify-write of the same register the other two move-wide
	// forms simply overwrite.
	b.begin(OpMOVK).
		getReg(0, sema.EVTI64).
		constOp(0xFFFF, sema.EVTI64).
		immOperand(2).
		binOp(sema.OpSHL).
		constOp(allOnes64, sema.EVTI64).
		binOp(sema.OpXOR).
		binOp(sema.OpAND).
		immOperand(1).
		immOperand(2).
		binOp(sema.OpSHL).
		binOp(sema.OpOR).
		putReg(0).
		end()

	// LDR Xt, [Xn, #imm]   — operands [Rt, Rn, Imm offset]
	b.begin(OpLDR64).
		getReg(1, sema.EVTI64).
		complexPattern(2, PatternLoadStoreBase).
		load(sema.EVTI64).
		putReg(0).
		end()

	// LDR Wt, [Xn, #imm]
	b.begin(OpLDR32).
		getReg(1, sema.EVTI64).
		complexPattern(2, PatternLoadStoreBase).
		load(sema.EVTI32).
		putReg(0).
		end()

	// STR Xt, [Xn, #imm]
	b.begin(OpSTR64).
		getReg(0, sema.EVTI64).
		getReg(1, sema.EVTI64).
		complexPattern(2, PatternLoadStoreBase).
		store().
		end()

	// STR Wt, [Xn, #imm]
	b.begin(OpSTR32).
		getReg(0, sema.EVTI32).
		getReg(1, sema.EVTI64).
		complexPattern(2, PatternLoadStoreBase).
		store().
		end()

	return b.build(int(NumOpcodes))
}
