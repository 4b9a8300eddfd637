package translate

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
)

// translateInstruction is the Instruction Translator's per-instruction
// entry point: it notifies RSI, optionally stores the instruction's
// address into the current_instr debug sink, offers the instruction to
// the target's early hand-written hook, and otherwise looks up its tape
// entry, advances PC (spec.md §8's "PC-first" property) and runs
// tape-driven dispatch. PC is advanced only on that tape-driven path.
// Finally it checks that the value stack came back empty (spec.md §8's
// "empty VS" property — nothing an instruction pushed should still be
// live once it's done).
func (ft *FunctionTranslator) translateInstruction(inst decoded.DecodedInst, blk *ir.Block) error {
	ctx := &InstContext{FT: ft, IRB: ft.IRB, VS: ft.VS, Tape: ft.Reader, RSI: ft.RSI, Inst: inst}
	ctx.SetBlock(blk)

	ft.RSI.SwitchToInst(ft.IRB, inst)

	if ft.Policy.EnableInstAddrSave {
		sink := ft.IRB.DebugSink("current_instr")
		addr := ft.IRB.ConstInt(irbuild.IntType(64), inst.Address)
		ft.IRB.VolatileStore(addr, sink)
	}

	if handled, err := ft.Hooks.TranslateTargetInst(ctx); err != nil {
		return wrapErr(ErrKindInternal, inst.Address, err, "target hook TranslateTargetInst failed")
	} else if handled {
		return ft.checkPostInstruction(inst)
	}

	idx, ok := ft.Tape.SemaIndexFor(inst.MCOpcode)
	if !ok {
		if ft.Policy.TranslateUnknownToUndef {
			ft.IRB.Trap()
			ft.IRB.Unreachable()
			ft.VS.Clear()
			return nil
		}
		return newErr(ErrKindUnknownOpcode, inst.Address,
			"MC opcode %d has no semantics tape entry", inst.MCOpcode)
	}
	ft.Reader.Reset(idx)

	// Advance PC before any other semantic effect of a known instruction
	// (spec.md §4.2 step 5, §8's "PC-first" property): later operations
	// in this instruction's own tape that read PC must see the
	// post-increment value.
	pc := ft.RSI.ReadPC(ft.IRB)
	size := ft.IRB.ConstInt(pc.Type(), uint64(inst.Size))
	ft.RSI.WritePC(ft.IRB, ft.IRB.BinOp(sema.OpADD, pc, size))

	for {
		op := ft.Reader.NextOp()
		if op == sema.EndOfInstruction {
			break
		}
		if err := ft.dispatch(ctx, op); err != nil {
			return err
		}
		// A builtin control-flow opcode terminates the block it was
		// emitted into; subsequent tokens (if any) belong to the next
		// instruction's tape range only in a malformed table, since the
		// generator always closes a subsequence with EndOfInstruction
		// right after a terminator.
		if ft.IRB.InsertBlock().Term != nil {
			break
		}
	}

	return ft.checkPostInstruction(inst)
}

func (ft *FunctionTranslator) checkPostInstruction(inst decoded.DecodedInst) error {
	if !ft.VS.Empty() {
		n := ft.VS.Len()
		ft.VS.Clear()
		return newErr(ErrKindInternal, inst.Address,
			"value stack not empty at end of instruction: %d value(s) left over", n)
	}
	return nil
}

// dispatch handles one semantic-tape token: a builtin IR opcode, a
// target-range opcode routed to the hook surface, or a DC pseudo-op.
func (ft *FunctionTranslator) dispatch(ctx *InstContext, op sema.Op) error {
	switch {
	case sema.IsPseudo(op):
		return ft.dispatchPseudo(ctx, op)
	case sema.IsTargetRange(op):
		if err := ft.Hooks.TranslateTargetOpcode(ctx, op); err != nil {
			return wrapErr(ErrKindInternal, ctx.Inst.Address, err,
				"target hook TranslateTargetOpcode(%d) failed", op)
		}
		return nil
	case sema.IsBuiltin(op):
		return ft.dispatchBuiltin(ctx, op)
	default:
		return newErr(ErrKindMalformedTape, ctx.Inst.Address, "opcode %d out of range", op)
	}
}

func (ft *FunctionTranslator) dispatchBuiltin(ctx *InstContext, op sema.Op) error {
	irb := ctx.IRB
	switch op {
	case sema.OpADD, sema.OpFADD, sema.OpSUB, sema.OpFSUB, sema.OpMUL, sema.OpFMUL,
		sema.OpUDIV, sema.OpSDIV, sema.OpFDIV, sema.OpUREM, sema.OpSREM, sema.OpFREM,
		sema.OpAND, sema.OpOR, sema.OpXOR, sema.OpSHL, sema.OpSRL, sema.OpSRA:
		vals := ctx.VS.PopN(2)
		lhs, rhs := vals[0], vals[1]
		if irbuild.IsShiftOp(op) {
			rhs = coerceIntWidth(irb, rhs, lhs.Type())
		}
		ctx.VS.Push(irb.BinOp(op, lhs, rhs))
		return nil

	case sema.OpTRUNCATE, sema.OpBITCAST, sema.OpZERO_EXTEND, sema.OpSIGN_EXTEND,
		sema.OpFP_TO_UINT, sema.OpFP_TO_SINT, sema.OpUINT_TO_FP, sema.OpSINT_TO_FP,
		sema.OpFP_ROUND, sema.OpFP_EXTEND:
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		v := ctx.VS.Pop()
		ctx.VS.Push(irb.Cast(op, v, ty))
		return nil

	case sema.OpFSQRT:
		ctx.VS.Push(irb.Sqrt(ctx.VS.Pop()))
		return nil

	case sema.OpBSWAP:
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		ctx.VS.Push(irb.Bswap(ctx.VS.Pop(), ty))
		return nil

	case sema.OpROTL:
		vals := ctx.VS.PopN(2)
		ctx.VS.Push(ft.emitRotl(ctx, vals[0], vals[1]))
		return nil

	case sema.OpINSERT_VECTOR_ELT:
		vals := ctx.VS.PopN(3)
		ctx.VS.Push(irb.InsertElement(vals[0], vals[1], vals[2]))
		return nil

	case sema.OpEXTRACT_VECTOR_ELT:
		vals := ctx.VS.PopN(2)
		ctx.VS.Push(irb.ExtractElement(vals[0], vals[1]))
		return nil

	case sema.OpSMUL_LOHI, sema.OpUMUL_LOHI:
		vals := ctx.VS.PopN(2)
		lo, hi := ft.emitWideMul(ctx, op, vals[0], vals[1])
		ctx.VS.Push(lo)
		ctx.VS.Push(hi)
		return nil

	case sema.OpLOAD:
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		addr := ctx.VS.Pop()
		ptr := irb.CoerceToPointer(addr, ty)
		ctx.VS.Push(irb.Load(ptr, ty))
		return nil

	case sema.OpSTORE:
		vals := ctx.VS.PopN(2)
		val, addr := vals[0], vals[1]
		ptr := irb.CoerceToPointer(addr, val.Type())
		irb.Store(val, ptr)
		return nil

	case sema.OpBR:
		constIdx := ctx.Tape.Next()
		target := ctx.Tape.Constant(constIdx)
		blk := ft.BBM.GetOrCreate(target)
		irb.Br(blk)
		return nil

	case sema.OpBRIND:
		target := ctx.VS.Pop()
		return ft.emitIndirectBranch(ctx, target)

	case sema.OpTRAP:
		irb.Trap()
		irb.Unreachable()
		return nil

	case sema.OpATOMIC_FENCE:
		irb.Fence(enum.AtomicOrderingSequentiallyConsistent)
		return nil

	default:
		return newErr(ErrKindMalformedTape, ctx.Inst.Address, "unhandled builtin opcode %d", op)
	}
}

func (ft *FunctionTranslator) dispatchPseudo(ctx *InstContext, op sema.Op) error {
	irb := ctx.IRB
	switch op {
	case sema.GetReg:
		operandNo := ctx.Tape.Next()
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		regNum := ctx.Inst.RegOperand(operandNo)
		ctx.VS.Push(ctx.RSI.GetReg(irb, regNum, ty))
		return nil

	case sema.PutReg:
		operandNo := ctx.Tape.Next()
		regNum := ctx.Inst.RegOperand(operandNo)
		val := ctx.VS.Pop()
		ctx.RSI.PutReg(irb, regNum, val)
		return nil

	case sema.GetRC:
		rc := ctx.Tape.Next()
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		ctx.VS.Push(ctx.RSI.GetRC(irb, rc, ty))
		return nil

	case sema.PutRC:
		rc := ctx.Tape.Next()
		val := ctx.VS.Pop()
		coerced, err := coerceForRegisterWrite(irb, ctx.RSI, rc, val)
		if err != nil {
			return wrapErr(ErrKindInternal, ctx.Inst.Address, err, "PUT_RC coercion failed")
		}
		ctx.RSI.PutRC(irb, rc, coerced)
		return nil

	case sema.CustomOp:
		operandNo := ctx.Tape.Next()
		tag := ctx.Tape.Next()
		if err := ft.Hooks.TranslateCustomOperand(ctx, operandNo, tag); err != nil {
			return wrapErr(ErrKindInternal, ctx.Inst.Address, err, "TranslateCustomOperand failed")
		}
		return nil

	case sema.ComplexPattern:
		operandNo := ctx.Tape.Next()
		patternID := ctx.Tape.Next()
		if err := ft.Hooks.TranslateComplexPattern(ctx, operandNo, patternID); err != nil {
			return wrapErr(ErrKindInternal, ctx.Inst.Address, err, "TranslateComplexPattern failed")
		}
		return nil

	case sema.Predicate:
		predID := sema.PredicateID(ctx.Tape.Next())
		return ft.emitPredicate(ctx, predID)

	case sema.ConstantOp, sema.MovConstant:
		constIdx := ctx.Tape.Next()
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		bits := ctx.Tape.Constant(constIdx)
		ctx.VS.Push(irb.ConstInt(ty, bits))
		return nil

	case sema.Implicit:
		tag := ctx.Tape.Next()
		if err := ft.Hooks.TranslateImplicit(ctx, tag); err != nil {
			return wrapErr(ErrKindInternal, ctx.Inst.Address, err, "TranslateImplicit failed")
		}
		return nil

	default:
		return newErr(ErrKindMalformedTape, ctx.Inst.Address, "unhandled pseudo-opcode %d", op)
	}
}

// coerceForRegisterWrite applies PUT_RC's width/type coercion rules
// (spec.md §4.2): a pointer goes through ptr-to-int to the register's
// integer type; a non-integer, non-pointer value is bitcast to a
// same-bit-width integer; a value narrower than the register is inserted
// into the register's current contents via RSI's sub-register insert
// helper. Asserts the final type equals the register's integer type —
// spec.md §7 error kind 4, a generator/programmer bug rather than a
// recoverable translation failure.
func coerceForRegisterWrite(irb *irbuild.Builder, rsi RegisterSemantics, rc uint32, val value.Value) (value.Value, error) {
	regTy := rsi.RCIntType(rc)

	switch {
	case irbuild.IsPointerType(val.Type()):
		val = irb.PtrToInt(val, regTy)
	case !irbuild.IsIntType(val.Type()):
		val = irb.BitCast(val, irbuild.IntType(irbuild.BitWidth(val.Type())))
	}

	if irbuild.BitWidth(val.Type()) < irbuild.BitWidth(regTy) {
		current := rsi.GetRC(irb, rc, regTy)
		val = rsi.InsertBits(irb, current, val)
	}

	if !val.Type().Equal(regTy) {
		return nil, fmt.Errorf("PUT_RC coercion produced type %v, want register type %v", val.Type(), regTy)
	}
	return val, nil
}

// coerceIntWidth zero-extends or truncates v to ty's width, used to
// bring a shift amount (or a rotate amount) to its operand's width per
// LLVM IR's requirement that both operands of shl/lshr/ashr share a
// type.
func coerceIntWidth(irb *irbuild.Builder, v value.Value, ty types.Type) value.Value {
	have := irbuild.BitWidth(v.Type())
	want := irbuild.BitWidth(ty)
	switch {
	case have == want:
		return v
	case have < want:
		return irb.ZExt(v, ty)
	default:
		return irb.Trunc(v, ty)
	}
}

// emitRotl lowers a rotate-left of val by amount into
// (val << amount) | (val >> (width - amount)), the standard funnel-shift
// expansion LLVM itself uses before its own rotate intrinsics existed.
func (ft *FunctionTranslator) emitRotl(ctx *InstContext, val, amount value.Value) value.Value {
	irb := ctx.IRB
	width := irbuild.BitWidth(val.Type())
	widthConst := irb.ConstInt(val.Type(), uint64(width))
	amt := coerceIntWidth(irb, amount, val.Type())
	inv := irb.BinOp(sema.OpSUB, widthConst, amt)
	lhs := irb.BinOp(sema.OpSHL, val, amt)
	rhs := irb.BinOp(sema.OpSRL, val, inv)
	return irb.BinOp(sema.OpOR, lhs, rhs)
}

// emitWideMul lowers a widening multiply into a same-width multiply
// after zero/sign-extending both operands to double width, then splits
// the result into low and high halves with a truncate and a
// shift-then-truncate. Targets whose ISA has a native wide-multiply
// instruction cover it with a target hook instead; this is the generic
// fallback the tape falls back to for anything else.
func (ft *FunctionTranslator) emitWideMul(ctx *InstContext, op sema.Op, lhs, rhs value.Value) (lo, hi value.Value) {
	irb := ctx.IRB
	width := irbuild.BitWidth(lhs.Type())
	wideTy := irbuild.IntType(width * 2)

	extOp := sema.OpZERO_EXTEND
	if op == sema.OpSMUL_LOHI {
		extOp = sema.OpSIGN_EXTEND
	}
	wl := irb.Cast(extOp, lhs, wideTy)
	wr := irb.Cast(extOp, rhs, wideTy)
	wide := irb.BinOp(sema.OpMUL, wl, wr)

	lo = irb.Cast(sema.OpTRUNCATE, wide, lhs.Type())
	shiftAmt := irb.ConstInt(wideTy, uint64(width))
	shifted := irb.BinOp(sema.OpSRL, wide, shiftAmt)
	hi = irb.Cast(sema.OpTRUNCATE, shifted, lhs.Type())
	return lo, hi
}

// emitPredicate expands a Predicate pseudo-opcode into the LOAD/STORE
// sequence it names. Predicates exist so a single tape entry can cover
// a family of addressing/width variants (aligned vs. unaligned,
// zero- vs. sign-extending sub-word loads) without a distinct builtin
// opcode per variant.
func (ft *FunctionTranslator) emitPredicate(ctx *InstContext, pred sema.PredicateID) error {
	irb := ctx.IRB
	switch pred {
	case sema.PredLoadI16, sema.PredZextLoadI16:
		return ft.emitExtLoad(ctx, irbuild.IntType(16), false)
	case sema.PredSextLoadI16:
		return ft.emitExtLoad(ctx, irbuild.IntType(16), true)
	case sema.PredZextLoadI8:
		return ft.emitExtLoad(ctx, irbuild.IntType(8), false)
	case sema.PredSextLoadI8:
		return ft.emitExtLoad(ctx, irbuild.IntType(8), true)
	case sema.PredLoadI32:
		return ft.emitExtLoad(ctx, irbuild.IntType(32), false)
	case sema.PredSextLoadI32:
		return ft.emitExtLoad(ctx, irbuild.IntType(32), true)
	case sema.PredAlignedLoad, sema.PredAlignedLoad256, sema.PredAlignedLoad512, sema.PredLoad:
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		addr := ctx.VS.Pop()
		ptr := irb.CoerceToPointer(addr, ty)
		ctx.VS.Push(irb.Load(ptr, ty))
		return nil
	case sema.PredAlignedStore, sema.PredAlignedStore256, sema.PredAlignedStore512,
		sema.PredNontemporalStore, sema.PredAlignedNontemporalStore, sema.PredStore:
		vals := ctx.VS.PopN(2)
		val, addr := vals[0], vals[1]
		ptr := irb.CoerceToPointer(addr, val.Type())
		irb.Store(val, ptr)
		return nil
	case sema.PredMemop, sema.PredAndSU:
		ty := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
		vals := ctx.VS.PopN(2)
		ctx.VS.Push(irb.BinOp(sema.OpAND, vals[0], irb.Cast(sema.OpZERO_EXTEND, vals[1], ty)))
		return nil
	default:
		return newErr(ErrKindMalformedTape, ctx.Inst.Address, "unhandled predicate %d", pred)
	}
}

// emitExtLoad loads a memTy-wide value from the popped address and
// widens it to the tape's declared result type, sign- or zero-extending
// according to signed.
func (ft *FunctionTranslator) emitExtLoad(ctx *InstContext, memTy types.Type, signed bool) error {
	irb := ctx.IRB
	resultTy := irbuild.TypeForEVT(ctx.Tape.NextVT(), ft.PtrBits)
	addr := ctx.VS.Pop()
	ptr := irb.CoerceToPointer(addr, memTy)
	loaded := irb.Load(ptr, memTy)
	extOp := sema.OpZERO_EXTEND
	if signed {
		extOp = sema.OpSIGN_EXTEND
	}
	ctx.VS.Push(irb.Cast(extOp, loaded, resultTy))
	return nil
}

// emitIndirectBranch hands an indirect branch target value to a
// declared runtime dispatch helper and then ends the block with
// unreachable; it does not branch to an exit block. It is the fallback for
// a target that can't be resolved to one of this function's own blocks
// at translation time. A target hook that can prove the target stays
// within this function (a jump table, say) should translate the branch
// itself via TranslateTargetInst instead of ever reaching OpBRIND.
func (ft *FunctionTranslator) emitIndirectBranch(ctx *InstContext, target value.Value) error {
	irb := ctx.IRB
	ptrTy := irbuild.PointerType()
	helper := irb.DeclareExternFunc("dc_indirect_branch", types.Void, ptrTy)
	targetPtr := irb.CoerceToPointer(target, types.I8)
	irb.Call(helper, targetPtr)
	irb.Unreachable()
	return nil
}
