package aarch64

import (
	"fmt"

	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
	"github.com/sarchlab/dctranslate/translate"
)

// Hooks is the AArch64 TargetHooks implementation. Control flow (every
// branch/call/return form) is translated by hand in TranslateTargetInst
// rather than through the semantics tape, the same division of labor
// original_source/lib/Target/AArch64/DC/AArch64DCInstruction.h uses:
// arithmetic and data movement are table-driven, control flow and
// condition-code evaluation are not.
type Hooks struct {
	RSI *RSI
}

// NewHooks returns Hooks sharing rsi's register-file binding, so a
// branch's own PC/link-register writes land in the same place the
// tape-driven instructions around it do.
func NewHooks(rsi *RSI) *Hooks {
	return &Hooks{RSI: rsi}
}

func (h *Hooks) TranslateTargetInst(ctx *translate.InstContext) (bool, error) {
	switch Op(ctx.Inst.MCOpcode) {
	case OpB:
		target := uint64(ctx.Inst.ImmOperand(0))
		blk := ctx.FT.BBM.GetOrCreate(target)
		ctx.IRB.Br(blk)
		return true, nil

	case OpBL:
		target := uint64(ctx.Inst.ImmOperand(0))
		returnAddr := ctx.Inst.Address + 4
		h.RSI.PutReg(ctx.IRB, 30, ctx.IRB.ConstInt(irbuild.IntType(64), returnAddr))
		callee := ctx.IRB.DeclareExternFunc(calleeName(target), types.Void, irbuild.PointerType())
		err := ctx.FT.InsertCallBB(ctx.Block, ctx.Inst.Address, callee, []value.Value{h.RSI.Base}, returnAddr)
		return true, err

	case OpBCond:
		target := uint64(ctx.Inst.ImmOperand(0))
		cond := Cond(ctx.Inst.ImmOperand(1))
		condVal := h.emitCondCheck(ctx, cond)
		thenBlk := ctx.FT.BBM.GetOrCreate(target)
		elseBlk := ctx.FT.BBM.GetOrCreate(ctx.Inst.Address + 4)
		ctx.IRB.CondBr(condVal, thenBlk, elseBlk)
		return true, nil

	case OpCBZ, OpCBNZ:
		rt := ctx.Inst.RegOperand(0)
		target := uint64(ctx.Inst.ImmOperand(1))
		val := h.RSI.GetReg(ctx.IRB, rt, irbuild.IntType(64))
		zero := ctx.IRB.ConstInt(irbuild.IntType(64), 0)
		pred := enum.IPredEQ
		if Op(ctx.Inst.MCOpcode) == OpCBNZ {
			pred = enum.IPredNE
		}
		cmp := ctx.IRB.ICmp(pred, val, zero)
		thenBlk := ctx.FT.BBM.GetOrCreate(target)
		elseBlk := ctx.FT.BBM.GetOrCreate(ctx.Inst.Address + 4)
		ctx.IRB.CondBr(cmp, thenBlk, elseBlk)
		return true, nil

	case OpTBZ, OpTBNZ:
		rt := ctx.Inst.RegOperand(0)
		bitPos := uint64(ctx.Inst.ImmOperand(1))
		target := uint64(ctx.Inst.ImmOperand(2))
		val := h.RSI.GetReg(ctx.IRB, rt, irbuild.IntType(64))
		mask := ctx.IRB.ConstInt(irbuild.IntType(64), uint64(1)<<bitPos)
		masked := ctx.IRB.BinOp(sema.OpAND, val, mask)
		zero := ctx.IRB.ConstInt(irbuild.IntType(64), 0)
		pred := enum.IPredEQ
		if Op(ctx.Inst.MCOpcode) == OpTBNZ {
			pred = enum.IPredNE
		}
		cmp := ctx.IRB.ICmp(pred, masked, zero)
		thenBlk := ctx.FT.BBM.GetOrCreate(target)
		elseBlk := ctx.FT.BBM.GetOrCreate(ctx.Inst.Address + 4)
		ctx.IRB.CondBr(cmp, thenBlk, elseBlk)
		return true, nil

	case OpBR:
		rn := ctx.Inst.RegOperand(0)
		target := h.RSI.GetReg(ctx.IRB, rn, irbuild.IntType(64))
		helper := ctx.IRB.DeclareExternFunc("dc_indirect_branch", types.Void, irbuild.PointerType(), irbuild.IntType(64))
		ctx.IRB.Call(helper, h.RSI.Base, target)
		ctx.IRB.Unreachable()
		return true, nil

	case OpBLR:
		rn := ctx.Inst.RegOperand(0)
		target := h.RSI.GetReg(ctx.IRB, rn, irbuild.IntType(64))
		returnAddr := ctx.Inst.Address + 4
		h.RSI.PutReg(ctx.IRB, 30, ctx.IRB.ConstInt(irbuild.IntType(64), returnAddr))
		helper := ctx.IRB.DeclareExternFunc("dc_indirect_call", types.Void, irbuild.PointerType(), irbuild.IntType(64))
		err := ctx.FT.InsertCallBB(ctx.Block, ctx.Inst.Address, helper, []value.Value{h.RSI.Base, target}, returnAddr)
		return true, err

	case OpRET:
		ctx.IRB.RetVoid()
		return true, nil

	case OpNOP:
		return true, nil

	case OpBRK:
		return true, h.TranslateImplicit(ctx, ImplicitBrk)

	case OpSVC:
		return true, h.TranslateImplicit(ctx, ImplicitSvc)

	default:
		return false, nil
	}
}

// calleeName synthesizes the name a direct call/branch-and-link target
// is declared under: one external function per call target address,
// left for the linker stage to resolve against the rest of the
// translated module (or a runtime stub, for a target outside it).
func calleeName(addr uint64) string {
	return fmt.Sprintf("guest_%#x", addr)
}

func (h *Hooks) TranslateTargetOpcode(ctx *translate.InstContext, op sema.Op) error {
	return fmt.Errorf("aarch64: no target-range opcodes are defined, got %d", op)
}

func (h *Hooks) TranslateComplexPattern(ctx *translate.InstContext, operandNo uint32, patternID uint32) error {
	switch patternID {
	case PatternLoadStoreBase:
		base := ctx.VS.Pop()
		off := ctx.Inst.ImmOperand(operandNo)
		offVal := ctx.IRB.ConstInt(irbuild.IntType(64), uint64(off))
		ctx.VS.Push(ctx.IRB.BinOp(sema.OpADD, base, offVal))
		return nil
	default:
		return fmt.Errorf("aarch64: unknown complex pattern %d", patternID)
	}
}

func (h *Hooks) TranslateCustomOperand(ctx *translate.InstContext, operandNo uint32, tag uint32) error {
	switch tag {
	case CustomShiftedReg:
		packed := ctx.Inst.ImmOperand(operandNo)
		shiftType := ShiftType((packed >> 8) & 0x3)
		amount := uint64(packed & 0xFF)
		v := ctx.VS.Pop()
		ty := v.Type()
		amt := ctx.IRB.ConstInt(ty, amount)
		var shifted value.Value
		switch shiftType {
		case ShiftLSL:
			shifted = ctx.IRB.BinOp(sema.OpSHL, v, amt)
		case ShiftLSR:
			shifted = ctx.IRB.BinOp(sema.OpSRL, v, amt)
		case ShiftASR:
			shifted = ctx.IRB.BinOp(sema.OpSRA, v, amt)
		case ShiftROR:
			shifted = emitRotr(ctx, v, amt)
		}
		ctx.VS.Push(shifted)
		return nil
	case CustomImmOperand:
		imm := ctx.Inst.ImmOperand(operandNo)
		ctx.VS.Push(ctx.IRB.ConstInt(irbuild.IntType(64), uint64(imm)))
		return nil
	default:
		return fmt.Errorf("aarch64: unknown custom operand tag %d", tag)
	}
}

func (h *Hooks) TranslateImplicit(ctx *translate.InstContext, tag uint32) error {
	switch tag {
	case ImplicitNop:
		return nil
	case ImplicitBrk, ImplicitSvc:
		ctx.IRB.Trap()
		ctx.IRB.Unreachable()
		return nil
	default:
		return fmt.Errorf("aarch64: unknown implicit tag %d", tag)
	}
}

// emitRotr lowers a rotate-right of val by amt (val >> amt) | (val << (width - amt)).
func emitRotr(ctx *translate.InstContext, val, amt value.Value) value.Value {
	irb := ctx.IRB
	width := irbuild.BitWidth(val.Type())
	widthConst := irb.ConstInt(val.Type(), uint64(width))
	inv := irb.BinOp(sema.OpSUB, widthConst, amt)
	lo := irb.BinOp(sema.OpSRL, val, amt)
	hi := irb.BinOp(sema.OpSHL, val, inv)
	return irb.BinOp(sema.OpOR, lo, hi)
}

// emitCondCheck evaluates an AArch64 condition code against the packed
// NZCV flags bundle, the same truth table as emu.BranchUnit.CheckCondition
// re-expressed as boolean IR rather than a Go switch over live PSTATE
// fields.
func (h *Hooks) emitCondCheck(ctx *translate.InstContext, cond Cond) value.Value {
	irb := ctx.IRB
	flags := h.RSI.GetRC(irb, rcFlagsNZCV, irbuild.IntType(32))
	bit := func(pos uint64) value.Value {
		shifted := irb.BinOp(sema.OpSRL, flags, irb.ConstInt(irbuild.IntType(32), pos))
		masked := irb.BinOp(sema.OpAND, shifted, irb.ConstInt(irbuild.IntType(32), 1))
		return irb.ICmp(enum.IPredNE, masked, irb.ConstInt(irbuild.IntType(32), 0))
	}
	not := func(x value.Value) value.Value {
		return irb.BinOp(sema.OpXOR, x, irb.ConstInt(irbuild.IntType(1), 1))
	}
	n, z, c, v := bit(3), bit(2), bit(1), bit(0)

	switch cond {
	case CondEQ:
		return z
	case CondNE:
		return not(z)
	case CondCS:
		return c
	case CondCC:
		return not(c)
	case CondMI:
		return n
	case CondPL:
		return not(n)
	case CondVS:
		return v
	case CondVC:
		return not(v)
	case CondHI:
		return irb.BinOp(sema.OpAND, c, not(z))
	case CondLS:
		return irb.BinOp(sema.OpOR, not(c), z)
	case CondGE:
		return not(irb.BinOp(sema.OpXOR, n, v))
	case CondLT:
		return irb.BinOp(sema.OpXOR, n, v)
	case CondGT:
		return irb.BinOp(sema.OpAND, not(z), not(irb.BinOp(sema.OpXOR, n, v)))
	case CondLE:
		return irb.BinOp(sema.OpOR, z, irb.BinOp(sema.OpXOR, n, v))
	case CondAL, CondNV:
		return irb.ConstInt(irbuild.IntType(1), 1)
	default:
		return irb.ConstInt(irbuild.IntType(1), 0)
	}
}

var _ translate.TargetHooks = (*Hooks)(nil)
