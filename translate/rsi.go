package translate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
)

// RegisterSemantics (RSI) is the seam between the target-independent
// core and everything that knows the concrete shape of one target's
// register file — how a register number becomes an IR value, where the
// PC lives, how a whole register class is read or written at once. The
// core never touches a register file directly; every GET_REG, PUT_REG,
// GET_RC, PUT_RC pseudo-opcode is dispatched here (spec.md §4.5).
//
// Every method receives the Builder positioned at the instruction's
// current insertion block, and is expected to emit into it and return
// the produced value (for the Get* methods) without changing the
// insertion point.
type RegisterSemantics interface {
	// GetReg reads register regNum, typed as ty, as an IR value.
	GetReg(irb *irbuild.Builder, regNum uint32, ty types.Type) value.Value

	// PutReg writes val into register regNum. val's type is whatever the
	// tape's producing opcode left it as; implementations coerce as
	// needed for the register's storage width.
	PutReg(irb *irbuild.Builder, regNum uint32, val value.Value)

	// GetRC reads register class rc (a multi-register unit such as a
	// condition-flags bundle) as a single IR value of type ty.
	GetRC(irb *irbuild.Builder, rc uint32, ty types.Type) value.Value

	// PutRC writes val into register class rc. Callers are expected to
	// have already run val through the PUT_RC width/type coercion rules
	// (spec.md §4.2) using RCIntType and InsertBits below; PutRC itself
	// just stores the already-coerced value.
	PutRC(irb *irbuild.Builder, rc uint32, val value.Value)

	// RCIntType returns the integer type register class rc is natively
	// stored as, consulted by PUT_RC's coercion rules to decide whether
	// an incoming value needs a ptr-to-int, a same-width bitcast, or a
	// sub-register insert before it can be written (spec.md §4.2, §4.5's
	// get_reg_int_type).
	RCIntType(rc uint32) types.Type

	// InsertBits inserts narrow's bits into the low end of whole,
	// preserving whole's untouched high bits, implementing PUT_RC's
	// sub-register-write case (spec.md §4.5's insert_bits_in_value).
	InsertBits(irb *irbuild.Builder, whole, narrow value.Value) value.Value

	// ReadPC returns the guest program counter as an integer value of
	// pointer width. Every known instruction's translation advances PC
	// before any other semantic effect (spec.md §8 "PC-first" property).
	ReadPC(irb *irbuild.Builder) value.Value

	// WritePC stores pc as the new PC value.
	WritePC(irb *irbuild.Builder, pc value.Value)

	// SnapshotForDiff captures the full register file's current values,
	// returning an opaque token EmitDiff can compare against later.
	// Only called when Policy.EnableRegSetDiff is set; implementations
	// that don't support diff mode may return nil.
	SnapshotForDiff(irb *irbuild.Builder) any

	// EmitDiff writes back only the registers that changed since
	// snapshot was taken. When Policy.EnableRegSetDiff is set it is
	// called at every return block (through FinalizeFunction) and in the
	// restore block after every call.
	EmitDiff(irb *irbuild.Builder, snapshot any)

	// SwitchToInst notifies RSI that inst is about to be translated,
	// called as the very first step of per-instruction translation
	// (spec.md §4.2 step 1), before PC advance or any semantic effect.
	SwitchToInst(irb *irbuild.Builder, inst decoded.DecodedInst)

	// SwitchToBB notifies RSI that translation has moved to the IR block
	// for the MC basic block starting at addr (spec.md §4.3's
	// switch_to_bb), called once the block's placeholder body has been
	// cleared and the insertion point set.
	SwitchToBB(irb *irbuild.Builder, addr uint64)

	// FinalizeBB notifies RSI that the current MC basic block's
	// translation is complete (spec.md §4.3's finalize_bb), called after
	// its terminator is in place.
	FinalizeBB(irb *irbuild.Builder)

	// FinalizeFunction notifies RSI that exitBlk, one of the function's
	// return points, has reached its final form (spec.md §4.3's
	// finalize_function). diffSnapshot is the token SnapshotForDiff
	// returned at function entry, or nil if EnableRegSetDiff is off;
	// implementations decide for themselves whether there's anything to
	// do with it.
	FinalizeFunction(irb *irbuild.Builder, exitBlk *ir.Block, diffSnapshot any)

	// SaveAllLocalRegs emits, into the current block, whatever RSI needs
	// to preserve live register state across a call to a separately
	// translated function that may clobber it (spec.md §4.3's
	// post-processing step), returning an opaque token RestoreLocalRegs
	// uses to undo it. Called unconditionally for every call block,
	// never gated by Policy.EnableRegSetDiff.
	SaveAllLocalRegs(irb *irbuild.Builder) any

	// RestoreLocalRegs emits the inverse of SaveAllLocalRegs, using the
	// token it returned.
	RestoreLocalRegs(irb *irbuild.Builder, saved any)
}
