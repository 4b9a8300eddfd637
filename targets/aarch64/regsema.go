package aarch64

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
	"github.com/sarchlab/dctranslate/translate"
)

// Register-file memory layout: a flat blob of 64-bit slots, addressed
// by byte offset from a base pointer the caller supplies per function
// (see RSI.SetBase). Grounded on emu.RegFile's X[32]/SP/PC/PSTATE
// fields, flattened into one contiguous layout instead of a Go struct
// since the translator emits pointer arithmetic, not Go field access.
const (
	regSlotBytes   = 8
	offsetX0       = 0
	offsetSP       = 31 * regSlotBytes
	offsetPC       = 32 * regSlotBytes
	offsetNZCV     = 33 * regSlotBytes
	rcFlagsNZCV    = 1
)

// RSI is the AArch64 RegisterSemantics implementation. With
// Policy.EnableRegSetDiff off, every Get/Put goes straight to memory
// through the base pointer; with it on, reads and writes are cached as
// SSA values per function and only the registers that actually changed
// are written back at EmitDiff time (called once per return point).
type RSI struct {
	Base    value.Value
	DiffOn  bool
	cache   map[uint64]value.Value
}

// NewRSI returns an RSI with no bound function yet; call SetBase before
// translating each function.
func NewRSI(diffOn bool) *RSI {
	return &RSI{DiffOn: diffOn, cache: make(map[uint64]value.Value)}
}

// SetBase binds the register-file base pointer for the function about
// to be translated, and clears any cache left over from the previous
// one.
func (r *RSI) SetBase(base value.Value) {
	r.Base = base
	r.cache = make(map[uint64]value.Value)
}

func (r *RSI) slotPtr(irb *irbuild.Builder, offset uint64, ty types.Type) value.Value {
	baseInt := irb.PtrToInt(r.Base, irbuild.IntType(64))
	addr := irb.BinOp(sema.OpADD, baseInt, irb.ConstInt(irbuild.IntType(64), offset))
	return irb.IntToPtr(addr, types.NewPointer(ty))
}

func regOffset(regNum uint32) uint64 {
	switch regNum {
	case RegSP:
		return offsetSP
	default:
		return offsetX0 + uint64(regNum)*regSlotBytes
	}
}

func (r *RSI) load(irb *irbuild.Builder, offset uint64, ty types.Type) value.Value {
	if r.DiffOn {
		if v, ok := r.cache[offset]; ok {
			return v
		}
		v := irb.Load(r.slotPtr(irb, offset, ty), ty)
		r.cache[offset] = v
		return v
	}
	return irb.Load(r.slotPtr(irb, offset, ty), ty)
}

func (r *RSI) store(irb *irbuild.Builder, offset uint64, val value.Value) {
	if r.DiffOn {
		r.cache[offset] = val
		return
	}
	irb.Store(val, r.slotPtr(irb, offset, val.Type()))
}

// GetReg reads register regNum (per the RegXZR/RegSP conventions in
// opcodes.go), zero for XZR.
func (r *RSI) GetReg(irb *irbuild.Builder, regNum uint32, ty types.Type) value.Value {
	if regNum == RegXZR {
		return irb.ConstInt(ty, 0)
	}
	return r.load(irb, regOffset(regNum), ty)
}

// PutReg writes val into register regNum, zero-extending to the full
// 64-bit slot when val is a 32-bit (Wd) write, matching
// emu.RegFile.WriteReg32's zero-extend. Writes to XZR are discarded.
func (r *RSI) PutReg(irb *irbuild.Builder, regNum uint32, val value.Value) {
	if regNum == RegXZR {
		return
	}
	if irbuild.BitWidth(val.Type()) < 64 {
		val = irb.ZExt(val, irbuild.IntType(64))
	}
	r.store(irb, regOffset(regNum), val)
}

// GetRC reads register class rc as a single value of type ty. The only
// class this target defines is the packed NZCV flags bundle.
func (r *RSI) GetRC(irb *irbuild.Builder, rc uint32, ty types.Type) value.Value {
	switch rc {
	case rcFlagsNZCV:
		return r.load(irb, offsetNZCV, ty)
	default:
		return irb.ConstInt(ty, 0)
	}
}

// PutRC writes val into register class rc. The Instruction Translator
// runs val through PUT_RC's coercion rules before calling this, so by
// the time it reaches here val is already of type RCIntType(rc).
func (r *RSI) PutRC(irb *irbuild.Builder, rc uint32, val value.Value) {
	switch rc {
	case rcFlagsNZCV:
		r.store(irb, offsetNZCV, val)
	}
}

// RCIntType returns the integer type register class rc is natively
// stored as. Every slot in this target's flat register-file layout is a
// uniform 8-byte cell (regSlotBytes), the flags bundle included, so this
// is constant regardless of rc.
func (r *RSI) RCIntType(rc uint32) types.Type {
	return irbuild.IntType(64)
}

// InsertBits inserts narrow's bits into the low end of whole, zero-
// extending narrow and masking off whole's corresponding low bits first
// so the untouched high bits survive, implementing PUT_RC's
// sub-register-write case.
func (r *RSI) InsertBits(irb *irbuild.Builder, whole, narrow value.Value) value.Value {
	ext := irb.ZExt(narrow, whole.Type())
	narrowWidth := irbuild.BitWidth(narrow.Type())
	mask := irb.ConstInt(whole.Type(), ^uint64(0)<<uint(narrowWidth))
	highBits := irb.BinOp(sema.OpAND, whole, mask)
	return irb.BinOp(sema.OpOR, highBits, ext)
}

// ReadPC reads the PC slot.
func (r *RSI) ReadPC(irb *irbuild.Builder) value.Value {
	return r.load(irb, offsetPC, irbuild.IntType(64))
}

// WritePC stores pc into the PC slot. Always goes straight to memory
// even in diff mode: PC must be observable immediately for a trap
// handler to read, so it's never deferred to EmitDiff.
func (r *RSI) WritePC(irb *irbuild.Builder, pc value.Value) {
	irb.Store(pc, r.slotPtr(irb, offsetPC, irbuild.IntType(64)))
	if r.DiffOn {
		r.cache[offsetPC] = pc
	}
}

// diffSnapshot is the opaque token SnapshotForDiff/EmitDiff exchange: a
// copy of the cache at the moment it was taken.
type diffSnapshot map[uint64]value.Value

// SnapshotForDiff copies the current cache contents.
func (r *RSI) SnapshotForDiff(irb *irbuild.Builder) any {
	snap := make(diffSnapshot, len(r.cache))
	for k, v := range r.cache {
		snap[k] = v
	}
	return snap
}

// EmitDiff writes back every cached register whose current SSA value
// differs (by identity — it was reassigned since the snapshot, meaning
// some instruction wrote it) from its snapshotted value.
func (r *RSI) EmitDiff(irb *irbuild.Builder, snapshot any) {
	before, _ := snapshot.(diffSnapshot)
	for offset, cur := range r.cache {
		if before[offset] == cur {
			continue
		}
		irb.Store(cur, r.slotPtr(irb, offset, cur.Type()))
	}
}

// SwitchToInst has nothing target-specific to do: every effect
// decoded.DecodedInst could drive (register numbers, immediates) is
// already threaded through InstContext by the core dispatcher.
func (r *RSI) SwitchToInst(irb *irbuild.Builder, inst decoded.DecodedInst) {}

// SwitchToBB clears the per-function SSA cache. A cached register value
// is only valid along the single control-flow path that produced it; a
// new basic block may be reached from multiple predecessors, so any
// value cached before the switch cannot be assumed to still dominate
// reads inside it.
func (r *RSI) SwitchToBB(irb *irbuild.Builder, addr uint64) {
	if r.DiffOn {
		r.cache = make(map[uint64]value.Value)
	}
}

// FinalizeBB has nothing target-specific to do: the block's terminator
// and its call-block shape (if any) are BBM's responsibility, not RSI's.
func (r *RSI) FinalizeBB(irb *irbuild.Builder) {}

// FinalizeFunction emits the register-diff write-back stores (via
// EmitDiff) at exitBlk when diff mode is on. diffSnapshot is nil when EnableRegSetDiff is off, in which
// case there is nothing to do.
func (r *RSI) FinalizeFunction(irb *irbuild.Builder, exitBlk *ir.Block, diffSnapshot any) {
	if !r.DiffOn || diffSnapshot == nil {
		return
	}
	irb.SetInsertPoint(exitBlk)
	r.EmitDiff(irb, diffSnapshot)
}

// SaveAllLocalRegs clears the SSA cache before a call whose callee
// receives the same register-file pointer and may write through it,
// returning the discarded cache as the token RestoreLocalRegs expects.
// In non-diff mode the cache is already empty, so this is a no-op.
func (r *RSI) SaveAllLocalRegs(irb *irbuild.Builder) any {
	saved := r.cache
	r.cache = make(map[uint64]value.Value)
	return saved
}

// RestoreLocalRegs does nothing beyond what SaveAllLocalRegs already
// did: subsequent GetReg/GetRC calls reload from memory, which already
// reflects whatever the call wrote, since caller and callee share the
// same register-file pointer. The token exists only to satisfy the RSI
// contract; this target keeps no separate save area.
func (r *RSI) RestoreLocalRegs(irb *irbuild.Builder, saved any) {}

var _ translate.RegisterSemantics = (*RSI)(nil)
