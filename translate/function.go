package translate

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
)

// FunctionTranslator (FT) owns everything involved in translating one
// guest MC function into one IR function: the IR function itself, its
// basic-block manager, its value stack, and its one shared tape reader.
// It also implements the Instruction Translator role — spec.md's stated
// ownership invariant ("FT exclusively owns the IR function, BBM, IRB,
// and VS") is naturally expressed by IT being FT's own method set rather
// than a separate collaborator, matching original_source/lib/DC/
// DCFunction.cpp, which implements both roles in a single class.
type FunctionTranslator struct {
	Policy  Policy
	IRB     *irbuild.Builder
	RSI     RegisterSemantics
	Hooks   TargetHooks
	Tape    *sema.Tape
	Reader  *sema.Reader
	VS      *ValueStack
	BBM     *blockManager
	Func    *ir.Func
	PtrBits int

	diffSnapshot any
	entryAddr    uint64
	auxCounter   int
}

// NewFunctionTranslator builds the IR function shell for mcFn (entry
// block, register-diff snapshot if enabled, unconditional branch into
// the function's first guest block) and returns a FunctionTranslator
// ready to have TranslateFunction called on it.
func NewFunctionTranslator(
	irb *irbuild.Builder,
	tape *sema.Tape,
	rsi RegisterSemantics,
	hooks TargetHooks,
	policy Policy,
	ptrBits int,
	mcFn *decoded.MCFunction,
) (*FunctionTranslator, error) {
	if mcFn.Empty() {
		return nil, newErr(ErrKindInternal, mcFn.StartAddr, "translating an empty MC function")
	}

	fn := irb.Module.NewFunc(functionName(mcFn), types.Void)

	ft := &FunctionTranslator{
		Policy:    policy,
		IRB:       irb,
		RSI:       rsi,
		Hooks:     hooks,
		Tape:      tape,
		Reader:    sema.NewReader(tape, 0),
		VS:        NewValueStack(),
		Func:      fn,
		PtrBits:   ptrBits,
		entryAddr: mcFn.StartAddr,
	}
	ft.BBM = newBlockManager(irb, fn)

	entry := fn.NewBlock("entry")
	irb.SetInsertPoint(entry)
	if policy.EnableRegSetDiff {
		ft.diffSnapshot = rsi.SnapshotForDiff(irb)
	}
	firstBlk := ft.BBM.GetOrCreate(mcFn.StartAddr)
	entry.Term = entry.NewBr(firstBlk)

	return ft, nil
}

func functionName(mcFn *decoded.MCFunction) string {
	if mcFn.Name != "" {
		return mcFn.Name
	}
	return fmt.Sprintf("guest_%#x", mcFn.StartAddr)
}

// TranslateFunction walks every MC basic block of mcFn in order,
// opening its IR block, translating each decoded instruction into it,
// and finalizing the block once its instructions are exhausted. A block
// that falls off its own end without a terminator (no explicit branch
// or return as its last instruction) gets a branch synthesized to the
// block at its EndAddr, matching a decoder that only marks block
// boundaries at actual control-flow instructions.
func (ft *FunctionTranslator) TranslateFunction(mcFn *decoded.MCFunction) error {
	for _, bb := range mcFn.BasicBlocks {
		blk, err := ft.BBM.Open(bb.StartAddr, false)
		if err != nil {
			return err
		}
		ft.IRB.SetInsertPoint(blk)
		ft.RSI.SwitchToBB(ft.IRB, bb.StartAddr)

		for _, inst := range bb.Insts {
			if err := ft.translateInstruction(inst, blk); err != nil {
				return err
			}
			blk = ft.IRB.InsertBlock()
		}

		if blk.Term == nil {
			next := ft.BBM.GetOrCreate(bb.EndAddr)
			blk.Term = blk.NewBr(next)
		}
		ft.RSI.FinalizeBB(ft.IRB)
		if err := ft.BBM.Finalize(bb.StartAddr); err != nil {
			return err
		}
	}

	ft.finalizeReturns(mcFn)

	return nil
}

// finalizeReturns calls RSI.FinalizeFunction once for every finalized
// block whose terminator is a void return (spec.md §4.3's
// "RSI.finalize_function(exit_bb)", run once per exit path since this
// function has no single unified exit block). This runs as a pass over
// the whole function rather than inline during per-instruction
// translation because RET can be reached by a target hook
// (translate_target_inst) that has no reason to know about exit-path
// bookkeeping.
func (ft *FunctionTranslator) finalizeReturns(mcFn *decoded.MCFunction) {
	for _, bb := range mcFn.BasicBlocks {
		blk := ft.BBM.GetOrCreate(bb.StartAddr)
		if _, ok := blk.Term.(*ir.TermRet); !ok {
			continue
		}
		ft.RSI.FinalizeFunction(ft.IRB, blk, ft.diffSnapshot)
	}
}

// nextAux returns a fresh label for a block that has no guest address.
func (ft *FunctionTranslator) nextAux(prefix string) string {
	ft.auxCounter++
	return fmt.Sprintf("%s_%d", prefix, ft.auxCounter)
}

// InsertCallBB translates a call instruction into three aux blocks: a
// save block that snapshots live registers, a call block containing
// exactly {call, br} (spec.md §4.4's call-block shape invariant), and a
// restore block that reloads them before falling through to
// returnAddr's block. callerBlk — the guest-addressed block the call
// instruction itself lives in, already open when the target hook calls
// this — is left branching into the save block; none of the three aux
// blocks share callerBlk's address, so wrapping a call in save/restore
// never touches whatever else BBM knows callerBlk by.
func (ft *FunctionTranslator) InsertCallBB(callerBlk *ir.Block, addr uint64, callee value.Value, args []value.Value, returnAddr uint64) error {
	saveBlk := ft.BBM.NewAux(ft.nextAux("call_save"))
	callBlk := ft.BBM.NewAux(ft.nextAux("call"))
	restoreBlk := ft.BBM.NewAux(ft.nextAux("call_restore"))

	callerBlk.Term = callerBlk.NewBr(saveBlk)

	// Wrapping a call with save/restore is unconditional (spec.md §4.3's
	// post-processing step names no policy flag) — the callee is a
	// separately translated function that receives the same register
	// file and may clobber it regardless of whether register-diffing at
	// function exit is enabled.
	ft.IRB.SetInsertPoint(saveBlk)
	saved := ft.RSI.SaveAllLocalRegs(ft.IRB)
	var diffSnap any
	if ft.Policy.EnableRegSetDiff {
		diffSnap = ft.RSI.SnapshotForDiff(ft.IRB)
	}
	saveBlk.Term = saveBlk.NewBr(callBlk)

	ft.IRB.SetInsertPoint(callBlk)
	ft.IRB.Call(callee, args...)
	callBlk.Term = callBlk.NewBr(restoreBlk)
	if err := FinalizeBlock(callBlk, true, addr); err != nil {
		return err
	}

	ft.IRB.SetInsertPoint(restoreBlk)
	ft.RSI.RestoreLocalRegs(ft.IRB, saved)
	if ft.Policy.EnableRegSetDiff {
		ft.RSI.EmitDiff(ft.IRB, diffSnap)
	}
	next := ft.BBM.GetOrCreate(returnAddr)
	restoreBlk.Term = restoreBlk.NewBr(next)

	return nil
}

// CreateExternalTailCallBB builds a standalone block that calls callee
// with args and returns void directly, used when a control-flow
// instruction (an indirect tail branch, or a branch to an address
// outside the function being translated) has no guest fallthrough to
// return to. Unlike InsertCallBB this never rejoins the function's own
// control flow.
func (ft *FunctionTranslator) CreateExternalTailCallBB(callee value.Value, args []value.Value) *ir.Block {
	blk := ft.BBM.NewAux(ft.nextAux("tailcall"))
	ft.IRB.SetInsertPoint(blk)
	ft.IRB.Call(callee, args...)
	ft.IRB.RetVoid()
	return blk
}
