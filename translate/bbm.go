package translate

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/sarchlab/dctranslate/irbuild"
)

// blockState is where a managed block sits in its lifecycle: created as
// a forward-reference before its real content exists, opened for
// emission once its owning MC basic block is reached, or finalized once
// its terminator is in place (spec.md §4.4).
type blockState int

const (
	statePlaceholder blockState = iota
	stateOpen
	stateFinalized
)

// managedBlock pairs an *ir.Block with its lifecycle state and whether
// it's a call block, which constrains what its finalized shape may be
// (spec.md §4.4's call-block shape invariant: exactly {call, br}).
type managedBlock struct {
	blk     *ir.Block
	state   blockState
	isCall  bool
}

// blockManager (BBM) owns every basic block belonging to one guest
// function's translation, keyed by the guest code address the block
// starts at. It is the sole place a forward branch target gets turned
// into an *ir.Block before the instruction it points to has been
// translated: GetOrCreate returns a placeholder block — a stub body of
// Trap()+Unreachable() — that a later call to the same address opens
// and overwrites with real content.
type blockManager struct {
	irb    *irbuild.Builder
	fn     *ir.Func
	blocks map[uint64]*managedBlock
	order  []uint64
	next   int
}

func newBlockManager(irb *irbuild.Builder, fn *ir.Func) *blockManager {
	return &blockManager{
		irb:    irb,
		fn:     fn,
		blocks: make(map[uint64]*managedBlock),
	}
}

func (m *blockManager) freshBlock(label string) *ir.Block {
	blk := m.fn.NewBlock(label)
	return blk
}

// GetOrCreate returns the block for addr, creating a placeholder if one
// doesn't exist yet. Every direct branch target and call return address
// goes through this method (calls and indirect branches go to runtime
// helpers instead) — it is the only way a *ir.Block for a guest
// address comes into existence, guaranteeing at most one block per
// address (spec.md §8 "block uniqueness" property).
func (m *blockManager) GetOrCreate(addr uint64) *ir.Block {
	if mb, ok := m.blocks[addr]; ok {
		return mb.blk
	}
	blk := m.freshBlock(fmt.Sprintf("bb_%#x", addr))
	saved := m.irb.InsertBlock()
	m.irb.SetInsertPoint(blk)
	m.irb.Trap()
	m.irb.Unreachable()
	if saved != nil {
		m.irb.SetInsertPoint(saved)
	}
	m.blocks[addr] = &managedBlock{blk: blk, state: statePlaceholder}
	m.order = append(m.order, addr)
	return blk
}

// Open transitions addr's block from placeholder (or freshly created)
// to open for emission, clearing the trap-stub body so the caller can
// fill it with the guest instruction's real translation. Opening a
// block that's already finalized is an internal error: it means two MC
// basic blocks claimed the same start address.
func (m *blockManager) Open(addr uint64, isCall bool) (*ir.Block, error) {
	if _, ok := m.blocks[addr]; !ok {
		m.GetOrCreate(addr)
	}
	mb := m.blocks[addr]

	if mb.state == stateFinalized {
		return nil, newErr(ErrKindInternal, addr,
			"basic block reopened after finalization")
	}
	if mb.state == statePlaceholder {
		if err := prepareForInsertion(mb.blk, addr); err != nil {
			return nil, err
		}
	}
	mb.state = stateOpen
	mb.isCall = isCall
	return mb.blk, nil
}

// prepareForInsertion asserts that blk's placeholder body is exactly
// {trap, unreachable} before erasing it for the caller to fill with the
// block's real content (spec.md §4.3 step 2; §8's "placeholder
// discipline"). Any other shape means two MC basic blocks claimed the
// same start address — a decoder/generator bug, not a recoverable error.
func prepareForInsertion(blk *ir.Block, addr uint64) error {
	if len(blk.Insts) != 1 {
		return newErr(ErrKindBlockShapeViolation, addr,
			"placeholder block has %d instruction(s) before its terminator, want exactly 1 (trap)",
			len(blk.Insts))
	}
	if _, ok := blk.Insts[0].(*ir.InstCall); !ok {
		return newErr(ErrKindBlockShapeViolation, addr,
			"placeholder block's instruction is a %T, want a trap call", blk.Insts[0])
	}
	if _, ok := blk.Term.(*ir.TermUnreachable); !ok {
		return newErr(ErrKindBlockShapeViolation, addr,
			"placeholder block's terminator is a %T, want unreachable", blk.Term)
	}
	blk.Insts = blk.Insts[:0]
	blk.Term = nil
	return nil
}

// Finalize marks addr's block as complete and checks the call-block
// shape invariant if it was opened as a call block.
func (m *blockManager) Finalize(addr uint64) error {
	mb, ok := m.blocks[addr]
	if !ok {
		return newErr(ErrKindInternal, addr, "finalize of unknown block")
	}
	if err := FinalizeBlock(mb.blk, mb.isCall, addr); err != nil {
		return err
	}
	mb.state = stateFinalized
	return nil
}

// FinalizeBlock checks that blk has a terminator, and if isCall, that it
// has the call-block shape. Used both for BBM-addressed blocks (via
// Finalize) and for aux blocks a target hook builds directly (the call
// block InsertCallBB wraps in save/restore, which has no guest address
// of its own — pass 0 for addr in that case).
func FinalizeBlock(blk *ir.Block, isCall bool, addr uint64) error {
	if blk.Term == nil {
		return newErr(ErrKindBlockShapeViolation, addr, "block finalized without a terminator")
	}
	if isCall {
		if err := checkCallBlockShape(blk); err != nil {
			return wrapErr(ErrKindBlockShapeViolation, addr, err, "call block shape invariant violated")
		}
	}
	return nil
}

// checkCallBlockShape enforces spec.md §4.4: a call block, before it is
// later wrapped with register-save/restore, contains exactly one call
// instruction followed by exactly one unconditional branch terminator.
func checkCallBlockShape(blk *ir.Block) error {
	if len(blk.Insts) != 1 {
		return fmt.Errorf("expected exactly 1 instruction before the terminator, got %d", len(blk.Insts))
	}
	if _, ok := blk.Insts[0].(*ir.InstCall); !ok {
		return fmt.Errorf("expected a call instruction, got %T", blk.Insts[0])
	}
	if _, ok := blk.Term.(*ir.TermBr); !ok {
		return fmt.Errorf("expected an unconditional branch terminator, got %T", blk.Term)
	}
	return nil
}

// IsFinalized reports whether addr's block has been finalized.
func (m *blockManager) IsFinalized(addr uint64) bool {
	mb, ok := m.blocks[addr]
	return ok && mb.state == stateFinalized
}

// NewAux creates a block with no guest address, for control flow the
// translator synthesizes itself (call save/restore wrappers, the
// external tail-call trampoline) rather than content that corresponds
// to a decoded instruction.
func (m *blockManager) NewAux(label string) *ir.Block {
	return m.freshBlock(label)
}

// Placeholders returns the addresses of every block still in the
// placeholder state — targets that were referenced but never reached by
// the guest function's own basic blocks (an incomplete decode, or a
// genuinely unreachable label). FunctionTranslator does not report
// them; their trap-stub body is left in place.
func (m *blockManager) Placeholders() []uint64 {
	var out []uint64
	for _, addr := range m.order {
		if m.blocks[addr].state == statePlaceholder {
			out = append(out, addr)
		}
	}
	return out
}
