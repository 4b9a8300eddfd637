package translate

import (
	"github.com/llir/llvm/ir"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
)

// InstContext is the bundle of state one instruction's translation
// operates over, passed by pointer through the builtin dispatch table
// and every Target Hook Surface call so a hook can do anything the core
// dispatcher can: push/pop the value stack, read further tape tokens,
// ask BBM for a new or existing block, or read the register file.
type InstContext struct {
	FT   *FunctionTranslator
	IRB  *irbuild.Builder
	VS   *ValueStack
	Tape *sema.Reader
	RSI  RegisterSemantics

	// Inst is the decoded instruction currently being translated.
	Inst decoded.DecodedInst

	// Block is the basic block the instruction's semantics are being
	// emitted into. It can change mid-instruction (a target hook that
	// synthesizes a conditional branch moves the insertion point to a
	// new successor block and updates this field to match).
	Block *ir.Block
}

// SetBlock moves both the context's notion of the current block and the
// builder's insertion point to blk, kept in lock-step so hooks never
// have to touch the builder's insertion point directly.
func (c *InstContext) SetBlock(blk *ir.Block) {
	c.Block = blk
	c.IRB.SetInsertPoint(blk)
}
