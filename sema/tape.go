package sema

import "math"

// UnmappedOpcode is the OpcodeToSemaIdx sentinel meaning "this target
// opcode has no tape entry" (spec.md §3: "or a sentinel (~0)").
const UnmappedOpcode = math.MaxUint32

// Tape holds the three parallel, immutable arrays a table generator
// produces offline for one target: the opcode-to-semantics index, the
// flat semantics token stream, and the 64-bit constant pool. All three
// are borrowed read-only by every FunctionTranslator translating code
// for this target (spec.md §3 Ownership, §5 Concurrency).
type Tape struct {
	// OpcodeToSemaIdx maps a target MCOpcode to the index in
	// SemanticsArray where that instruction's semantics begin, or
	// UnmappedOpcode if the target opcode has no modeled semantics.
	OpcodeToSemaIdx []uint32
	// SemanticsArray is the flat stream of semantic opcodes and their
	// inline operands, one null-terminated (by EndOfInstruction)
	// subsequence per target opcode.
	SemanticsArray []uint32
	// ConstantArray is the pool of 64-bit constants MovConstant indexes
	// into.
	ConstantArray []uint64
}

// SemaIndexFor returns the SemanticsArray offset for mcOpcode, and false
// if the opcode has no modeled semantics.
func (t *Tape) SemaIndexFor(mcOpcode uint32) (uint32, bool) {
	if int(mcOpcode) >= len(t.OpcodeToSemaIdx) {
		return 0, false
	}
	idx := t.OpcodeToSemaIdx[mcOpcode]
	if idx == UnmappedOpcode {
		return 0, false
	}
	return idx, true
}

// Reader is the Semantics Tape Reader (STR): a cursor into a Tape's
// SemanticsArray. It is deliberately minimal — Reset, Next, NextOp,
// NextVT and Constant, no bounds-checking beyond what a malformed generator would need, per
// spec.md §4.1 ("out-of-bounds reads are undefined — the generator
// guarantees well-formed streams").
type Reader struct {
	tape *Tape
	idx  uint32
}

// NewReader creates a Reader positioned at idx into tape's
// SemanticsArray.
func NewReader(tape *Tape, idx uint32) *Reader {
	return &Reader{tape: tape, idx: idx}
}

// Reset repositions the reader at idx, reusing the same tape. FT reuses
// one Reader across every instruction in a function, repositioning it
// per spec.md §4.2 step 4.
func (r *Reader) Reset(idx uint32) {
	r.idx = idx
}

// Next returns the token at the cursor and advances it.
func (r *Reader) Next() uint32 {
	v := r.tape.SemanticsArray[r.idx]
	r.idx++
	return v
}

// NextOp is Next, typed as a semantic opcode.
func (r *Reader) NextOp() Op {
	return Op(r.Next())
}

// NextVT decodes the next token as a value-type tag.
func (r *Reader) NextVT() EVT {
	return EVT(r.Next())
}

// Constant returns the constant-pool entry at idx.
func (r *Reader) Constant(idx uint32) uint64 {
	return r.tape.ConstantArray[idx]
}
