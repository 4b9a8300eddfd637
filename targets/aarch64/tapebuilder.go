package aarch64

import "github.com/sarchlab/dctranslate/sema"

// tapeBuilder assembles a sema.Tape for this target's opcode set one
// instruction at a time. begin marks where an Op's tokens start, the
// emit helpers lay tokens down in the order translate/instruction.go's
// dispatch expects them, and end closes the subsequence with
// EndOfInstruction. This is the hand-rolled stand-in for the offline
// table generator spec.md describes: small and fixed enough for this
// opcode set to build inline in init() rather than as a separate
// cmd/tapegen pass reading a per-target description file.
type tapeBuilder struct {
	semantics []uint32
	constants []uint64
	offsets   map[Op]uint32
	constIdx  map[uint64]uint32
}

func newTapeBuilder() *tapeBuilder {
	return &tapeBuilder{
		offsets:  make(map[Op]uint32),
		constIdx: make(map[uint64]uint32),
	}
}

// begin records the current write position as op's entry point.
func (b *tapeBuilder) begin(op Op) *tapeBuilder {
	b.offsets[op] = uint32(len(b.semantics))
	return b
}

// end closes the subsequence currently being written.
func (b *tapeBuilder) end() *tapeBuilder {
	b.semantics = append(b.semantics, uint32(sema.EndOfInstruction))
	return b
}

func (b *tapeBuilder) raw(tokens ...uint32) *tapeBuilder {
	b.semantics = append(b.semantics, tokens...)
	return b
}

func (b *tapeBuilder) op(o sema.Op) *tapeBuilder  { return b.raw(uint32(o)) }
func (b *tapeBuilder) vt(t sema.EVT) *tapeBuilder { return b.raw(uint32(t)) }

// constant interns v in the constant pool, returning its index.
func (b *tapeBuilder) constant(v uint64) uint32 {
	if idx, ok := b.constIdx[v]; ok {
		return idx
	}
	idx := uint32(len(b.constants))
	b.constants = append(b.constants, v)
	b.constIdx[v] = idx
	return idx
}

// getReg pushes MC operand operandNo, read as a register number, as ty.
func (b *tapeBuilder) getReg(operandNo uint32, ty sema.EVT) *tapeBuilder {
	return b.op(sema.GetReg).raw(operandNo).vt(ty)
}

// putReg pops VS and writes it into the register named by operand operandNo.
func (b *tapeBuilder) putReg(operandNo uint32) *tapeBuilder {
	return b.op(sema.PutReg).raw(operandNo)
}

func (b *tapeBuilder) getRC(rc uint32, ty sema.EVT) *tapeBuilder {
	return b.op(sema.GetRC).raw(rc).vt(ty)
}

func (b *tapeBuilder) putRC(rc uint32) *tapeBuilder {
	return b.op(sema.PutRC).raw(rc)
}

// customOp routes to TargetHooks.TranslateCustomOperand(operandNo, tag).
func (b *tapeBuilder) customOp(operandNo, tag uint32) *tapeBuilder {
	return b.op(sema.CustomOp).raw(operandNo, tag)
}

// complexPattern routes to TargetHooks.TranslateComplexPattern(operandNo, patternID).
func (b *tapeBuilder) complexPattern(operandNo, patternID uint32) *tapeBuilder {
	return b.op(sema.ComplexPattern).raw(operandNo, patternID)
}

func (b *tapeBuilder) predicate(id sema.PredicateID) *tapeBuilder {
	return b.op(sema.Predicate).raw(uint32(id))
}

// constOp pushes the pool constant v, typed ty.
func (b *tapeBuilder) constOp(v uint64, ty sema.EVT) *tapeBuilder {
	idx := b.constant(v)
	return b.op(sema.ConstantOp).raw(idx).vt(ty)
}

// binOp pops two values and pushes the result of applying op to them.
func (b *tapeBuilder) binOp(o sema.Op) *tapeBuilder {
	return b.op(o)
}

// immOperand pushes MC operand operandNo read straight as a 64-bit
// immediate, via the CustomImmOperand tag rather than the tape's own
// constant pool, since its value varies per decoded instance rather
// than per opcode.
func (b *tapeBuilder) immOperand(operandNo uint32) *tapeBuilder {
	return b.customOp(operandNo, CustomImmOperand)
}

// load pops an address and pushes the value loaded from it as ty.
func (b *tapeBuilder) load(ty sema.EVT) *tapeBuilder {
	return b.op(sema.OpLOAD).vt(ty)
}

// store pops a value and an address and stores the value there.
func (b *tapeBuilder) store() *tapeBuilder {
	return b.op(sema.OpSTORE)
}

// build produces the finished Tape: the flat OpcodeToSemaIdx array
// (sized to cover every opcode named in offsets, defaulting every
// other slot to sema.UnmappedOpcode) plus the accumulated semantics
// and constant arrays.
func (b *tapeBuilder) build(numOpcodes int) *sema.Tape {
	idx := make([]uint32, numOpcodes)
	for i := range idx {
		idx[i] = sema.UnmappedOpcode
	}
	for op, off := range b.offsets {
		idx[int(op)] = off
	}
	return &sema.Tape{
		OpcodeToSemaIdx: idx,
		SemanticsArray:  b.semantics,
		ConstantArray:   b.constants,
	}
}
