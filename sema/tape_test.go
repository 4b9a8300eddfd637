package sema_test

import (
	"testing"

	"github.com/sarchlab/dctranslate/sema"
)

func TestSemaIndexFor(t *testing.T) {
	tape := &sema.Tape{
		OpcodeToSemaIdx: []uint32{sema.UnmappedOpcode, 3, sema.UnmappedOpcode},
		SemanticsArray:  []uint32{0, 0, 0, uint32(sema.EndOfInstruction)},
	}

	if _, ok := tape.SemaIndexFor(0); ok {
		t.Errorf("opcode 0 should be unmapped")
	}
	idx, ok := tape.SemaIndexFor(1)
	if !ok || idx != 3 {
		t.Errorf("opcode 1: got (%d, %v), want (3, true)", idx, ok)
	}
	if _, ok := tape.SemaIndexFor(5); ok {
		t.Errorf("opcode out of range should be unmapped")
	}
}

func TestReaderCursor(t *testing.T) {
	tape := &sema.Tape{
		SemanticsArray: []uint32{uint32(sema.OpADD), uint32(sema.EVTI64), uint32(sema.EndOfInstruction)},
		ConstantArray:  []uint64{0xDEAD, 0xBEEF},
	}
	r := sema.NewReader(tape, 0)

	if op := r.NextOp(); op != sema.OpADD {
		t.Errorf("NextOp() = %v, want OpADD", op)
	}
	if vt := r.NextVT(); vt != sema.EVTI64 {
		t.Errorf("NextVT() = %v, want EVTI64", vt)
	}
	if op := r.NextOp(); op != sema.EndOfInstruction {
		t.Errorf("NextOp() = %v, want EndOfInstruction", op)
	}

	if c := r.Constant(1); c != 0xBEEF {
		t.Errorf("Constant(1) = %#x, want 0xBEEF", c)
	}

	r.Reset(0)
	if op := r.NextOp(); op != sema.OpADD {
		t.Errorf("after Reset, NextOp() = %v, want OpADD", op)
	}
}

func TestOpClassification(t *testing.T) {
	if !sema.IsBuiltin(sema.OpADD) {
		t.Errorf("OpADD should be builtin")
	}
	if sema.IsBuiltin(sema.BuiltinOpEnd) {
		t.Errorf("BuiltinOpEnd itself should not classify as builtin")
	}
	if !sema.IsPseudo(sema.EndOfInstruction) {
		t.Errorf("EndOfInstruction should be a pseudo-opcode")
	}
	if !sema.IsTargetRange(sema.BuiltinOpEnd) {
		t.Errorf("BuiltinOpEnd should be the first target-range opcode")
	}
	if sema.IsTargetRange(sema.DCOpcodeStart) {
		t.Errorf("DCOpcodeStart should not be target-range")
	}
}

func TestEVTBits(t *testing.T) {
	cases := map[sema.EVT]int{
		sema.EVTI1:  1,
		sema.EVTI8:  8,
		sema.EVTI32: 32,
		sema.EVTI64: 64,
		sema.EVTF32: 32,
		sema.EVTF64: 64,
	}
	for evt, want := range cases {
		if got := evt.Bits(); got != want {
			t.Errorf("%v.Bits() = %d, want %d", evt, got, want)
		}
	}
	if sema.EVTV2I64.Bits() != 0 {
		t.Errorf("vector EVT should report 0 scalar bits")
	}
	if !sema.EVTV2I64.IsVector() {
		t.Errorf("EVTV2I64 should be a vector type")
	}
}
