package irbuild_test

import (
	"testing"

	"github.com/llir/llvm/ir/types"

	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/sema"
)

func TestTypeForEVT(t *testing.T) {
	cases := []struct {
		evt  sema.EVT
		want types.Type
	}{
		{sema.EVTI1, types.I1},
		{sema.EVTI8, types.I8},
		{sema.EVTI32, types.I32},
		{sema.EVTI64, types.I64},
		{sema.EVTF32, types.Float},
		{sema.EVTF64, types.Double},
	}
	for _, c := range cases {
		if got := irbuild.TypeForEVT(c.evt, 64); got != c.want {
			t.Errorf("TypeForEVT(%v) = %v, want %v", c.evt, got, c.want)
		}
	}
}

func TestTypeForEVTIPtrUsesPtrBits(t *testing.T) {
	got := irbuild.TypeForEVT(sema.EVTIPtr, 32)
	if got != types.I32 {
		t.Errorf("TypeForEVT(EVTIPtr, 32) = %v, want i32", got)
	}
}

func TestBitWidth(t *testing.T) {
	if w := irbuild.BitWidth(types.I64); w != 64 {
		t.Errorf("BitWidth(i64) = %d, want 64", w)
	}
	if w := irbuild.BitWidth(types.Double); w != 64 {
		t.Errorf("BitWidth(double) = %d, want 64", w)
	}
	vec := types.NewVector(4, types.I32)
	if w := irbuild.BitWidth(vec); w != 128 {
		t.Errorf("BitWidth(<4 x i32>) = %d, want 128", w)
	}
}

func TestIsPointerType(t *testing.T) {
	if !irbuild.IsPointerType(irbuild.PointerType()) {
		t.Errorf("PointerType() should report IsPointerType")
	}
	if irbuild.IsPointerType(types.I64) {
		t.Errorf("i64 should not report IsPointerType")
	}
}
