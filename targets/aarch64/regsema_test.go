package aarch64_test

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/targets/aarch64"
)

func newRSITestBuilder() (*irbuild.Builder, value.Value) {
	irb := irbuild.NewBuilder(64)
	regfileTy := types.NewArray(512, types.I8)
	global := irb.Module.NewGlobalDef("regfile", constant.NewZeroInitializer(regfileTy))

	fn := irb.Module.NewFunc("f", types.Void)
	blk := fn.NewBlock("entry")
	irb.SetInsertPoint(blk)
	return irb, global
}

var _ = Describe("RSI", func() {
	var irb *irbuild.Builder
	var rsi *aarch64.RSI

	BeforeEach(func() {
		var base value.Value
		irb, base = newRSITestBuilder()
		rsi = aarch64.NewRSI(false)
		rsi.SetBase(base)
	})

	It("reads XZR as a constant zero regardless of memory contents", func() {
		v := rsi.GetReg(irb, aarch64.RegXZR, irbuild.IntType(64))
		Expect(v.String()).To(ContainSubstring("0"))
	})

	It("discards writes to XZR", func() {
		Expect(func() {
			rsi.PutReg(irb, aarch64.RegXZR, irb.ConstInt(irbuild.IntType(64), 99))
		}).NotTo(Panic())
	})

	It("zero-extends a 32-bit write before storing it", func() {
		w := irb.ConstInt(irbuild.IntType(32), 7)
		rsi.PutReg(irb, 0, w)
		lastInst := irb.InsertBlock().Insts[len(irb.InsertBlock().Insts)-1]
		Expect(lastInst).To(BeAssignableToTypeOf(&ir.InstStore{}))
	})
})

var _ = Describe("RSI diff mode", func() {
	It("only writes back registers whose cached value actually changed", func() {
		irb, base := newRSITestBuilder()
		rsi := aarch64.NewRSI(true)
		rsi.SetBase(base)

		rsi.GetReg(irb, 1, irbuild.IntType(64))
		snap := rsi.SnapshotForDiff(irb)

		before := len(irb.InsertBlock().Insts)
		rsi.EmitDiff(irb, snap)
		after := len(irb.InsertBlock().Insts)
		Expect(after).To(Equal(before))

		rsi.PutReg(irb, 1, irb.ConstInt(irbuild.IntType(64), 5))
		rsi.EmitDiff(irb, snap)
		afterWrite := len(irb.InsertBlock().Insts)
		Expect(afterWrite).To(BeNumerically(">", after))
	})
})
