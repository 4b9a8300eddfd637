package aarch64_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dctranslate/decoded"
	"github.com/sarchlab/dctranslate/irbuild"
	"github.com/sarchlab/dctranslate/targets/aarch64"
	"github.com/sarchlab/dctranslate/translate"
)

func newHooksTestContext(inst decoded.DecodedInst) *translate.InstContext {
	irb, base := newRSITestBuilder()
	rsi := aarch64.NewRSI(false)
	rsi.SetBase(base)
	return &translate.InstContext{
		IRB:  irb,
		VS:   translate.NewValueStack(),
		RSI:  rsi,
		Inst: inst,
	}
}

var _ = Describe("Hooks.TranslateComplexPattern", func() {
	It("adds the base register to the instruction's immediate offset", func() {
		inst := decoded.DecodedInst{
			Address:  0x1000,
			MCOpcode: uint32(aarch64.OpLDR64),
			Operands: []decoded.MCOperand{
				decoded.RegOperand(0),
				decoded.RegOperand(1),
				decoded.ImmOperand(8),
			},
		}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		ctx.VS.Push(ctx.IRB.ConstInt(irbuild.IntType(64), 0x2000))
		err := hooks.TranslateComplexPattern(ctx, 2, aarch64.PatternLoadStoreBase)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.VS.Len()).To(Equal(1))
	})

	It("rejects an unknown pattern id", func() {
		ctx := newHooksTestContext(decoded.DecodedInst{})
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))
		ctx.VS.Push(ctx.IRB.ConstInt(irbuild.IntType(64), 0))
		err := hooks.TranslateComplexPattern(ctx, 0, 99)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Hooks.TranslateCustomOperand", func() {
	It("pushes a raw immediate for CustomImmOperand", func() {
		inst := decoded.DecodedInst{
			Operands: []decoded.MCOperand{decoded.ImmOperand(42)},
		}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		err := hooks.TranslateCustomOperand(ctx, 0, aarch64.CustomImmOperand)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.VS.Len()).To(Equal(1))
	})

	It("applies an LSL shift for CustomShiftedReg", func() {
		shiftPacked := int64(0) // ShiftLSL, amount 0
		inst := decoded.DecodedInst{
			Operands: []decoded.MCOperand{
				{}, {}, {},
				decoded.ImmOperand(shiftPacked),
			},
		}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		ctx.VS.Push(ctx.IRB.ConstInt(irbuild.IntType(64), 5))
		err := hooks.TranslateCustomOperand(ctx, 3, aarch64.CustomShiftedReg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.VS.Len()).To(Equal(1))
	})

	It("rejects an unknown custom operand tag", func() {
		ctx := newHooksTestContext(decoded.DecodedInst{})
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))
		err := hooks.TranslateCustomOperand(ctx, 0, 99)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Hooks.TranslateImplicit", func() {
	It("traps and is unreachable for BRK/SVC", func() {
		ctx := newHooksTestContext(decoded.DecodedInst{})
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		Expect(hooks.TranslateImplicit(ctx, aarch64.ImplicitBrk)).NotTo(HaveOccurred())
		Expect(ctx.IRB.InsertBlock().Term).NotTo(BeNil())
	})

	It("is a no-op for ImplicitNop", func() {
		ctx := newHooksTestContext(decoded.DecodedInst{})
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))
		Expect(hooks.TranslateImplicit(ctx, aarch64.ImplicitNop)).NotTo(HaveOccurred())
	})
})

var _ = Describe("Hooks.TranslateTargetOpcode", func() {
	It("always errors, since this target defines no target-range opcodes", func() {
		ctx := newHooksTestContext(decoded.DecodedInst{})
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))
		err := hooks.TranslateTargetOpcode(ctx, 0)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Hooks.TranslateTargetInst", func() {
	It("reports RET as handled and emits a void return", func() {
		inst := decoded.DecodedInst{MCOpcode: uint32(aarch64.OpRET)}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		handled, err := hooks.TranslateTargetInst(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(handled).To(BeTrue())
		Expect(ctx.IRB.InsertBlock().Term).NotTo(BeNil())
	})

	It("reports NOP as handled with no emitted terminator", func() {
		inst := decoded.DecodedInst{MCOpcode: uint32(aarch64.OpNOP)}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		handled, err := hooks.TranslateTargetInst(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(handled).To(BeTrue())
		Expect(ctx.IRB.InsertBlock().Term).To(BeNil())
	})

	It("reports an opcode it doesn't own as unhandled", func() {
		inst := decoded.DecodedInst{MCOpcode: uint32(aarch64.OpADDImm)}
		ctx := newHooksTestContext(inst)
		hooks := aarch64.NewHooks(ctx.RSI.(*aarch64.RSI))

		handled, err := hooks.TranslateTargetInst(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(handled).To(BeFalse())
	})
})
