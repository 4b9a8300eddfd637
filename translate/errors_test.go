package translate_test

import (
	"errors"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dctranslate/translate"
)

func TestTranslate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Translate Suite")
}

var _ = Describe("ErrKind", func() {
	It("names every severity level", func() {
		Expect(translate.ErrKindUnknownOpcode.String()).To(Equal("unknown-opcode"))
		Expect(translate.ErrKindMalformedTape.String()).To(Equal("malformed-tape"))
		Expect(translate.ErrKindOperandMismatch.String()).To(Equal("operand-mismatch"))
		Expect(translate.ErrKindBlockShapeViolation.String()).To(Equal("block-shape-violation"))
		Expect(translate.ErrKindInternal.String()).To(Equal("internal"))
	})
})

var _ = Describe("FinalizeBlock", func() {
	It("rejects a block with no terminator", func() {
		blk := newTestBlock()
		err := translate.FinalizeBlock(blk, false, 0x1000)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, translate.ErrBlockShapeInvalid)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("0x1000"))
	})

	It("rejects a call block that isn't exactly {call, br}", func() {
		blk := newTestBlock()
		blk.Term = blk.NewRet(nil)
		err := translate.FinalizeBlock(blk, true, 0x2000)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, translate.ErrBlockShapeInvalid)).To(BeTrue())
	})

	It("accepts an ordinary block with a terminator", func() {
		blk := newTestBlock()
		blk.Term = blk.NewRet(nil)
		Expect(translate.FinalizeBlock(blk, false, 0x3000)).To(Succeed())
	})
})

func newTestBlock() *ir.Block {
	fn := ir.NewModule().NewFunc("f", types.Void)
	return fn.NewBlock("bb")
}
