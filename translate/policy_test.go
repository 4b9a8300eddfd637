package translate_test

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dctranslate/translate"
)

var _ = Describe("Policy", func() {
	It("defaults every flag to false", func() {
		p := translate.NewPolicy()
		Expect(p.EnableRegSetDiff).To(BeFalse())
		Expect(p.EnableInstAddrSave).To(BeFalse())
		Expect(p.TranslateUnknownToUndef).To(BeFalse())
	})

	It("applies the requested options and nothing else", func() {
		p := translate.NewPolicy(translate.WithRegSetDiff(), translate.WithUnknownToUndef())
		Expect(p.EnableRegSetDiff).To(BeTrue())
		Expect(p.EnableInstAddrSave).To(BeFalse())
		Expect(p.TranslateUnknownToUndef).To(BeTrue())
	})
})

var _ = Describe("ValueStack", func() {
	var vs *translate.ValueStack

	one := value.Value(constant.NewInt(types.I64, 1))
	two := value.Value(constant.NewInt(types.I64, 2))
	three := value.Value(constant.NewInt(types.I64, 3))

	BeforeEach(func() {
		vs = translate.NewValueStack()
	})

	It("starts empty", func() {
		Expect(vs.Empty()).To(BeTrue())
		Expect(vs.Len()).To(Equal(0))
	})

	It("pops in LIFO order", func() {
		vs.Push(one)
		vs.Push(two)
		Expect(vs.Pop()).To(Equal(two))
		Expect(vs.Pop()).To(Equal(one))
	})

	It("PopN returns values in push order (bottom of the popped range first)", func() {
		vs.Push(one)
		vs.Push(two)
		vs.Push(three)
		got := vs.PopN(2)
		Expect(got).To(Equal([]value.Value{two, three}))
		Expect(vs.Len()).To(Equal(1))
	})

	It("Clear drops everything", func() {
		vs.Push(one)
		vs.Push(two)
		vs.Clear()
		Expect(vs.Empty()).To(BeTrue())
	})

	It("Results clears and returns what was pushed", func() {
		vs.Push(one)
		vs.Push(two)
		got := vs.Results()
		Expect(got).To(Equal([]value.Value{one, two}))
		Expect(vs.Empty()).To(BeTrue())
	})
})
