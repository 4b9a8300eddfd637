package aarch64_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dctranslate/targets/aarch64"
)

func TestAarch64(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AArch64 Target Suite")
}

var _ = Describe("Decoder", func() {
	var decoder *aarch64.Decoder

	BeforeEach(func() {
		decoder = aarch64.NewDecoder()
	})

	Describe("Add/Sub (immediate)", func() {
		It("decodes ADD X0, X1, #42", func() {
			inst, ok := decoder.Decode(0x9100A820, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpADDImm)))
			Expect(inst.Operands[0].Reg).To(Equal(uint32(0)))
			Expect(inst.Operands[1].Reg).To(Equal(uint32(1)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(42)))
		})

		It("decodes SUB X0, X1, #42", func() {
			inst, ok := decoder.Decode(0xD100A820, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpSUBImm)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(42)))
		})
	})

	Describe("Add/Sub/Logical (shifted register)", func() {
		It("decodes ADD X0, X1, X2", func() {
			inst, ok := decoder.Decode(0x8B020020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpADDReg)))
			Expect(inst.Operands[0].Reg).To(Equal(uint32(0)))
			Expect(inst.Operands[1].Reg).To(Equal(uint32(1)))
			Expect(inst.Operands[2].Reg).To(Equal(uint32(2)))
		})

		It("decodes SUB X0, X1, X2", func() {
			inst, ok := decoder.Decode(0xCB020020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpSUBReg)))
		})

		It("decodes AND X0, X1, X2", func() {
			inst, ok := decoder.Decode(0x8A020020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpAND)))
		})

		It("decodes ORR X0, X1, X2", func() {
			inst, ok := decoder.Decode(0xAA020020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpORR)))
		})

		It("decodes EOR X0, X1, X2", func() {
			inst, ok := decoder.Decode(0xCA020020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpEOR)))
		})
	})

	Describe("Move wide (immediate)", func() {
		It("decodes MOVZ X0, #42", func() {
			inst, ok := decoder.Decode(0xD2800540, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpMOVZ)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(42)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(0)))
		})

		It("decodes MOVN X0, #5", func() {
			inst, ok := decoder.Decode(0x928000A0, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpMOVN)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(5)))
		})

		It("decodes MOVK X0, #7, LSL #16", func() {
			inst, ok := decoder.Decode(0xF2A000E0, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpMOVK)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(7)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(16)))
		})
	})

	Describe("Load/Store (unsigned immediate)", func() {
		It("decodes LDR X0, [X1, #8]", func() {
			inst, ok := decoder.Decode(0xF9400420, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpLDR64)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(8)))
		})

		It("decodes STR X0, [X1, #8]", func() {
			inst, ok := decoder.Decode(0xF9000420, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpSTR64)))
		})

		It("decodes LDR W0, [X1, #4]", func() {
			inst, ok := decoder.Decode(0xB9400420, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpLDR32)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(4)))
		})

		It("decodes STR W0, [X1, #4]", func() {
			inst, ok := decoder.Decode(0xB9000420, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpSTR32)))
		})
	})

	Describe("Branches", func() {
		It("decodes B to addr+8", func() {
			inst, ok := decoder.Decode(0x14000002, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpB)))
			Expect(inst.Operands[0].Imm).To(Equal(int64(8)))
		})

		It("decodes BL to addr+8", func() {
			inst, ok := decoder.Decode(0x94000002, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpBL)))
		})

		It("decodes CBZ X0 to addr+8", func() {
			inst, ok := decoder.Decode(0xB4000040, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpCBZ)))
			Expect(inst.Operands[0].Reg).To(Equal(uint32(0)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(8)))
		})

		It("decodes CBNZ X0 to addr+8", func() {
			inst, ok := decoder.Decode(0xB5000040, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpCBNZ)))
		})

		It("decodes TBZ X0, #3 to addr+8", func() {
			inst, ok := decoder.Decode(0x36180040, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpTBZ)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(3)))
			Expect(inst.Operands[2].Imm).To(Equal(int64(8)))
		})

		It("decodes TBNZ X0, #3 to addr+8", func() {
			inst, ok := decoder.Decode(0x37180040, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpTBNZ)))
		})

		It("decodes B.EQ to addr+8", func() {
			inst, ok := decoder.Decode(0x54000040, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpBCond)))
			Expect(inst.Operands[0].Imm).To(Equal(int64(8)))
			Expect(inst.Operands[1].Imm).To(Equal(int64(0)))
		})

		It("decodes BR X0", func() {
			inst, ok := decoder.Decode(0xD61F0000, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpBR)))
			Expect(inst.Operands[0].Reg).To(Equal(uint32(0)))
		})

		It("decodes BLR X0", func() {
			inst, ok := decoder.Decode(0xD6200000, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpBLR)))
		})

		It("decodes RET (X30)", func() {
			inst, ok := decoder.Decode(0xD65F03C0, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpRET)))
			Expect(inst.Operands[0].Reg).To(Equal(uint32(30)))
		})
	})

	Describe("Miscellaneous", func() {
		It("decodes NOP", func() {
			inst, ok := decoder.Decode(0xD503201F, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpNOP)))
		})

		It("decodes BRK #1", func() {
			inst, ok := decoder.Decode(0xD4200020, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpBRK)))
			Expect(inst.Operands[0].Imm).To(Equal(int64(1)))
		})

		It("decodes SVC #0", func() {
			inst, ok := decoder.Decode(0xD4000001, 0)
			Expect(ok).To(BeTrue())
			Expect(inst.MCOpcode).To(Equal(uint32(aarch64.OpSVC)))
		})

		It("rejects an unrecognized encoding", func() {
			_, ok := decoder.Decode(0x00000000, 0)
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("DecodeFunction", func() {
	It("splits basic blocks at every control-flow instruction", func() {
		decoder := aarch64.NewDecoder()
		code := []byte{
			0x20, 0xA8, 0x00, 0x91, // add x0, x1, #42
			0x02, 0x00, 0x00, 0x14, // b .+8
			0xC0, 0x03, 0x5F, 0xD6, // ret
		}
		fn, err := decoder.DecodeFunction(code, 0x1000, "f")
		Expect(err).NotTo(HaveOccurred())
		Expect(fn.Empty()).To(BeFalse())
		Expect(fn.BasicBlocks).To(HaveLen(2))
		Expect(fn.BasicBlocks[0].Insts).To(HaveLen(2))
		Expect(fn.BasicBlocks[1].Insts).To(HaveLen(1))
	})

	It("rejects a code length that isn't a multiple of 4", func() {
		decoder := aarch64.NewDecoder()
		_, err := decoder.DecodeFunction([]byte{1, 2, 3}, 0x1000, "f")
		Expect(err).To(HaveOccurred())
	})
})
