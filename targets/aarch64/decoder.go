package aarch64

import (
	"fmt"

	"github.com/sarchlab/dctranslate/decoded"
)

// Decoder decodes AArch64 instruction words into decoded.DecodedInst
// values, and a flat byte stream into a decoded.MCFunction. The
// bit-level decoding logic is adapted from insts/decoder.go, extended
// to cover MOVZ/MOVN/MOVK, LDR/STR (unsigned immediate offset), CBZ/
// CBNZ/TBZ/TBNZ, and NOP/BRK/SVC; every decoded operand is emitted as a
// decoded.MCOperand instead of the teacher's dedicated struct fields,
// and shift metadata that doesn't fit the tagged-union operand model is
// packed into an extra immediate operand for a CUSTOM_OP hook to unpack.
type Decoder struct{}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes the instruction word at addr. ok is false for an
// encoding this target doesn't model; the caller (FunctionTranslator,
// via Policy.TranslateUnknownToUndef) decides how to recover.
func (d *Decoder) Decode(word uint32, addr uint64) (decoded.DecodedInst, bool) {
	inst := decoded.DecodedInst{Address: addr, Size: 4}

	switch {
	case isDataProcessingImm(word):
		return decodeDataProcessingImm(word, inst)
	case isMoveWideImm(word):
		return decodeMoveWideImm(word, inst)
	case isLoadStoreUnsignedImm(word):
		return decodeLoadStoreUnsignedImm(word, inst)
	case isDataProcessingReg(word):
		return decodeDataProcessingReg(word, inst)
	case isBranchImm(word):
		return decodeBranchImm(word, inst)
	case isCompareBranch(word):
		return decodeCompareBranch(word, inst)
	case isTestBranch(word):
		return decodeTestBranch(word, inst)
	case isBranchCond(word):
		return decodeBranchCond(word, inst)
	case isBranchReg(word):
		return decodeBranchReg(word, inst)
	case isSystemHint(word):
		inst.MCOpcode = uint32(OpNOP)
		inst.Name = "nop"
		return inst, true
	case isException(word):
		return decodeException(word, inst)
	default:
		return inst, false
	}
}

func regOrXZR(n uint32) uint32 {
	return n
}

func regOrSP(n uint32) uint32 {
	if n == 31 {
		return RegSP
	}
	return n
}

// isDataProcessingImm matches Add/Sub (immediate): bits [28:23] == 0b100010.
func isDataProcessingImm(word uint32) bool {
	return (word>>23)&0x3F == 0b100010
}

func decodeDataProcessingImm(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	op := (word >> 30) & 0x1
	sh := (word >> 22) & 0x1
	imm12 := uint64((word >> 10) & 0xFFF)
	rn := (word >> 5) & 0x1F
	rd := word & 0x1F

	if sh == 1 {
		imm12 <<= 12
	}

	inst.Name = "add"
	inst.MCOpcode = uint32(OpADDImm)
	if op == 1 {
		inst.Name = "sub"
		inst.MCOpcode = uint32(OpSUBImm)
	}
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(regOrSP(rd)),
		decoded.RegOperand(regOrSP(rn)),
		decoded.ImmOperand(int64(imm12)),
	}
	return inst, true
}

// isMoveWideImm matches MOVN/MOVZ/MOVK: bits [28:23] == 0b100101.
func isMoveWideImm(word uint32) bool {
	return (word>>23)&0x3F == 0b100101
}

func decodeMoveWideImm(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	opc := (word >> 29) & 0x3
	hw := (word >> 21) & 0x3
	imm16 := uint64((word >> 5) & 0xFFFF)
	rd := word & 0x1F

	switch opc {
	case 0b00:
		inst.Name, inst.MCOpcode = "movn", uint32(OpMOVN)
	case 0b10:
		inst.Name, inst.MCOpcode = "movz", uint32(OpMOVZ)
	case 0b11:
		inst.Name, inst.MCOpcode = "movk", uint32(OpMOVK)
	default:
		return inst, false
	}
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(rd),
		decoded.ImmOperand(int64(imm16)),
		decoded.ImmOperand(int64(hw) * 16),
	}
	return inst, true
}

// isLoadStoreUnsignedImm matches LDR/STR (unsigned immediate offset):
// bits [29:24] == 0b111001 (size encodes 32- vs. 64-bit in bits [31:30]).
func isLoadStoreUnsignedImm(word uint32) bool {
	return (word>>24)&0x3F == 0b111001
}

func decodeLoadStoreUnsignedImm(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	size := (word >> 30) & 0x3
	opcField := (word >> 22) & 0x3 // 0b01 = load, 0b00 = store (for the size values we model)
	imm12 := uint64((word >> 10) & 0xFFF)
	rn := (word >> 5) & 0x1F
	rt := word & 0x1F

	var scale uint64
	var isLoad bool
	switch size {
	case 0b11:
		scale = 8
		isLoad = opcField == 0b01
		if isLoad {
			inst.Name, inst.MCOpcode = "ldr", uint32(OpLDR64)
		} else {
			inst.Name, inst.MCOpcode = "str", uint32(OpSTR64)
		}
	case 0b10:
		scale = 4
		isLoad = opcField == 0b01
		if isLoad {
			inst.Name, inst.MCOpcode = "ldr", uint32(OpLDR32)
		} else {
			inst.Name, inst.MCOpcode = "str", uint32(OpSTR32)
		}
	default:
		return inst, false
	}
	offset := imm12 * scale
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(regOrXZR(rt)),
		decoded.RegOperand(regOrSP(rn)),
		decoded.ImmOperand(int64(offset)),
	}
	return inst, true
}

// isDataProcessingReg matches Add/Sub (shifted register) and Logical
// (shifted register): bits [28:24] == 0b01011 or 0b01010.
func isDataProcessingReg(word uint32) bool {
	op := (word >> 24) & 0x1F
	return op == 0b01011 || op == 0b01010
}

func decodeDataProcessingReg(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	op := (word >> 24) & 0x1F
	rd := word & 0x1F
	rn := (word >> 5) & 0x1F
	imm6 := (word >> 10) & 0x3F
	rm := (word >> 16) & 0x1F
	shift := (word >> 22) & 0x3

	if op == 0b01011 {
		opBit := (word >> 30) & 0x1
		inst.Name, inst.MCOpcode = "add", uint32(OpADDReg)
		if opBit == 1 {
			inst.Name, inst.MCOpcode = "sub", uint32(OpSUBReg)
		}
	} else {
		opc := (word >> 29) & 0x3
		switch opc {
		case 0b00, 0b11:
			inst.Name, inst.MCOpcode = "and", uint32(OpAND)
		case 0b01:
			inst.Name, inst.MCOpcode = "orr", uint32(OpORR)
		case 0b10:
			inst.Name, inst.MCOpcode = "eor", uint32(OpEOR)
		}
	}

	shiftPacked := int64(shift)<<8 | int64(imm6)
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(regOrXZR(rd)),
		decoded.RegOperand(regOrXZR(rn)),
		decoded.RegOperand(regOrXZR(rm)),
		decoded.ImmOperand(shiftPacked),
	}
	return inst, true
}

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// isBranchImm matches B: bits [31:26] == 0b000101, BL: 0b100101.
func isBranchImm(word uint32) bool {
	op := (word >> 26) & 0x3F
	return op == 0b000101 || op == 0b100101
}

func decodeBranchImm(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	op := (word >> 31) & 0x1
	imm26 := word & 0x3FFFFFF
	offset := signExtend(imm26, 26) * 4

	inst.Name, inst.MCOpcode = "b", uint32(OpB)
	if op == 1 {
		inst.Name, inst.MCOpcode = "bl", uint32(OpBL)
	}
	target := uint64(int64(inst.Address) + offset)
	inst.Operands = []decoded.MCOperand{decoded.ImmOperand(int64(target))}
	return inst, true
}

// isCompareBranch matches CBZ/CBNZ: bits [30:25] == 0b011010.
func isCompareBranch(word uint32) bool {
	return (word>>25)&0x3F == 0b011010
}

func decodeCompareBranch(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	op := (word >> 24) & 0x1
	imm19 := (word >> 5) & 0x7FFFF
	rt := word & 0x1F
	offset := signExtend(imm19, 19) * 4
	target := uint64(int64(inst.Address) + offset)

	inst.Name, inst.MCOpcode = "cbz", uint32(OpCBZ)
	if op == 1 {
		inst.Name, inst.MCOpcode = "cbnz", uint32(OpCBNZ)
	}
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(rt),
		decoded.ImmOperand(int64(target)),
	}
	return inst, true
}

// isTestBranch matches TBZ/TBNZ: bits [30:25] == 0b011011.
func isTestBranch(word uint32) bool {
	return (word>>25)&0x3F == 0b011011
}

func decodeTestBranch(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	b5 := (word >> 31) & 0x1
	op := (word >> 24) & 0x1
	b40 := (word >> 19) & 0x1F
	imm14 := (word >> 5) & 0x3FFF
	rt := word & 0x1F

	bitPos := (b5 << 5) | b40
	offset := signExtend(imm14, 14) * 4
	target := uint64(int64(inst.Address) + offset)

	inst.Name, inst.MCOpcode = "tbz", uint32(OpTBZ)
	if op == 1 {
		inst.Name, inst.MCOpcode = "tbnz", uint32(OpTBNZ)
	}
	inst.Operands = []decoded.MCOperand{
		decoded.RegOperand(rt),
		decoded.ImmOperand(int64(bitPos)),
		decoded.ImmOperand(int64(target)),
	}
	return inst, true
}

// isBranchCond matches B.cond: bits [31:25] == 0b0101010, bit4 == 0.
func isBranchCond(word uint32) bool {
	return (word>>25)&0x7F == 0b0101010 && (word>>4)&0x1 == 0
}

func decodeBranchCond(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	imm19 := (word >> 5) & 0x7FFFF
	cond := word & 0xF
	offset := signExtend(imm19, 19) * 4
	target := uint64(int64(inst.Address) + offset)

	inst.Name, inst.MCOpcode = "b.cond", uint32(OpBCond)
	inst.Operands = []decoded.MCOperand{
		decoded.ImmOperand(int64(target)),
		decoded.ImmOperand(int64(cond)),
	}
	return inst, true
}

// isBranchReg matches BR/BLR/RET: bits [31:25] == 0b1101011, bits
// [15:10] == 0, bits [4:0] == 0.
func isBranchReg(word uint32) bool {
	return (word>>25)&0x7F == 0b1101011 && (word>>10)&0x3F == 0 && word&0x1F == 0
}

func decodeBranchReg(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	op := (word >> 21) & 0x3
	rn := (word >> 5) & 0x1F

	switch op {
	case 0b00:
		inst.Name, inst.MCOpcode = "br", uint32(OpBR)
	case 0b01:
		inst.Name, inst.MCOpcode = "blr", uint32(OpBLR)
	case 0b10:
		inst.Name, inst.MCOpcode = "ret", uint32(OpRET)
	default:
		return inst, false
	}
	inst.Operands = []decoded.MCOperand{decoded.RegOperand(rn)}
	return inst, true
}

// isSystemHint matches the HINT encoding of NOP: word == 0xD503201F.
func isSystemHint(word uint32) bool {
	return word == 0xD503201F
}

// isException matches BRK/SVC: bits [31:24] == 0b11010100.
func isException(word uint32) bool {
	return (word>>24)&0xFF == 0b11010100
}

func decodeException(word uint32, inst decoded.DecodedInst) (decoded.DecodedInst, bool) {
	opc := (word >> 21) & 0x7
	imm16 := (word >> 5) & 0xFFFF
	ll := word & 0x3

	switch {
	case opc == 0b000 && ll == 0b01:
		inst.Name, inst.MCOpcode = "svc", uint32(OpSVC)
	case opc == 0b001 && ll == 0b00:
		inst.Name, inst.MCOpcode = "brk", uint32(OpBRK)
	default:
		return inst, false
	}
	inst.Operands = []decoded.MCOperand{decoded.ImmOperand(int64(imm16))}
	return inst, true
}

// isBlockEnd reports whether op ends a basic block: every branch,
// branch-and-link, and return opcode. BL/BLR end their block too, even
// though control returns to the next instruction, so a call instruction
// always occupies a basic block by itself — the shape InsertCallBB
// relies on to wrap it with save/restore blocks without disturbing
// whatever else shares its containing MC basic block.
func isBlockEnd(op Op) bool {
	switch op {
	case OpB, OpBL, OpBCond, OpBR, OpBLR, OpRET, OpCBZ, OpCBNZ, OpTBZ, OpTBNZ:
		return true
	default:
		return false
	}
}

// DecodeFunction decodes a contiguous little-endian instruction stream
// starting at startAddr into an *decoded.MCFunction, splitting basic
// blocks at every control-flow instruction the way a linear disassembly
// pass over one function's bytes naturally does (there is no separate
// jump-target discovery pass: a block also starts right after any
// instruction isBlockEnd reports true for, since that's a fallthrough
// edge boundary too).
func (d *Decoder) DecodeFunction(code []byte, startAddr uint64, name string) (*decoded.MCFunction, error) {
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("aarch64: code length %d not a multiple of 4", len(code))
	}
	fn := &decoded.MCFunction{StartAddr: startAddr, Name: name}

	cur := &decoded.MCBasicBlock{StartAddr: startAddr}
	addr := startAddr
	for i := 0; i+4 <= len(code); i += 4 {
		word := uint32(code[i]) | uint32(code[i+1])<<8 | uint32(code[i+2])<<16 | uint32(code[i+3])<<24
		inst, ok := d.Decode(word, addr)
		if !ok {
			inst = decoded.DecodedInst{Address: addr, Size: 4, MCOpcode: uint32(OpUnknown), Name: "unknown"}
		}
		cur.Insts = append(cur.Insts, inst)
		addr += 4

		if ok && isBlockEnd(Op(inst.MCOpcode)) {
			cur.EndAddr = addr
			fn.BasicBlocks = append(fn.BasicBlocks, cur)
			cur = &decoded.MCBasicBlock{StartAddr: addr}
		}
	}
	if len(cur.Insts) > 0 {
		cur.EndAddr = addr
		fn.BasicBlocks = append(fn.BasicBlocks, cur)
	}
	return fn, nil
}
