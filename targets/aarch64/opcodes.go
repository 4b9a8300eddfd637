// Package aarch64 is a target for the translation core: a decoder that
// turns raw AArch64 instruction words into decoded.DecodedInst values,
// a semantics tape covering that decoder's opcode set, and
// implementations of RegisterSemantics and TargetHooks grounded on the
// register file and instruction semantics of package emu.
package aarch64

// Op is this target's MCOpcode space, used as decoded.DecodedInst's
// MCOpcode field and as the index into the semantics tape's
// OpcodeToSemaIdx array.
type Op uint32

const (
	OpUnknown Op = iota

	OpADDImm
	OpSUBImm
	OpADDReg
	OpSUBReg
	OpAND
	OpORR
	OpEOR

	OpMOVZ
	OpMOVN
	OpMOVK

	OpLDR64
	OpLDR32
	OpSTR64
	OpSTR32

	OpB
	OpBL
	OpBCond
	OpBR
	OpBLR
	OpRET
	OpCBZ
	OpCBNZ
	OpTBZ
	OpTBNZ

	OpNOP
	OpBRK
	OpSVC

	// NumOpcodes sizes the OpcodeToSemaIdx array; every Op above must
	// stay below it.
	NumOpcodes
)

// Cond is an AArch64 condition code, numerically identical to the
// encoding's own 4-bit field (grounded on emu.Cond / insts.Cond).
type Cond uint8

const (
	CondEQ Cond = 0b0000
	CondNE Cond = 0b0001
	CondCS Cond = 0b0010
	CondCC Cond = 0b0011
	CondMI Cond = 0b0100
	CondPL Cond = 0b0101
	CondVS Cond = 0b0110
	CondVC Cond = 0b0111
	CondHI Cond = 0b1000
	CondLS Cond = 0b1001
	CondGE Cond = 0b1010
	CondLT Cond = 0b1011
	CondGT Cond = 0b1100
	CondLE Cond = 0b1101
	CondAL Cond = 0b1110
	CondNV Cond = 0b1111
)

// ShiftType is a DP-register instruction's shift-type field.
type ShiftType uint8

const (
	ShiftLSL ShiftType = 0b00
	ShiftLSR ShiftType = 0b01
	ShiftASR ShiftType = 0b10
	ShiftROR ShiftType = 0b11
)

// Register number conventions used by every Op's Operands: 0-30 name
// Xn/Wn directly; 31 is the zero register XZR (reads zero, writes are
// discarded); 32 is a decode-time-only sentinel meaning "SP", used by
// the instruction classes (ADD/SUB immediate, LDR/STR base register)
// whose encoding repurposes the 31 field for SP instead of XZR — this
// resolves the ambiguity during decode instead of leaving the target
// hooks to rediscover it from the opcode (grounded on emu/regfile.go's
// ReadRegOrSP/WriteRegOrSP split).
const (
	RegXZR uint32 = 31
	RegSP  uint32 = 32
)

// CustomOperand tags identify what a CUSTOM_OP pseudo-opcode should do
// with the MC operand it names.
const (
	CustomShiftedReg uint32 = iota + 1
	// CustomImmOperand pushes an MC operand's raw immediate value onto
	// the value stack as a 64-bit constant. Used wherever an
	// instruction's immediate varies per decoded instance (ADD/SUB's
	// imm12, MOVZ/MOVN/MOVK's imm16 and shift) and so can't be baked
	// into the tape's own constant pool, which is shared by every
	// instance of the same opcode.
	CustomImmOperand
)

// ComplexPattern IDs identify a target-defined addressing-mode pattern
// a COMPLEX_PATTERN pseudo-opcode expands.
const (
	PatternLoadStoreBase uint32 = iota + 1
)

// Implicit tags identify fixed, non-tape-driven effects.
const (
	ImplicitNop uint32 = iota + 1
	ImplicitBrk
	ImplicitSvc
)
