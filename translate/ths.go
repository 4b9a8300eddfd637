package translate

import "github.com/sarchlab/dctranslate/sema"

// TargetHooks (THS) is the surface a target implements to cover
// everything the target-independent core can't: opcodes in the
// target's own numeric range, addressing-mode "complex patterns",
// operand kinds the tagged MCOperand union can't represent directly,
// and instructions whose effect is implicit rather than tape-driven
// (spec.md §4.6).
//
// Every method receives the InstContext for the instruction currently
// being translated and returns an error only for failures the core
// itself would also report — an unmodeled sub-case, a malformed operand
// — never for "no target-specific behavior applies here", which a
// no-op hook implementation simply reports as success having done
// nothing.
type TargetHooks interface {
	// TranslateTargetInst is offered first, before the tape is
	// consulted at all, for instructions whose entire translation is
	// easier to hand-write than to encode as tape semantics (control
	// flow with target-specific condition encodings is the common
	// case). Returning handled=false falls through to ordinary
	// tape-driven translation.
	TranslateTargetInst(ctx *InstContext) (handled bool, err error)

	// TranslateTargetOpcode handles one semantic-tape token in the
	// target opcode range (sema.IsTargetRange(op)).
	TranslateTargetOpcode(ctx *InstContext, op sema.Op) error

	// TranslateComplexPattern handles a COMPLEX_PATTERN pseudo-opcode
	// starting at MC operand operandNo, identified by patternID, a
	// tape-inline immediate naming a target-defined addressing-mode or
	// operand-composition pattern (spec.md's example: a base+scaled-
	// index memory operand spanning two or three MCOperands).
	TranslateComplexPattern(ctx *InstContext, operandNo uint32, patternID uint32) error

	// TranslateCustomOperand handles a CUSTOM_OP pseudo-opcode over MC
	// operand operandNo, identified by tag, for an MCOperand the tagged
	// union can't represent (a sub-register view, a shifted-register
	// operand).
	TranslateCustomOperand(ctx *InstContext, operandNo uint32, tag uint32) error

	// TranslateImplicit handles an IMPLICIT pseudo-opcode, identified by
	// tag, for instruction effects the tape never encodes explicitly
	// (a trap on privileged mode, a fixed-behavior syscall instruction).
	TranslateImplicit(ctx *InstContext, tag uint32) error
}
