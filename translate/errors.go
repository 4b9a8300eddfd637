package translate

import (
	"errors"
	"fmt"
)

// ErrKind classifies a translation failure by severity, increasing from
// a single instruction's worth of missing coverage up to a violated
// structural invariant that calls the whole translator's correctness
// into question (spec.md §7).
type ErrKind int

const (
	// ErrKindUnknownOpcode: a decoded instruction's MCOpcode has no tape
	// entry and Policy.TranslateUnknownToUndef is false. Recoverable by
	// turning the policy flag on; otherwise aborts the function.
	ErrKindUnknownOpcode ErrKind = iota

	// ErrKindMalformedTape: the tape reader produced a token sequence
	// that violates the tape format itself (an operand count, predicate
	// ID, or constant-pool index the generator should never emit).
	// Indicates a bad table, not a bad guest program.
	ErrKindMalformedTape

	// ErrKindOperandMismatch: semantics asked for an operand kind
	// (register vs. immediate vs. FP) that the decoded instruction's
	// actual operand doesn't have.
	ErrKindOperandMismatch

	// ErrKindBlockShapeViolation: a finalized basic block doesn't meet
	// its required shape — a call block without exactly {call, br}, or
	// a non-terminal block with no terminator.
	ErrKindBlockShapeViolation

	// ErrKindInternal: an invariant of the translator or its
	// collaborators was violated (reopening or finalizing a block out of
	// order, value stack non-empty at instruction end, an empty MC
	// function, a PUT_RC value that can't be coerced to the register
	// type), or a target hook returned an error, which is wrapped here.
	ErrKindInternal
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindUnknownOpcode:
		return "unknown-opcode"
	case ErrKindMalformedTape:
		return "malformed-tape"
	case ErrKindOperandMismatch:
		return "operand-mismatch"
	case ErrKindBlockShapeViolation:
		return "block-shape-violation"
	case ErrKindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// sentinels let callers test the kind of a wrapped error with errors.Is,
// e.g. errors.Is(err, translate.ErrUnknownOpcode).
var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrMalformedTape     = errors.New("malformed tape")
	ErrOperandMismatch   = errors.New("operand mismatch")
	ErrBlockShapeInvalid = errors.New("block shape invalid")
	ErrInternal          = errors.New("internal translator error")
)

func sentinelFor(kind ErrKind) error {
	switch kind {
	case ErrKindUnknownOpcode:
		return ErrUnknownOpcode
	case ErrKindMalformedTape:
		return ErrMalformedTape
	case ErrKindOperandMismatch:
		return ErrOperandMismatch
	case ErrKindBlockShapeViolation:
		return ErrBlockShapeInvalid
	default:
		return ErrInternal
	}
}

// TranslateError is the error type every translate/ operation returns.
// It carries the address of the instruction being translated (0 if the
// failure isn't instruction-scoped) alongside the kind and message.
type TranslateError struct {
	Kind    ErrKind
	Addr    uint64
	Message string
	sentinel error
}

func (e *TranslateError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s at 0x%x: %s", e.Kind, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TranslateError) Unwrap() error {
	return e.sentinel
}

// newErr builds a *TranslateError of the given kind, formatted like
// fmt.Errorf.
func newErr(kind ErrKind, addr uint64, format string, args ...any) *TranslateError {
	return &TranslateError{
		Kind:     kind,
		Addr:     addr,
		Message:  fmt.Sprintf(format, args...),
		sentinel: sentinelFor(kind),
	}
}

func wrapErr(kind ErrKind, addr uint64, cause error, format string, args ...any) *TranslateError {
	msg := fmt.Sprintf(format, args...)
	return &TranslateError{
		Kind:     kind,
		Addr:     addr,
		Message:  fmt.Sprintf("%s: %v", msg, cause),
		sentinel: sentinelFor(kind),
	}
}
