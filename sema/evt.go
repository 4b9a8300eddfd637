package sema

// EVT is a value-type tag as it appears inline in the semantics tape,
// naming the width/kind of a result or operand. Resolving an EVT to a
// concrete IR type is the IR Builder Facade's job (see
// irbuild.TypeForEVT) — sema stays free of any IR-library dependency,
// consistent with it being the leaf-most component in spec.md §2.
type EVT uint8

const (
	EVTInvalid EVT = iota
	EVTI1
	EVTI8
	EVTI16
	EVTI32
	EVTI64
	EVTI128
	EVTF32
	EVTF64
	EVTV2I64
	EVTV4I32
	EVTV2F64
	EVTV4F32
	// EVTIPtr is the special "iPTR" tag: a pointer-sized integer whose
	// concrete width is only known to the data layout, resolved by the
	// Instruction Translator rather than baked into the tape (spec.md
	// §4.1, and the "iPTR hard-coded to 64-bit" open question in §9).
	EVTIPtr
)

// IsInteger reports whether the tag denotes a scalar integer type.
func (e EVT) IsInteger() bool {
	switch e {
	case EVTI1, EVTI8, EVTI16, EVTI32, EVTI64, EVTI128, EVTIPtr:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the tag denotes a scalar floating-point type.
func (e EVT) IsFloat() bool {
	return e == EVTF32 || e == EVTF64
}

// IsVector reports whether the tag denotes a fixed-width vector type.
func (e EVT) IsVector() bool {
	switch e {
	case EVTV2I64, EVTV4I32, EVTV2F64, EVTV4F32:
		return true
	default:
		return false
	}
}

// Bits returns the scalar bit width of e, or 0 for vector/invalid tags.
func (e EVT) Bits() int {
	switch e {
	case EVTI1:
		return 1
	case EVTI8:
		return 8
	case EVTI16:
		return 16
	case EVTI32, EVTF32:
		return 32
	case EVTI64, EVTF64:
		return 64
	case EVTI128:
		return 128
	default:
		return 0
	}
}
