// Package irbuild is the IR Builder Facade (IRB): a thin typed wrapper
// around the real SSA IR construction library github.com/llir/llvm,
// exposing exactly the binary/cast/compare/memory/intrinsic/control
// operations the Instruction Translator needs (spec.md §2, §4.1), and
// nothing else of llir/llvm's much larger surface.
package irbuild

import (
	"fmt"

	"github.com/llir/llvm/ir/types"

	"github.com/sarchlab/dctranslate/sema"
)

// IntType returns the LLVM integer type of the given bit width, reusing
// the package-level singletons llir/llvm defines for the common widths.
func IntType(bits int) *types.IntType {
	switch bits {
	case 1:
		return types.I1
	case 8:
		return types.I8
	case 16:
		return types.I16
	case 32:
		return types.I32
	case 64:
		return types.I64
	case 128:
		return types.I128
	default:
		return types.NewInt(uint64(bits))
	}
}

// FloatType returns the LLVM floating-point type for the given bit
// width (32 or 64 only — the tape never encodes anything wider).
func FloatType(bits int) *types.FloatType {
	switch bits {
	case 32:
		return types.Float
	case 64:
		return types.Double
	default:
		panic(fmt.Sprintf("irbuild: unsupported float width %d", bits))
	}
}

// PointerType returns an opaque-element pointer type (i8*), the type
// every register-set pointer and every memory address is resolved to.
func PointerType() *types.PointerType {
	return types.NewPointer(types.I8)
}

// TypeForEVT resolves a semantics-tape value-type tag to a concrete IR
// type. ptrBits is the data layout's pointer width, consulted only to
// resolve EVTIPtr (spec.md §9 open question: "iPTR result type is
// hard-coded to 64-bit; should consult the data layout" — here it does).
func TypeForEVT(evt sema.EVT, ptrBits int) types.Type {
	switch evt {
	case sema.EVTI1, sema.EVTI8, sema.EVTI16, sema.EVTI32, sema.EVTI64, sema.EVTI128:
		return IntType(evt.Bits())
	case sema.EVTF32:
		return FloatType(32)
	case sema.EVTF64:
		return FloatType(64)
	case sema.EVTV2I64:
		return types.NewVector(2, types.I64)
	case sema.EVTV4I32:
		return types.NewVector(4, types.I32)
	case sema.EVTV2F64:
		return types.NewVector(2, types.Double)
	case sema.EVTV4F32:
		return types.NewVector(4, types.Float)
	case sema.EVTIPtr:
		return IntType(ptrBits)
	default:
		panic(fmt.Sprintf("irbuild: unresolved EVT tag %d", evt))
	}
}

// IsIntType reports whether t is an LLVM integer type.
func IsIntType(t types.Type) bool {
	_, ok := t.(*types.IntType)
	return ok
}

// IsPointerType reports whether t is an LLVM pointer type.
func IsPointerType(t types.Type) bool {
	_, ok := t.(*types.PointerType)
	return ok
}

// IsVectorType reports whether t is an LLVM fixed-width vector type.
func IsVectorType(t types.Type) bool {
	_, ok := t.(*types.VectorType)
	return ok
}

// BitWidth returns the scalar bit width of an integer or floating-point
// type, or the per-lane width times the lane count for a vector type.
func BitWidth(t types.Type) int {
	switch tt := t.(type) {
	case *types.IntType:
		return int(tt.BitSize)
	case *types.FloatType:
		switch tt.Kind {
		case types.FloatKindFloat:
			return 32
		case types.FloatKindDouble:
			return 64
		default:
			return 0
		}
	case *types.VectorType:
		return BitWidth(tt.ElemType) * int(tt.Len)
	default:
		return 0
	}
}
