package translate

// Policy bundles the three behavior flags spec.md §6 calls out as
// runtime-configurable, set once per FunctionTranslator and read-only
// for its whole lifetime (spec.md §5 Concurrency).
type Policy struct {
	// EnableRegSetDiff makes the entry block snapshot the whole register
	// file and the exit path diff the live file against the snapshot,
	// emitting only the registers that actually changed. Off by default:
	// every write goes straight to the register file.
	EnableRegSetDiff bool

	// EnableInstAddrSave makes every translated instruction store its
	// own address into the current_instr global (a volatile store)
	// before emitting its semantics, so a trap handler inspecting that
	// global can recover
	// exactly which guest instruction faulted.
	EnableInstAddrSave bool

	// TranslateUnknownToUndef controls recovery from an opcode with no
	// tape entry: true emits Trap()+Unreachable() and keeps translating
	// the rest of the function (treating the result as undef); false
	// reports ErrUnknownOpcode and aborts the whole function.
	TranslateUnknownToUndef bool
}

// Option configures a Policy at construction time.
type Option func(*Policy)

// NewPolicy builds a Policy from zero or more Options. The zero value
// (all flags false) matches spec.md's documented default behavior.
func NewPolicy(opts ...Option) Policy {
	var p Policy
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithRegSetDiff turns on EnableRegSetDiff.
func WithRegSetDiff() Option {
	return func(p *Policy) { p.EnableRegSetDiff = true }
}

// WithInstAddrSave turns on EnableInstAddrSave.
func WithInstAddrSave() Option {
	return func(p *Policy) { p.EnableInstAddrSave = true }
}

// WithUnknownToUndef turns on TranslateUnknownToUndef.
func WithUnknownToUndef() Option {
	return func(p *Policy) { p.TranslateUnknownToUndef = true }
}
