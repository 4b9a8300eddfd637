package decoded

// MCBasicBlock is a contiguous run of decoded instructions between two
// code addresses, as reconstructed by the (external) control-flow
// recovery pass. StartAddr/EndAddr bound the block; EndAddr is the
// address one past the block's last instruction, i.e. the fallthrough
// address FT branches to when the block has no explicit terminator.
type MCBasicBlock struct {
	StartAddr uint64
	EndAddr   uint64
	Insts     []DecodedInst
}

// MCFunction is a decoded code region with a known entry address and an
// ordered list of basic blocks, the unit the Function Translator walks.
type MCFunction struct {
	StartAddr   uint64
	Name        string
	BasicBlocks []*MCBasicBlock
}

// Empty reports whether the function has no basic blocks, mirroring the
// "trying to translate empty MC function" assertion of the original
// implementation.
func (f *MCFunction) Empty() bool {
	return len(f.BasicBlocks) == 0
}
