package translate

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/sarchlab/dctranslate/irbuild"
)

func newManagerAndFunc() *blockManager {
	irb := irbuild.NewBuilder(64)
	fn := irb.Module.NewFunc("f", types.Void)
	return newBlockManager(irb, fn)
}

func TestGetOrCreateReturnsSameBlockForSameAddr(t *testing.T) {
	m := newManagerAndFunc()
	a := m.GetOrCreate(0x1000)
	b := m.GetOrCreate(0x1000)
	if a != b {
		t.Errorf("GetOrCreate(addr) called twice returned different blocks")
	}
}

func TestGetOrCreatePlaceholderHasTrapStub(t *testing.T) {
	m := newManagerAndFunc()
	blk := m.GetOrCreate(0x2000)
	if len(blk.Insts) == 0 {
		t.Errorf("placeholder block should have a trap-stub body")
	}
	if _, ok := blk.Term.(*ir.TermUnreachable); !ok {
		t.Errorf("placeholder block should terminate with unreachable, got %T", blk.Term)
	}
	addrs := m.Placeholders()
	if len(addrs) != 1 || addrs[0] != 0x2000 {
		t.Errorf("Placeholders() = %v, want [0x2000]", addrs)
	}
}

func TestOpenClearsPlaceholderBody(t *testing.T) {
	m := newManagerAndFunc()
	blk := m.GetOrCreate(0x3000)
	if len(blk.Insts) == 0 {
		t.Fatalf("expected placeholder body before Open")
	}
	opened, err := m.Open(0x3000, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != blk {
		t.Errorf("Open should return the same block GetOrCreate created")
	}
	if len(opened.Insts) != 0 || opened.Term != nil {
		t.Errorf("Open should clear the placeholder stub body")
	}
}

func TestFinalizeRequiresTerminator(t *testing.T) {
	m := newManagerAndFunc()
	if _, err := m.Open(0x4000, false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Finalize(0x4000); err == nil {
		t.Errorf("Finalize should fail when the block has no terminator")
	}
}

func TestFinalizeEnforcesCallBlockShape(t *testing.T) {
	m := newManagerAndFunc()
	blk, err := m.Open(0x5000, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blk.Term = blk.NewRet(nil)
	if err := m.Finalize(0x5000); err == nil {
		t.Errorf("Finalize should reject a call block with no call instruction")
	}
}

func TestFinalizeThenReopenIsInternalError(t *testing.T) {
	m := newManagerAndFunc()
	blk, err := m.Open(0x6000, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	blk.Term = blk.NewRet(nil)
	if err := m.Finalize(0x6000); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !m.IsFinalized(0x6000) {
		t.Errorf("IsFinalized should report true after Finalize")
	}
	if _, err := m.Open(0x6000, false); err == nil {
		t.Errorf("reopening a finalized block should be an internal error")
	}
}

func TestNewAuxIsNotAddressKeyed(t *testing.T) {
	m := newManagerAndFunc()
	aux := m.NewAux("call_save_0")
	if len(m.Placeholders()) != 0 {
		t.Errorf("NewAux should not register a placeholder entry")
	}
	if aux == nil {
		t.Fatalf("NewAux returned nil")
	}
}
