package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
)

// arm64LR is the guest register index the ABI uses as the link register.
const arm64LR = 30

// ExitKind classifies a block's terminating transfer (spec.md §3's
// "Terminator kind").
type ExitKind uint8

const (
	ExitDirect ExitKind = iota
	ExitConditionalTaken
	ExitConditionalFallthrough
	ExitIndirect
	ExitReturn
	ExitCall
	ExitSyscall
	ExitUndefined
)

// ExitPoint describes one way a translated block can hand control back to
// the dispatcher. The block translator collects these into the
// unresolved-target table (spec.md §3) and later either patches
// PatchOffset to chain directly into a cached target block, or leaves it
// pointing at a dispatcher re-entry stub.
type ExitPoint struct {
	// PatchOffset is the code-buffer byte offset of the direct exit's
	// rel32 field. Zero (and meaningless) for indirect exits, which carry
	// their target in State.PC at run time instead of a host
	// displacement.
	PatchOffset uint32
	Kind        ExitKind
	// GuestTarget is the statically-known guest PC this exit transfers
	// to; unused for indirect exits.
	GuestTarget uint64
}

// emitLocalJmpToExit appends a placeholder unconditional jump whose
// displacement the block translator patches once the target's host entry
// (or the dispatcher's re-entry stub) is known. Returns the rel32 field's
// offset.
func emitLocalJmpToExit(b *codebuf.Buffer) uint32 {
	start := b.CurrentOffset()
	amd64.EmitJmp(b, uint64(start), uint64(start))
	return start + amd64.EmitJmpDisplacementOffset
}

// writeLinkRegister stores returnPC into the guest link register.
func writeLinkRegister(b *codebuf.Buffer, returnPC uint64) {
	amd64.EmitMovImm64(b, Scratch1, returnPC)
	storeGuestInt(b, arm64LR, Scratch1, true)
}

// TranslateUncondBranchImm lowers B/BL: the target is resolved at
// translation time (pc is known within a block).
func TranslateUncondBranchImm(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	i := arm64.Insn(enc)
	target := uint64(int64(pc) + arm64.SImm26(i))
	if arm64.IsBranchLink(i) {
		writeLinkRegister(b, pc+4)
	}
	storePC(b, target)
	exit := emitLocalJmpToExit(b)
	return true, []ExitPoint{{PatchOffset: exit, Kind: ExitDirect, GuestTarget: target}}
}

// translateTakenFallthrough is the shared shape of every conditional
// exit: a host test leaving the taken condition in ZF/NE, then two
// direct-jump exits, one per outcome (spec.md §4.4).
func translateTakenFallthrough(b *codebuf.Buffer, pc, target uint64, taken *pendingJcc) []ExitPoint {
	storePC(b, pc+4)
	fallthroughExit := emitLocalJmpToExit(b)
	taken.resolve(b)
	storePC(b, target)
	takenExit := emitLocalJmpToExit(b)
	return []ExitPoint{
		{PatchOffset: fallthroughExit, Kind: ExitConditionalFallthrough, GuestTarget: pc + 4},
		{PatchOffset: takenExit, Kind: ExitConditionalTaken, GuestTarget: target},
	}
}

// TranslateCondBranch lowers B.cond.
func TranslateCondBranch(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	i := arm64.Insn(enc)
	target := uint64(int64(pc) + arm64.SImm19(i))
	truth := emitEvalGuestCond(b, arm64.CondField(i))
	amd64.EmitTestRegReg(b, truth, truth, false)
	taken := emitLocalJcc(b, amd64.CondNE)
	return true, translateTakenFallthrough(b, pc, target, &taken)
}

// TranslateCompareAndBranch lowers CBZ/CBNZ: test the guest register
// against itself (masked to the operand width) then branch.
func TranslateCompareAndBranch(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rt := arm64.Rd(i) // Rt occupies the same field position as Rd here
	target := uint64(int64(pc) + arm64.SImm19(i))

	loadGuestInt(b, Scratch1, rt)
	amd64.EmitTestRegReg(b, Scratch1, Scratch1, width64)
	cond := amd64.CondE
	if arm64.IsCBNZ(i) {
		cond = amd64.CondNE
	}
	taken := emitLocalJcc(b, cond)
	return true, translateTakenFallthrough(b, pc, target, &taken)
}

// TranslateTestAndBranch lowers TBZ/TBNZ: build the bit mask at
// translation time from the decoded bit index (spec.md §4.4).
func TranslateTestAndBranch(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	i := arm64.Insn(enc)
	rt := arm64.Rd(i)
	bitIdx := arm64.BitIndex(i)
	target := uint64(int64(pc) + arm64.SImm14(i))

	loadGuestInt(b, Scratch1, rt)
	if bitIdx < 32 {
		amd64.EmitALURegImm32(b, amd64.ALUAnd, Scratch1, uint32(1)<<bitIdx, false)
	} else {
		// a 64-bit AND's imm32 is sign-extended, so bits 32..63 need the
		// mask in a register
		amd64.EmitMovImm64(b, Scratch2, uint64(1)<<bitIdx)
		amd64.EmitTestRegReg(b, Scratch1, Scratch2, true)
	}
	cond := amd64.CondE
	if arm64.IsTBNZ(i) {
		cond = amd64.CondNE
	}
	taken := emitLocalJcc(b, cond)
	return true, translateTakenFallthrough(b, pc, target, &taken)
}

// TranslateUncondBranchReg lowers BR/BLR/RET: load the target from the
// named guest register and exit indirectly. Indirect exits are never
// chained (spec.md §4.5's block-chaining contract applies only to direct
// branches); the dispatcher reads the target back out of State.PC.
func TranslateUncondBranchReg(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	i := arm64.Insn(enc)
	rn := arm64.Rn(i)

	// the target is read before BLR writes the link register (BLR X30);
	// writeLinkRegister uses Scratch1, so the target is held in Scratch2
	loadGuestInt(b, Scratch2, rn)
	if arm64.BranchRegOpc(i) == 1 {
		writeLinkRegister(b, pc+4)
	}
	storePCFromReg(b, Scratch2)
	kind := ExitIndirect
	if arm64.IsReturn(i) {
		kind = ExitReturn
	}
	return true, []ExitPoint{{Kind: kind}}
}

// TranslateSystemCall lowers SVC: records the return PC and exits to the
// dispatcher, which routes to the guest-syscall shim (an external
// collaborator per spec.md §1).
func TranslateSystemCall(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	storePC(b, pc+4)
	return true, []ExitPoint{{Kind: ExitSyscall, GuestTarget: pc + 4}}
}

// TranslateBreakpointOrHalt lowers BRK/HLT: both trap (spec.md §4.4).
func TranslateBreakpointOrHalt(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []ExitPoint) {
	storePC(b, pc)
	amd64.EmitUD2(b)
	return true, []ExitPoint{{Kind: ExitUndefined, GuestTarget: pc}}
}
