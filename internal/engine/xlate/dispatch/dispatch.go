// Package dispatch implements the translation dispatcher (spec.md §4.7): a
// flat ordered table of (class predicate, translator) pairs. Given a 32-bit
// guest encoding, it tries each predicate in the fixed documented order and
// calls the first match's translator. The order is itself part of the
// contract — it resolves the documented cases where two predicates' bit
// patterns could otherwise both match the same encoding.
package dispatch

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/xlator"
)

// Result is what dispatching one encoding produced. Terminator is true for
// the branch/system classes, whose translators additionally hand back the
// block translator's unresolved-target bookkeeping (spec.md §4.5).
type Result struct {
	OK         bool
	Terminator bool
	Exits      []xlator.ExitPoint
}

type translateFunc func(enc uint32, b *codebuf.Buffer, pc uint64) Result

type entry struct {
	name      string
	predicate func(arm64.Insn) bool
	translate translateFunc
}

func wrap(f func(enc uint32, b *codebuf.Buffer, pc uint64) bool) translateFunc {
	return func(enc uint32, b *codebuf.Buffer, pc uint64) Result {
		return Result{OK: f(enc, b, pc)}
	}
}

func wrapTerm(f func(enc uint32, b *codebuf.Buffer, pc uint64) (bool, []xlator.ExitPoint)) translateFunc {
	return func(enc uint32, b *codebuf.Buffer, pc uint64) Result {
		ok, exits := f(enc, b, pc)
		return Result{OK: ok, Terminator: true, Exits: exits}
	}
}

func isALUOrLogicalReg(i arm64.Insn) bool { return arm64.IsALUReg(i) || arm64.IsLogicalReg(i) }
func isALUOrLogicalImm(i arm64.Insn) bool { return arm64.IsALUImm(i) || arm64.IsLogicalImm(i) }
func isCompare(i arm64.Insn) bool         { return arm64.IsCompareReg(i) || arm64.IsCompareImm(i) }

// vectorArithmeticOrLogical sub-dispatches IsVectorArithmetic's match: the
// guest's "three same" vector family repurposes opcode 0b00011 (bits 15:11)
// for the bitwise AND/BIC/ORR/EOR group, whose size field (bits 23:22) is a
// four-way sub-opcode rather than a lane width (xlator.TranslateVectorLogical's
// doc comment). Every other opcode in the family is lane-width-keyed integer
// arithmetic (xlator.TranslateVectorArithmetic).
func vectorArithmeticOrLogical(enc uint32, b *codebuf.Buffer, pc uint64) Result {
	opcode := (enc >> 11) & 0x1F
	if opcode == 0b00011 {
		return Result{OK: xlator.TranslateVectorLogical(enc, b, pc)}
	}
	return Result{OK: xlator.TranslateVectorArithmetic(enc, b, pc)}
}

// Order is the dispatcher's fixed table, spec.md §4.7: ALU-register ->
// ALU-immediate -> move-wide -> bit-field -> compare/test -> load/store ->
// branches -> system -> scalar-FP -> vector/SIMD -> unknown. Shift-by-register,
// multiply-accumulate and divide are data-processing(2/3-source) siblings of
// ALU-register and are grouped with it; PC-relative addressing (ADR/ADRP) is
// its own family not named by §4.7's class list, so it runs first, ahead of
// anything it could conceivably overlap.
var Order = []entry{
	{"pc-rel-addr", arm64.IsPCRelAddr, wrap(xlator.TranslatePCRelAddr)},

	{"alu-reg", isALUOrLogicalReg, wrap(xlator.TranslateALUReg)},
	{"shift-reg", arm64.IsShiftReg, wrap(xlator.TranslateShiftReg)},
	{"multi-3-source", arm64.IsMulti3Source, wrap(xlator.TranslateMulti3Source)},
	{"div-2-source", arm64.IsDiv2Source, wrap(xlator.TranslateDiv2Source)},

	{"alu-imm", isALUOrLogicalImm, wrap(xlator.TranslateALUImm)},

	{"move-wide", arm64.IsMoveWide, wrap(xlator.TranslateMoveWide)},

	{"bitfield", arm64.IsBitfield, wrap(xlator.TranslateBitfield)},

	{"compare", isCompare, wrap(xlator.TranslateCompare)},

	{"load-store-unsigned-imm", arm64.IsLoadStoreUnsignedImm, wrap(xlator.TranslateLoadStoreUnsignedImm)},
	{"load-store-unscaled-imm", arm64.IsLoadStoreUnscaledImm, wrap(xlator.TranslateLoadStoreUnscaledImm)},
	{"load-store-pair", arm64.IsLoadStorePair, wrap(xlator.TranslateLoadStorePair)},
	{"load-store-exclusive-ordered", arm64.IsLoadStoreExclusiveOrdered, wrap(xlator.TranslateLoadStoreExclusiveOrdered)},

	{"uncond-branch-imm", arm64.IsUncondBranchImm, wrapTerm(xlator.TranslateUncondBranchImm)},
	{"cond-branch", arm64.IsCondBranch, wrapTerm(xlator.TranslateCondBranch)},
	{"compare-and-branch", arm64.IsCompareAndBranch, wrapTerm(xlator.TranslateCompareAndBranch)},
	{"test-and-branch", arm64.IsTestAndBranch, wrapTerm(xlator.TranslateTestAndBranch)},
	{"uncond-branch-reg", arm64.IsUncondBranchReg, wrapTerm(xlator.TranslateUncondBranchReg)},

	{"system-call", arm64.IsSystemCall, wrapTerm(xlator.TranslateSystemCall)},
	{"breakpoint", arm64.IsBreakpoint, wrapTerm(xlator.TranslateBreakpointOrHalt)},
	{"halt", arm64.IsHalt, wrapTerm(xlator.TranslateBreakpointOrHalt)},

	{"fp-compare", arm64.IsFPCompare, wrap(xlator.TranslateFPCompare)},
	{"fp-cond-select", arm64.IsFPCondSelect, wrap(xlator.TranslateFPCondSelect)},
	{"fp-data-proc-1-source", arm64.IsFPDataProc1Source, wrap(xlator.TranslateFPDataProc1Source)},
	{"fp-data-proc-2-source", arm64.IsFPDataProc2Source, wrap(xlator.TranslateFPDataProc2Source)},
	{"fp-convert-to-int", arm64.IsFPConvertToInt, wrap(xlator.TranslateFPConvertToInt)},
	{"fp-fused-mul-add", arm64.IsFPFusedMulAdd, wrap(xlator.TranslateFPFusedMulAdd)},

	{"vector-load-store-multi", arm64.IsVectorLoadStoreMulti, wrap(xlator.TranslateVectorLoadStoreMulti)},
	{"vector-shift-imm", arm64.IsVectorShiftImm, wrap(xlator.TranslateVectorShiftImm)},
	{"vector-dup", arm64.IsVectorDup, wrap(xlator.TranslateVectorDup)},
	{"vector-extract", arm64.IsVectorExtract, wrap(xlator.TranslateVectorExtract)},
	{"vector-table-lookup", arm64.IsVectorTableLookup, wrap(xlator.TranslateVectorTableLookup)},
	{"vector-arithmetic", arm64.IsVectorArithmetic, vectorArithmeticOrLogical},
}

// Dispatch tries each class predicate in Order and calls the first match's
// translator. NOP is handled ahead of the table: its semantics are "advance
// without emitting anything", which belongs to the block translator's walk,
// not to any per-class translator. An encoding matched by no predicate
// (including the FP-move-immediate and multi-register vector-load-store
// variants this reduced decoder declines) returns a non-terminator failure,
// which the block translator turns into an undefined-instruction trap stub.
func Dispatch(enc uint32, b *codebuf.Buffer, pc uint64) Result {
	i := arm64.Insn(enc)
	if arm64.IsNop(i) {
		return Result{OK: true}
	}
	for _, e := range Order {
		if e.predicate(i) {
			return e.translate(enc, b, pc)
		}
	}
	return Result{OK: false}
}
