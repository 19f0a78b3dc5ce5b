package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
)

// loadGuestBase emits code loading the base register for a load/store
// addressing computation: guest register n if n != 31, or SP if n == 31
// (spec.md §3: index 31 means SP in memory-operand position, unlike the
// zero-register meaning it carries in register-operand position).
func loadGuestBase(b *codebuf.Buffer, dst amd64.Reg, n uint32) {
	if n == 31 {
		amd64.EmitLoadMem(b, dst, StateReg, int32(state.Offsets.SP), true)
		return
	}
	loadGuestInt(b, dst, n)
}

// storeGuestBase writes dst back to the base register, used by
// pre/post-indexed forms' writeback.
func storeGuestBase(b *codebuf.Buffer, n uint32, src amd64.Reg) {
	if n == 31 {
		amd64.EmitStoreMem(b, StateReg, int32(state.Offsets.SP), src, true)
		return
	}
	storeGuestInt(b, n, src, true)
}

// TranslateLoadStoreUnsignedImm lowers the scaled unsigned-12-bit-
// immediate LDR/STR/LDRB/STRB/LDRH/STRH family (no sign extension, no
// writeback): address = base + imm12*scale. The sign-extending LDRS*
// encodings (opc = 1x) report failure.
func TranslateLoadStoreUnsignedImm(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	if arm64.LdStV(i) {
		return false // vector/FP load-store unsigned-imm form: not lowered
	}
	if (uint32(i)>>22)&0b11 >= 0b10 {
		return false // LDRSB/LDRSH/LDRSW (and PRFM)
	}
	size := arm64.LdStSize(i)
	scale := uint32(1) << size
	disp := int32(arm64.Imm12(i) * scale)
	rt, rn := arm64.Rd(i), arm64.Rn(i)
	isLoad := arm64.LdStIsLoad(i)

	loadGuestBase(b, Scratch1, rn)
	if isLoad {
		switch size {
		case 0:
			amd64.EmitLoadZExt(b, Scratch2, Scratch1, disp, amd64.ExtByte)
		case 1:
			amd64.EmitLoadZExt(b, Scratch2, Scratch1, disp, amd64.ExtWord)
		case 2:
			amd64.EmitLoadMem(b, Scratch2, Scratch1, disp, false)
		default:
			amd64.EmitLoadMem(b, Scratch2, Scratch1, disp, true)
		}
		storeGuestInt(b, rt, Scratch2, size == 3)
		return true
	}
	loadGuestInt(b, Scratch2, rt)
	amd64.EmitStoreMem(b, Scratch1, disp, Scratch2, size == 3)
	return true
}

// TranslateLoadStoreUnscaledImm lowers LDUR/STUR (unscaled signed 9-bit
// immediate). It performs no base-register writeback; the pre/post-indexed
// encodings are not routed here (see arm64.IsLoadStoreUnscaledImm).
func TranslateLoadStoreUnscaledImm(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	if arm64.LdStV(i) {
		return false
	}
	size := arm64.LdStSize(i)
	disp := int32(arm64.SImm9(i))
	rt, rn := arm64.Rd(i), arm64.Rn(i)
	isLoad := arm64.LdStIsLoad(i)

	loadGuestBase(b, Scratch1, rn)
	if isLoad {
		switch size {
		case 0:
			amd64.EmitLoadZExt(b, Scratch2, Scratch1, disp, amd64.ExtByte)
		case 1:
			amd64.EmitLoadZExt(b, Scratch2, Scratch1, disp, amd64.ExtWord)
		case 2:
			amd64.EmitLoadMem(b, Scratch2, Scratch1, disp, false)
		default:
			amd64.EmitLoadMem(b, Scratch2, Scratch1, disp, true)
		}
		storeGuestInt(b, rt, Scratch2, size == 3)
	} else {
		loadGuestInt(b, Scratch2, rt)
		amd64.EmitStoreMem(b, Scratch1, disp, Scratch2, size == 3)
	}
	return true
}

// TranslateLoadStorePair lowers LDP/STP, including pre/post-indexed
// writeback (spec.md §4.4: "Pair forms load or store two consecutive
// registers"). The index field (bits 24:23) selects post-index (access at
// the unmodified base, then base += disp), pre-index (access at base +
// disp, then base := base + disp), or signed-offset/no-allocate (access at
// base + disp, no writeback); base-register arithmetic for writeback is
// always 64-bit regardless of the pair's 32/64-bit data width.
func TranslateLoadStorePair(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i) // reuses bit 31 as the 32/64-bit pair selector
	scale := uint32(4)
	if width64 {
		scale = 8
	}
	disp := int32(arm64.SImm7(i)) * int32(scale)
	rt1, rt2, rn := arm64.Rd(i), arm64.Ra(i), arm64.Rn(i)
	isLoad := arm64.LdStIsLoad(i)

	var preIndex, postIndex bool
	switch arm64.LdStPairIndex(i) {
	case 0b01:
		postIndex = true
	case 0b11:
		preIndex = true
	case 0b10, 0b00:
		// signed-offset / no-allocate: access at base+disp, no writeback.
	default:
		return false
	}

	loadGuestBase(b, Scratch1, rn)
	accessDisp := disp
	if postIndex {
		accessDisp = 0
	}

	if isLoad {
		amd64.EmitLoadMem(b, Scratch2, Scratch1, accessDisp, width64)
		amd64.EmitLoadMem(b, Scratch3, Scratch1, accessDisp+int32(scale), width64)
		storeGuestInt(b, rt1, Scratch2, width64)
		storeGuestInt(b, rt2, Scratch3, width64)
	} else {
		loadGuestInt(b, Scratch2, rt1)
		loadGuestInt(b, Scratch3, rt2)
		amd64.EmitStoreMem(b, Scratch1, accessDisp, Scratch2, width64)
		amd64.EmitStoreMem(b, Scratch1, accessDisp+int32(scale), Scratch3, width64)
	}

	if preIndex || postIndex {
		amd64.EmitALURegImm32(b, amd64.ALUAdd, Scratch1, uint32(disp), true)
		storeGuestBase(b, rn, Scratch1)
	}
	return true
}

// TranslateLoadStoreExclusiveOrdered lowers the load-acquire/store-release
// forms: a full fence suffices for correctness (spec.md §4.4), so these
// translate to an ordinary load/store plus an MFENCE-strength barrier.
// The reduced decoder surface wired here does not distinguish the
// exclusive-pair bookkeeping from the plain ordered forms; both get the
// conservative fence treatment.
func TranslateLoadStoreExclusiveOrdered(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	rt, rn := arm64.Rd(i), arm64.Rn(i)
	isLoad := arm64.LdStIsLoad(i)

	loadGuestBase(b, Scratch1, rn)
	if isLoad {
		amd64.EmitLoadMem(b, Scratch2, Scratch1, 0, true)
		b.EmitBytes(0x0F, 0xAE, 0xF0) // MFENCE
		storeGuestInt(b, rt, Scratch2, true)
		return true
	}
	loadGuestInt(b, Scratch2, rt)
	amd64.EmitStoreMem(b, Scratch1, 0, Scratch2, true)
	b.EmitBytes(0x0F, 0xAE, 0xF0) // MFENCE
	return true
}
