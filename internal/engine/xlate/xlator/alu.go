package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
)

// addSubOp and logicalOp map the guest ALU opcode bits onto a host ALUOp.
// Add/sub forms use opc bit 30 (0=add,1=sub); logical forms use opc
// bits 30:29 (0=AND,1=ORR,2=EOR,3=ANDS).
func addSubOp(i arm64.Insn) amd64.ALUOp {
	if uint32(i)&(1<<30) != 0 {
		return amd64.ALUSub
	}
	return amd64.ALUAdd
}

func logicalOp(i arm64.Insn) amd64.ALUOp {
	switch (uint32(i) >> 29) & 0b11 {
	case 0, 3: // AND, ANDS (flag-setting AND)
		return amd64.ALUAnd
	case 1:
		return amd64.ALUOr
	default: // 2 = EOR
		return amd64.ALUXor
	}
}

// TranslateALUReg lowers add/sub (shifted register) and logical (shifted
// register), unshifted case only: Rd = Rn op Rm. Shifted-operand forms
// report failure, to be supplemented once the shift-application helper
// lands (spec.md §4.4 notes implementers "pick the specific host
// sequences subject to correctness"; an unsupported shift amount is a
// legitimate translator failure, not a silent wrong answer).
func TranslateALUReg(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	if arm64.ShiftAmt6(i) != 0 {
		return false
	}
	width64 := arm64.SF(i)
	rd, rn, rm := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i)

	loadGuestInt(b, Scratch1, rn)
	loadGuestInt(b, Scratch2, rm)

	var op amd64.ALUOp
	setsFlags := arm64.SBit(i)
	arith := true
	if arm64.IsLogicalReg(i) {
		op = logicalOp(i)
		arith = false
		setsFlags = (uint32(i)>>29)&0b11 == 0b11 // only ANDS/BICS set flags
		if uint32(i)&(1<<21) != 0 { // N bit: BIC/ORN/EON/BICS invert Rm
			amd64.EmitNot(b, Scratch2, width64)
		}
	} else {
		op = addSubOp(i)
	}
	amd64.EmitALURegReg(b, op, Scratch1, Scratch2, width64)
	if setsFlags {
		emitCaptureNZCVFromHost(b, arith)
	}
	storeGuestInt(b, rd, Scratch1, width64)
	return true
}

// TranslateALUImm lowers add/sub (immediate) and logical (immediate):
// Rd = Rn op imm12 (optionally shifted left 12).
func TranslateALUImm(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd, rn := arm64.Rd(i), arm64.Rn(i)
	imm := arm64.Imm12(i)
	if arm64.Imm12Shift12(i) {
		imm <<= 12
	}

	loadGuestInt(b, Scratch1, rn)
	var op amd64.ALUOp
	setsFlags := arm64.SBit(i)
	arith := true
	if arm64.IsLogicalImm(i) {
		op = logicalOp(i)
		arith = false
		setsFlags = (uint32(i)>>29)&0b11 == 0b11 // only ANDS sets flags
	} else {
		op = addSubOp(i)
	}
	amd64.EmitALURegImm32(b, op, Scratch1, imm, width64)
	if setsFlags {
		emitCaptureNZCVFromHost(b, arith)
	}
	storeGuestInt(b, rd, Scratch1, width64)
	return true
}

// TranslateCompare lowers the compare aliases (ADDS/SUBS/ANDS with a
// discarded destination, i.e. CMN/CMP/TST): emit the same host op as the
// corresponding ALU form, but
// never write back the result register (spec.md §4.4: "Translators do
// not persist the operand").
func TranslateCompare(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rn := arm64.Rn(i)

	loadGuestInt(b, Scratch1, rn)
	if arm64.IsCompareImm(i) && uint32(i)&0x1F800000 == 0x12000000 { // TST #imm
		amd64.EmitALURegImm32(b, amd64.ALUAnd, Scratch1, arm64.Imm12(i), width64)
		emitCaptureNZCVFromHost(b, false)
		return true
	}
	if arm64.IsCompareImm(i) {
		imm := arm64.Imm12(i)
		if arm64.Imm12Shift12(i) {
			imm <<= 12
		}
		if addSubOp(i) == amd64.ALUAdd { // CMN: the sum in Scratch1 is discarded
			amd64.EmitALURegImm32(b, amd64.ALUAdd, Scratch1, imm, width64)
		} else {
			amd64.EmitCmpRegImm32(b, Scratch1, imm, width64)
		}
		emitCaptureNZCVFromHost(b, true)
		return true
	}
	rm := arm64.Rm(i)
	loadGuestInt(b, Scratch2, rm)
	if uint32(i)&0x1F000000 == 0x0A000000 { // TST (shifted register)
		amd64.EmitTestRegReg(b, Scratch1, Scratch2, width64)
		emitCaptureNZCVFromHost(b, false)
		return true
	}
	if addSubOp(i) == amd64.ALUAdd { // CMN
		amd64.EmitALURegReg(b, amd64.ALUAdd, Scratch1, Scratch2, width64)
	} else {
		amd64.EmitCmpRegReg(b, Scratch1, Scratch2, width64)
	}
	emitCaptureNZCVFromHost(b, true)
	return true
}

// TranslateMoveWide lowers MOVZ/MOVN/MOVK.
func TranslateMoveWide(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd := arm64.Rd(i)
	imm16 := uint64(arm64.Imm16(i))
	shift := arm64.MoveWideShift(i)

	switch arm64.MoveWideOpc(i) {
	case 2: // MOVZ
		amd64.EmitMovImm64(b, Scratch1, imm16<<shift)
	case 0: // MOVN
		v := ^(imm16 << shift)
		if !width64 {
			v &= 0xFFFFFFFF
		}
		amd64.EmitMovImm64(b, Scratch1, v)
	case 3: // MOVK: keep other bits, overwrite the 16-bit window
		loadGuestInt(b, Scratch1, rd)
		mask := uint64(0xFFFF) << shift
		amd64.EmitMovImm64(b, Scratch3, ^mask)
		amd64.EmitALURegReg(b, amd64.ALUAnd, Scratch1, Scratch3, true)
		amd64.EmitMovImm64(b, Scratch2, imm16<<shift)
		amd64.EmitALURegReg(b, amd64.ALUOr, Scratch1, Scratch2, true)
	default:
		return false
	}
	storeGuestInt(b, rd, Scratch1, width64)
	return true
}

// TranslateBitfield lowers SBFM/BFM/UBFM by materializing the extracted
// field with a shift-left then shift-right pair (logical for
// UBFM/BFM, arithmetic for SBFM), following the guest's lsb/width
// decoding (spec.md §4.4).
func TranslateBitfield(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd, rn := arm64.Rd(i), arm64.Rn(i)
	immr, imms := arm64.BitfieldImmR(i), arm64.BitfieldImmS(i)
	regWidth := uint32(32)
	if width64 {
		regWidth = 64
	}
	if imms < immr {
		// Insert-style encoding (width wraps); unsupported by this
		// reduced lowering.
		return false
	}
	lsb, width := arm64.BitfieldLSBWidth(immr, imms)
	if lsb+width > regWidth {
		return false
	}

	loadGuestInt(b, Scratch1, rn)
	leftShift := byte(regWidth - lsb - width)
	rightShift := byte(regWidth - width)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, Scratch1, leftShift, width64)
	switch arm64.BitfieldOpc(i) {
	case 0: // SBFM: arithmetic right shift sign-extends the field
		amd64.EmitShiftImm(b, amd64.ShiftSAR, Scratch1, rightShift, width64)
	case 2: // UBFM: logical right shift zero-extends
		amd64.EmitShiftImm(b, amd64.ShiftSHR, Scratch1, rightShift, width64)
	default: // BFM: insert, preserving destination bits outside the window
		amd64.EmitShiftImm(b, amd64.ShiftSHR, Scratch1, rightShift, width64)
		amd64.EmitShiftImm(b, amd64.ShiftSHL, Scratch1, byte(lsb), width64)
		loadGuestInt(b, Scratch2, rd)
		mask := uint64(1)<<width - 1
		mask <<= lsb
		amd64.EmitMovImm64(b, Scratch3, ^mask)
		amd64.EmitALURegReg(b, amd64.ALUAnd, Scratch2, Scratch3, true)
		amd64.EmitALURegReg(b, amd64.ALUOr, Scratch1, Scratch2, true)
	}
	storeGuestInt(b, rd, Scratch1, width64)
	return true
}

// TranslateShiftReg lowers LSLV/LSRV/ASRV/RORV (shift by register),
// masking the count to the operand width per spec.md §4.4.
func TranslateShiftReg(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd, rn, rm := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i)
	modulus := uint32(31)
	if width64 {
		modulus = 63
	}

	loadGuestInt(b, Scratch1, rn)
	loadGuestInt(b, amd64.RCX, rm)
	amd64.EmitALURegImm32(b, amd64.ALUAnd, amd64.RCX, modulus, true)

	switch (uint32(i) >> 10) & 0x3F {
	case 0b001000: // LSLV
		amd64.EmitShiftCL(b, amd64.ShiftSHL, Scratch1, width64)
	case 0b001001: // LSRV
		amd64.EmitShiftCL(b, amd64.ShiftSHR, Scratch1, width64)
	case 0b001010: // ASRV
		amd64.EmitShiftCL(b, amd64.ShiftSAR, Scratch1, width64)
	case 0b001011: // RORV
		amd64.EmitShiftCL(b, amd64.ShiftROR, Scratch1, width64)
	default:
		return false
	}
	storeGuestInt(b, rd, Scratch1, width64)
	return true
}

// TranslateMulti3Source lowers MADD/MSUB (Rd = Ra +/- Rn*Rm).
func TranslateMulti3Source(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd, rn, rm, ra := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i), arm64.Ra(i)
	sub := (uint32(i)>>15)&1 != 0

	loadGuestInt(b, amd64.RAX, rn)
	loadGuestInt(b, Scratch2, rm)
	amd64.EmitIMul(b, Scratch2, width64) // RDX:RAX = RAX * Scratch2, low half in RAX
	loadGuestInt(b, Scratch3, ra)
	if sub {
		amd64.EmitALURegReg(b, amd64.ALUSub, Scratch3, amd64.RAX, width64)
		storeGuestInt(b, rd, Scratch3, width64)
	} else {
		amd64.EmitALURegReg(b, amd64.ALUAdd, amd64.RAX, Scratch3, width64)
		storeGuestInt(b, rd, amd64.RAX, width64)
	}
	return true
}

// TranslateDiv2Source lowers SDIV/UDIV. Signed divide-by-zero traps (UD2,
// per spec.md §4.4); unsigned divide-by-zero yields the guest's
// documented result-is-zero convention instead of faulting the host.
func TranslateDiv2Source(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	width64 := arm64.SF(i)
	rd, rn, rm := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i)
	signed := (uint32(i)>>10)&0x3F == 0b000011

	loadGuestInt(b, amd64.RAX, rn)
	loadGuestInt(b, Scratch2, rm)

	amd64.EmitALURegReg(b, amd64.ALUXor, Scratch3, Scratch3, true)
	amd64.EmitCmpRegReg(b, Scratch2, Scratch3, width64)
	zeroBranch := emitLocalJcc(b, amd64.CondE)

	if signed {
		// IDIV divides the signed 2*width dividend RDX:RAX by the divisor;
		// RDX must hold the sign extension of RAX, not zero, or a negative
		// dividend yields a wrong quotient/remainder (or #DE).
		amd64.EmitCdqCqo(b, width64)
		amd64.EmitIDiv(b, Scratch2, width64)
	} else {
		amd64.EmitALURegReg(b, amd64.ALUXor, amd64.RDX, amd64.RDX, true)
		amd64.EmitDiv(b, Scratch2, width64)
	}
	storeGuestInt(b, rd, amd64.RAX, width64)
	doneBranch := emitLocalJmp(b)

	zeroBranch.resolve(b)
	if signed {
		amd64.EmitUD2(b)
	} else {
		storeGuestInt(b, rd, Scratch3, width64)
	}
	doneBranch.resolve(b)
	return true
}
