package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// FPWidth selects the scalar floating-point width an op operates on.
type FPWidth uint8

const (
	FPSingle FPWidth = iota
	FPDouble
)

// scalarPrefix is the SSE mandatory prefix selecting the scalar single
// (F3) or scalar double (F2) encoding of a 0F-class opcode.
func scalarPrefix(w FPWidth) byte {
	if w == FPDouble {
		return 0xF2
	}
	return 0xF3
}

// emitXmmRM emits [prefix] [REX] 0F op modrm(reg, rm) for an XMM.reg,
// XMM.rm or XMM.reg, GPR.rm operand pair.
func emitXmmRM(b *codebuf.Buffer, prefix byte, op byte, reg, rm uint8, rexW bool) {
	if prefix != 0 {
		b.EmitU8(prefix)
	}
	if rexW || needsExt(reg) || needsExt(rm) {
		b.EmitU8(Rex(rexW, needsExt(reg), false, needsExt(rm)))
	}
	b.EmitU8(0x0F)
	b.EmitU8(op)
	emitModRMReg(b, reg, rm)
}

// EmitMovScalar appends MOVSS/MOVSD dst, src (register to register).
func EmitMovScalar(b *codebuf.Buffer, w FPWidth, dst, src XMM) {
	emitXmmRM(b, scalarPrefix(w), 0x10, uint8(dst), uint8(src), false)
}

// EmitMovScalarLoad appends MOVSS/MOVSD dst, [base+disp32].
func EmitMovScalarLoad(b *codebuf.Buffer, w FPWidth, dst XMM, base Reg, disp int32) {
	b.EmitU8(scalarPrefix(w))
	if needsExt(uint8(dst)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x10)
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitMovScalarStore appends MOVSS/MOVSD [base+disp32], src.
func EmitMovScalarStore(b *codebuf.Buffer, w FPWidth, base Reg, disp int32, src XMM) {
	b.EmitU8(scalarPrefix(w))
	if needsExt(uint8(src)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(src)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x11)
	emitModRMMemDisp32(b, uint8(src), uint8(base), disp)
}

// FPScalarOp identifies a scalar dst,src arithmetic operation keyed to its
// 0F opcode.
type FPScalarOp byte

const (
	FPAdd  FPScalarOp = 0x58
	FPMul  FPScalarOp = 0x59
	FPSub  FPScalarOp = 0x5C
	FPMin  FPScalarOp = 0x5D
	FPDiv  FPScalarOp = 0x5E
	FPMax  FPScalarOp = 0x5F
	FPSqrt FPScalarOp = 0x51
)

// EmitFPScalarOp appends op dst, src (dst = dst op src, e.g. ADDSS/ADDSD).
func EmitFPScalarOp(b *codebuf.Buffer, w FPWidth, op FPScalarOp, dst, src XMM) {
	emitXmmRM(b, scalarPrefix(w), byte(op), uint8(dst), uint8(src), false)
}

// EmitUComiScalar appends UCOMISS/UCOMISD dst, src: an ordered compare
// that sets ZF/PF/CF from the unordered-aware relation and leaves OF/SF/AF
// clear, mirroring the guest's FP condition-flag semantics.
func EmitUComiScalar(b *codebuf.Buffer, w FPWidth, dst, src XMM) {
	if w == FPDouble {
		b.EmitU8(0x66)
	}
	if needsExt(uint8(dst)) || needsExt(uint8(src)) {
		b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x2E)
	emitModRMReg(b, uint8(dst), uint8(src))
}

// EmitCvtIntToScalar appends CVTSI2SS/CVTSI2SD dst, src (GPR), converting
// a signed integer to scalar float. width64 selects a 64-bit source GPR.
func EmitCvtIntToScalar(b *codebuf.Buffer, w FPWidth, dst XMM, src Reg, width64 bool) {
	b.EmitU8(scalarPrefix(w))
	b.EmitU8(Rex(width64, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	b.EmitU8(0x0F)
	b.EmitU8(0x2A)
	emitModRMReg(b, uint8(dst), uint8(src))
}

// EmitCvtScalarToIntTrunc appends CVTTSS2SI/CVTTSD2SI dst (GPR), src,
// truncating toward zero as the guest's integer-convert instructions
// require.
func EmitCvtScalarToIntTrunc(b *codebuf.Buffer, w FPWidth, dst Reg, src XMM, width64 bool) {
	b.EmitU8(scalarPrefix(w))
	b.EmitU8(Rex(width64, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	b.EmitU8(0x0F)
	b.EmitU8(0x2C)
	emitModRMReg(b, uint8(dst), uint8(src))
}

// EmitCvtPrecision appends CVTSS2SD or CVTSD2SS dst, src depending on
// from, narrowing or widening between single and double precision.
func EmitCvtPrecision(b *codebuf.Buffer, from FPWidth, dst, src XMM) {
	emitXmmRM(b, scalarPrefix(from), 0x5A, uint8(dst), uint8(src), false)
}

// EmitRcpss appends RCPSS dst, src: a low-precision reciprocal estimate.
// The host has no double-precision form; double-precision reciprocal
// estimates are synthesized from 1.0/x by the caller.
func EmitRcpss(b *codebuf.Buffer, dst, src XMM) {
	emitXmmRM(b, 0xF3, 0x53, uint8(dst), uint8(src), false)
}

// EmitRsqrtss appends RSQRTSS dst, src: a low-precision reciprocal
// square-root estimate, single precision only.
func EmitRsqrtss(b *codebuf.Buffer, dst, src XMM) {
	emitXmmRM(b, 0xF3, 0x52, uint8(dst), uint8(src), false)
}

// FPBitwiseOp identifies a packed bitwise op on XMM registers, used to
// synthesize scalar sign/abs (ANDPS/ANDNPS/ORPS/XORPS with a mask
// constant) since x86 has no dedicated scalar FNEG/FABS.
type FPBitwiseOp byte

const (
	FPAnd  FPBitwiseOp = 0x54
	FPAndn FPBitwiseOp = 0x55
	FPOr   FPBitwiseOp = 0x56
	FPXor  FPBitwiseOp = 0x57
)

// EmitFPBitwise appends ANDPS/ANDPD/ANDNPS/.../XORPD dst, src.
func EmitFPBitwise(b *codebuf.Buffer, w FPWidth, op FPBitwiseOp, dst, src XMM) {
	var prefix byte
	if w == FPDouble {
		prefix = 0x66
	}
	emitXmmRM(b, prefix, byte(op), uint8(dst), uint8(src), false)
}

// EmitMovGPRToXMM appends MOVQ/MOVD dst(xmm), src(gpr): a raw bit move, not
// a numeric conversion. width64 selects the MOVQ (REX.W) form.
func EmitMovGPRToXMM(b *codebuf.Buffer, dst XMM, src Reg, width64 bool) {
	b.EmitU8(0x66)
	b.EmitU8(Rex(width64, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	b.EmitU8(0x0F)
	b.EmitU8(0x6E)
	emitModRMReg(b, uint8(dst), uint8(src))
}

// EmitMovXMMToGPR appends MOVQ/MOVD dst(gpr), src(xmm): the inverse raw bit
// move, used to read a scalar register's bits into a general-purpose
// register (e.g. FMOV general,scalar).
func EmitMovXMMToGPR(b *codebuf.Buffer, dst Reg, src XMM, width64 bool) {
	b.EmitU8(0x66)
	b.EmitU8(Rex(width64, needsExt(uint8(src)), false, needsExt(uint8(dst))))
	b.EmitU8(0x0F)
	b.EmitU8(0x7E)
	emitModRMReg(b, uint8(src), uint8(dst))
}
