package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// ElemSize is the lane width of a packed SIMD operation, in bits.
type ElemSize uint8

const (
	Elem8 ElemSize = iota
	Elem16
	Elem32
	Elem64
)

// emit66XmmXmm emits a two/three-byte-opcode SSE instruction operating on
// two XMM registers, with the 66 mandatory prefix all the packed-integer
// forms below require, followed by the 0F escape and the opcode bytes.
func emit66XmmXmm(b *codebuf.Buffer, opcode []byte, dst, src XMM) {
	b.EmitU8(0x66)
	if needsExt(uint8(dst)) || needsExt(uint8(src)) {
		b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	}
	b.EmitU8(0x0F)
	b.EmitBytes(opcode...)
	emitModRMReg(b, uint8(dst), uint8(src))
}

// PackedOp identifies a same-shape packed dst,src operation keyed by lane
// size, used by EmitPackedAdd/Sub/CmpEq/CmpGt/UnpackLo/UnpackHi.
type PackedOp struct {
	byOpcode [4][]byte // indexed by ElemSize; nil means unsupported
}

var packedAdd = PackedOp{[4][]byte{{0xFC}, {0xFD}, {0xFE}, {0xD4}}}
var packedSub = PackedOp{[4][]byte{{0xF8}, {0xF9}, {0xFA}, {0xFB}}}
var packedCmpEq = PackedOp{[4][]byte{{0x74}, {0x75}, {0x76}, nil}}
var packedCmpGt = PackedOp{[4][]byte{{0x64}, {0x65}, {0x66}, nil}}
var packedUnpackLo = PackedOp{[4][]byte{{0x60}, {0x61}, {0x62}, {0x6C}}}
var packedUnpackHi = PackedOp{[4][]byte{{0x68}, {0x69}, {0x6A}, {0x6D}}}

func emitPackedOp(b *codebuf.Buffer, op PackedOp, size ElemSize, dst, src XMM) {
	opcode := op.byOpcode[size]
	if opcode == nil {
		panic("amd64: packed op unsupported at this lane size")
	}
	emit66XmmXmm(b, opcode, dst, src)
}

// EmitPackedAdd appends PADDB/W/D/Q dst, src (dst = dst + src, lane by
// lane, wrapping).
func EmitPackedAdd(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedAdd, size, dst, src)
}

// EmitPackedSub appends PSUBB/W/D/Q dst, src.
func EmitPackedSub(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedSub, size, dst, src)
}

// EmitPackedCmpEq appends PCMPEQB/W/D dst, src: lanes set to all-ones
// where equal, all-zero otherwise. No quadword form exists pre-SSE4.1.
func EmitPackedCmpEq(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedCmpEq, size, dst, src)
}

// EmitPackedCmpGt appends PCMPGTB/W/D dst, src (signed greater-than).
func EmitPackedCmpGt(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedCmpGt, size, dst, src)
}

// EmitPackedUnpackLo appends PUNPCKL{BW,WD,DQ,QDQ} dst, src, interleaving
// the low half of dst and src.
func EmitPackedUnpackLo(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedUnpackLo, size, dst, src)
}

// EmitPackedUnpackHi appends PUNPCKH{BW,WD,DQ,QDQ} dst, src.
func EmitPackedUnpackHi(b *codebuf.Buffer, size ElemSize, dst, src XMM) {
	emitPackedOp(b, packedUnpackHi, size, dst, src)
}

// EmitPAnd appends PAND dst, src.
func EmitPAnd(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0xDB}, dst, src) }

// EmitPAndn appends PANDN dst, src (dst = ^dst & src).
func EmitPAndn(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0xDF}, dst, src) }

// EmitPOr appends POR dst, src.
func EmitPOr(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0xEB}, dst, src) }

// EmitPXor appends PXOR dst, src.
func EmitPXor(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0xEF}, dst, src) }

// EmitPMulLW appends PMULLW dst, src (16-bit lane multiply, low half
// kept). Dword packed multiply requires the SSE4.1 three-byte PMULLD
// form, emitted separately by EmitPMulLD.
func EmitPMulLW(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0xD5}, dst, src) }

// EmitPMulLD appends PMULLD dst, src (SSE4.1, 66 0F 38 40 /r).
func EmitPMulLD(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0x38, 0x40}, dst, src) }

// PackedShiftOp identifies a packed immediate-shift family, keyed to its
// 0F opcode and the ModRM.reg opcode-extension digit the shift amount
// operand occupies.
type PackedShiftOp struct {
	byOpcode [4][]byte
	ext      byte
}

var packedShiftLogicalLeft = PackedShiftOp{[4][]byte{nil, {0x71}, {0x72}, {0x73}}, 6}
var packedShiftLogicalRight = PackedShiftOp{[4][]byte{nil, {0x71}, {0x72}, {0x73}}, 2}
var packedShiftArithRight = PackedShiftOp{[4][]byte{nil, {0x71}, {0x72}, nil}, 4}

func emitPackedShiftImm(b *codebuf.Buffer, op PackedShiftOp, size ElemSize, dst XMM, imm8 byte) {
	opcode := op.byOpcode[size]
	if opcode == nil {
		panic("amd64: packed shift unsupported at this lane size")
	}
	b.EmitU8(0x66)
	if needsExt(uint8(dst)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0x0F)
	b.EmitBytes(opcode...)
	b.EmitU8(modrm(modDirect, op.ext, uint8(dst)))
	b.EmitU8(imm8)
}

// EmitPackedShiftLeftLogical appends PSLLW/D/Q dst, imm8.
func EmitPackedShiftLeftLogical(b *codebuf.Buffer, size ElemSize, dst XMM, imm8 byte) {
	emitPackedShiftImm(b, packedShiftLogicalLeft, size, dst, imm8)
}

// EmitPackedShiftRightLogical appends PSRLW/D/Q dst, imm8.
func EmitPackedShiftRightLogical(b *codebuf.Buffer, size ElemSize, dst XMM, imm8 byte) {
	emitPackedShiftImm(b, packedShiftLogicalRight, size, dst, imm8)
}

// EmitPackedShiftRightArith appends PSRAW/D dst, imm8. No quadword
// arithmetic-shift form exists pre-AVX512.
func EmitPackedShiftRightArith(b *codebuf.Buffer, size ElemSize, dst XMM, imm8 byte) {
	emitPackedShiftImm(b, packedShiftArithRight, size, dst, imm8)
}

// EmitMovdqa appends MOVDQA dst, [base+disp32]: an aligned 128-bit load.
func EmitMovdqa(b *codebuf.Buffer, dst XMM, base Reg, disp int32) {
	b.EmitU8(0x66)
	if needsExt(uint8(dst)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x6F)
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitMovdqaStore appends MOVDQA [base+disp32], src.
func EmitMovdqaStore(b *codebuf.Buffer, base Reg, disp int32, src XMM) {
	b.EmitU8(0x66)
	if needsExt(uint8(src)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(src)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x7F)
	emitModRMMemDisp32(b, uint8(src), uint8(base), disp)
}

// EmitMovdqu appends MOVDQU dst, [base+disp32]: an unaligned 128-bit load.
func EmitMovdqu(b *codebuf.Buffer, dst XMM, base Reg, disp int32) {
	b.EmitU8(0xF3)
	if needsExt(uint8(dst)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x6F)
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitMovdquStore appends MOVDQU [base+disp32], src.
func EmitMovdquStore(b *codebuf.Buffer, base Reg, disp int32, src XMM) {
	b.EmitU8(0xF3)
	if needsExt(uint8(src)) || needsExt(uint8(base)) {
		b.EmitU8(Rex(false, needsExt(uint8(src)), false, needsExt(uint8(base))))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x7F)
	emitModRMMemDisp32(b, uint8(src), uint8(base), disp)
}

// EmitPshufb appends PSHUFB dst, src (SSSE3 table lookup: each byte lane
// of dst is replaced by dst[src[i] & 0x0F], or zero if src[i] bit 7 is
// set). dst is read as the 16-byte table before being overwritten with
// the result; src supplies the per-lane index bytes.
func EmitPshufb(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0x38, 0x00}, dst, src) }

// EmitPsignB/W/D implement PSIGNB/PSIGNW/PSIGND dst, src (SSSE3): each
// dst lane is negated, zeroed, or kept depending on the sign of the
// corresponding src lane.
func EmitPsignB(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0x38, 0x08}, dst, src) }
func EmitPsignW(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0x38, 0x09}, dst, src) }
func EmitPsignD(b *codebuf.Buffer, dst, src XMM) { emit66XmmXmm(b, []byte{0x38, 0x0A}, dst, src) }

// EmitPinsrb appends PINSRB dst, src(GPR), imm8 (SSE4.1): inserts the low
// byte of src into lane imm8&0xF of dst.
func EmitPinsrb(b *codebuf.Buffer, dst XMM, src Reg, imm8 byte) {
	b.EmitU8(0x66)
	b.EmitU8(Rex(false, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	b.EmitU8(0x0F)
	b.EmitU8(0x3A)
	b.EmitU8(0x20)
	emitModRMReg(b, uint8(dst), uint8(src))
	b.EmitU8(imm8)
}

// EmitPextrb appends PEXTRB dst(GPR), src, imm8 (SSE4.1): extracts lane
// imm8&0xF of src into the low byte of dst, zero-extended.
func EmitPextrb(b *codebuf.Buffer, dst Reg, src XMM, imm8 byte) {
	b.EmitU8(0x66)
	b.EmitU8(Rex(false, needsExt(uint8(src)), false, needsExt(uint8(dst))))
	b.EmitU8(0x0F)
	b.EmitU8(0x3A)
	b.EmitU8(0x14)
	emitModRMReg(b, uint8(src), uint8(dst))
	b.EmitU8(imm8)
}
