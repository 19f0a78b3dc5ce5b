package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// EmitMovRegReg appends MOV dst, src (register to register). width64
// selects the 64-bit form; otherwise the 32-bit form is used, which
// zero-extends the upper 32 bits of dst per the host's own ABI rule.
func EmitMovRegReg(b *codebuf.Buffer, dst, src Reg, width64 bool) {
	if width64 {
		b.EmitU8(Rex(true, needsExt(uint8(src)), false, needsExt(uint8(dst))))
	} else if needsExt(uint8(src)) || needsExt(uint8(dst)) {
		b.EmitU8(Rex(false, needsExt(uint8(src)), false, needsExt(uint8(dst))))
	}
	b.EmitU8(0x89) // MOV r/m, r
	emitModRMReg(b, uint8(src), uint8(dst))
}

// EmitMovImm64 appends MOV dst, imm64 (REX.W + B8+rd io).
func EmitMovImm64(b *codebuf.Buffer, dst Reg, imm uint64) {
	b.EmitU8(Rex(true, false, false, needsExt(uint8(dst))))
	b.EmitU8(0xB8 + low3(uint8(dst)))
	b.EmitU64LE(imm)
}

// EmitMovImm32 appends MOV dst, imm32 (32-bit form, zero-extended into the
// full 64-bit register).
func EmitMovImm32(b *codebuf.Buffer, dst Reg, imm uint32) {
	if needsExt(uint8(dst)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0xB8 + low3(uint8(dst)))
	b.EmitU32LE(imm)
}

// EmitLoadMem appends MOV dst, [base + disp32] (register-indirect load,
// 32-bit displacement). width64 selects the 64-bit form.
func EmitLoadMem(b *codebuf.Buffer, dst, base Reg, disp int32, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	b.EmitU8(0x8B) // MOV r, r/m
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitStoreMem appends MOV [base + disp32], src (register-indirect store,
// 32-bit displacement).
func EmitStoreMem(b *codebuf.Buffer, base Reg, disp int32, src Reg, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(src)), false, needsExt(uint8(base))))
	b.EmitU8(0x89) // MOV r/m, r
	emitModRMMemDisp32(b, uint8(src), uint8(base), disp)
}

// ExtWidth names the sub-word width of a sign/zero-extending load.
type ExtWidth uint8

const (
	ExtByte ExtWidth = iota
	ExtWord
	ExtDword
)

// EmitLoadZExt appends a zero-extending load of a byte or half from
// [base+disp32] into dst (MOVZX). Dword zero-extension is just a 32-bit
// MOV, handled by EmitLoadMem(width64=false).
func EmitLoadZExt(b *codebuf.Buffer, dst, base Reg, disp int32, width ExtWidth) {
	b.EmitU8(Rex(true, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	b.EmitU8(0x0F)
	switch width {
	case ExtByte:
		b.EmitU8(0xB6)
	case ExtWord:
		b.EmitU8(0xB7)
	default:
		panic("amd64: EmitLoadZExt: unsupported width")
	}
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitLoadSExt appends a sign-extending load of a byte, half, or word from
// [base+disp32] into dst (MOVSX / MOVSXD).
func EmitLoadSExt(b *codebuf.Buffer, dst, base Reg, disp int32, width ExtWidth) {
	b.EmitU8(Rex(true, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	if width == ExtDword {
		b.EmitU8(0x63) // MOVSXD
		emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
		return
	}
	b.EmitU8(0x0F)
	switch width {
	case ExtByte:
		b.EmitU8(0xBE)
	case ExtWord:
		b.EmitU8(0xBF)
	default:
		panic("amd64: EmitLoadSExt: unsupported width")
	}
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}

// EmitLea appends LEA dst, [base + disp32].
func EmitLea(b *codebuf.Buffer, dst, base Reg, disp int32) {
	b.EmitU8(Rex(true, needsExt(uint8(dst)), false, needsExt(uint8(base))))
	b.EmitU8(0x8D)
	emitModRMMemDisp32(b, uint8(dst), uint8(base), disp)
}
