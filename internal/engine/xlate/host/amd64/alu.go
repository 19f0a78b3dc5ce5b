package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// ALUOp identifies a two-operand integer ALU operation.
type ALUOp uint8

const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
)

// regRegOpcode is the "r/m, r" (destination-is-rm) opcode for each ALUOp,
// used by EmitALURegReg.
var regRegOpcode = [...]byte{ALUAdd: 0x01, ALUSub: 0x29, ALUAnd: 0x21, ALUOr: 0x09, ALUXor: 0x31}

// immExtension is the ModRM.reg opcode-extension digit used by the 81 /n
// "r/m, imm32" forms, per operation.
var immExtension = [...]byte{ALUAdd: 0, ALUSub: 5, ALUAnd: 4, ALUOr: 1, ALUXor: 6}

// EmitALURegReg appends op dst, src (register-to-register), e.g.
// ADD dst, src. width64 selects the 64-bit form.
func EmitALURegReg(b *codebuf.Buffer, op ALUOp, dst, src Reg, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(src)), false, needsExt(uint8(dst))))
	b.EmitU8(regRegOpcode[op])
	emitModRMReg(b, uint8(src), uint8(dst))
}

// EmitALURegImm32 appends op dst, imm32 (register to 32-bit immediate).
func EmitALURegImm32(b *codebuf.Buffer, op ALUOp, dst Reg, imm uint32, width64 bool) {
	b.EmitU8(Rex(width64, false, false, needsExt(uint8(dst))))
	b.EmitU8(0x81)
	b.EmitU8(modrm(modDirect, immExtension[op], uint8(dst)))
	b.EmitU32LE(imm)
}

// EmitNot appends NOT dst (one's complement, F7 /2).
func EmitNot(b *codebuf.Buffer, dst Reg, width64 bool) {
	emitF7Unary(b, 2, dst, width64)
}

// EmitNeg appends NEG dst (two's complement negate, F7 /3).
func EmitNeg(b *codebuf.Buffer, dst Reg, width64 bool) {
	emitF7Unary(b, 3, dst, width64)
}

// EmitMul appends MUL dst (unsigned multiply RDX:RAX = RAX * dst, F7 /4).
func EmitMul(b *codebuf.Buffer, src Reg, width64 bool) {
	emitF7Unary(b, 4, src, width64)
}

// EmitIMul appends IMUL dst (signed multiply RDX:RAX = RAX * dst, F7 /5).
func EmitIMul(b *codebuf.Buffer, src Reg, width64 bool) {
	emitF7Unary(b, 5, src, width64)
}

// EmitDiv appends DIV src (unsigned divide RDX:RAX / src, F7 /6).
func EmitDiv(b *codebuf.Buffer, src Reg, width64 bool) {
	emitF7Unary(b, 6, src, width64)
}

// EmitIDiv appends IDIV src (signed divide RDX:RAX / src, F7 /7).
func EmitIDiv(b *codebuf.Buffer, src Reg, width64 bool) {
	emitF7Unary(b, 7, src, width64)
}

// EmitCdqCqo appends CDQ (32-bit: sign-extend EAX into EDX:EAX) or CQO
// (64-bit: sign-extend RAX into RDX:RAX), the RDX setup a signed IDIV
// requires; zeroing RDX instead is only correct for a non-negative
// dividend.
func EmitCdqCqo(b *codebuf.Buffer, width64 bool) {
	if width64 {
		b.EmitU8(Rex(true, false, false, false))
	}
	b.EmitU8(0x99)
}

func emitF7Unary(b *codebuf.Buffer, ext byte, reg Reg, width64 bool) {
	b.EmitU8(Rex(width64, false, false, needsExt(uint8(reg))))
	b.EmitU8(0xF7)
	b.EmitU8(modrm(modDirect, ext, uint8(reg)))
}

// ShiftOp identifies a shift/rotate operation, keyed to the C1/D3 opcode
// extension digit.
type ShiftOp uint8

const (
	ShiftROL ShiftOp = 0
	ShiftROR ShiftOp = 1
	ShiftSHL ShiftOp = 4
	ShiftSHR ShiftOp = 5
	ShiftSAR ShiftOp = 7
)

// EmitShiftImm appends op dst, imm8 (C1 /n ib).
func EmitShiftImm(b *codebuf.Buffer, op ShiftOp, dst Reg, imm8 byte, width64 bool) {
	b.EmitU8(Rex(width64, false, false, needsExt(uint8(dst))))
	b.EmitU8(0xC1)
	b.EmitU8(modrm(modDirect, byte(op), uint8(dst)))
	b.EmitU8(imm8)
}

// EmitShiftCL appends op dst, CL (D3 /n), shifting by the count in CL. The
// host masks the count to the operand width, matching "shifts by register
// use the count modulo the operand width" (spec.md §4.4) for the 64-bit
// form; callers targeting a 32-bit guest shift must mask the count
// themselves before loading it into CL if the guest's modulus differs.
func EmitShiftCL(b *codebuf.Buffer, op ShiftOp, dst Reg, width64 bool) {
	b.EmitU8(Rex(width64, false, false, needsExt(uint8(dst))))
	b.EmitU8(0xD3)
	b.EmitU8(modrm(modDirect, byte(op), uint8(dst)))
}

// EmitCmpRegReg appends CMP a, b (39 /r; sets flags from a-b, discards
// result).
func EmitCmpRegReg(b *codebuf.Buffer, a, bReg Reg, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(bReg)), false, needsExt(uint8(a))))
	b.EmitU8(0x39)
	emitModRMReg(b, uint8(bReg), uint8(a))
}

// EmitCmpRegImm32 appends CMP a, imm32 (81 /7 id).
func EmitCmpRegImm32(b *codebuf.Buffer, a Reg, imm uint32, width64 bool) {
	b.EmitU8(Rex(width64, false, false, needsExt(uint8(a))))
	b.EmitU8(0x81)
	b.EmitU8(modrm(modDirect, 7, uint8(a)))
	b.EmitU32LE(imm)
}

// EmitTestRegReg appends TEST a, b (85 /r; bitwise AND without writeback).
func EmitTestRegReg(b *codebuf.Buffer, a, bReg Reg, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(bReg)), false, needsExt(uint8(a))))
	b.EmitU8(0x85)
	emitModRMReg(b, uint8(bReg), uint8(a))
}
