package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// Cond is a host x86 condition code, used to select Jcc/CMOVcc/SETcc
// opcodes. The low nibble matches the x86 condition-code encoding
// directly (0x0=O .. 0xF=G).
type Cond uint8

const (
	CondO  Cond = 0x0
	CondNO Cond = 0x1
	CondB  Cond = 0x2 // CF=1 (unsigned <)
	CondAE Cond = 0x3 // CF=0 (unsigned >=)
	CondE  Cond = 0x4
	CondNE Cond = 0x5
	CondBE Cond = 0x6 // unsigned <=
	CondA  Cond = 0x7 // unsigned >
	CondS  Cond = 0x8
	CondNS Cond = 0x9
	CondP  Cond = 0xA
	CondNP Cond = 0xB
	CondL  Cond = 0xC // signed <
	CondGE Cond = 0xD // signed >=
	CondLE Cond = 0xE // signed <=
	CondG  Cond = 0xF // signed >
)

// rel32 computes target - instrAddr - instLen and reports whether it fits
// in a signed 32-bit displacement (spec.md §4.2/§8: out-of-range
// displacements are a reported failure, never a silent truncation).
func rel32(instrAddr, target uint64, instLen uint32) (int32, bool) {
	d := int64(target) - int64(instrAddr) - int64(instLen)
	if d < -(1 << 31) || d > (1<<31)-1 {
		return 0, false
	}
	return int32(d), true
}

// EmitJmp appends an unconditional near JMP rel32 (E9 cd) targeting the
// host address target, given the address instrAddr at which this
// instruction itself will begin once the buffer is mapped. Reports false
// without emitting anything if the displacement does not fit 32 bits.
func EmitJmp(b *codebuf.Buffer, instrAddr, target uint64) bool {
	d, ok := rel32(instrAddr, target, 5)
	if !ok {
		return false
	}
	b.EmitU8(0xE9)
	b.EmitU32LE(uint32(d))
	return true
}

// EmitJccDisplacementOffset is the byte offset, relative to the start of
// the instruction emitted by EmitJcc, at which the rel32 field begins.
const EmitJccDisplacementOffset = 2

// EmitJmpDisplacementOffset is the byte offset, relative to the start of
// the instruction emitted by EmitJmp, at which the rel32 field begins.
const EmitJmpDisplacementOffset = 1

// EmitJcc appends a near Jcc rel32 (0F 8x cd, 6 bytes).
func EmitJcc(b *codebuf.Buffer, cond Cond, instrAddr, target uint64) bool {
	d, ok := rel32(instrAddr, target, 6)
	if !ok {
		return false
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x80 | byte(cond))
	b.EmitU32LE(uint32(d))
	return true
}

// EmitCallRel32 appends a near CALL rel32 (E8 cd).
func EmitCallRel32(b *codebuf.Buffer, instrAddr, target uint64) bool {
	d, ok := rel32(instrAddr, target, 5)
	if !ok {
		return false
	}
	b.EmitU8(0xE8)
	b.EmitU32LE(uint32(d))
	return true
}

// EmitCallReg appends an indirect CALL r/m64 (FF /2).
func EmitCallReg(b *codebuf.Buffer, target Reg) {
	if needsExt(uint8(target)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0xFF)
	b.EmitU8(modrm(modDirect, 2, uint8(target)))
}

// EmitJmpReg appends an indirect JMP r/m64 (FF /4), used for guest
// register-indirect branches (BR/BLR/RET lowering).
func EmitJmpReg(b *codebuf.Buffer, target Reg) {
	if needsExt(uint8(target)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0xFF)
	b.EmitU8(modrm(modDirect, 4, uint8(target)))
}

// EmitRet appends a near RET (C3).
func EmitRet(b *codebuf.Buffer) { b.EmitU8(0xC3) }

// EmitCMovRegReg appends CMOVcc dst, src (0F 4x /r).
func EmitCMovRegReg(b *codebuf.Buffer, cond Cond, dst, src Reg, width64 bool) {
	b.EmitU8(Rex(width64, needsExt(uint8(dst)), false, needsExt(uint8(src))))
	b.EmitU8(0x0F)
	b.EmitU8(0x40 | byte(cond))
	emitModRMReg(b, uint8(dst), uint8(src))
}

// EmitSetccReg appends SETcc dst8 (0F 9x /0), writing a 0/1 byte into the
// low 8 bits of dst.
func EmitSetccReg(b *codebuf.Buffer, cond Cond, dst Reg) {
	if needsExt(uint8(dst)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0x0F)
	b.EmitU8(0x90 | byte(cond))
	b.EmitU8(modrm(modDirect, 0, uint8(dst)))
}

// EmitNop appends a single-byte NOP (90).
func EmitNop(b *codebuf.Buffer) { b.EmitU8(0x90) }

// EmitInt3 appends a breakpoint trap (CC). The undefined-instruction and
// BRK/HLT trap stubs use EmitUD2, not this.
func EmitInt3(b *codebuf.Buffer) { b.EmitU8(0xCC) }

// EmitUD2 appends an illegal-instruction trap (0F 0B), used to terminate
// a block on guest decode failure so execution faults loudly instead of
// falling through into garbage.
func EmitUD2(b *codebuf.Buffer) {
	b.EmitU8(0x0F)
	b.EmitU8(0x0B)
}
