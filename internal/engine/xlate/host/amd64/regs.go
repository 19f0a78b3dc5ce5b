// Package amd64 is the host emitter (spec.md §4.2): one function per
// supported host mnemonic, each appending the exact bytes of that
// instruction to a codebuf.Buffer. This package knows nothing about the
// guest ISA; callers (internal/engine/xlate/xlator) hand it typed operand
// fields and get back machine code.
//
// Grounded on the non-SSA wazero amd64 JIT's register/opcode conventions
// (reserved scratch registers, REX/ModRM construction) and the wazevo
// amd64 backend's patch-point bookkeeping, adapted from an external
// assembler builder (golang-asm) and a virtual-register backend,
// respectively, into direct byte emission against codebuf.Buffer.
package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// Reg is a host general-purpose register, RAX..R15.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// XMM is a host SSE/SSE2 vector register, XMM0..XMM15.
type XMM uint8

const (
	XMM0 XMM = iota
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

// low3 returns the low 3 bits of a register encoding (the modrm/opcode
// reg field; REX.R/X/B supplies the 4th bit).
func low3(r uint8) byte { return byte(r & 0x7) }

// needsExt reports whether r requires a REX extension bit (r8..r15).
func needsExt(r uint8) bool { return r&0x8 != 0 }

// Rex builds a raw REX prefix byte: W selects 64-bit operand size, R/X/B
// extend the ModRM.reg, SIB.index, and ModRM.rm/SIB.base fields
// respectively. Exposed directly as EmitREX for callers that hand-build an
// instruction (spec.md §4.2).
func Rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if b {
		v |= 1 << 0
	}
	return v
}

// EmitREX appends a raw REX prefix byte, for callers that hand-build an
// instruction (spec.md §4.2 "Raw REX prefix").
func EmitREX(b *codebuf.Buffer, w, r, x, bb bool) {
	b.EmitU8(Rex(w, r, x, bb))
}

// modrm builds a ModRM byte for the common "register-direct" addressing
// mode (mod=11): reg is the opcode-extension or source/dest register
// field, rm is the other operand register.
func modrm(mod byte, reg, rm uint8) byte {
	return mod<<6 | low3(reg)<<3 | low3(rm)
}

const modDirect = 0b11
const modDisp32 = 0b10
const modDisp0 = 0b00

// needsSIB reports whether rm, used as a memory base register, requires a
// SIB byte (RSP and R12 cannot be encoded as a bare ModRM.rm base).
func needsSIB(base uint8) bool { return low3(base) == low3(uint8(RSP)) }

// sibNoIndex builds a SIB byte with scale=1 and no index, used only to carry a
// RSP/R12 base through a disp32 addressing form.
func sibNoIndex(base uint8) byte {
	return 0<<6 | low3(uint8(RSP))<<3 | low3(base)
}

// emitModRMReg emits the ModRM byte for a register-direct operand pair
// (no SIB is ever needed). The caller must already have folded the
// REX.R/REX.B extension bits into its REX prefix.
func emitModRMReg(b *codebuf.Buffer, reg, rm uint8) {
	b.EmitU8(modrm(modDirect, reg, rm))
}

// emitModRMMemDisp32 emits a ModRM (+ SIB if needed) + disp32 for
// "[base + disp32]" addressing with reg as the other operand (source or
// dest register, or an opcode extension).
func emitModRMMemDisp32(b *codebuf.Buffer, reg, base uint8, disp int32) {
	mod := byte(modDisp32)
	if disp == 0 && low3(base) != low3(uint8(RBP)) {
		mod = modDisp0
	}
	b.EmitU8(mod<<6 | low3(reg)<<3 | low3(base))
	if needsSIB(base) {
		b.EmitU8(sibNoIndex(base))
	}
	if mod != modDisp0 {
		b.EmitU32LE(uint32(disp))
	}
}
