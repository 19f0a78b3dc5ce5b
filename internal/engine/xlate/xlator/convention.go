// Package xlator implements the per-class translators (spec.md §4.4):
// functions that read a guest encoding and emit host bytes which, at run
// time, reproduce that encoding's register, memory, and flag semantics.
// Translators never interpret the guest instruction themselves — they
// only emit code that will.
//
// Grounded on backend/isa/arm64/lower_instr.go's per-opcode lowering
// switch (one function per guest instruction family, each consulting
// operand fields and appending machine instructions to a builder) and
// other_examples/4d951863_...lower_instr.go.go for the richer ALU/FP
// lowering shapes, adapted from vreg-based register allocation to this
// spec's fixed scratch-register convention (no cross-instruction
// allocator is in scope; spec.md's Non-goals exclude whole-program
// analysis).
package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
)

// StateReg is the host register pinned to the address of the current
// thread's state.State for the lifetime of a translated block. Every
// translator addresses guest registers, vector lanes, and flags through
// memory operands relative to this pointer; nothing here holds a Go
// pointer at emission time, only an offset computed by the state package.
const StateReg = amd64.R15

// Scratch registers available to a translator within a single guest
// instruction's lowering. None of these survive across translator calls;
// the block translator's prologue/epilogue never pins them.
const (
	Scratch1 = amd64.RAX
	Scratch2 = amd64.RCX
	Scratch3 = amd64.RDX
	Scratch4 = amd64.R8
	Scratch5 = amd64.R9
	Scratch6 = amd64.R10
	Scratch7 = amd64.R11
)

// ScratchXMM0/1 are the vector scratch registers available within a
// single guest instruction's lowering.
const (
	ScratchXMM0 = amd64.XMM0
	ScratchXMM1 = amd64.XMM1
)

// Translator is the common shape of every per-class translator
// (spec.md §4.4): given the guest encoding, the code buffer to append to,
// and the guest PC the instruction starts at, append host bytes and
// report whether the instruction was successfully translated. Failure
// means the block translator must finalize the block with an
// undefined-instruction trap.
type Translator func(enc uint32, b *codebuf.Buffer, pc uint64) bool

// loadGuestInt emits code loading guest register n into host register
// dst, or clearing dst to zero for the zero-register index (spec.md §4.4:
// "guest zero-register reads must emit code that produces the constant
// 0").
func loadGuestInt(b *codebuf.Buffer, dst amd64.Reg, n uint32) {
	if n == state.ZeroReg {
		amd64.EmitALURegReg(b, amd64.ALUXor, dst, dst, true)
		return
	}
	amd64.EmitLoadMem(b, dst, StateReg, int32(state.XOffset(n)), true)
}

// storeGuestInt emits code storing host register src into guest register
// n, or nothing at all for the zero-register index (spec.md §4.4: "...
// writes must be suppressed").
func storeGuestInt(b *codebuf.Buffer, n uint32, src amd64.Reg, width64 bool) {
	if n == state.ZeroReg {
		return
	}
	amd64.EmitStoreMem(b, StateReg, int32(state.XOffset(n)), src, width64)
}

// loadGuestScalar emits code loading the low lane of guest vector
// register n into the XMM register dst.
func loadGuestScalar(b *codebuf.Buffer, w amd64.FPWidth, dst amd64.XMM, n uint32) {
	amd64.EmitMovScalarLoad(b, w, dst, StateReg, int32(state.VOffset(n)))
}

// storeGuestScalar emits code storing the XMM register src into the low
// lane of guest vector register n, implicitly zeroing the high lane
// (MOVSS/MOVSD to memory only ever writes the scalar width; the adjoining
// high half in State.V was already zero unless a prior vector write set
// it, which a scalar writer must also clear per spec.md §4.4's "high lane
// zeroed after a scalar write").
func storeGuestScalar(b *codebuf.Buffer, w amd64.FPWidth, n uint32, src amd64.XMM) {
	amd64.EmitMovScalarStore(b, w, StateReg, int32(state.VOffset(n)), src)
	zero := Scratch1
	amd64.EmitALURegReg(b, amd64.ALUXor, zero, zero, true)
	amd64.EmitStoreMem(b, StateReg, int32(state.VOffset(n))+8, zero, true)
}

// loadPC emits code loading the current guest PC into dst, for
// instructions (PC-relative addressing, link-register writes) that need
// it as a runtime value. Most uses instead fold the known translation-
// time pc directly into an immediate; this helper exists for completeness
// against spec.md §4.4's link-register write contract.
func loadPC(b *codebuf.Buffer, dst amd64.Reg) {
	amd64.EmitLoadMem(b, dst, StateReg, int32(state.Offsets.PC), true)
}

// storePC emits code storing a translation-time-known PC value into the
// guest PC field.
func storePC(b *codebuf.Buffer, pc uint64) {
	amd64.EmitMovImm64(b, Scratch7, pc)
	amd64.EmitStoreMem(b, StateReg, int32(state.Offsets.PC), Scratch7, true)
}

// storePCFromReg emits code storing a run-time-computed host register
// value into the guest PC field, used by indirect branches whose target
// is only known once the translated code actually runs.
func storePCFromReg(b *codebuf.Buffer, src amd64.Reg) {
	amd64.EmitStoreMem(b, StateReg, int32(state.Offsets.PC), src, true)
}
