package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
)

// emitCaptureNZCVFromHost emits code that reads the host condition codes
// set by the immediately preceding host instruction and packs them into
// guest NZCV layout (N=31, Z=30, C=29, V=28), storing the result into
// State.Nzcv. Must be emitted directly after the flag-setting host
// instruction, before any other instruction that would clobber EFLAGS.
//
// arithWithCarry selects which host condition supplies guest C/V: ALU
// add/sub forms read CF/OF directly (host and guest share the same
// add/sub carry-out and signed-overflow semantics); logical forms instead
// clear C and V per spec.md §4.4 ("clear C and V for logical
// operations") and only N/Z are captured from the host.
func emitCaptureNZCVFromHost(b *codebuf.Buffer, arithWithCarry bool) {
	n, z, c, v := Scratch2, Scratch3, Scratch4, Scratch5
	amd64.EmitSetccReg(b, amd64.CondS, n)
	amd64.EmitSetccReg(b, amd64.CondE, z)
	if arithWithCarry {
		amd64.EmitSetccReg(b, amd64.CondB, c)
		amd64.EmitSetccReg(b, amd64.CondO, v)
	} else {
		amd64.EmitALURegReg(b, amd64.ALUXor, c, c, true)
		amd64.EmitALURegReg(b, amd64.ALUXor, v, v, true)
	}
	amd64.EmitShiftImm(b, amd64.ShiftSHL, n, state.FlagN, false)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, z, state.FlagZ, false)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, c, state.FlagC, false)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, v, state.FlagV, false)
	amd64.EmitALURegReg(b, amd64.ALUOr, n, z, false)
	amd64.EmitALURegReg(b, amd64.ALUOr, n, c, false)
	amd64.EmitALURegReg(b, amd64.ALUOr, n, v, false)
	amd64.EmitStoreMem(b, StateReg, int32(state.Offsets.Nzcv), n, false)
}

// emitCaptureNZCVFromScalarCompare emits code packing the host flags set
// by a scalar UCOMISS/UCOMISD into guest NZCV, following the guest's
// IEEE-ordering convention: unordered maps to C=1, V=1 (spec.md §4.4's
// floating-point compare contract). UCOMISS/UCOMISD set ZF/PF/CF exactly
// as: unordered -> ZF=CF=PF=1; greater -> all clear; less -> CF=1; equal
// -> ZF=1. PF=1 iff unordered, so the guest's V bit tracks PF and C tracks
// CF directly; N is always clear (the host compare never sets SF) and Z
// tracks ZF.
func emitCaptureNZCVFromScalarCompare(b *codebuf.Buffer) {
	z, c, v := Scratch2, Scratch3, Scratch4
	amd64.EmitSetccReg(b, amd64.CondE, z)
	amd64.EmitSetccReg(b, amd64.CondB, c)
	amd64.EmitSetccReg(b, amd64.CondP, v)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, z, state.FlagZ, false)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, c, state.FlagC, false)
	amd64.EmitShiftImm(b, amd64.ShiftSHL, v, state.FlagV, false)
	amd64.EmitALURegReg(b, amd64.ALUOr, z, c, false)
	amd64.EmitALURegReg(b, amd64.ALUOr, z, v, false)
	amd64.EmitStoreMem(b, StateReg, int32(state.Offsets.Nzcv), z, false)
}
