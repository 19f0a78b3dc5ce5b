package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
)

// emitEvalGuestCond emits code that reloads the guest's packed NZCV from
// State (never the host's EFLAGS, which may have been clobbered by any
// register load since the last flag-setting translator ran) and leaves a
// 0/1 truth value for cond in nCond, matching arm64.Eval's boolean
// formula lane for lane. Callers test the result with
// EmitTestRegReg(b, nCond, nCond, false) followed by a CondNE/CondE jump.
func emitEvalGuestCond(b *codebuf.Buffer, cond arm64.Cond) (result amd64.Reg) {
	n, z, c, v := Scratch2, Scratch3, Scratch4, Scratch5
	amd64.EmitLoadMem(b, Scratch1, StateReg, int32(state.Offsets.Nzcv), false)
	extractBit := func(dst amd64.Reg, bit byte) {
		amd64.EmitMovRegReg(b, dst, Scratch1, false)
		amd64.EmitShiftImm(b, amd64.ShiftSHR, dst, bit, false)
		amd64.EmitALURegImm32(b, amd64.ALUAnd, dst, 1, false)
	}
	extractBit(n, state.FlagN)
	extractBit(z, state.FlagZ)
	extractBit(c, state.FlagC)
	extractBit(v, state.FlagV)

	switch cond {
	case arm64.CondEQ:
		return z
	case arm64.CondNE:
		amd64.EmitALURegImm32(b, amd64.ALUXor, z, 1, false)
		return z
	case arm64.CondCS:
		return c
	case arm64.CondCC:
		amd64.EmitALURegImm32(b, amd64.ALUXor, c, 1, false)
		return c
	case arm64.CondMI:
		return n
	case arm64.CondPL:
		amd64.EmitALURegImm32(b, amd64.ALUXor, n, 1, false)
		return n
	case arm64.CondVS:
		return v
	case arm64.CondVC:
		amd64.EmitALURegImm32(b, amd64.ALUXor, v, 1, false)
		return v
	case arm64.CondHI: // C==1 && Z==0
		amd64.EmitALURegImm32(b, amd64.ALUXor, z, 1, false) // z := !z
		amd64.EmitALURegReg(b, amd64.ALUAnd, c, z, false)
		return c
	case arm64.CondLS: // !(C==1 && Z==0)
		amd64.EmitALURegImm32(b, amd64.ALUXor, z, 1, false)
		amd64.EmitALURegReg(b, amd64.ALUAnd, c, z, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, c, 1, false)
		return c
	case arm64.CondGE: // N==V
		amd64.EmitALURegReg(b, amd64.ALUXor, n, v, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, n, 1, false)
		return n
	case arm64.CondLT: // N!=V
		amd64.EmitALURegReg(b, amd64.ALUXor, n, v, false)
		return n
	case arm64.CondGT: // Z==0 && N==V
		amd64.EmitALURegReg(b, amd64.ALUXor, n, v, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, n, 1, false) // n := N==V
		amd64.EmitALURegImm32(b, amd64.ALUXor, z, 1, false) // z := !Z
		amd64.EmitALURegReg(b, amd64.ALUAnd, n, z, false)
		return n
	case arm64.CondLE: // !(Z==0 && N==V)
		amd64.EmitALURegReg(b, amd64.ALUXor, n, v, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, n, 1, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, z, 1, false)
		amd64.EmitALURegReg(b, amd64.ALUAnd, n, z, false)
		amd64.EmitALURegImm32(b, amd64.ALUXor, n, 1, false)
		return n
	default: // AL, NV
		amd64.EmitMovImm32(b, n, 1)
		return n
	}
}
