package amd64

import (
	"testing"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/stretchr/testify/require"
)

func TestEmitALURegReg(t *testing.T) {
	b := codebuf.New(16)
	EmitALURegReg(b, ALUAdd, RCX, RAX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x01, modrm(modDirect, uint8(RAX), uint8(RCX))}, out)
}

func TestEmitALURegImm32(t *testing.T) {
	b := codebuf.New(16)
	EmitALURegImm32(b, ALUSub, RAX, 10, true)
	out, _ := b.Finalize()
	require.Equal(t, byte(0x48), out[0])
	require.Equal(t, byte(0x81), out[1])
	require.Equal(t, modrm(modDirect, immExtension[ALUSub], uint8(RAX)), out[2])
	require.Equal(t, []byte{10, 0, 0, 0}, out[3:])
}

func TestEmitNotNeg(t *testing.T) {
	b := codebuf.New(16)
	EmitNot(b, RAX, true)
	EmitNeg(b, RAX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{
		0x48, 0xF7, modrm(modDirect, 2, uint8(RAX)),
		0x48, 0xF7, modrm(modDirect, 3, uint8(RAX)),
	}, out)
}

func TestEmitIMul(t *testing.T) {
	b := codebuf.New(16)
	EmitIMul(b, RCX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0xF7, modrm(modDirect, 5, uint8(RCX))}, out)
}

func TestEmitShiftImm(t *testing.T) {
	b := codebuf.New(16)
	EmitShiftImm(b, ShiftSHL, RAX, 4, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0xC1, modrm(modDirect, byte(ShiftSHL), uint8(RAX)), 4}, out)
}

func TestEmitShiftCL(t *testing.T) {
	b := codebuf.New(16)
	EmitShiftCL(b, ShiftSAR, RDX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0xD3, modrm(modDirect, byte(ShiftSAR), uint8(RDX))}, out)
}

func TestEmitCmpRegReg(t *testing.T) {
	b := codebuf.New(16)
	EmitCmpRegReg(b, RAX, RCX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x39, modrm(modDirect, uint8(RCX), uint8(RAX))}, out)
}

func TestEmitCmpRegImm32(t *testing.T) {
	b := codebuf.New(16)
	EmitCmpRegImm32(b, RAX, 0xFF, true)
	out, _ := b.Finalize()
	require.Equal(t, byte(0x81), out[1])
	require.Equal(t, modrm(modDirect, 7, uint8(RAX)), out[2])
}

func TestEmitTestRegReg(t *testing.T) {
	b := codebuf.New(16)
	EmitTestRegReg(b, RAX, RAX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x85, modrm(modDirect, uint8(RAX), uint8(RAX))}, out)
}
