package amd64

import (
	"testing"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/stretchr/testify/require"
)

func TestEmitMovRegReg64(t *testing.T) {
	b := codebuf.New(16)
	EmitMovRegReg(b, RCX, RAX, true)
	out, overflow := b.Finalize()
	require.False(t, overflow)
	// REX.W (0x48) + 89 /r (src=RAX=0 reg field, dst=RCX=1 rm field)
	require.Equal(t, []byte{0x48, 0x89, modrm(modDirect, uint8(RAX), uint8(RCX))}, out)
}

func TestEmitMovRegRegExtended(t *testing.T) {
	b := codebuf.New(16)
	EmitMovRegReg(b, R8, R15, true)
	out, _ := b.Finalize()
	require.Equal(t, byte(0x4D), out[0]) // REX.W|R|B
	require.Equal(t, byte(0x89), out[1])
}

func TestEmitMovImm64(t *testing.T) {
	b := codebuf.New(16)
	EmitMovImm64(b, RAX, 0x1122334455667788)
	out, _ := b.Finalize()
	require.Equal(t, byte(0x48), out[0])
	require.Equal(t, byte(0xB8), out[1])
	require.Len(t, out, 10)
	require.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, out[2:])
}

func TestEmitMovImm32(t *testing.T) {
	b := codebuf.New(16)
	EmitMovImm32(b, RDX, 0xAABBCCDD)
	out, _ := b.Finalize()
	require.Equal(t, byte(0xB8+2), out[0])
	require.Equal(t, []byte{0xDD, 0xCC, 0xBB, 0xAA}, out[1:])
}

func TestEmitLoadMemDisp32(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadMem(b, RAX, RDI, 0x40, true)
	out, _ := b.Finalize()
	require.Equal(t, byte(0x48), out[0])
	require.Equal(t, byte(0x8B), out[1])
	require.Equal(t, []byte{0x40, 0, 0, 0}, out[3:])
}

func TestEmitLoadMemZeroDisp(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadMem(b, RAX, RDI, 0, true)
	out, _ := b.Finalize()
	require.Len(t, out, 3) // REX + opcode + modrm, no disp32
}

func TestEmitLoadMemRBPBaseForcesDisp32(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadMem(b, RAX, RBP, 0, true)
	out, _ := b.Finalize()
	require.Len(t, out, 7) // disp32 emitted even though displacement is zero
}

func TestEmitLoadMemRSPBaseNeedsSIB(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadMem(b, RAX, RSP, 8, true)
	out, _ := b.Finalize()
	require.Len(t, out, 8) // REX + opcode + modrm + sib + disp32
}

func TestEmitLoadZExtByte(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadZExt(b, RAX, RDI, 0, ExtByte)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x0F, 0xB6}, out[:3])
}

func TestEmitLoadSExtDwordUsesMovsxd(t *testing.T) {
	b := codebuf.New(16)
	EmitLoadSExt(b, RAX, RDI, 0, ExtDword)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x63}, out[:2])
}

func TestEmitLoadZExtDwordPanics(t *testing.T) {
	b := codebuf.New(16)
	require.Panics(t, func() { EmitLoadZExt(b, RAX, RDI, 0, ExtDword) })
}

func TestEmitLea(t *testing.T) {
	b := codebuf.New(16)
	EmitLea(b, RAX, RDI, 0x10)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x8D}, out[:2])
}
