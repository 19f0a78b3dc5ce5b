package amd64

import (
	"testing"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/stretchr/testify/require"
)

func TestEmitPackedAdd(t *testing.T) {
	b := codebuf.New(16)
	EmitPackedAdd(b, Elem32, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0xFE, modrm(modDirect, uint8(XMM0), uint8(XMM1))}, out)
}

func TestEmitPackedCmpEqNoQuadwordForm(t *testing.T) {
	b := codebuf.New(16)
	require.Panics(t, func() { EmitPackedCmpEq(b, Elem64, XMM0, XMM1) })
}

func TestEmitPXorSelfZeroesRegister(t *testing.T) {
	b := codebuf.New(16)
	EmitPXor(b, XMM0, XMM0)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0xEF, modrm(modDirect, uint8(XMM0), uint8(XMM0))}, out)
}

func TestEmitPackedShiftLeftLogical(t *testing.T) {
	b := codebuf.New(16)
	EmitPackedShiftLeftLogical(b, Elem16, XMM2, 3)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0x71, modrm(modDirect, 6, uint8(XMM2)), 3}, out)
}

func TestEmitMovdqaLoad(t *testing.T) {
	b := codebuf.New(16)
	EmitMovdqa(b, XMM0, RDI, 0x10)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0x6F}, out[:3])
}

func TestEmitPshufb(t *testing.T) {
	b := codebuf.New(16)
	EmitPshufb(b, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0x38, 0x00, modrm(modDirect, uint8(XMM0), uint8(XMM1))}, out)
}

func TestEmitPinsrb(t *testing.T) {
	b := codebuf.New(16)
	EmitPinsrb(b, XMM0, RAX, 5)
	out, _ := b.Finalize()
	require.Equal(t, byte(5), out[len(out)-1])
}
