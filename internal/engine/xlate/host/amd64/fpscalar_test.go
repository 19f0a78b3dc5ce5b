package amd64

import (
	"testing"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/stretchr/testify/require"
)

func TestEmitMovScalar(t *testing.T) {
	b := codebuf.New(16)
	EmitMovScalar(b, FPSingle, XMM1, XMM2)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0xF3, 0x0F, 0x10, modrm(modDirect, uint8(XMM1), uint8(XMM2))}, out)
}

func TestEmitMovScalarDouble(t *testing.T) {
	b := codebuf.New(16)
	EmitMovScalar(b, FPDouble, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, byte(0xF2), out[0])
}

func TestEmitFPScalarOp(t *testing.T) {
	b := codebuf.New(16)
	EmitFPScalarOp(b, FPDouble, FPAdd, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0xF2, 0x0F, 0x58, modrm(modDirect, uint8(XMM0), uint8(XMM1))}, out)
}

func TestEmitUComiScalarDoubleHasPrefix66(t *testing.T) {
	b := codebuf.New(16)
	EmitUComiScalar(b, FPDouble, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x66, 0x0F, 0x2E, modrm(modDirect, uint8(XMM0), uint8(XMM1))}, out)
}

func TestEmitCvtIntToScalar(t *testing.T) {
	b := codebuf.New(16)
	EmitCvtIntToScalar(b, FPSingle, XMM0, RAX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0xF3, 0x48, 0x0F, 0x2A, modrm(modDirect, uint8(XMM0), uint8(RAX))}, out)
}

func TestEmitCvtPrecision(t *testing.T) {
	b := codebuf.New(16)
	EmitCvtPrecision(b, FPSingle, XMM0, XMM1)
	out, _ := b.Finalize()
	require.Equal(t, byte(0xF3), out[0])
	require.Equal(t, byte(0x5A), out[2])
}

func TestEmitFPBitwiseNoMandatoryPrefixForSingle(t *testing.T) {
	b := codebuf.New(16)
	EmitFPBitwise(b, FPSingle, FPXor, XMM0, XMM0)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x0F, 0x57, modrm(modDirect, uint8(XMM0), uint8(XMM0))}, out)
}
