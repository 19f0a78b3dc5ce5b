package amd64

import (
	"encoding/binary"
	"testing"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/stretchr/testify/require"
)

func TestEmitJmpDisplacement(t *testing.T) {
	b := codebuf.New(16)
	const instrAddr = 0x1000
	const target = 0x2000
	ok := EmitJmp(b, instrAddr, target)
	require.True(t, ok)
	out, _ := b.Finalize()
	require.Equal(t, byte(0xE9), out[0])
	got := int32(binary.LittleEndian.Uint32(out[1:5]))
	require.Equal(t, int32(target-instrAddr-5), got)
}

func TestEmitJccDisplacement(t *testing.T) {
	b := codebuf.New(16)
	const instrAddr = 0x4000
	const target = 0x3000
	ok := EmitJcc(b, CondE, instrAddr, target)
	require.True(t, ok)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x0F, 0x80 | byte(CondE)}, out[:2])
	got := int32(binary.LittleEndian.Uint32(out[EmitJccDisplacementOffset:EmitJccDisplacementOffset+4]))
	require.Equal(t, int32(int64(target)-int64(instrAddr)-6), got)
}

func TestEmitJmpOutOfRangeFails(t *testing.T) {
	b := codebuf.New(16)
	ok := EmitJmp(b, 0, 1<<40)
	require.False(t, ok)
	require.Equal(t, 0, b.Len())
}

func TestEmitCallRel32Displacement(t *testing.T) {
	b := codebuf.New(16)
	ok := EmitCallRel32(b, 100, 50)
	require.True(t, ok)
	out, _ := b.Finalize()
	require.Equal(t, byte(0xE8), out[0])
	got := int32(binary.LittleEndian.Uint32(out[1:5]))
	require.Equal(t, int32(50-100-5), got)
}

func TestEmitRetAndTraps(t *testing.T) {
	b := codebuf.New(16)
	EmitRet(b)
	EmitInt3(b)
	EmitUD2(b)
	EmitNop(b)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0xC3, 0xCC, 0x0F, 0x0B, 0x90}, out)
}

func TestEmitCMovRegReg(t *testing.T) {
	b := codebuf.New(16)
	EmitCMovRegReg(b, CondNE, RAX, RCX, true)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x48, 0x0F, 0x40 | byte(CondNE), modrm(modDirect, uint8(RAX), uint8(RCX))}, out)
}

func TestEmitJmpReg(t *testing.T) {
	b := codebuf.New(16)
	EmitJmpReg(b, RAX)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0xFF, modrm(modDirect, 4, uint8(RAX))}, out)
}

func TestEmitSetccReg(t *testing.T) {
	b := codebuf.New(16)
	EmitSetccReg(b, CondG, RAX)
	out, _ := b.Finalize()
	require.Equal(t, []byte{0x0F, 0x90 | byte(CondG), modrm(modDirect, 0, uint8(RAX))}, out)
}
