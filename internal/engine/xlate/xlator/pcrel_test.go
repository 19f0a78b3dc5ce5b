package xlator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
)

func encADR(imm int32, rd uint32) uint32 {
	immlo := uint32(imm) & 0b11
	immhi := (uint32(imm) >> 2) & 0x7FFFF
	return uint32(0x10000000) | immlo<<29 | immhi<<5 | rd
}

func encADRP(imm int32, rd uint32) uint32 {
	return encADR(imm, rd) | 1<<31
}

func TestImmhiloRoundTrips(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 1000, -1000, 1 << 19, -(1 << 19)} {
		enc := encADR(v, 0)
		require.Equal(t, int64(v), immhilo(arm64.Insn(enc)))
	}
}

func TestTranslatePCRelAddrADR(t *testing.T) {
	b := codebuf.New(256)
	enc := encADR(16, 5)
	ok := TranslatePCRelAddr(enc, b, 0x1000)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslatePCRelAddrADRP(t *testing.T) {
	b := codebuf.New(256)
	enc := encADRP(1, 5) // 1 page forward
	ok := TranslatePCRelAddr(enc, b, 0x1008)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}
