package xlator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
)

func encFPDataProc2Source(ftype, opcode, rd, rn, rm uint32) uint32 {
	return uint32(0x1E200800) | ftype<<22 | rm<<16 | opcode<<12 | rn<<5 | rd
}

func encFPDataProc1Source(ftype, opcode, rd, rn uint32) uint32 {
	return uint32(0x1E200000) | ftype<<22 | opcode<<15 | rn<<5 | rd
}

func encFPCompare(ftype, rn, rm uint32) uint32 {
	return uint32(0x1E202000) | ftype<<22 | rm<<16 | rn<<5
}

func encFPCondSelect(ftype, cond, rd, rn, rm uint32) uint32 {
	return uint32(0x1E200C00) | ftype<<22 | rm<<16 | cond<<12 | rn<<5 | rd
}

func encFPConvertToInt(sf bool, ftype, rmode, opcode, rd, rn uint32) uint32 {
	v := uint32(0x1E200000) | 1<<21 | ftype<<22 | rmode<<19 | opcode<<16 | rn<<5 | rd
	if sf {
		v |= 1 << 31
	}
	return v
}

func TestTranslateFPDataProc2SourceFADD(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPDataProc2Source(0, 0b0010, 0, 1, 2) // single-precision FADD
	ok := TranslateFPDataProc2Source(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateFPDataProc2SourceDoubleFDIV(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPDataProc2Source(1, 0b0001, 0, 1, 2)
	ok := TranslateFPDataProc2Source(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPDataProc1SourceFSQRT(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPDataProc1Source(0, 0b000011, 0, 1)
	ok := TranslateFPDataProc1Source(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPDataProc1SourceFNEG(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPDataProc1Source(0, 0b000010, 0, 1)
	ok := TranslateFPDataProc1Source(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateFPDataProc1SourceFCVTWidening(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPDataProc1Source(0, 0b000101, 0, 1) // single -> double
	ok := TranslateFPDataProc1Source(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPCompare(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPCompare(0, 1, 2)
	ok := TranslateFPCompare(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateFPCondSelect(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPCondSelect(0, 0 /* EQ */, 0, 1, 2)
	ok := TranslateFPCondSelect(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateFPConvertToIntSCVTF(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPConvertToInt(true, 0, 0b00, 0b010, 0, 1)
	ok := TranslateFPConvertToInt(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPConvertToIntFCVTZS(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPConvertToInt(true, 0, 0b11, 0b000, 0, 1)
	ok := TranslateFPConvertToInt(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPConvertToIntFMOVGeneralFromScalar(t *testing.T) {
	b := codebuf.New(256)
	enc := encFPConvertToInt(true, 0, 0b00, 0b110, 0, 1)
	ok := TranslateFPConvertToInt(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateFPFusedMulAddFMADD(t *testing.T) {
	b := codebuf.New(256)
	enc := uint32(0x1F000000) | 2<<16 /* rm */ | 3<<10 /* ra */ | 1<<5 | 0
	ok := TranslateFPFusedMulAdd(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateFPFusedMulAddFNMSUB(t *testing.T) {
	b := codebuf.New(256)
	enc := uint32(0x1F000000) | 1<<21 /* negate product */ | 1<<15 /* negate addend */ | 2<<16 | 3<<10 | 1<<5 | 0
	ok := TranslateFPFusedMulAdd(enc, b, 0)
	require.True(t, ok)
}
