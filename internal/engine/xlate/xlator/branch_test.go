package xlator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
)

func encUncondBranchImm(link bool, simm26 int32) uint32 {
	v := uint32(0x14000000) | (uint32(simm26) & 0x03FFFFFF)
	if link {
		v |= 1 << 31
	}
	return v
}

func encCondBranch(cond uint32, simm19 int32) uint32 {
	return uint32(0x54000000) | (uint32(simm19)&0x7FFFF)<<5 | cond
}

func encCompareAndBranch(sf bool, nz bool, rt uint32, simm19 int32) uint32 {
	v := uint32(0x34000000) | (uint32(simm19)&0x7FFFF)<<5 | rt
	if sf {
		v |= 1 << 31
	}
	if nz {
		v |= 1 << 24
	}
	return v
}

func encUncondBranchReg(opc uint32, rn uint32) uint32 {
	return uint32(0xD6000000) | opc<<21 | 0x1F<<16 | rn<<5
}

func TestTranslateUncondBranchImmB(t *testing.T) {
	b := codebuf.New(256)
	enc := encUncondBranchImm(false, 1) // branch forward one instruction
	ok, exits := TranslateUncondBranchImm(enc, b, 0x1000)
	require.True(t, ok)
	require.Len(t, exits, 1)
	require.Equal(t, ExitDirect, exits[0].Kind)
	require.Equal(t, uint64(0x1004), exits[0].GuestTarget)
}

func TestTranslateUncondBranchImmBLWritesLinkRegister(t *testing.T) {
	b := codebuf.New(256)
	enc := encUncondBranchImm(true, 8)
	ok, exits := TranslateUncondBranchImm(enc, b, 0x2000)
	require.True(t, ok)
	require.Equal(t, uint64(0x2020), exits[0].GuestTarget)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateCondBranchProducesTwoExits(t *testing.T) {
	b := codebuf.New(256)
	enc := encCondBranch(0 /* EQ */, 16)
	ok, exits := TranslateCondBranch(enc, b, 0x3000)
	require.True(t, ok)
	require.Len(t, exits, 2)
	require.Equal(t, ExitConditionalFallthrough, exits[0].Kind)
	require.Equal(t, uint64(0x3004), exits[0].GuestTarget)
	require.Equal(t, ExitConditionalTaken, exits[1].Kind)
	require.Equal(t, uint64(0x3040), exits[1].GuestTarget)
}

func TestTranslateCompareAndBranchCBZ(t *testing.T) {
	b := codebuf.New(256)
	enc := encCompareAndBranch(true, false, 3, 20)
	ok, exits := TranslateCompareAndBranch(enc, b, 0x4000)
	require.True(t, ok)
	require.Len(t, exits, 2)
}

func TestTranslateTestAndBranchTBNZ(t *testing.T) {
	b := codebuf.New(256)
	// TBNZ: base 0x37000000, bit31=b5, bits23:19=b40, b24=1 (TBNZ).
	enc := uint32(0x37000000) | 1<<24 | 5<<19 | 12<<5 | 1
	ok, exits := TranslateTestAndBranch(enc, b, 0x5000)
	require.True(t, ok)
	require.Len(t, exits, 2)
}

func TestTranslateUncondBranchRegRET(t *testing.T) {
	b := codebuf.New(256)
	enc := encUncondBranchReg(2, 30) // RET X30
	ok, exits := TranslateUncondBranchReg(enc, b, 0x6000)
	require.True(t, ok)
	require.Len(t, exits, 1)
	require.Equal(t, ExitReturn, exits[0].Kind)
}

func TestTranslateUncondBranchRegBLR(t *testing.T) {
	b := codebuf.New(256)
	enc := encUncondBranchReg(1, 5) // BLR X5
	ok, exits := TranslateUncondBranchReg(enc, b, 0x7000)
	require.True(t, ok)
	require.Equal(t, ExitIndirect, exits[0].Kind)
}

func TestTranslateSystemCall(t *testing.T) {
	b := codebuf.New(256)
	ok, exits := TranslateSystemCall(0xD4000001, b, 0x8000)
	require.True(t, ok)
	require.Equal(t, ExitSyscall, exits[0].Kind)
	require.Equal(t, uint64(0x8004), exits[0].GuestTarget)
}

func TestTranslateBreakpointOrHalt(t *testing.T) {
	b := codebuf.New(256)
	ok, exits := TranslateBreakpointOrHalt(0xD4200000, b, 0x9000)
	require.True(t, ok)
	require.Equal(t, ExitUndefined, exits[0].Kind)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.Contains(t, string(bytes), "\x0f\x0b") // UD2 trailing bytes present
}
