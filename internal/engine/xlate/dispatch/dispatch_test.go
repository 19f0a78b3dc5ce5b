package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/xlator"
)

func TestDispatchNop(t *testing.T) {
	b := codebuf.New(64)
	r := Dispatch(0xD503201F, b, 0x1000)
	require.True(t, r.OK)
	require.False(t, r.Terminator)
}

func TestDispatchALUReg(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0B000000) | 2<<16 | 1<<5 | 0 // ADD W0, W1, W2
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
	require.False(t, r.Terminator)
}

func TestDispatchALURegShiftedDeclines(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0B000000) | 3<<10 | 2<<16 | 1<<5 | 0 // non-zero shift amount
	r := Dispatch(enc, b, 0x1000)
	require.False(t, r.OK)
}

func TestDispatchLogicalReg(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0A000000) | 2<<16 | 1<<5 | 0 // AND W0, W1, W2
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchShiftReg(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1AC02000) | 2<<16 | 1<<5 | 0 // LSLV W0, W1, W2
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchMulti3Source(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1B000000) | 2<<16 | 3<<10 | 1<<5 | 0 // MADD W0, W1, W2, W3
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchDiv2Source(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1AC00C00) | 2<<16 | 1<<5 | 0 // SDIV W0, W1, W2
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchALUImm(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x11000000) | 5<<10 | 1<<5 | 0 // ADD W0, W1, #5
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchMoveWide(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x12800000) | 2<<29 | 0xABCD<<5 | 0 // MOVZ W0, #0xABCD
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchBitfield(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x53000000) | 2<<29 | 3<<16 | 7<<10 | 1<<5 | 0 // UBFM
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchCompareImm(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x11000000) | 1<<29 | 5<<10 | 1<<5 | 31 // CMN W1, #5 (ADDS -> zero reg dest)
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchLoadStoreUnsignedImm(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x39000000) | 4<<10 | 1<<5 | 0 // STRB
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchLoadStorePair(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x29000000) | 1<<22 /* load */ | 2<<10 | 1<<5 | 0
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchUncondBranchImm(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x14000000) | 4 // B pc+16
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
	require.Len(t, r.Exits, 1)
	require.Equal(t, uint64(0x1010), r.Exits[0].GuestTarget)
}

func TestDispatchCondBranch(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x54000000) | 16<<5 | 0 // B.EQ
	r := Dispatch(enc, b, 0x3000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
	require.Len(t, r.Exits, 2)
}

func TestDispatchCompareAndBranch(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x34000000) | 8<<5 | 0 // CBZ W0
	r := Dispatch(enc, b, 0x2000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
}

func TestDispatchTestAndBranch(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x36000000) | 4<<5 | 1 // TBZ X1, #0, ...
	r := Dispatch(enc, b, 0x2000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
}

func TestDispatchUncondBranchRegRET(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0xD65F0000) | 2<<16 | 30<<5 // RET X30
	r := Dispatch(enc, b, 0x2000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
	require.Equal(t, xlator.ExitReturn, r.Exits[0].Kind)
}

func TestDispatchSystemCall(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0xD4000001)
	r := Dispatch(enc, b, 0x2000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
}

func TestDispatchBreakpoint(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0xD4200000)
	r := Dispatch(enc, b, 0x2000)
	require.True(t, r.OK)
	require.True(t, r.Terminator)
}

func TestDispatchFPDataProc2Source(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1E200800) | 0b0010<<12 | 2<<16 | 1<<5 | 0 // FADD single
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
	require.False(t, r.Terminator)
}

func TestDispatchFPCompare(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1E202000) | 2<<16 | 1<<5
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchFPCondSelect(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1E200C00) | 2<<16 | 0<<12 | 1<<5 | 0
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchFPFusedMulAdd(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x1F000000) | 2<<16 | 3<<10 | 1<<5 | 0
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchVectorArithmeticADD(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0E200400) | 2<<22 | 0b10000<<11 | 2<<16 | 1<<5 | 0
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchVectorLogicalSubOpcode(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0E200400) | 0b11<<22 | 0b00011<<11 | 2<<16 | 1<<5 | 0 // EOR
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchVectorShiftImm(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0F000400) | 1<<29 | 0b0010<<19 | 0b011<<16 | 1<<5 | 0 // USHR
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchVectorDup(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0x0E000C00) | 0b00001<<16 | 1<<5 | 0
	r := Dispatch(enc, b, 0x1000)
	require.True(t, r.OK)
}

func TestDispatchUnknownFails(t *testing.T) {
	b := codebuf.New(64)
	enc := uint32(0xFFFFFFFF)
	r := Dispatch(enc, b, 0x1000)
	require.False(t, r.OK)
	require.False(t, r.Terminator)
}
