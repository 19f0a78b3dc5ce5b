package xlator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
)

// encALUReg builds an ADD/SUB (shifted register, unshifted) encoding
// matching IsALUReg's mask (0x1F000000 == 0x0B000000), sf selects 64-bit,
// sub selects subtract over add.
func encALUReg(sf bool, sub bool, rd, rn, rm uint32) uint32 {
	v := uint32(0x0B000000) | rm<<16 | rn<<5 | rd
	if sf {
		v |= 1 << 31
	}
	if sub {
		v |= 1 << 30
	}
	return v
}

func encALUImm(sf bool, sub bool, sBit bool, imm12 uint32, rd, rn uint32) uint32 {
	v := uint32(0x11000000) | imm12<<10 | rn<<5 | rd
	if sf {
		v |= 1 << 31
	}
	if sub {
		v |= 1 << 30
	}
	if sBit {
		v |= 1 << 29
	}
	return v
}

func encMoveWide(sf bool, opc uint32, imm16, shift, rd uint32) uint32 {
	v := uint32(0x12800000) | opc<<29 | (shift/16)<<21 | imm16<<5 | rd
	if sf {
		v |= 1 << 31
	}
	return v
}

func TestTranslateALURegAdd(t *testing.T) {
	b := codebuf.New(256)
	enc := encALUReg(true, false, 0, 1, 2)
	ok := TranslateALUReg(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateALURegShiftedUnsupported(t *testing.T) {
	b := codebuf.New(256)
	enc := encALUReg(true, false, 0, 1, 2) | (4 << 10) // nonzero shift amount
	ok := TranslateALUReg(enc, b, 0)
	require.False(t, ok)
}

func TestTranslateALUImmAddSetsFlags(t *testing.T) {
	b := codebuf.New(256)
	enc := encALUImm(true, false, true, 5, 0, 1)
	ok := TranslateALUImm(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateMoveWideMOVZ(t *testing.T) {
	b := codebuf.New(256)
	enc := encMoveWide(true, 2, 0x1234, 0, 3)
	ok := TranslateMoveWide(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	require.NotEmpty(t, bytes)
}

func TestTranslateMoveWideMOVN(t *testing.T) {
	b := codebuf.New(256)
	enc := encMoveWide(true, 0, 0x00FF, 0, 3)
	ok := TranslateMoveWide(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateMoveWideReservedOpcFails(t *testing.T) {
	b := codebuf.New(256)
	enc := encMoveWide(true, 1, 0, 0, 3)
	ok := TranslateMoveWide(enc, b, 0)
	require.False(t, ok)
}

func TestTranslateBitfieldUBFMExtract(t *testing.T) {
	// UBFM: extract an 8-bit field starting at bit 4 (immr=4, imms=11).
	b := codebuf.New(256)
	enc := uint32(0x13000000) | 2<<29 /* UBFM opc */ | 4<<16 | 11<<10 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateBitfield(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateBitfieldInsertEncodingUnsupported(t *testing.T) {
	// imms < immr selects the wraparound insert shape this lowering declines.
	b := codebuf.New(256)
	enc := uint32(0x13000000) | 2<<29 | 2<<16 /* immr=2 */ | 1<<10 /* imms=1 */ | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateBitfield(enc, b, 0)
	require.False(t, ok)
}

func TestTranslateShiftRegLSLV(t *testing.T) {
	b := codebuf.New(256)
	enc := uint32(0x1AC02000) | 2<<16 | 1<<5 | 0 // LSLV: op=001000 at bits15:10
	enc |= 1 << 31
	ok := TranslateShiftReg(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateMulti3SourceMADD(t *testing.T) {
	b := codebuf.New(256)
	// MADD Rd, Rn, Rm, Ra: base 0x1B000000, Ra at bits14:10, sub bit15=0.
	enc := uint32(0x1B000000) | 2<<16 | 3<<10 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateMulti3Source(enc, b, 0)
	require.True(t, ok)
}

func TestTranslateDiv2SourceSDIV(t *testing.T) {
	b := codebuf.New(256)
	// SDIV: base 0x1A000000, op=000011 at bits15:10.
	enc := uint32(0x1A000C00) | 2<<16 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateDiv2Source(enc, b, 0)
	require.True(t, ok)
	bytes, overflow := b.Finalize()
	require.False(t, overflow)
	// Divide-by-zero guard plus the real divide plus the skip-to-done jump
	// plus the zero-path trap: several instructions, not just one IDIV.
	require.Greater(t, len(bytes), 10)
}

func TestTranslateDiv2SourceUDIV(t *testing.T) {
	b := codebuf.New(256)
	// UDIV: op=000010.
	enc := uint32(0x1A000800) | 2<<16 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateDiv2Source(enc, b, 0)
	require.True(t, ok)
}

// cqo is REX.W + 0x99 (CQO: sign-extend RAX into RDX:RAX), the RDX setup a
// negative dividend requires ahead of a 64-bit IDIV.
var cqo = []byte{0x48, 0x99}

// xorRDXRDX64 is REX.W + XOR RDX, RDX (0x31 /r, modrm selecting RDX,RDX).
// Both paths emit this once for the divide-by-zero guard (Scratch3 aliases
// RDX); only the unsigned path emits it a second time to zero-extend the
// dividend ahead of DIV.
var xorRDXRDX64 = []byte{0x48, 0x31, 0xD2}

func TestTranslateDiv2SourceSDIVSignExtendsDividendForNegativeCase(t *testing.T) {
	b := codebuf.New(256)
	// SDIV Rd=0, Rn=1, Rm=2: same encoding regardless of the runtime
	// dividend's sign, since the RDX setup this translator emits must be
	// correct for every dividend, including a negative one.
	enc := uint32(0x1A000C00) | 2<<16 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateDiv2Source(enc, b, 0)
	require.True(t, ok)
	bytes_, overflow := b.Finalize()
	require.False(t, overflow)

	require.True(t, bytes.Contains(bytes_, cqo), "signed divide must sign-extend RAX into RDX via CQO before IDIV")
	require.Equal(t, 1, bytes.Count(bytes_, xorRDXRDX64), "RDX should only be zeroed once, by the divide-by-zero guard; CQO must overwrite it afterward rather than leaving it zeroed for IDIV")
}

func TestTranslateDiv2SourceUDIVZeroExtendsDividend(t *testing.T) {
	b := codebuf.New(256)
	// UDIV Rd=0, Rn=1, Rm=2.
	enc := uint32(0x1A000800) | 2<<16 | 1<<5 | 0
	enc |= 1 << 31
	ok := TranslateDiv2Source(enc, b, 0)
	require.True(t, ok)
	bytes_, overflow := b.Finalize()
	require.False(t, overflow)

	require.Equal(t, 2, bytes.Count(bytes_, xorRDXRDX64), "unsigned divide zero-extends the dividend into RDX, in addition to the divide-by-zero guard's own zeroing")
	require.False(t, bytes.Contains(bytes_, cqo), "unsigned divide must not emit CQO")
}
