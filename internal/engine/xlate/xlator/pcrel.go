package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/guest/arm64"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
)

// immhilo reconstructs ADR/ADRP's split 21-bit immediate: immlo (bits
// 30:29) concatenated with immhi (bits 23:5), sign-extended.
func immhilo(i arm64.Insn) int64 {
	immlo := int64((uint32(i) >> 29) & 0b11)
	immhi := int64((uint32(i) >> 5) & 0x7FFFF)
	raw := (immhi << 2) | immlo
	// Sign-extend a 21-bit value.
	const width = 21
	shift := 64 - width
	return (raw << shift) >> shift
}

// TranslatePCRelAddr lowers ADR/ADRP: both forms' operands are fully
// known at translation time since pc is the instruction's own address,
// so the result is materialized as a 64-bit immediate move rather than
// any runtime PC read (spec.md §4.4).
func TranslatePCRelAddr(enc uint32, b *codebuf.Buffer, pc uint64) bool {
	i := arm64.Insn(enc)
	rd := arm64.Rd(i)
	imm := immhilo(i)

	var addr uint64
	if arm64.IsADRP(i) {
		addr = (pc &^ 0xFFF) + uint64(imm<<12)
	} else {
		addr = uint64(int64(pc) + imm)
	}
	amd64.EmitMovImm64(b, Scratch1, addr)
	storeGuestInt(b, rd, Scratch1, true)
	return true
}
