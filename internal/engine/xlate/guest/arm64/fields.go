package arm64

// Insn is one 32-bit guest instruction encoding.
type Insn uint32

func bits(i Insn, hi, lo uint) uint32 {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (uint32(i) >> lo) & mask
}

func signExtend(v uint32, width uint) int64 {
	shift := 32 - width
	return int64(int32(v<<shift)) >> shift
}

// Rd extracts the destination register field (bits 4:0).
func Rd(i Insn) uint32 { return bits(i, 4, 0) }

// Rn extracts the first source register field (bits 9:5).
func Rn(i Insn) uint32 { return bits(i, 9, 5) }

// Rm extracts the second source register field (bits 20:16).
func Rm(i Insn) uint32 { return bits(i, 20, 16) }

// Ra extracts the accumulator register field (bits 14:10), used by
// multiply-add/sub forms.
func Ra(i Insn) uint32 { return bits(i, 14, 10) }

// SF reports the operand-width bit (bit 31): true selects the 64-bit (X)
// form, false the 32-bit (W) form.
func SF(i Insn) bool { return bits(i, 31, 31) != 0 }

// SBit reports the flag-update bit for ALU forms (bit 29).
func SBit(i Insn) bool { return bits(i, 29, 29) != 0 }

// Imm12 extracts the unsigned 12-bit immediate used by add/subtract
// (immediate) forms (bits 21:10).
func Imm12(i Insn) uint32 { return bits(i, 21, 10) }

// Imm12Shift12 reports whether the add/subtract immediate's "shift" field
// (bits 23:22) selects "LSL #12" rather than "LSL #0".
func Imm12Shift12(i Insn) bool { return bits(i, 22, 22) != 0 }

// SImm19 extracts and sign-extends the 19-bit immediate used by
// conditional branch and compare-and-branch forms (bits 23:5), already
// scaled by 4 (instructions are word-aligned).
func SImm19(i Insn) int64 { return signExtend(bits(i, 23, 5), 19) << 2 }

// SImm26 extracts and sign-extends the 26-bit immediate used by
// unconditional branch forms (bits 25:0), scaled by 4.
func SImm26(i Insn) int64 { return signExtend(bits(i, 25, 0), 26) << 2 }

// SImm14 extracts and sign-extends the 14-bit immediate used by
// test-and-branch forms (bits 18:5), scaled by 4.
func SImm14(i Insn) int64 { return signExtend(bits(i, 18, 5), 14) << 2 }

// SImm7 extracts and sign-extends the 7-bit immediate used by load/store
// pair forms (bits 21:15). Callers scale by the access size.
func SImm7(i Insn) int64 { return signExtend(bits(i, 21, 15), 7) }

// SImm9 extracts and sign-extends the 9-bit immediate used by unscaled and
// pre/post-indexed load/store forms (bits 20:12).
func SImm9(i Insn) int64 { return signExtend(bits(i, 20, 12), 9) }

// Imm16 extracts the 16-bit immediate used by move-wide forms (bits 20:5).
func Imm16(i Insn) uint32 { return bits(i, 20, 5) }

// MoveWideShift extracts the 2-bit shift selector used by move-wide forms
// (bits 22:21); the actual shift is this value times 16.
func MoveWideShift(i Insn) uint32 { return bits(i, 22, 21) * 16 }

// BitfieldImmR extracts the "immr" field (bits 21:16) used by bitfield
// forms to select the rotate amount / LSB.
func BitfieldImmR(i Insn) uint32 { return bits(i, 21, 16) }

// BitfieldImmS extracts the "imms" field (bits 15:10) used by bitfield
// forms to select the field width terminus (MSB).
func BitfieldImmS(i Insn) uint32 { return bits(i, 15, 10) }

// BitfieldLSBWidth decodes the guest's immr/imms pair into an (lsb, width)
// pair for the common case where imms >= immr (UBFM/SBFM/BFM's usual
// "extract a contiguous field starting at immr" shape).
func BitfieldLSBWidth(immr, imms uint32) (lsb, width uint32) {
	lsb = immr
	width = imms - immr + 1
	return
}

// CondField extracts the 4-bit condition field used by conditional branch
// forms (bits 3:0).
func CondField(i Insn) Cond { return Cond(bits(i, 3, 0)) }

// Q reports the "full 128-bit vector" bit (bit 30): false selects the
// 64-bit half, true the full 128-bit register.
func Q(i Insn) bool { return bits(i, 30, 30) != 0 }

// VectorSize extracts the element-size field used by most vector forms
// (bits 23:22): 0=byte, 1=halfword, 2=word, 3=doubleword.
func VectorSize(i Insn) uint32 { return bits(i, 23, 22) }

// ShiftAmt6 extracts the 6-bit shift-amount field used by shifted-register
// ALU forms (bits 15:10).
func ShiftAmt6(i Insn) uint32 { return bits(i, 15, 10) }

// LdStSize extracts the access-size field used by load/store forms
// (bits 31:30): 0=byte, 1=halfword, 2=word, 3=doubleword.
func LdStSize(i Insn) uint32 { return bits(i, 31, 30) }

// LdStOpc extracts the opc field used by load/store (unsigned immediate)
// forms (bits 23:22), selecting store/load and, for sub-word sizes,
// sign-extension.
func LdStOpc(i Insn) uint32 { return bits(i, 23, 22) }

// LdStV reports the "SIMD&FP register" bit used by load/store forms
// (bit 26).
func LdStV(i Insn) bool { return bits(i, 26, 26) != 0 }

// LdStPairIndex extracts the LDP/STP addressing-mode field (bits 24:23):
// 0b01 selects post-index, 0b11 pre-index, 0b10 (and the LDNP/STNP-only
// 0b00) signed-offset with no writeback.
func LdStPairIndex(i Insn) uint32 { return bits(i, 24, 23) }

// FPType extracts the floating-point precision field used by scalar FP
// forms (bits 23:22): 0=single, 1=double.
func FPType(i Insn) uint32 { return bits(i, 23, 22) }

// FPOpcode2Source extracts the opcode field used by FP data-processing
// (2-source) forms (bits 15:12).
func FPOpcode2Source(i Insn) uint32 { return bits(i, 15, 12) }

// FPOpcode1Source extracts the opcode field used by FP data-processing
// (1-source) forms (bits 20:15).
func FPOpcode1Source(i Insn) uint32 { return bits(i, 20, 15) }

// BitIndex decodes the guest's "bit-5 combined with bits 19..23" test-bit
// index encoding (spec.md §4.4), valid for indices 0..63: bit 31 supplies
// the high half of the index (b5), bits 23:19 the low 5 bits.
func BitIndex(i Insn) uint32 {
	b5 := bits(i, 31, 31)
	b40 := bits(i, 23, 19)
	return b5<<5 | b40
}
