package arm64

// This file implements the guest decoder's class predicates (spec.md §4.3):
// pure, stateless Boolean tests over a 32-bit encoding. Each predicate tests
// a (mask, value) pair against the encoding; masks are listed from most to
// least specific within each family so that, per spec.md §4.3's tie-break
// rule, testing them in the documented order (see dispatch.Order in the
// sibling dispatch package) yields an unambiguous classification.
//
// Bit-pattern derivations follow the guest architecture's own encoding
// families; per spec.md §9's Open Questions, implementers should verify
// exact masks against the authoritative guest manual before relying on this
// decoder for anything beyond the translator contracts spec.md names.

func masked(i Insn, mask, value uint32) bool {
	return uint32(i)&mask == value
}

// IsPCRelAddr recognizes ADR/ADRP (PC-relative addressing, spec.md §4.4).
func IsPCRelAddr(i Insn) bool {
	return masked(i, 0x1F000000, 0x10000000)
}

// IsADRP reports whether a PC-relative-addressing encoding is the "page"
// form (ADRP) rather than the byte form (ADR).
func IsADRP(i Insn) bool { return bits(i, 31, 31) != 0 }

// IsALUImm recognizes add/subtract (immediate): ADD/ADDS/SUB/SUBS #imm12.
// Excludes the Rd==ZeroOrSP, S==1 shape that IsCompareImm claims, per
// spec.md §4.7's ALU-immediate -> ... -> compare/test ordering.
func IsALUImm(i Insn) bool {
	if !masked(i, 0x1F000000, 0x11000000) {
		return false
	}
	return !(SBit(i) && Rd(i) == ZeroOrSP)
}

// IsALUReg recognizes add/subtract (shifted register): ADD/ADDS/SUB/SUBS
// Rd, Rn, Rm{, shift}. Excludes the compare-alias shape, symmetric with
// IsALUImm.
func IsALUReg(i Insn) bool {
	if !masked(i, 0x1F000000, 0x0B000000) {
		return false
	}
	return !(SBit(i) && Rd(i) == ZeroOrSP)
}

// IsLogicalImm recognizes AND/ORR/EOR/ANDS #imm (logical, immediate).
func IsLogicalImm(i Insn) bool {
	if !masked(i, 0x1F800000, 0x12000000) {
		return false
	}
	return !(isANDS(i) && Rd(i) == ZeroOrSP)
}

// IsLogicalReg recognizes AND/ORR/EOR/BIC/ORN/EON/ANDS (logical, shifted
// register).
func IsLogicalReg(i Insn) bool {
	if !masked(i, 0x1F000000, 0x0A000000) {
		return false
	}
	return !(isANDS(i) && Rd(i) == ZeroOrSP)
}

func isANDS(i Insn) bool {
	// opc field (bits 30:29) == 11 selects the flag-setting ANDS/BICS form.
	return bits(i, 30, 29) == 0b11
}

// IsCompareImm recognizes the "compare" aliases of ADDS/SUBS/ANDS
// (immediate), i.e. CMN/CMP/TST, with a discarded (zero-register)
// destination.
func IsCompareImm(i Insn) bool {
	if masked(i, 0x1F000000, 0x11000000) && SBit(i) && Rd(i) == ZeroOrSP {
		return true
	}
	return masked(i, 0x1F800000, 0x12000000) && isANDS(i) && Rd(i) == ZeroOrSP
}

// IsCompareReg recognizes the register-form counterpart of IsCompareImm.
func IsCompareReg(i Insn) bool {
	if masked(i, 0x1F000000, 0x0B000000) && SBit(i) && Rd(i) == ZeroOrSP {
		return true
	}
	return masked(i, 0x1F000000, 0x0A000000) && isANDS(i) && Rd(i) == ZeroOrSP
}

// IsMulti3Source recognizes the 3-source data-processing family
// (MADD/MSUB, i.e. multiply with accumulate/subtract).
func IsMulti3Source(i Insn) bool {
	return masked(i, 0x1F000000, 0x1B000000)
}

// IsDiv2Source recognizes SDIV/UDIV (data-processing, 2-source).
func IsDiv2Source(i Insn) bool {
	if !masked(i, 0x1F000000, 0x1A000000) {
		return false
	}
	op := bits(i, 15, 10)
	return op == 0b000010 || op == 0b000011 // UDIV, SDIV
}

// IsShiftReg recognizes LSLV/LSRV/ASRV/RORV (shift by register,
// data-processing 2-source).
func IsShiftReg(i Insn) bool {
	if !masked(i, 0x1F000000, 0x1A000000) {
		return false
	}
	op := bits(i, 15, 10)
	return op == 0b001000 || op == 0b001001 || op == 0b001010 || op == 0b001011
}

// IsMoveWide recognizes MOVN/MOVZ/MOVK.
func IsMoveWide(i Insn) bool {
	return masked(i, 0x1F800000, 0x12800000)
}

// MoveWideOpc identifies which of the three move-wide forms an
// IsMoveWide-matching encoding is: 0=MOVN, 2=MOVZ, 3=MOVK (1 is reserved).
func MoveWideOpc(i Insn) uint32 { return bits(i, 30, 29) }

// IsBitfield recognizes SBFM/BFM/UBFM (signed/unsigned extract and
// insert).
func IsBitfield(i Insn) bool {
	return masked(i, 0x1F800000, 0x13000000)
}

// BitfieldOpc identifies which bitfield form: 0=SBFM, 1=BFM, 2=UBFM.
func BitfieldOpc(i Insn) uint32 { return bits(i, 30, 29) }

// IsUncondBranchImm recognizes B / BL.
func IsUncondBranchImm(i Insn) bool {
	return masked(i, 0x7C000000, 0x14000000)
}

// IsBranchLink reports whether an IsUncondBranchImm-matching encoding
// writes the link register (BL vs plain B).
func IsBranchLink(i Insn) bool { return bits(i, 31, 31) != 0 }

// IsUncondBranchReg recognizes BR / BLR / RET.
func IsUncondBranchReg(i Insn) bool {
	return masked(i, 0xFE000000, 0xD6000000) && bits(i, 20, 16) == 0b11111
}

// BranchRegOpc identifies which register-branch form: 0=BR, 1=BLR, 2=RET.
func BranchRegOpc(i Insn) uint32 { return bits(i, 24, 21) }

// IsReturn reports whether an IsUncondBranchReg-matching encoding is RET.
func IsReturn(i Insn) bool { return BranchRegOpc(i) == 2 }

// IsCondBranch recognizes B.cond.
func IsCondBranch(i Insn) bool {
	return masked(i, 0xFF000010, 0x54000000)
}

// IsCompareAndBranch recognizes CBZ / CBNZ.
func IsCompareAndBranch(i Insn) bool {
	return masked(i, 0x7E000000, 0x34000000)
}

// IsCBNZ reports whether an IsCompareAndBranch-matching encoding branches
// on nonzero (vs zero).
func IsCBNZ(i Insn) bool { return bits(i, 24, 24) != 0 }

// IsTestAndBranch recognizes TBZ / TBNZ.
func IsTestAndBranch(i Insn) bool {
	return masked(i, 0x7E000000, 0x36000000)
}

// IsTBNZ reports whether an IsTestAndBranch-matching encoding branches on
// a set (vs clear) bit.
func IsTBNZ(i Insn) bool { return bits(i, 24, 24) != 0 }

// IsLoadStoreUnsignedImm recognizes LDR/STR/LDRB/STRB/LDRH/STRH and their
// sign-extending variants, unsigned (scaled) 12-bit immediate form.
func IsLoadStoreUnsignedImm(i Insn) bool {
	return masked(i, 0x3B000000, 0x39000000)
}

// IsLoadStoreUnscaledImm recognizes the unscaled 9-bit immediate form
// (LDUR/STUR). The mask requires bits 11:10 = 00, so the pre/post-indexed
// encodings (01/11) do not match.
func IsLoadStoreUnscaledImm(i Insn) bool {
	return masked(i, 0x3B200C00, 0x38000000)
}

// IsLoadStorePair recognizes LDP/STP, including pre/post-indexed forms.
func IsLoadStorePair(i Insn) bool {
	return masked(i, 0x3E000000, 0x28000000)
}

// IsLoadStoreExclusiveOrdered recognizes the load-acquire/store-release
// atomic forms (LDAR/STLR and exclusive variants).
func IsLoadStoreExclusiveOrdered(i Insn) bool {
	return masked(i, 0x3F000000, 0x08000000)
}

// LdStIsLoad reports whether an IsLoadStore*-matching encoding is a load
// (vs a store), from the opc/L-bit field.
func LdStIsLoad(i Insn) bool { return bits(i, 22, 22) != 0 }

// IsSystemCall recognizes SVC.
func IsSystemCall(i Insn) bool {
	return masked(i, 0xFFE0001F, 0xD4000001)
}

// IsBreakpoint recognizes BRK.
func IsBreakpoint(i Insn) bool {
	return masked(i, 0xFFE0001F, 0xD4200000)
}

// IsHalt recognizes HLT.
func IsHalt(i Insn) bool {
	return masked(i, 0xFFE0001F, 0xD4400000)
}

// IsNop recognizes the NOP hint.
func IsNop(i Insn) bool {
	return uint32(i) == 0xD503201F
}

// IsFPCompare recognizes FCMP/FCMPE (scalar floating-point compare).
func IsFPCompare(i Insn) bool {
	return masked(i, 0x3F20FC00, 0x1E202000)
}

// IsFPMoveImm recognizes FMOV (scalar, immediate): bits 12:10 = 100. It has
// no entry of its own in the dispatch order; IsFPDataProc1Source and
// IsFPConvertToInt exclude it explicitly, and IsFPDataProc2Source cannot
// match it (that mask needs bits 11:10 = 10).
func IsFPMoveImm(i Insn) bool {
	return masked(i, 0x3F201C00, 0x1E201000)
}

// IsFPDataProc1Source recognizes scalar FMOV(reg)/FABS/FNEG/FSQRT/FCVT
// (precision narrow/widen)/FRINT*.
func IsFPDataProc1Source(i Insn) bool {
	return masked(i, 0x3F207C00, 0x1E204000) && !IsFPMoveImm(i)
}

// IsFPDataProc2Source recognizes scalar FADD/FSUB/FMUL/FDIV/FMIN/FMAX.
func IsFPDataProc2Source(i Insn) bool {
	return masked(i, 0x3F200C00, 0x1E200800)
}

// IsFPConvertToInt recognizes FCVTZS/FCVTZU/SCVTF/UCVTF (float <-> integer
// register conversions) and FMOV between a scalar FP register and a
// general-purpose register.
func IsFPConvertToInt(i Insn) bool {
	return masked(i, 0x3F000000, 0x1E000000) && bits(i, 21, 21) != 0 && bits(i, 18, 10)&0x1F8 == 0 && !IsFPDataProc1Source(i) && !IsFPDataProc2Source(i) && !IsFPCompare(i) && !IsFPMoveImm(i)
}

// IsFPFusedMulAdd recognizes FMADD/FMSUB/FNMADD/FNMSUB (scalar).
func IsFPFusedMulAdd(i Insn) bool {
	return masked(i, 0x3F000000, 0x1F000000)
}

// IsFPCondSelect recognizes FCSEL (scalar floating-point conditional
// select).
func IsFPCondSelect(i Insn) bool {
	return masked(i, 0x3F200C00, 0x1E200C00)
}

// IsVectorLoadStoreMulti recognizes LD1/ST1..LD4/ST4 (multi-structure,
// with and without interleaving).
func IsVectorLoadStoreMulti(i Insn) bool {
	return masked(i, 0xBFBF0000, 0x0C000000) || masked(i, 0xBFA00000, 0x0C800000)
}

// IsVectorDup recognizes DUP (duplicate a scalar/element to all lanes).
func IsVectorDup(i Insn) bool {
	return masked(i, 0x3F208C00, 0x0E000C00)
}

// IsVectorExtract recognizes EXT (extract a register from a pair at a
// constant byte offset).
func IsVectorExtract(i Insn) bool {
	return masked(i, 0xBF208400, 0x2E000000)
}

// IsVectorTableLookup recognizes TBL/TBX.
func IsVectorTableLookup(i Insn) bool {
	return masked(i, 0xBF208C00, 0x0E000000)
}

// IsVectorShiftImm recognizes packed shift-by-immediate forms
// (SSHR/USHR/SHL and friends).
func IsVectorShiftImm(i Insn) bool {
	return masked(i, 0x9F800400, 0x0F000400)
}

// IsVectorArithmetic recognizes packed integer/float lane-parallel
// add/sub/mul/and/or/xor/andn/min/max/compare.
func IsVectorArithmetic(i Insn) bool {
	return masked(i, 0x3F200400, 0x0E200400) || masked(i, 0x3F200000, 0x0E200000)
}

// IsUnknown is the dispatcher's terminal fallback: no other predicate
// matched.
func IsUnknown(Insn) bool { return true }

// IsBlockTerminator reports whether i unconditionally changes control flow
// and therefore ends the current basic block (spec.md §4.3/§4.5).
func IsBlockTerminator(i Insn) bool {
	switch {
	case IsUncondBranchImm(i), IsUncondBranchReg(i), IsCondBranch(i),
		IsCompareAndBranch(i), IsTestAndBranch(i), IsSystemCall(i),
		IsBreakpoint(i), IsHalt(i):
		return true
	default:
		return false
	}
}

// InstructionLength returns the guest's fixed instruction length in bytes:
// always 4.
func InstructionLength(Insn) uint32 { return 4 }
