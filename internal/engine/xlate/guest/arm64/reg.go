package arm64

import "fmt"

// NumXRegs is the guest's count of addressable 64-bit integer registers,
// including the index shared by the zero register (in register-operand
// position) and the stack pointer (in memory/stack-operand position).
const NumXRegs = 32

// ZeroOrSP is the register index whose meaning depends on instruction
// context: the zero register when used as a plain operand, the stack
// pointer when used as a base register in an addressing form. spec.md §3
// requires preserving this distinction; fields.go's field extractors return
// the raw index and per-class translators decide which State accessor to
// use.
const ZeroOrSP = 31

// xRegNames mirrors the teacher's backend/isa/arm64/reg.go regNames table
// (there naming host-target registers; here naming guest source
// registers), read through XRegName. The ANVIL_PRINT_IR block log does not
// use it; it records only block PCs and sizes.
var xRegNames = [...]string{
	0: "x0", 1: "x1", 2: "x2", 3: "x3", 4: "x4", 5: "x5", 6: "x6", 7: "x7",
	8: "x8", 9: "x9", 10: "x10", 11: "x11", 12: "x12", 13: "x13", 14: "x14", 15: "x15",
	16: "x16", 17: "x17", 18: "x18", 19: "x19", 20: "x20", 21: "x21", 22: "x22", 23: "x23",
	24: "x24", 25: "x25", 26: "x26", 27: "x27", 28: "x28", 29: "x29" /* FP */, 30: "x30", /* LR */
	31: "xzr/sp",
}

// XRegName returns the disassembly-style name of guest integer register n.
func XRegName(n uint32) string {
	if int(n) < len(xRegNames) {
		return xRegNames[n]
	}
	return fmt.Sprintf("x%d?", n)
}

// VRegName returns the disassembly-style name of guest vector register n.
func VRegName(n uint32) string {
	return fmt.Sprintf("v%d", n)
}

// Aliases for the two named integer registers that are also addressable
// by plain index, matching spec.md §3 ("either aliases for specific
// indices or separate fields").
const (
	FP uint32 = 29 // frame pointer, alias for x29
	LR uint32 = 30 // link register, alias for x30
)
