// Package state defines the guest execution state that translated code
// reads and writes: the integer and vector register files, the condition
// flags, the program counter, and the floating-point control/status
// registers.
//
// A State is owned by exactly one guest thread. Nothing in this package
// synchronizes access to it; callers on other threads must not touch it.
package state

import "unsafe"

// ZeroReg is the guest register index that always reads as zero and
// silently discards writes.
const ZeroReg = 31

// NumIntRegs is the guest's count of addressable general-purpose registers,
// including the zero register at index 31.
const NumIntRegs = 32

// NumVecRegs is the guest's count of 128-bit vector registers.
const NumVecRegs = 32

// Flag bit positions within NZCV, matching the guest's processor-state
// word layout (bits 31..28).
const (
	FlagV = 28
	FlagC = 29
	FlagZ = 30
	FlagN = 31
)

// Vec128 is an opaque 128-bit vector register value, addressable as two
// 64-bit halves. Scalar floating-point values live in Lo with Hi zeroed
// after a scalar write.
type Vec128 struct {
	Lo uint64
	Hi uint64
}

// State is the thread-local guest execution state. Field order is part of
// the ABI that generated code addresses via Offsets below; do not reorder
// without updating Offsets.
type State struct {
	// X holds the 31 general-purpose registers plus the zero register at
	// index 31. Writes to X[ZeroReg] must be suppressed by callers; this
	// struct does not enforce it so that bulk save/restore code can still
	// write through it cheaply.
	X [NumIntRegs]uint64

	// V holds the 32 vector registers.
	V [NumVecRegs]Vec128

	// PC is the guest program counter.
	PC uint64

	// Nzcv packs the N, Z, C, V condition flags into bits 31..28, matching
	// the guest's processor-state word; translators shift each captured
	// host condition bit into its position and OR them together.
	Nzcv uint32

	// Fpcr is the floating-point control register (rounding mode,
	// flush-to-zero, default-NaN).
	Fpcr uint32

	// Fpsr is the floating-point status register (cumulative exception
	// bits).
	Fpsr uint32

	// sp is the stack pointer. Kept out-of-band from X because index 31
	// means "zero register" in register-operand position but "SP" in
	// memory/stack-operand position (spec.md §3); routing it through
	// SPValue/SetSP avoids threading a decode-time context flag through
	// every reader of X.
	sp uint64
}

// New returns a zeroed State, as a thread sees it at guest-thread creation.
func New() *State {
	return &State{}
}

// GetX reads guest register n, returning 0 for the zero register.
func (s *State) GetX(n uint32) uint64 {
	if n == ZeroReg {
		return 0
	}
	return s.X[n]
}

// SetX writes guest register n, silently discarding writes to the zero
// register.
func (s *State) SetX(n uint32, v uint64) {
	if n == ZeroReg {
		return
	}
	s.X[n] = v
}

// SPValue returns the stack pointer. On this guest, register index 31
// names SP in instructions that explicitly take SP as an operand (and the
// zero register elsewhere); State keeps SP apart from X[31], so callers
// that decode an SP-context operand must route through SPValue/SetSP
// rather than GetX/SetX.
func (s *State) SPValue() uint64 { return s.sp }

// SetSP sets the stack pointer.
func (s *State) SetSP(v uint64) { s.sp = v }

// NZCV returns the packed condition flags.
func (s *State) NZCV() uint32 { return s.Nzcv }

// SetNZCV sets N, Z, C, V from individual booleans.
func (s *State) SetNZCV(n, z, c, v bool) {
	var w uint32
	if n {
		w |= 1 << FlagN
	}
	if z {
		w |= 1 << FlagZ
	}
	if c {
		w |= 1 << FlagC
	}
	if v {
		w |= 1 << FlagV
	}
	s.Nzcv = w
}

// Flags unpacks N, Z, C, V.
func (s *State) Flags() (n, z, c, v bool) {
	w := s.Nzcv
	return w&(1<<FlagN) != 0, w&(1<<FlagZ) != 0, w&(1<<FlagC) != 0, w&(1<<FlagV) != 0
}

// Offsets gives the byte offsets of State's fields, for translators and
// the host emitter that need to build "load/store relative to the State
// base pointer" host instructions rather than going through Go method
// calls. Computed once via unsafe.Offsetof so a future field reorder can't
// silently desync generated code from the struct layout.
type offsets struct {
	X    uintptr
	V    uintptr
	PC   uintptr
	Nzcv uintptr
	Fpcr uintptr
	Fpsr uintptr
	SP   uintptr
}

// Offsets is the singleton table of field offsets into State.
var Offsets = offsets{
	X:    unsafe.Offsetof(State{}.X),
	V:    unsafe.Offsetof(State{}.V),
	PC:   unsafe.Offsetof(State{}.PC),
	Nzcv: unsafe.Offsetof(State{}.Nzcv),
	Fpcr: unsafe.Offsetof(State{}.Fpcr),
	Fpsr: unsafe.Offsetof(State{}.Fpsr),
	SP:   unsafe.Offsetof(State{}.sp),
}

// XOffset returns the byte offset of X[n] within State.
func XOffset(n uint32) uintptr { return Offsets.X + uintptr(n)*8 }

// VOffset returns the byte offset of V[n] within State.
func VOffset(n uint32) uintptr { return Offsets.V + uintptr(n)*16 }
