// Package block implements the block translator (spec.md §4.5): it walks
// guest memory forward from a starting PC, dispatching one 32-bit encoding
// at a time, until a terminator, a decode failure, or a permission fault
// ends the block.
package block

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/dispatch"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
	"github.com/anvilforge/anvil/internal/engine/xlate/xlator"
)

// Memory is the guest address-space view the block translator fetches
// instruction encodings from. ReadU32 reports ok=false when addr's
// containing page lacks read permission; spec.md §4.5 requires that case
// to terminate the block early with a fault-emitting stub rather than
// panic or read through the protection boundary.
type Memory interface {
	ReadU32(addr uint64) (enc uint32, ok bool)
}

// Result is one finalized, translated block.
type Result struct {
	// EntryPC is the guest PC translation started from.
	EntryPC uint64
	// NextPC is the guest PC one past the block's last instruction. For a
	// block that ended on a terminator this is the instruction after the
	// terminator (irrelevant to control flow, but useful for invalidation-
	// range bookkeeping); for a fault or decode failure it equals EntryPC
	// plus however many instructions translated successfully before the
	// stub.
	NextPC uint64
	// Exits are the block's unresolved control-flow handoffs (spec.md
	// §3/§4.5): the cache/engine layer patches PatchOffset to chain
	// directly into an already-cached target, or leaves it pointing at the
	// block's own epilogue, which returns to the dispatcher loop.
	Exits []xlator.ExitPoint
	// EpilogueOffset is the code-buffer offset EmitEpilogue started at —
	// Translate patches every exit's placeholder jump (emitted as a
	// self-jump, amd64.EmitJmp with instrAddr==target==its own offset) to
	// target it, via resolveExitsToEpilogue. The cache/engine
	// layer uses this offset as the default, pre-chaining destination, and
	// restores it when unlinking a block whose chain target was
	// invalidated.
	EpilogueOffset uint32
}

// EmitPrologue appends the fixed block-entry sequence. Every translated
// block is entered as a function of one argument (a pointer to the calling
// thread's state.State) under the host's standard calling convention;
// argReg is whichever register that convention places the argument in.
// xlator.StateReg (R15) is callee-saved, so the prologue must save the
// caller's value before repurposing it for the block's lifetime.
func EmitPrologue(b *codebuf.Buffer, argReg amd64.Reg) {
	amd64.EmitPush(b, xlator.StateReg)
	amd64.EmitMovRegReg(b, xlator.StateReg, argReg, true)
}

// EmitEpilogue appends the block's shared exit stub: restore the caller's
// R15 and return. It is the first thing appended after the last translated
// instruction, and Translate patches every pending exit jump a translator
// emitted to target it (resolveExitsToEpilogue); the engine layer may later
// repoint specific
// exits at another block's host entry instead (spec.md §4.5's "direct block
// chaining"), but an untouched exit always falls back to here. The caller
// reads the actual handoff (taken branch, syscall, trap) back out of
// state.State.PC plus the matching ExitPoint.Kind, not a return value —
// nothing here encodes the exit reason as host bytes.
func EmitEpilogue(b *codebuf.Buffer) {
	amd64.EmitPop(b, xlator.StateReg)
	amd64.EmitRet(b)
}

// emitUndefinedStub stores pc (the instruction that could not be
// translated, or that one fault-checked ahead of it) into state.State.PC
// and traps, mirroring xlator.TranslateBreakpointOrHalt's shape for the
// same undefined-instruction contract spec.md §4.4/§4.5 both describe.
func emitUndefinedStub(b *codebuf.Buffer, pc uint64) xlator.ExitPoint {
	amd64.EmitMovImm64(b, amd64.RAX, pc)
	amd64.EmitStoreMem(b, xlator.StateReg, int32(state.Offsets.PC), amd64.RAX, true)
	amd64.EmitUD2(b)
	return xlator.ExitPoint{Kind: xlator.ExitUndefined, GuestTarget: pc}
}

// Translate walks guest memory forward from startPC four bytes at a time
// (spec.md §4.3's fixed instruction length), dispatching each encoding via
// dispatch.Dispatch, until a block terminator, a decode failure, or a read
// fault ends the block. A block always contains at least one instruction
// (the loop's first iteration is unconditional).
func Translate(startPC uint64, mem Memory, argReg amd64.Reg, b *codebuf.Buffer) Result {
	EmitPrologue(b, argReg)

	pc := startPC
	var exits []xlator.ExitPoint
	for {
		enc, ok := mem.ReadU32(pc)
		if !ok {
			exits = append(exits, emitUndefinedStub(b, pc))
			break
		}
		res := dispatch.Dispatch(enc, b, pc)
		if !res.OK {
			exits = append(exits, emitUndefinedStub(b, pc))
			break
		}
		if res.Terminator {
			exits = append(exits, res.Exits...)
			pc += 4
			break
		}
		pc += 4
	}

	epilogueOffset := b.CurrentOffset()
	EmitEpilogue(b)
	resolveExitsToEpilogue(b, exits, epilogueOffset)
	return Result{EntryPC: startPC, NextPC: pc, Exits: exits, EpilogueOffset: epilogueOffset}
}

// resolveExitsToEpilogue patches every exit jump xlator.emitLocalJmpToExit
// left as a self-referencing placeholder so it instead falls into the
// block's own epilogue — the default, always-correct target before the
// cache/engine layer optionally chains a specific exit straight into
// another block (spec.md §4.5). Exit kinds whose translator never emitted a
// jump (indirect/return/syscall/undefined — they fall through to the
// epilogue, or trap, by straight-line placement) carry no PatchOffset to
// resolve and are left untouched.
func resolveExitsToEpilogue(b *codebuf.Buffer, exits []xlator.ExitPoint, epilogueOffset uint32) {
	for _, e := range exits {
		switch e.Kind {
		case xlator.ExitDirect, xlator.ExitConditionalTaken, xlator.ExitConditionalFallthrough:
			instrAddr := e.PatchOffset - 1
			d := int64(epilogueOffset) - int64(instrAddr) - 5
			b.PatchU32LE(e.PatchOffset, uint32(int32(d)))
		}
	}
}
