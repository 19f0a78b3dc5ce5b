package xlator

import (
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
)

// Local jumps patch their own displacement within the same code buffer,
// entirely at translation time: since both the jump and its target live
// in the same block, the eventual host base address cancels out of
// `target - instrAddr - instLen`, so buffer offsets serve directly as
// stand-in addresses (spec.md §4.2's rel32 formula, applied intra-block
// rather than against the unresolved-target table spec.md §3 reserves
// for cross-block branches).

// pendingJcc records a forward conditional jump awaiting its target.
type pendingJcc struct {
	instrStart uint32
	patchAt    uint32
}

// emitLocalJcc appends a placeholder Jcc and returns a handle to resolve
// once the target offset is known.
func emitLocalJcc(b *codebuf.Buffer, cond amd64.Cond) pendingJcc {
	start := b.CurrentOffset()
	amd64.EmitJcc(b, cond, uint64(start), uint64(start))
	return pendingJcc{instrStart: start, patchAt: start + amd64.EmitJccDisplacementOffset}
}

// resolve patches p's displacement to target the buffer's current offset.
func (p pendingJcc) resolve(b *codebuf.Buffer) {
	target := b.CurrentOffset()
	d := int32(int64(target) - int64(p.instrStart) - 6)
	b.PatchU32LE(p.patchAt, uint32(d))
}

// pendingJmp records a forward unconditional jump awaiting its target.
type pendingJmp struct {
	instrStart uint32
	patchAt    uint32
}

func emitLocalJmp(b *codebuf.Buffer) pendingJmp {
	start := b.CurrentOffset()
	amd64.EmitJmp(b, uint64(start), uint64(start))
	return pendingJmp{instrStart: start, patchAt: start + amd64.EmitJmpDisplacementOffset}
}

func (p pendingJmp) resolve(b *codebuf.Buffer) {
	target := b.CurrentOffset()
	d := int32(int64(target) - int64(p.instrStart) - 5)
	b.PatchU32LE(p.patchAt, uint32(d))
}
