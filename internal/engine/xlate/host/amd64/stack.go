package amd64

import "github.com/anvilforge/anvil/internal/engine/xlate/codebuf"

// EmitPush appends PUSH r64 (50+rd). No REX.W is needed; the operand size
// defaults to 64 bits in 64-bit mode.
func EmitPush(b *codebuf.Buffer, src Reg) {
	if needsExt(uint8(src)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0x50 + low3(uint8(src)))
}

// EmitPop appends POP r64 (58+rd).
func EmitPop(b *codebuf.Buffer, dst Reg) {
	if needsExt(uint8(dst)) {
		b.EmitU8(Rex(false, false, false, true))
	}
	b.EmitU8(0x58 + low3(uint8(dst)))
}

// EmitPushfq appends PUSHFQ (9C), pushing RFLAGS.
func EmitPushfq(b *codebuf.Buffer) { b.EmitU8(0x9C) }

// EmitPopfq appends POPFQ (9D), restoring RFLAGS.
func EmitPopfq(b *codebuf.Buffer) { b.EmitU8(0x9D) }
