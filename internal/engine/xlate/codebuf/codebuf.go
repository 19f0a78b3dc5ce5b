// Package codebuf implements the append-only host-code byte sink that the
// host emitter writes into (spec.md §4.1). It has no knowledge of x86
// semantics: it only knows how to append bytes, report the current offset,
// and patch a previously recorded 32-bit field.
package codebuf

import "encoding/binary"

// Buffer is an append-only byte region with a fixed capacity. Writes past
// capacity are silently discarded and a sticky error flag is set; Finalize
// reports it.
type Buffer struct {
	buf      []byte
	capacity int
	overflow bool
}

// New allocates a Buffer backed by a slice of the given capacity.
func New(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity), capacity: capacity}
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// CurrentOffset returns the offset the next emitted byte will land at.
func (b *Buffer) CurrentOffset() uint32 { return uint32(len(b.buf)) }

// Overflowed reports whether any write has been discarded for lack of
// capacity.
func (b *Buffer) Overflowed() bool { return b.overflow }

func (b *Buffer) room(n int) bool {
	return !b.overflow && len(b.buf)+n <= b.capacity
}

// EmitU8 appends a single byte.
func (b *Buffer) EmitU8(v byte) {
	if !b.room(1) {
		b.overflow = true
		return
	}
	b.buf = append(b.buf, v)
}

// EmitBytes appends a raw byte sequence, e.g. a multi-byte opcode plus
// ModRM/SIB/displacement the emitter has already assembled.
func (b *Buffer) EmitBytes(v ...byte) {
	if !b.room(len(v)) {
		b.overflow = true
		return
	}
	b.buf = append(b.buf, v...)
}

// EmitU32LE appends a 32-bit little-endian word.
func (b *Buffer) EmitU32LE(w uint32) {
	if !b.room(4) {
		b.overflow = true
		return
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], w)
	b.buf = append(b.buf, tmp[:]...)
}

// EmitU64LE appends a 64-bit little-endian word.
func (b *Buffer) EmitU64LE(q uint64) {
	if !b.room(8) {
		b.overflow = true
		return
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], q)
	b.buf = append(b.buf, tmp[:]...)
}

// PatchU32LE overwrites a previously recorded 32-bit little-endian field at
// offset, as used to back-patch PC-relative displacements once a jump
// target becomes known. offset must have been returned by CurrentOffset
// before the 4 bytes being patched were emitted. A field that was itself
// discarded because the buffer overflowed is skipped, like any other write
// past capacity; any other out-of-range offset is a caller bug and panics
// rather than silently corrupting neighboring bytes.
func (b *Buffer) PatchU32LE(offset uint32, w uint32) {
	end := int(offset) + 4
	if end > len(b.buf) {
		if b.overflow {
			return
		}
		panic("codebuf: PatchU32LE out of range")
	}
	binary.LittleEndian.PutUint32(b.buf[offset:end], w)
}

// Finalize returns the written bytes and whether the buffer overflowed at
// any point during emission. Callers must check the bool before trusting
// the returned slice: an overflowed buffer is incomplete.
func (b *Buffer) Finalize() ([]byte, bool) {
	return b.buf, b.overflow
}
