package hostsys

import "unsafe"

// invoke calls the translated block at host address entry as a function
// of one argument, a pointer to the calling thread's state.State
// (implemented in invoke_amd64.s, the one place this repo steps outside
// pure Go: no safe call-through-function-pointer exists in the language
// itself, so a small Go-assembly trampoline bridges Go's calling
// convention to the one block.EmitPrologue/EmitEpilogue establish).
func invoke(entry uintptr, state unsafe.Pointer)

// Invoke runs the translated block published at hostEntry against state,
// returning once the block has exited back to the dispatcher (taken a
// terminator, trapped, or requested a syscall) — launch.Run reads
// state.PC and the corresponding cache.Handle's Exits to decide what to
// do next.
func Invoke(hostEntry uintptr, state unsafe.Pointer) {
	invoke(hostEntry, state)
}
