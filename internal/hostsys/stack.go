package hostsys

import (
	"encoding/binary"
)

const stackTop = uint64(0x7ffffffff000)
const stackSize = uint64(8 << 20) // 8MiB, a conventional default guest stack

// stackLayout carries the auxv values Load computes from the ELF header
// and the mapped vDSO, independent of buildStack's string/pointer-array
// bookkeeping.
type stackLayout struct {
	phdrAddr uint64
	phnum    uint64
	entry    uint64
	vdsoAddr uint64
}

// buildStack lays out the guest's initial stack exactly as a kernel's
// execve would: argc, argv[] (NULL-terminated), envp[] (NULL-terminated),
// auxv (tag/value pairs, AT_NULL-terminated), then the argv/envp string
// bytes themselves, all below stackTop. It returns the stack pointer
// spec.md §4.8 says the core consumes as its "initial stack pointer".
func buildStack(mem *AddressSpace, argv, envp []string, layout stackLayout, randSeed [16]byte, stackPad uint64) (uint64, error) {
	base := stackTop - stackSize
	mem.Map(base, make([]byte, stackSize), false)

	// Strings grow down from the top; each pointer is recorded as it's
	// written so the argv/envp pointer arrays below can reference them.
	cursor := stackTop
	writeString := func(s string) uint64 {
		b := append([]byte(s), 0)
		cursor -= uint64(len(b))
		if err := mem.WriteBytes(cursor, b); err != nil {
			panic(err) // stackSize is chosen generously; a real loader would size-check argv/envp first
		}
		return cursor
	}

	envPtrs := make([]uint64, len(envp))
	for i := len(envp) - 1; i >= 0; i-- {
		envPtrs[i] = writeString(envp[i])
	}
	argPtrs := make([]uint64, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		argPtrs[i] = writeString(argv[i])
	}

	cursor -= 16
	if err := mem.WriteBytes(cursor, randSeed[:]); err != nil {
		return 0, err
	}
	randAddr := cursor

	// 16-byte align before the pointer arrays, per the platform's standard
	// stack-alignment requirement at process entry.
	cursor &^= 0xF
	if stackPad > 0 {
		cursor -= stackPad % pageSize
		cursor &^= 0xF
	}

	auxv := []auxEntry{
		{atPhdr, layout.phdrAddr},
		{atPhent, phEntrySize},
		{atPhnum, layout.phnum},
		{atBase, 0},
		{atEntry, layout.entry},
		{atRandom, randAddr},
		{atVDSO, layout.vdsoAddr},
		{atNull, 0},
	}

	// Total words below cursor: argc(1) + argv ptrs(+1 NULL) + envp ptrs(+1
	// NULL) + auxv pairs(2 each).
	words := 1 + (len(argPtrs) + 1) + (len(envPtrs) + 1) + len(auxv)*2
	cursor -= uint64(words) * 8
	cursor &^= 0xF
	sp := cursor

	write64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		if err := mem.WriteBytes(cursor, b[:]); err != nil {
			panic(err)
		}
		cursor += 8
	}

	write64(uint64(len(argv)))
	for _, p := range argPtrs {
		write64(p)
	}
	write64(0)
	for _, p := range envPtrs {
		write64(p)
	}
	write64(0)
	for _, e := range auxv {
		write64(e.tag)
		write64(e.val)
	}

	return sp, nil
}

type auxEntry struct {
	tag uint64
	val uint64
}
