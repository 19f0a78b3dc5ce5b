package hostsys

import (
	"debug/elf"
	"fmt"
	"io"
)

// Linux/arm64 auxiliary-vector tags spec.md §6's Guest ABI paragraph names.
// Values match the kernel's <linux/auxvec.h>; this package only ever needs
// to emit these seven (plus AT_NULL), not the full table.
const (
	atNull   = 0
	atPhdr   = 3
	atPhent  = 4
	atPhnum  = 5
	atBase   = 7
	atEntry  = 9
	atRandom = 25
	atVDSO   = 33
)

const loadBase = uint64(0x400000) // non-PIE default guest image base
const phEntrySize = 56             // sizeof(Elf64_Phdr)

// Image is a loaded guest program ready for launch.Run: its memory is
// populated, and EntryPC/InitialSP are the values spec.md §4.8 says the
// core consumes.
type Image struct {
	Memory    *AddressSpace
	EntryPC   uint64
	InitialSP uint64
	// VDSOSymbols maps the small set of named symbols spec.md §6 says the
	// core resolves out of AT_VDSO's dynamic symbol table to their guest
	// addresses. No code in this repository reads the map.
	VDSOSymbols map[string]uint64
}

// Load maps path's PT_LOAD segments into a fresh AddressSpace, maps a
// synthetic vDSO, and builds the initial stack (argv/envp/auxv per
// spec.md §6's Guest ABI paragraph). randSeed supplies the 16 bytes of
// AT_RANDOM and stackPad the "initial random offset used for stack
// padding" spec.md §4.8 names — the caller owns entropy generation so
// this package's layout logic stays deterministic and testable.
func Load(path string, argv, envp []string, randSeed [16]byte, stackPad uint64) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hostsys: open guest elf %s: %w", path, err)
	}
	defer f.Close()

	if f.Machine != elf.EM_AARCH64 {
		return nil, fmt.Errorf("hostsys: guest elf %s is not arm64 (machine=%s)", path, f.Machine)
	}

	mem := NewAddressSpace()
	var phdrAddr uint64
	numLoad := 0
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_PHDR {
			phdrAddr = loadBase + prog.Vaddr
		}
		if prog.Type != elf.PT_LOAD {
			continue
		}
		numLoad++
		if prog.Memsz == 0 {
			continue
		}
		data := make([]byte, prog.Memsz)
		n, err := prog.ReadAt(data[:prog.Filesz], 0)
		if (err != nil && err != io.EOF) || uint64(n) != prog.Filesz {
			return nil, fmt.Errorf("hostsys: read segment at vaddr %#x of %s: %w", prog.Vaddr, path, err)
		}
		mem.Map(loadBase+prog.Vaddr, data, prog.Flags&elf.PF_X != 0)
	}
	if phdrAddr == 0 {
		// no PT_PHDR segment (common for hand-linked minimal images): the
		// conventional ELF+phdr layout places the program headers
		// immediately after the 64-byte ELF header, within segment 0.
		phdrAddr = loadBase + 64
	}

	entry := loadBase + f.Entry
	vdsoAddr, vdsoSyms, err := mapVDSO(mem)
	if err != nil {
		return nil, err
	}

	sp, err := buildStack(mem, argv, envp, stackLayout{
		phdrAddr: phdrAddr,
		phnum:    uint64(numLoad),
		entry:    entry,
		vdsoAddr: vdsoAddr,
	}, randSeed, stackPad)
	if err != nil {
		return nil, err
	}

	return &Image{Memory: mem, EntryPC: entry, InitialSP: sp, VDSOSymbols: vdsoSyms}, nil
}
