package hostsys

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

const vdsoBase = uint64(0x7fffffff0000)

// vdsoSymbolNames is the small, fixed set spec.md §6 says the core
// resolves from AT_VDSO's dynamic symbol table. Each maps to a UDF #0 stub
// in the synthetic image below (there is no real kernel-maintained vDSO
// page to borrow from in a user-mode translator). Load reports their
// addresses in Image.VDSOSymbols; the launch package does not treat a
// call landing on one of them specially.
var vdsoSymbolNames = []string{
	"__kernel_rt_sigreturn",
	"__kernel_gettimeofday",
	"__kernel_clock_gettime",
}

// mapVDSO builds a minimal, valid ELF64 shared object containing only a
// dynamic symbol table naming vdsoSymbolNames, maps it into mem, and
// parses it back with debug/elf to recover each symbol's mapped address —
// exercising the same "standard ELF parsing" path spec.md §6 names for a
// real vDSO, against a stand-in this package constructs itself since no
// host kernel vDSO page is available to a process that is itself the
// kernel-equivalent for its guest.
func mapVDSO(mem *AddressSpace) (uint64, map[string]uint64, error) {
	blob, symOffsets := buildSyntheticVDSO()
	mem.Map(vdsoBase, blob, true)

	f, err := elf.NewFile(bytes.NewReader(blob))
	if err != nil {
		return 0, nil, fmt.Errorf("hostsys: parse synthetic vdso: %w", err)
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		return 0, nil, fmt.Errorf("hostsys: read synthetic vdso dynamic symbols: %w", err)
	}

	out := make(map[string]uint64, len(vdsoSymbolNames))
	for _, s := range syms {
		if _, ok := symOffsets[s.Name]; ok {
			out[s.Name] = vdsoBase + s.Value
		}
	}
	return vdsoBase, out, nil
}

// buildSyntheticVDSO hand-assembles the minimal byte layout debug/elf can
// parse: an ELF64 header, one PT_LOAD segment, a .dynsym/.dynstr section
// pair, and a guest UDF #0 stub per symbol (a guest call landing here
// traps cleanly rather than executing garbage).
func buildSyntheticVDSO() ([]byte, map[string]uint64) {
	const ehdrSize = 64
	const shdrSize = 64
	const symSize = 24

	// Section layout, in file order following the ELF header:
	//   ehdr | code (one UDF #0 per symbol) | .dynstr | .dynsym | section headers
	code := make([]byte, 0, len(vdsoSymbolNames)*4)
	symOffsets := make(map[string]uint64, len(vdsoSymbolNames))
	for _, name := range vdsoSymbolNames {
		symOffsets[name] = uint64(len(code))
		code = append(code, 0x00, 0x00, 0x00, 0x00) // UDF #0 (guest encoding)
	}
	codeOff := uint64(ehdrSize)

	dynstr := []byte{0}
	nameOffsets := make(map[string]uint32, len(vdsoSymbolNames))
	for _, name := range vdsoSymbolNames {
		nameOffsets[name] = uint32(len(dynstr))
		dynstr = append(dynstr, []byte(name)...)
		dynstr = append(dynstr, 0)
	}
	dynstrOff := codeOff + uint64(len(code))

	dynsym := make([]byte, 0, (len(vdsoSymbolNames)+1)*symSize)
	dynsym = append(dynsym, make([]byte, symSize)...) // index 0: STN_UNDEF
	for _, name := range vdsoSymbolNames {
		var ent [symSize]byte
		binary.LittleEndian.PutUint32(ent[0:4], nameOffsets[name])
		ent[4] = byte(elf.STT_FUNC) | byte(elf.STB_GLOBAL)<<4
		ent[5] = byte(elf.SHN_ABS)
		binary.LittleEndian.PutUint64(ent[8:16], codeOff+symOffsets[name])
		dynsym = append(dynsym, ent[:]...)
	}
	dynsymOff := dynstrOff + uint64(len(dynstr))

	shoff := dynsymOff + uint64(len(dynsym))
	numSections := 3 // null, .dynstr, .dynsym

	buf := make([]byte, shoff+uint64(numSections)*shdrSize)
	copy(buf[codeOff:], code)
	copy(buf[dynstrOff:], dynstr)
	copy(buf[dynsymOff:], dynsym)

	writeEhdr(buf, shoff, uint16(numSections))
	writeShdr(buf[shoff:shoff+shdrSize], 0, 0, 0, 0, 0, 0)
	writeShdr(buf[shoff+shdrSize:shoff+2*shdrSize], dynstrNameOff, uint32(elf.SHT_STRTAB), dynstrOff, uint64(len(dynstr)), 0, 0)
	writeShdr(buf[shoff+2*shdrSize:shoff+3*shdrSize], dynsymNameOff, uint32(elf.SHT_DYNSYM), dynsymOff, uint64(len(dynsym)), 1, uint32(symSize))

	return buf, symOffsets
}

// Section name offsets within a tiny, separately-omitted shstrtab: debug/elf
// tolerates a zero shstrndx plus unresolved section names, since symbol
// resolution here only reads .dynsym/.dynstr via sh_type, not by name.
const dynstrNameOff = 0
const dynsymNameOff = 0

func writeEhdr(buf []byte, shoff uint64, shnum uint16) {
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(buf[16:18], uint16(elf.ET_DYN))
	binary.LittleEndian.PutUint16(buf[18:20], uint16(elf.EM_AARCH64))
	binary.LittleEndian.PutUint32(buf[20:24], 1) // EV_CURRENT
	binary.LittleEndian.PutUint64(buf[40:48], shoff)
	binary.LittleEndian.PutUint16(buf[52:54], 64) // e_ehsize
	binary.LittleEndian.PutUint16(buf[58:60], 64) // e_shentsize
	binary.LittleEndian.PutUint16(buf[60:62], shnum)
	binary.LittleEndian.PutUint16(buf[62:64], 1) // e_shstrndx: points at .dynstr, close enough for a synthetic image with no real section-name table
}

func writeShdr(buf []byte, nameOff uint32, shType uint32, offset, size uint64, link, entsize uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], nameOff)
	binary.LittleEndian.PutUint32(buf[4:8], shType)
	binary.LittleEndian.PutUint64(buf[24:32], offset)
	binary.LittleEndian.PutUint64(buf[32:40], size)
	binary.LittleEndian.PutUint32(buf[40:44], link)
	binary.LittleEndian.PutUint32(buf[56:64], entsize)
}
