// Package hostsys is the host-facing collaborator the engine layer drives:
// the guest address space, the ELF+auxv loader, the guest-syscall shim, and
// the mmap/mprotect-backed executable code region. Everything here talks to
// the real OS (golang.org/x/sys/unix); the translation packages
// (dispatch/block/cache) know only the Memory/CodeRegion interfaces they
// declare, so this package exists to satisfy those interfaces for real.
package hostsys

import (
	"encoding/binary"
	"fmt"
)

// pageSize is the guest page granularity permission checks are made at.
// spec.md §4.5 only requires that an unreadable page terminate a block
// early; it does not mandate matching the host's own page size, so a fixed
// 4KiB (the universal minimum across host architectures this targets)
// keeps guest permission checks independent of the host's actual
// configuration.
const pageSize = 4096

// region is one mapped span of guest address space.
type region struct {
	base       uint64
	data       []byte
	readable   bool
	executable bool
}

func (r *region) contains(addr uint64) bool {
	return addr >= r.base && addr < r.base+uint64(len(r.data))
}

// AddressSpace is a flat, segment-based guest memory implementation
// satisfying block.Memory. Guest ELF segments (and the initial stack) are
// each registered as one region; reads and writes outside any mapped
// region, or against a region lacking the requested permission, fail
// rather than panicking — translated code depends on that to implement
// spec.md §4.5's "terminate the block early" contract for unreadable
// pages.
type AddressSpace struct {
	regions []*region
}

// NewAddressSpace returns an empty guest address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

// Map registers data as readable (and, if exec is true, executable) guest
// memory starting at base. Segments must not overlap; Map does not check
// this since the loader is the only caller and constructs segments from a
// validated ELF program header table.
func (a *AddressSpace) Map(base uint64, data []byte, exec bool) {
	a.regions = append(a.regions, &region{base: base, data: data, readable: true, executable: exec})
}

func (a *AddressSpace) find(addr uint64) *region {
	for _, r := range a.regions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// Segment describes one mapped region, for ANVIL_PRINT_SEGMENTS reporting.
type Segment struct {
	Base uint64
	Size uint64
	Exec bool
}

// Segments reports every mapped region in registration order (ELF PT_LOAD
// segments, the synthetic vDSO, then the stack) for cmd/anvil's
// ANVIL_PRINT_SEGMENTS diagnostic dump.
func (a *AddressSpace) Segments() []Segment {
	out := make([]Segment, len(a.regions))
	for i, r := range a.regions {
		out[i] = Segment{Base: r.base, Size: uint64(len(r.data)), Exec: r.executable}
	}
	return out
}

// ReadU32 implements block.Memory. It fails when addr (or any byte of the
// 4-byte encoding at addr) falls outside every mapped, readable region —
// the guest-page-permission-fault case spec.md §4.5 requires the block
// translator to handle by finalizing the block early with a fault stub,
// rather than reading through the boundary.
func (a *AddressSpace) ReadU32(addr uint64) (uint32, bool) {
	r := a.find(addr)
	if r == nil || !r.readable || !r.contains(addr+3) {
		return 0, false
	}
	off := addr - r.base
	return binary.LittleEndian.Uint32(r.data[off : off+4]), true
}

// ReadU8/ReadU64/WriteU8/WriteU64 give Go-side code (the syscall shim's
// buffer marshaling, WriteBytes and so the loader's stack layout) access to
// guest memory. Translated code does not call them: xlator's emitted
// loads/stores address memory directly.
func (a *AddressSpace) ReadU8(addr uint64) (uint8, bool) {
	r := a.find(addr)
	if r == nil || !r.readable {
		return 0, false
	}
	return r.data[addr-r.base], true
}

func (a *AddressSpace) ReadU64(addr uint64) (uint64, bool) {
	r := a.find(addr)
	if r == nil || !r.readable || !r.contains(addr+7) {
		return 0, false
	}
	off := addr - r.base
	return binary.LittleEndian.Uint64(r.data[off : off+8]), true
}

func (a *AddressSpace) WriteU8(addr uint64, v uint8) bool {
	r := a.find(addr)
	if r == nil {
		return false
	}
	r.data[addr-r.base] = v
	return true
}

func (a *AddressSpace) WriteU64(addr uint64, v uint64) bool {
	r := a.find(addr)
	if r == nil || !r.contains(addr+7) {
		return false
	}
	off := addr - r.base
	binary.LittleEndian.PutUint64(r.data[off:off+8], v)
	return true
}

// WriteBytes copies data into guest memory starting at addr, growing no
// region — addr..addr+len(data) must already be mapped (the loader uses
// this to lay out argv/envp/auxv onto an already-reserved stack region).
func (a *AddressSpace) WriteBytes(addr uint64, data []byte) error {
	for i, b := range data {
		if !a.WriteU8(addr+uint64(i), b) {
			return fmt.Errorf("hostsys: write at guest addr %#x outside any mapped region", addr+uint64(i))
		}
	}
	return nil
}
