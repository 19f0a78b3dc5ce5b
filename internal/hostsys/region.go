package hostsys

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// CodeRegion is the mmap/mprotect-backed implementation of
// cache.CodeRegion (spec.md §4.6's "executable code regions"). Grounded
// on the concern the teacher's wazevo.go names — platform.MmapCodeSegment
// /platform.MprotectRX — though that package itself is not present in
// this retrieval pack; this package re-derives the same two operations
// directly against golang.org/x/sys/unix, which every machine-code-backend
// repo in the pack already depends on.
type CodeRegion struct {
	mu   sync.Mutex
	live map[uintptr][]byte
}

// NewCodeRegion returns an empty CodeRegion.
func NewCodeRegion() *CodeRegion {
	return &CodeRegion{live: make(map[uintptr][]byte)}
}

// Publish maps code into fresh read-write memory, copies it in, then
// mprotects the mapping to read-execute before returning — the
// write-then-protect order, and the fact that hostEntry is only handed
// back afterward, is what realizes spec.md §5's "cache insertion publishes
// host_entry only after the code bytes are written and the region is set
// read-execute" release-store requirement: no other goroutine can observe
// hostEntry (and therefore the mapping) until both have happened.
func (r *CodeRegion) Publish(code []byte) (uintptr, error) {
	size := len(code)
	if size == 0 {
		return 0, fmt.Errorf("hostsys: cannot publish empty code region")
	}
	mapping, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("hostsys: mmap code region: %w", err)
	}
	copy(mapping, code)
	if err := unix.Mprotect(mapping, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mapping)
		return 0, fmt.Errorf("hostsys: mprotect code region read-execute: %w", err)
	}

	hostEntry := addrOf(mapping)
	r.mu.Lock()
	r.live[hostEntry] = mapping
	r.mu.Unlock()
	return hostEntry, nil
}

// Patch rewrites the rel32 field fieldOffset bytes into the region
// starting at hostEntry. The region must briefly regain write permission
// — spec.md does not name chained-jump patching as needing to be lock-free
// against concurrent execution of the same bytes; direct block chaining is
// an optimization over always returning to the dispatcher, so a patch
// racing an in-flight execution of the same block at worst sends that one
// execution back to the dispatcher instead of the chained target, which is
// always still correct.
func (r *CodeRegion) Patch(hostEntry uintptr, fieldOffset uint32, rel32 uint32) error {
	r.mu.Lock()
	mapping, ok := r.live[hostEntry]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("hostsys: patch: no live region at host entry %#x", hostEntry)
	}
	if uint64(fieldOffset)+4 > uint64(len(mapping)) {
		return fmt.Errorf("hostsys: patch: field offset %d out of range for region of %d bytes", fieldOffset, len(mapping))
	}
	if err := unix.Mprotect(mapping, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("hostsys: patch: mprotect writable: %w", err)
	}
	mapping[fieldOffset] = byte(rel32)
	mapping[fieldOffset+1] = byte(rel32 >> 8)
	mapping[fieldOffset+2] = byte(rel32 >> 16)
	mapping[fieldOffset+3] = byte(rel32 >> 24)
	if err := unix.Mprotect(mapping, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("hostsys: patch: mprotect read-execute: %w", err)
	}
	return nil
}

// Release unmaps hostEntry's region. cache.Cache only calls this from its
// deferred-reclaim errgroup, after a quiescent point; Release itself does
// not wait for one.
func (r *CodeRegion) Release(hostEntry uintptr) {
	r.mu.Lock()
	mapping, ok := r.live[hostEntry]
	delete(r.live, hostEntry)
	r.mu.Unlock()
	if ok {
		_ = unix.Munmap(mapping)
	}
}
