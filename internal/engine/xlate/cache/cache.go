// Package cache implements the translation cache (spec.md §4.6, §5):
// process-wide, guest-PC-keyed storage for translated blocks, shared
// read-mostly between guest threads.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/anvilforge/anvil/internal/engine/xlate/xlator"
)

// CodeRegion is the executable-memory mechanism the cache delegates to: it
// knows nothing about mmap/mprotect itself (internal/hostsys provides the
// real implementation; tests use an in-process fake). Publish must write
// code and set the region read-execute before returning hostEntry — the
// release-store spec.md §5 requires — and Patch must only ever be called
// against an already-published, currently-executable region.
type CodeRegion interface {
	Publish(code []byte) (hostEntry uintptr, err error)
	Patch(hostEntry uintptr, fieldOffset uint32, rel32 uint32) error
	Release(hostEntry uintptr)
}

// Handle is a published, executable translated block.
type Handle struct {
	EntryPC        uint64
	NextPC         uint64
	HostEntry      uintptr
	Code           []byte
	Exits          []xlator.ExitPoint
	EpilogueOffset uint32

	// unreachable implements spec.md §5's two-step invalidation protocol:
	// set before reclaim, so a thread racing Lookup against Invalidate
	// either observes the sentinel (and falls back to the dispatcher) or
	// still sees a valid, not-yet-reclaimed entry.
	unreachable atomic.Bool

	mu           sync.Mutex
	chainSources []chainSite
}

type chainSite struct {
	source      *Handle
	fieldOffset uint32
}

// InsertOutcome reports what Insert actually did.
type InsertOutcome int

const (
	// Inserted means this call's handle is now the cache's entry for the key.
	Inserted InsertOutcome = iota
	// AlreadyPresent means a live entry already existed for the key; per
	// spec.md §4.6 "two insertions with the same key are a bug — the
	// second returns the existing handle and drops the new one", the
	// caller's freshly-built handle is discarded (never published) rather
	// than replacing the winner.
	AlreadyPresent
)

// Cache is the process-wide translation cache. The zero value is not
// usable; construct with New.
type Cache struct {
	region  CodeRegion
	mu      sync.RWMutex
	blocks  map[uint64]*Handle
	reclaim errgroup.Group
}

// New constructs an empty Cache backed by region.
func New(region CodeRegion) *Cache {
	return &Cache{region: region, blocks: make(map[uint64]*Handle)}
}

// Lookup finds the live entry for guestPC, if any. Concurrent Lookups need
// no external synchronization (spec.md §5); the RWMutex read lock plus the
// unreachable sentinel together give a Lookup racing an Invalidate a
// consistent view (either the old entry, not yet marked, or the miss a
// cleared/marked entry produces — never a torn read).
func (c *Cache) Lookup(guestPC uint64) (*Handle, bool) {
	c.mu.RLock()
	h, ok := c.blocks[guestPC]
	c.mu.RUnlock()
	if !ok || h.unreachable.Load() {
		return nil, false
	}
	return h, true
}

// Insert publishes code as the translated block for guestPC and records it.
// Keyed strictly by guestPC: an existing live entry wins and this call's
// code is never published (spec.md §4.6).
func (c *Cache) Insert(guestPC, nextPC uint64, code []byte, exits []xlator.ExitPoint, epilogueOffset uint32) (*Handle, InsertOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.blocks[guestPC]; ok && !existing.unreachable.Load() {
		return existing, AlreadyPresent, nil
	}
	hostEntry, err := c.region.Publish(code)
	if err != nil {
		return nil, Inserted, fmt.Errorf("cache: publish block at guest pc %#x: %w", guestPC, err)
	}
	h := &Handle{EntryPC: guestPC, NextPC: nextPC, HostEntry: hostEntry, Code: code, Exits: exits, EpilogueOffset: epilogueOffset}
	c.blocks[guestPC] = h
	return h, Inserted, nil
}

// Link patches source's exit at fieldOffset to jump directly to target's
// host entry (spec.md §4.5's direct block chaining), recording the site on
// target so a later Invalidate(target) unlinks it. This is purely an
// optimization over always returning to the dispatcher; correctness does
// not depend on any exit ever being linked.
func (c *Cache) Link(source *Handle, fieldOffset uint32, target *Handle) error {
	d, ok := rel32(source.HostEntry, fieldOffset, target.HostEntry)
	if !ok {
		return fmt.Errorf("cache: chain displacement out of range, guest pc %#x -> %#x", source.EntryPC, target.EntryPC)
	}
	if err := c.region.Patch(source.HostEntry, fieldOffset, uint32(d)); err != nil {
		return err
	}
	target.mu.Lock()
	target.chainSources = append(target.chainSources, chainSite{source: source, fieldOffset: fieldOffset})
	target.mu.Unlock()
	return nil
}

// unlink rewrites every chained jump currently targeting h back to its
// source block's own epilogue (the source's EpilogueOffset), so a source
// block whose chain is unlinked degrades to "return to
// dispatcher" instead of jumping into code about to be reclaimed.
func (c *Cache) unlink(h *Handle) {
	h.mu.Lock()
	sites := h.chainSources
	h.chainSources = nil
	h.mu.Unlock()

	for _, site := range sites {
		epilogue := site.source.HostEntry + uintptr(site.source.EpilogueOffset)
		if d, ok := rel32(site.source.HostEntry, site.fieldOffset, epilogue); ok {
			_ = c.region.Patch(site.source.HostEntry, site.fieldOffset, uint32(d))
		}
	}
}

// Invalidate removes every block whose entry PC falls within
// [lowPC, highPC), per spec.md §4.6/§5's two-step protocol: mark each
// matched entry unreachable immediately (so any concurrent Lookup either
// observes the sentinel or finishes reading a still-valid handle), unlink
// chained jumps pointing at it, then defer reclaiming its host bytes to an
// errgroup goroutine standing in for "a quiescent point" — a real
// implementation would gate this on every thread having left the region at
// least once since the mark, which this package does not itself track.
func (c *Cache) Invalidate(lowPC, highPC uint64) {
	c.mu.Lock()
	var matched []*Handle
	for pc, h := range c.blocks {
		if pc >= lowPC && pc < highPC {
			matched = append(matched, h)
			delete(c.blocks, pc)
		}
	}
	c.mu.Unlock()

	for _, h := range matched {
		h.unreachable.Store(true)
	}
	for _, h := range matched {
		h := h
		c.unlink(h)
		c.reclaim.Go(func() error {
			c.region.Release(h.HostEntry)
			return nil
		})
	}
}

// Wait blocks until every deferred reclaim triggered by a prior Invalidate
// has completed. Production callers need not wait; tests use this to
// observe Release calls deterministically.
func (c *Cache) Wait() error {
	return c.reclaim.Wait()
}

// rel32 computes target - (instrAddr + fieldOffset + 4) - (addend bytes
// the jump still has after its rel32 field) ... specifically it reproduces
// amd64.EmitJmp's displacement formula for the one case the cache ever
// patches: a 5-byte near JMP rel32 whose field starts at fieldOffset bytes
// past the source block's host entry (the offset recorded in
// xlator.ExitPoint.PatchOffset / block.EmitEpilogue's exit jumps, which
// every block.Translate-produced exit uses — see
// xlator.emitLocalJmpToExit).
func rel32(hostEntry uintptr, fieldOffset uint32, target uintptr) (int32, bool) {
	instrAddr := uint64(hostEntry) + uint64(fieldOffset) - 1 // field starts 1 byte into E9 cd
	d := int64(target) - int64(instrAddr) - 5
	if d < -(1 << 31) || d > (1<<31)-1 {
		return 0, false
	}
	return int32(d), true
}
