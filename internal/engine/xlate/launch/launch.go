// Package launch implements the launcher interface spec.md §4.8 names: it
// consumes an entry PC, initial stack pointer, and initial argv/envp/auxv
// already laid out on the guest stack, and exposes a single "run from
// guest PC" entry point returning an exit status. It is the top-level loop
// that wires the block translator, translation cache, and guest-syscall
// shim together — the dispatcher-to-translator callback spec.md §5 says is
// the only path back into translation.
package launch

import (
	"errors"
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/anvilforge/anvil/internal/engine/xlate/block"
	"github.com/anvilforge/anvil/internal/engine/xlate/cache"
	"github.com/anvilforge/anvil/internal/engine/xlate/codebuf"
	"github.com/anvilforge/anvil/internal/engine/xlate/host/amd64"
	"github.com/anvilforge/anvil/internal/engine/xlate/state"
	"github.com/anvilforge/anvil/internal/engine/xlate/xlator"
	"github.com/anvilforge/anvil/internal/hostsys"
)

// translationBufferCapacity generously bounds a single guest basic
// block's translated host code; spec.md's Non-goals exclude optimizing
// this, so a fixed conservative size (no guest basic block approaches
// this many host bytes per instruction) keeps codebuf.New simple.
const translationBufferCapacity = 4096

// Launcher owns one guest thread's state, memory, and its own translation
// cache.
type Launcher struct {
	state    *state.State
	mem      *hostsys.AddressSpace
	cache    *cache.Cache
	syscalls *hostsys.Syscalls
	log      *zap.Logger
	printIR  bool

	// invoke defaults to hostsys.Invoke; overridable in tests, since the
	// real implementation executes raw machine code this package's own
	// emitter produced — not something a unit test should risk running
	// against a host CPU, only the policy around it.
	invoke func(hostEntry uintptr, state unsafe.Pointer)
}

// New constructs a Launcher around an already-loaded guest image. log may
// be nil, in which case a no-op logger is used.
func New(img *hostsys.Image, log *zap.Logger, printIR bool) *Launcher {
	if log == nil {
		log = zap.NewNop()
	}
	s := state.New()
	s.PC = img.EntryPC
	s.SetSP(img.InitialSP)

	return &Launcher{
		state:    s,
		mem:      img.Memory,
		cache:    cache.New(hostsys.NewCodeRegion()),
		syscalls: hostsys.NewSyscalls(img.Memory),
		log:      log,
		printIR:  printIR,
		invoke:   hostsys.Invoke,
	}
}

// Run executes guest code starting from the launcher's current PC
// (initially the image's entry point) until the guest calls exit/exit_group,
// returning its exit code. This is spec.md §4.8's single "run from guest
// PC" entry point.
func (l *Launcher) Run() (int, error) {
	for {
		h, err := l.blockFor(l.state.PC)
		if err != nil {
			return -1, err
		}

		l.invoke(h.HostEntry, unsafe.Pointer(l.state))

		exited, code, err := l.handleExit(h)
		if err != nil {
			return -1, err
		}
		if exited {
			return code, nil
		}
	}
}

// blockFor returns the cached translation for pc, translating and
// inserting one if this is the first time pc has been reached — the only
// callback into the translator spec.md §5 allows.
func (l *Launcher) blockFor(pc uint64) (*cache.Handle, error) {
	if h, ok := l.cache.Lookup(pc); ok {
		return h, nil
	}

	b := codebuf.New(translationBufferCapacity)
	res := block.Translate(pc, l.mem, amd64.RDI, b)
	code, overflowed := b.Finalize()
	if overflowed {
		return nil, fmt.Errorf("launch: translated block at guest pc %#x exceeded the code buffer", pc)
	}

	if l.printIR {
		l.log.Debug("translated block", zap.Uint64("entry_pc", pc), zap.Uint64("next_pc", res.NextPC), zap.Int("bytes", len(code)))
	}

	h, outcome, err := l.cache.Insert(res.EntryPC, res.NextPC, code, res.Exits, res.EpilogueOffset)
	if err != nil {
		return nil, fmt.Errorf("launch: translate block at guest pc %#x: %w", pc, err)
	}
	if outcome == cache.AlreadyPresent {
		// Another concurrent insert for the same key won (spec.md §4.6);
		// this call's freshly built code was never published.
		return h, nil
	}
	l.chainDirectExits(h)
	return h, nil
}

// chainDirectExits opportunistically links a newly inserted block's
// direct/conditional exits straight into already-cached targets (spec.md
// §4.5's direct block chaining). An exit whose target is not yet
// translated is left pointing at the epilogue and stays there, even after
// the target is translated later: chaining happens once, at insertion
// time, not retroactively — a deliberate simplification,
// since spec.md describes chaining as an optimization, not a correctness
// requirement.
func (l *Launcher) chainDirectExits(h *cache.Handle) {
	for _, e := range h.Exits {
		if e.Kind != xlator.ExitDirect && e.Kind != xlator.ExitConditionalTaken && e.Kind != xlator.ExitConditionalFallthrough {
			continue
		}
		if target, ok := l.cache.Lookup(e.GuestTarget); ok {
			_ = l.cache.Link(h, e.PatchOffset, target)
		}
	}
}

// handleExit inspects how the block that just ran actually exited (state.PC
// names the guest target; for a syscall exit the block additionally wants
// a call into the syscall shim before control returns to guest code).
func (l *Launcher) handleExit(h *cache.Handle) (exited bool, code int, err error) {
	kind := dominantExitKind(h)
	if kind != xlator.ExitSyscall && kind != xlator.ExitUndefined {
		return false, 0, nil
	}

	switch kind {
	case xlator.ExitSyscall:
		if err := l.syscalls.Handle(l.state); err != nil {
			var ex *hostsys.Exited
			if errors.As(err, &ex) {
				return true, ex.Code, nil
			}
			return false, 0, err
		}
		return false, 0, nil

	case xlator.ExitUndefined:
		return false, 0, fmt.Errorf("launch: guest trapped on an undefined instruction at pc %#x", l.state.PC)
	}
	return false, 0, nil
}

// dominantExitKind reports ExitSyscall or ExitUndefined when the block has
// an exit of that kind (such an exit is always a block's only one), and
// ExitDirect otherwise. It does not tell direct, conditional, indirect and
// return exits apart: for all of them the next guest PC is already in
// state.PC, and handleExit acts only on syscall/undefined.
func dominantExitKind(h *cache.Handle) xlator.ExitKind {
	for _, e := range h.Exits {
		if e.Kind == xlator.ExitIndirect || e.Kind == xlator.ExitReturn {
			continue // PC is data-dependent, not statically known; never syscall/undefined
		}
		// syscall/undefined always appear alone; direct/conditional exits
		// never need dominantExitKind's result (handleExit only acts on
		// syscall/undefined), so a single pass suffices.
		if e.Kind == xlator.ExitSyscall || e.Kind == xlator.ExitUndefined {
			return e.Kind
		}
	}
	return xlator.ExitDirect
}

