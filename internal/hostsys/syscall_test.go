package hostsys

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/anvilforge/anvil/internal/engine/xlate/state"
)

func TestSyscallsHandleExitGroupReturnsExited(t *testing.T) {
	sc := NewSyscalls(NewAddressSpace())
	s := state.New()
	s.SetX(8, sysExitGroup)
	s.SetX(0, 7)

	err := sc.Handle(s)
	var exited *Exited
	require.ErrorAs(t, err, &exited)
	require.Equal(t, 7, exited.Code)
}

func TestSyscallsHandleSetTidAddrAcknowledges(t *testing.T) {
	sc := NewSyscalls(NewAddressSpace())
	s := state.New()
	s.SetX(8, sysSetTidAddr)

	require.NoError(t, sc.Handle(s))
	require.Equal(t, uint64(1), s.GetX(0))
}

func TestSyscallsHandleBrkEchoesRequestedAddress(t *testing.T) {
	sc := NewSyscalls(NewAddressSpace())
	s := state.New()
	s.SetX(8, sysBrk)
	s.SetX(0, 0x500000)

	require.NoError(t, sc.Handle(s))
	require.Equal(t, uint64(0x500000), s.GetX(0))
}

func TestSyscallsHandleUnknownReturnsENOSYS(t *testing.T) {
	sc := NewSyscalls(NewAddressSpace())
	s := state.New()
	s.SetX(8, 9999)

	require.NoError(t, sc.Handle(s))
	require.Equal(t, negErrno(unix.ENOSYS), s.GetX(0))
}

func TestSyscallsHandleWriteFaultsOnUnmappedBuffer(t *testing.T) {
	sc := NewSyscalls(NewAddressSpace())
	s := state.New()
	s.SetX(8, sysWrite)
	s.SetX(0, 1)
	s.SetX(1, 0x9000) // not mapped
	s.SetX(2, 4)

	require.NoError(t, sc.Handle(s))
	require.Equal(t, negErrno(unix.EFAULT), s.GetX(0))
}
