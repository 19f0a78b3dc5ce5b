package hostsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeRegionPublishThenPatch(t *testing.T) {
	r := NewCodeRegion()
	code := []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0xC3} // jmp rel32=0; ret
	entry, err := r.Publish(code)
	require.NoError(t, err)
	require.NotZero(t, entry)

	require.NoError(t, r.Patch(entry, 1, 0x11223344))
}

func TestCodeRegionPatchUnknownEntryFails(t *testing.T) {
	r := NewCodeRegion()
	err := r.Patch(0xdeadbeef, 1, 0)
	require.Error(t, err)
}

func TestCodeRegionReleaseThenPatchFails(t *testing.T) {
	r := NewCodeRegion()
	code := []byte{0xE9, 0x00, 0x00, 0x00, 0x00, 0xC3}
	entry, err := r.Publish(code)
	require.NoError(t, err)

	r.Release(entry)
	err = r.Patch(entry, 1, 0)
	require.Error(t, err)
}

func TestCodeRegionPublishEmptyCodeFails(t *testing.T) {
	r := NewCodeRegion()
	_, err := r.Publish(nil)
	require.Error(t, err)
}
