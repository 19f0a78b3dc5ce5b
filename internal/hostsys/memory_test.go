package hostsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressSpaceReadU32WithinRegion(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x1000, []byte{0x01, 0x02, 0x03, 0x04}, true)

	v, ok := a.ReadU32(0x1000)
	require.True(t, ok)
	require.Equal(t, uint32(0x04030201), v)
}

func TestAddressSpaceReadU32OutsideAnyRegionFails(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x1000, make([]byte, 16), true)

	_, ok := a.ReadU32(0x5000)
	require.False(t, ok)
}

func TestAddressSpaceReadU32PartiallyOutOfRegionFails(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x1000, make([]byte, 2), true)

	_, ok := a.ReadU32(0x1000)
	require.False(t, ok)
}

func TestAddressSpaceWriteAndReadU64Roundtrip(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x2000, make([]byte, 64), false)

	require.True(t, a.WriteU64(0x2008, 0xdeadbeefcafef00d))
	v, ok := a.ReadU64(0x2008)
	require.True(t, ok)
	require.Equal(t, uint64(0xdeadbeefcafef00d), v)
}

func TestAddressSpaceWriteBytesFailsOutsideRegion(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x3000, make([]byte, 4), false)

	err := a.WriteBytes(0x3002, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestAddressSpaceWriteBytesWithinRegion(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x4000, make([]byte, 8), false)

	require.NoError(t, a.WriteBytes(0x4000, []byte{9, 9, 9}))
	v, ok := a.ReadU8(0x4001)
	require.True(t, ok)
	require.Equal(t, uint8(9), v)
}

func TestAddressSpaceSegmentsReportsEachMappedRegion(t *testing.T) {
	a := NewAddressSpace()
	a.Map(0x1000, make([]byte, 16), true)
	a.Map(0x5000, make([]byte, 8), false)

	segs := a.Segments()
	require.Len(t, segs, 2)
	require.Equal(t, Segment{Base: 0x1000, Size: 16, Exec: true}, segs[0])
	require.Equal(t, Segment{Base: 0x5000, Size: 8, Exec: false}, segs[1])
}
