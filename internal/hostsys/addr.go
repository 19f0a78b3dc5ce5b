package hostsys

import "unsafe"

// addrOf returns the host address of a byte slice's backing array. Used
// only for mmap'd regions, which the Go runtime's GC never moves (they're
// outside its managed heap), so the address stays valid for the mapping's
// lifetime.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
