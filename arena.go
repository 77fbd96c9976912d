package sgc

import (
	"golang.org/x/sys/unix"
)

// mmapAlloc reserves a fresh, zero-filled, anonymous memory mapping of at
// least size bytes and returns both its address (the value the client
// sees and the value the conservative scanner compares candidate words
// against) and the Go-side slice handle needed to release it later.
//
// Anonymous mmap stands in for a native malloc: the memory lives outside
// Go's own heap, so it is never moved or collected by Go's runtime, which
// is what makes raw address comparisons in roots.go sound.
func mmapAlloc(size uintptr) (uintptr, []byte, error) {
	if size == 0 {
		size = 1
	}
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, nil, ErrOOM
	}
	return addressOfBytes(region), region, nil
}

// mmapFree releases a mapping previously returned by mmapAlloc or
// mmapRealloc.
func mmapFree(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	return unix.Munmap(region)
}

// mmapRealloc resizes a mapping by allocating a new one, copying the
// overlapping prefix, and releasing the old mapping. Anonymous mappings
// have no in-place grow primitive that is portable across the platforms
// golang.org/x/sys/unix supports, so changed is always true here; the
// return value is kept so callers express the identity-changing and
// identity-preserving cases uniformly, as spec.md's reallocate describes
// both as possible outcomes.
func mmapRealloc(old []byte, newSize uintptr) (addr uintptr, region []byte, changed bool, err error) {
	addr, region, err = mmapAlloc(newSize)
	if err != nil {
		return 0, nil, false, err
	}
	copy(region, old)
	if err := mmapFree(old); err != nil {
		// The new mapping was acquired; the old one leaked. This can only
		// happen if munmap is given a bad region, which would indicate a
		// bookkeeping bug elsewhere, not a recoverable client error.
		fatalf("mmapRealloc: munmap old region", err)
	}
	return addr, region, true, nil
}

