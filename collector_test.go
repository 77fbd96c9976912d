package sgc

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c := New(Options{Tunables: Tunables{StressMode: false}})
	t.Cleanup(func() { _ = c.Shutdown() })
	return c
}

func writeWordAt(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

func readWordAt(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// Scenario: an allocation with no root pointing to it is collected.
func TestUnreferencedAllocationIsCollected(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(32)
	require.NoError(t, err)
	require.NotZero(t, addr)

	c.Collect()

	_, ok := c.table.find(addr)
	require.False(t, ok, "unreferenced allocation should have been swept")
}

// P4: nextGC == bytesAllocated * HeapGrowFactor immediately after any
// collection, with no floor -- including when the collection drops
// bytesAllocated back down to (near) zero, per spec.md §4.5/§9.
func TestRetuneHasNoFloorAfterCollection(t *testing.T) {
	c := newTestCollector(t)

	_, err := c.Allocate(32)
	require.NoError(t, err)

	c.Collect() // nothing rooted: bytesAllocated drops to 0

	require.Zero(t, c.bytesAllocated)
	require.Equal(t, c.bytesAllocated*uint64(c.tunables.HeapGrowFactor), c.nextGC)
	require.Less(t, c.nextGC, c.tunables.InitialNextGC, "retune must not float back up to InitialNextGC")
}

// Scenario: an allocation reachable from an explicitly registered root
// survives.
func TestRootedAllocationSurvives(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(32)
	require.NoError(t, err)

	root := addr
	c.RegisterRoot(&root)

	c.Collect()

	_, ok := c.table.find(addr)
	require.True(t, ok, "rooted allocation must survive collection")
	runtime.KeepAlive(&root)
}

// Scenario: a allocation is only reachable transitively, through another
// live heap slot, not directly from any root.
func TestTransitiveReachabilityThroughHeap(t *testing.T) {
	c := newTestCollector(t)

	child, err := c.Allocate(unsafe.Sizeof(uintptr(0)))
	require.NoError(t, err)

	parent, err := c.Allocate(unsafe.Sizeof(uintptr(0)))
	require.NoError(t, err)
	writeWordAt(parent, child)

	root := parent
	c.RegisterRoot(&root)

	c.Collect()

	_, ok := c.table.find(parent)
	require.True(t, ok, "parent is directly rooted")
	_, ok = c.table.find(child)
	require.True(t, ok, "child reachable only through parent must survive")
	runtime.KeepAlive(&root)
}

// Scenario: the table grows under repeated insertion and every inserted
// address remains findable across the growth.
func TestTableGrowsUnderInsertion(t *testing.T) {
	c := newTestCollector(t)
	c.tunables.StressMode = false
	c.nextGC = 1 << 20 // 200 x 8 bytes stays under this, so no collection runs mid-test; we want pure growth

	var addrs []uintptr
	for i := 0; i < 200; i++ {
		addr, err := c.Allocate(8)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}

	for _, a := range addrs {
		_, ok := c.table.find(a)
		require.True(t, ok)
	}
	require.Greater(t, len(c.table.slots), defaultInitialCapacity)
}

// Scenario: reallocation to a larger size returns a new address; the old
// address is no longer tracked and the new one is.
func TestReallocateChangesAddress(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(8)
	require.NoError(t, err)

	newAddr, err := c.Reallocate(addr, 4096)
	require.NoError(t, err)
	require.NotEqual(t, addr, newAddr, "mmap-backed reallocate always moves")

	_, ok := c.table.find(addr)
	require.False(t, ok, "old address must no longer be tracked")
	_, ok = c.table.find(newAddr)
	require.True(t, ok)
}

// Scenario: shrinking in place is a pure bookkeeping no-op (Open Question
// resolution recorded in SPEC_FULL.md / DESIGN.md).
func TestReallocateShrinkIsNoOp(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(64)
	require.NoError(t, err)
	before := c.bytesAllocated

	newAddr, err := c.Reallocate(addr, 16)
	require.NoError(t, err)
	require.Equal(t, addr, newAddr)
	require.Equal(t, before, c.bytesAllocated, "shrink must not adjust bytesAllocated")
}

// Scenario: a static root range (RegisterRootRange) keeps every
// pointer-sized word in the span alive.
func TestStaticRootRangeScansEveryWord(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(8)
	require.NoError(t, err)

	statics := new([4]uintptr)
	statics[2] = addr
	c.RegisterRootRange(unsafe.Pointer(&statics[0]), unsafe.Add(unsafe.Pointer(&statics[0]), unsafe.Sizeof(*statics)))

	c.Collect()

	_, ok := c.table.find(addr)
	require.True(t, ok)
	runtime.KeepAlive(statics)
}

func TestCollectorRejectsOpsAfterShutdown(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.Shutdown())

	_, err := c.Allocate(8)
	require.ErrorIs(t, err, ErrShutdown)
}

// Reallocate on an address this collector never handed out falls back to
// a fresh allocation, per spec.md §4.2/§7 ("not IN_USE -> behave as
// allocate(newSize)").
func TestReallocateUnknownPointerFallsBackToAllocate(t *testing.T) {
	c := newTestCollector(t)
	addr, err := c.Reallocate(0xdeadbeef, 16)
	require.NoError(t, err)
	require.NotZero(t, addr)
	require.NotEqual(t, uintptr(0xdeadbeef), addr)

	_, ok := c.table.find(addr)
	require.True(t, ok)
}

func TestAllocateZeroSizeRejected(t *testing.T) {
	c := newTestCollector(t)
	_, err := c.Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)
}
