package sgc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotTableInsertFind(t *testing.T) {
	tbl := newSlotTable(defaultInitialCapacity, defaultMaxLoad, defaultGrowFactor)

	addrs := []uintptr{0x1000, 0x2000, 0x3000, 0x4000}
	for _, a := range addrs {
		tbl.insert(slot{address: a, size: 16})
	}

	for _, a := range addrs {
		idx, ok := tbl.find(a)
		require.True(t, ok, "expected to find %#x", a)
		require.Equal(t, a, tbl.slots[idx].address)
	}

	_, ok := tbl.find(0x9999)
	require.False(t, ok)
}

func TestSlotTableGrowsAtMaxLoad(t *testing.T) {
	tbl := newSlotTable(4, 0.75, 2)
	initialCap := len(tbl.slots)

	// 3 of 4 is exactly max load; the 4th insert would pass it and grows.
	for i := 0; i < 4; i++ {
		tbl.insert(slot{address: uintptr(0x1000 + i*16), size: 16})
	}
	require.Greater(t, len(tbl.slots), initialCap, "table should have grown past max load")

	for i := 0; i < 4; i++ {
		_, ok := tbl.find(uintptr(0x1000 + i*16))
		require.True(t, ok)
	}
}

func TestSlotTableDeleteThenProbeChainIntact(t *testing.T) {
	tbl := newSlotTable(8, 0.75, 2)

	base := hashAddress(0x1000)
	_ = base
	tbl.insert(slot{address: 0x1000, size: 8})
	tbl.insert(slot{address: 0x1000 + uintptr(len(tbl.slots)), size: 8}) // very likely collides

	idx, ok := tbl.find(0x1000)
	require.True(t, ok)
	tbl.delete(idx)

	_, ok = tbl.find(0x1000)
	require.False(t, ok, "deleted address must not be found")

	_, ok = tbl.find(0x1000 + uintptr(len(tbl.slots)))
	require.True(t, ok, "probe chain past a tombstone must remain intact")
}

func TestHashAddressMixesLowBits(t *testing.T) {
	// Addresses from an aligned allocator differ only in high bits across
	// many allocations of the same size; a naive truncating cast would
	// produce identical hashes for such addresses. FNV-1a must not.
	h1 := hashAddress(0x10)
	h2 := hashAddress(0x10 + 16)
	require.NotEqual(t, h1, h2)
}
