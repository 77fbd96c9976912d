package sgc

// slotTable is the open-addressed hash table mapping an allocation's
// address to its slot record. Indexing is by probe sequence starting at
// hashAddress(addr) % capacity, exactly as spec.md §4.1 specifies; growth
// happens at MAX_LOAD by rehashing into a table GROW_FACTOR times larger.
type slotTable struct {
	slots    []slot
	count    int // occupied (in-use) slots
	used     int // in-use + tombstone, the figure load factor is measured against
	maxLoad  float64
	growBy   int
}

func newSlotTable(initialCapacity int, maxLoad float64, growFactor int) *slotTable {
	if initialCapacity < 1 {
		initialCapacity = defaultInitialCapacity
	}
	return &slotTable{
		slots:   make([]slot, initialCapacity),
		maxLoad: maxLoad,
		growBy:  growFactor,
	}
}

// hashAddress mixes the low four bytes of addr with FNV-1a. A raw
// truncating cast (what the original C implementation uses) distributes
// poorly because allocator addresses are themselves aligned, so their low
// bits repeat; FNV-1a's multiply-xor step spreads that out across the
// whole hash, per spec.md §4.1's explicit requirement.
func hashAddress(addr uintptr) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < 4; i++ {
		b := byte(addr >> (8 * i))
		h ^= uint32(b)
		h *= prime
	}
	return h
}

// find returns the index of the slot holding addr, and true, if present.
// It follows the same linear probe sequence insert uses, stopping at the
// first UNUSED slot (tombstones do not terminate the probe, since the
// target may have been inserted after a deletion left one behind).
func (t *slotTable) find(addr uintptr) (int, bool) {
	cap := len(t.slots)
	idx := int(hashAddress(addr)) % cap
	for i := 0; i < cap; i++ {
		s := &t.slots[idx]
		if s.flags == flagUnused {
			return 0, false
		}
		if s.inUse() && s.address == addr {
			return idx, true
		}
		idx++
		if idx == cap {
			idx = 0
		}
	}
	return 0, false
}

// insert places a new in-use slot for addr, growing the table first if
// doing so would push the load factor past maxLoad. It never returns an
// index for an already-present address; callers are expected to have
// checked find first (collector.Allocate never reinserts an address the
// arena just handed back, since every allocation is fresh).
//
// used (in-use + tombstone positions) only grows when a fresh UNUSED slot
// is claimed: a tombstone reused here was already counted into used when
// it was first inserted, per spec.md §4.1 ("increment slotsCount only if
// the slot was UNUSED -- tombstones were counted when produced").
func (t *slotTable) insert(s slot) int {
	if float64(t.used+1) > t.maxLoad*float64(len(t.slots)) {
		t.grow()
	}
	cap := len(t.slots)
	idx := int(hashAddress(s.address)) % cap
	for {
		cur := &t.slots[idx]
		if cur.flags == flagUnused || cur.tombstone() {
			wasUnused := cur.flags == flagUnused
			*cur = s
			cur.flags = flagInUse
			t.count++
			if wasUnused {
				t.used++
			}
			return idx
		}
		idx++
		if idx == cap {
			idx = 0
		}
	}
}

// delete tombstones the slot at idx, preserving the probe chain for any
// slot inserted after it that hashed to the same bucket.
func (t *slotTable) delete(idx int) {
	t.slots[idx] = slot{flags: flagTombstone}
	t.count--
}

// grow rehashes every in-use slot into a table growBy times larger,
// dropping tombstones in the process (spec.md §4.1 I4: table growth
// compacts out tombstones).
func (t *slotTable) grow() {
	old := t.slots
	newCap := len(old) * t.growBy
	if newCap < defaultInitialCapacity {
		newCap = defaultInitialCapacity
	}
	t.slots = make([]slot, newCap)
	t.count = 0
	t.used = 0
	for i := range old {
		if old[i].inUse() {
			t.insert(old[i])
		}
	}
}

// forEachInUse calls fn for every currently in-use slot, by pointer into
// the live backing array, so callers (the trace/sweep phases) can mutate
// flags in place. fn must not insert into or grow the table.
func (t *slotTable) forEachInUse(fn func(*slot)) {
	for i := range t.slots {
		if t.slots[i].inUse() {
			fn(&t.slots[i])
		}
	}
}
