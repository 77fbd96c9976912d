package sgc

import "log"

// Collector is the Allocator Facade: the handle a client program holds to
// allocate, resize, and free memory it wants conservatively collected.
// Every exported method must run on the thread that mutates the
// collector's roots; sgc never locks internally (spec.md §5).
type Collector struct {
	tunables Tunables

	table *slotTable
	gray  *grayList
	roots []rootRef

	bytesAllocated uint64
	nextGC         uint64

	minAddress uintptr
	maxAddress uintptr

	stackBottom uintptr // retained for API parity only; never scanned, see roots.go

	nextSlotID uint64 // debug-only, see slot.id

	stats  Stats
	closed bool
}

// Options configures a new Collector. A zero Options uses compiled-in
// defaults for every tunable.
type Options struct {
	// StackBottom is accepted for API-shape parity with the original
	// stack-capture contract but is not scanned; register roots
	// explicitly with RegisterRoot/RegisterRootRange instead.
	StackBottom uintptr
	Tunables    Tunables
}

// New constructs a ready-to-use Collector. It never fails: unlike
// Allocate/Reallocate, constructing the collector does not need to reserve
// any client-facing memory up front.
func New(opts Options) *Collector {
	t := opts.Tunables.withDefaults()
	return &Collector{
		tunables:    t,
		table:       newSlotTable(t.InitialCapacity, t.MaxLoad, t.GrowFactor),
		gray:        newGrayList(),
		nextGC:      t.InitialNextGC,
		stackBottom: opts.StackBottom,
	}
}

// Initialize is the spec-shaped constructor: Initialize(stackBottom)
// returns a Collector using compiled-in defaults for every other tunable.
// Prefer New for anything that needs to set Tunables.
func Initialize(stackBottom uintptr) *Collector {
	return New(Options{StackBottom: stackBottom})
}

func (c *Collector) checkLive() error {
	if c == nil {
		return ErrNotInitialized
	}
	if c.closed {
		return ErrShutdown
	}
	return nil
}

// Allocate reserves size bytes of client memory, registers it in the slot
// table, and returns its address. It returns ErrOOM if the system
// allocator cannot satisfy the request and ErrInvalidSize for size <= 0.
func (c *Collector) Allocate(size uintptr) (uintptr, error) {
	if err := c.checkLive(); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, ErrInvalidSize
	}

	c.maybeCollect()

	addr, region, err := mmapAlloc(size)
	if err != nil {
		return 0, err
	}

	c.nextSlotID++
	c.table.insert(slot{address: addr, size: size, region: region, id: c.nextSlotID})
	c.widenBounds(addr, addr+size)
	c.bytesAllocated += uint64(size)

	if c.tunables.Debug {
		log.Printf("sgc: allocate id=%d addr=%#x size=%d bytesAllocated=%d", c.nextSlotID, addr, size, c.bytesAllocated)
	}
	return addr, nil
}

// Reallocate resizes the allocation at ptr to newSize, which may return a
// different address (spec.md §4.2: the new region is obtained fresh and
// the old one released). Shrinking in place (newSize <= the slot's
// current size) is a bookkeeping no-op per spec.md §9's Open Question
// resolution: the address and recorded size are both left unchanged, so
// bytesAllocated can drift from the true occupied total after repeated
// shrinks. This is the specified behavior, not a bug.
//
// ptr == 0, or a ptr this collector has no record of, both behave like
// Allocate(newSize), per spec.md §4.2/§7 ("reallocate on untracked
// address falls back to a fresh allocation, no error").
func (c *Collector) Reallocate(ptr uintptr, newSize uintptr) (uintptr, error) {
	if err := c.checkLive(); err != nil {
		return 0, err
	}
	if ptr == 0 {
		return c.Allocate(newSize)
	}
	if newSize == 0 {
		return 0, ErrInvalidSize
	}

	idx, ok := c.table.find(ptr)
	if !ok {
		return c.Allocate(newSize)
	}
	cur := &c.table.slots[idx]

	if newSize <= cur.size {
		return ptr, nil
	}

	// maybeCollect may sweep this very slot: sgc's roots are explicitly
	// registered (see SPEC_FULL.md §3), so the bare ptr argument is not
	// implicitly a root the way a real stack scan would treat it. A
	// caller that wants ptr to survive a collection triggered by its own
	// Reallocate call must have registered it beforehand; if it did not,
	// re-lookup below correctly falls through to a fresh allocation.
	c.maybeCollect()
	idx, ok = c.table.find(ptr)
	if !ok {
		return c.Allocate(newSize)
	}
	cur = &c.table.slots[idx]

	newAddr, newRegion, _, err := mmapRealloc(cur.region, newSize)
	if err != nil {
		return 0, err
	}

	grew := newSize - cur.size
	c.table.delete(idx)
	c.nextSlotID++
	c.table.insert(slot{address: newAddr, size: newSize, region: newRegion, id: c.nextSlotID})
	c.widenBounds(newAddr, newAddr+newSize)
	c.bytesAllocated += uint64(grew)

	if c.tunables.Debug {
		log.Printf("sgc: reallocate id=%d old=%#x new=%#x size=%d bytesAllocated=%d", c.nextSlotID, ptr, newAddr, newSize, c.bytesAllocated)
	}
	return newAddr, nil
}

// widenBounds extends the collector's tracked address range to include
// [lo, hi). Bounds never tighten, even after every slot in a region has
// been freed, per spec.md §9: shrinking them would require rescanning the
// whole table, and a wider-than-necessary scan range only costs a few
// extra conservative comparisons, never correctness.
func (c *Collector) widenBounds(lo, hi uintptr) {
	if c.minAddress == 0 || lo < c.minAddress {
		c.minAddress = lo
	}
	if hi > c.maxAddress {
		c.maxAddress = hi
	}
}

// maybeCollect runs a collection if bytesAllocated has crossed nextGC, or
// unconditionally when StressMode is set (spec.md §9's resolved trigger
// predicate: bytesAllocated > nextGC, not the inverse).
func (c *Collector) maybeCollect() {
	if c.tunables.StressMode || c.bytesAllocated > c.nextGC {
		c.Collect()
	}
}

// Contains reports whether addr currently names a live, in-use
// allocation. It is a query only: calling it does not register addr as
// a root and does not keep it alive past the next collection.
func (c *Collector) Contains(addr uintptr) bool {
	if err := c.checkLive(); err != nil {
		return false
	}
	_, ok := c.table.find(addr)
	return ok
}

// Shutdown releases every tracked allocation's backing memory and marks
// the collector unusable. Subsequent operations return ErrShutdown.
func (c *Collector) Shutdown() error {
	if err := c.checkLive(); err != nil {
		return err
	}
	var first error
	c.table.forEachInUse(func(s *slot) {
		if err := mmapFree(s.region); err != nil && first == nil {
			first = err
		}
	})
	c.table = nil
	c.gray = nil
	c.roots = nil
	c.closed = true
	return first
}
