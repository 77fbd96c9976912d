package gctest

import (
	"fmt"
	"unsafe"

	"github.com/sgcollect/sgc"
)

const wordSize = unsafe.Sizeof(uintptr(0))

// slotSize is how many words each modeled allocation reserves: one word
// per slot index Run can pick for a Link (s.NextInt(8)), so every Link
// has a real word to write the target address into.
const slotSize = 8 * wordSize

// Harness drives a real *sgc.Collector and a reference model with the
// same operation sequence and keeps them in sync: handle -> live address,
// and a registered root word per rooted handle.
//
// Allocate can itself trigger an implicit collection (StressMode, or
// bytesAllocated crossing nextGC) that frees and munmaps any handle the
// harness has not rooted, before Alloc ever returns. lastCollections
// lets the harness notice that happened and reconcile h.addr (and the
// model) immediately, so a later Link can never write through a
// dangling, already-unmapped address.
type Harness struct {
	c *sgc.Collector
	m *model

	addr map[handle]uintptr
	root map[handle]*uintptr

	lastCollections uint64
}

func NewHarness(c *sgc.Collector) *Harness {
	return &Harness{
		c:    c,
		m:    newModel(),
		addr: make(map[handle]uintptr),
		root: make(map[handle]*uintptr),
	}
}

// Alloc reserves a real allocation and a matching model handle.
func (h *Harness) Alloc() (handle, error) {
	addr, err := h.c.Allocate(slotSize)
	if err != nil {
		return 0, err
	}
	h.reconcile()
	hd := h.m.alloc()
	h.addr[hd] = addr
	zeroWords(addr, slotSize)
	return hd, nil
}

// reconcile notices whether the real collector ran a collection since
// the last time the harness checked and, if so, prunes the model and
// h.addr to match -- so no stale entry can ever be used to write into
// memory the collector has already freed.
func (h *Harness) reconcile() {
	stats := h.c.Stats()
	if stats.Collections == h.lastCollections {
		return
	}
	h.lastCollections = stats.Collections
	h.m.collect()

	live := h.m.liveHandles()
	liveSet := make(map[handle]bool, len(live))
	for _, hd := range live {
		liveSet[hd] = true
	}
	for hd := range h.addr {
		if !liveSet[hd] {
			delete(h.addr, hd)
		}
	}
}

// Link writes to's real address into one of from's words and records the
// edge in the model. slotIndex selects which word, modulo the slot's word
// count, so any generated index is valid. Overwriting a word that held an
// earlier edge removes that edge from the model too, unless another word
// of from still points at the same target. from/to addresses not present
// in h.addr are treated as already collected, never dereferenced.
func (h *Harness) Link(from, to handle, slotIndex int) {
	fromAddr, ok := h.addr[from]
	if !ok {
		return // from was already collected; nothing to write into
	}
	toAddr, ok := h.addr[to]
	if !ok {
		toAddr = 0 // dangling on purpose: linking to a freed handle
	}
	n := int(slotSize / wordSize)
	offset := slotIndex % n
	if old := *(*uintptr)(unsafe.Pointer(fromAddr + uintptr(offset)*wordSize)); old != 0 && old != toAddr {
		stillLinked := false
		for i := 0; i < n; i++ {
			if i != offset && *(*uintptr)(unsafe.Pointer(fromAddr + uintptr(i)*wordSize)) == old {
				stillLinked = true
			}
		}
		for hd, a := range h.addr {
			if a == old && !stillLinked {
				h.m.unlink(from, hd)
			}
		}
	}
	writeWord(fromAddr, offset, toAddr)
	h.m.link(from, to)
}

// SetRoot registers a root word holding h's address and marks h rooted in
// the model. Calling it twice for the same handle is a no-op.
func (h *Harness) SetRoot(hd handle) {
	if _, ok := h.root[hd]; ok {
		return
	}
	addr := h.addr[hd]
	w := new(uintptr)
	*w = addr
	h.c.RegisterRoot(w)
	h.root[hd] = w
	h.m.setRoot(hd)
}

// ClearRoot unregisters hd's root word, if any.
func (h *Harness) ClearRoot(hd handle) {
	w, ok := h.root[hd]
	if !ok {
		return
	}
	_ = h.c.UnregisterRoot(w)
	delete(h.root, hd)
	h.m.clearRoot(hd)
}

// Collect runs a real collection, updates the model to match, and
// verifies the two agree on exactly which handles survived -- checking
// actual slot-table membership (c.Contains), not merely that an address
// falls within the collector's monotonic, never-shrinking bounds (which
// every once-valid address would satisfy forever and so would not catch
// a real disagreement).
func (h *Harness) Collect() error {
	before := make(map[handle]uintptr, len(h.addr))
	for hd, a := range h.addr {
		before[hd] = a
	}

	h.c.Collect()
	h.lastCollections = h.c.Stats().Collections
	h.m.collect()

	expected := h.m.liveHandles()
	expectedSet := make(map[handle]bool, len(expected))
	for _, hd := range expected {
		expectedSet[hd] = true
	}

	for hd, addr := range before {
		if !expectedSet[hd] {
			delete(h.addr, hd)
			if h.c.Contains(addr) {
				return fmt.Errorf("gctest: handle %d expected collected but address %#x is still in-use", hd, addr)
			}
		}
	}

	// Every handle the model still considers live must resolve to an
	// actual in-use slot in the real collector at its last known address.
	for _, hd := range expected {
		addr, ok := h.addr[hd]
		if !ok {
			return fmt.Errorf("gctest: handle %d expected live but harness lost its address", hd)
		}
		if !h.c.Contains(addr) {
			return fmt.Errorf("gctest: handle %d address %#x is not an in-use slot after collect", hd, addr)
		}
	}
	return nil
}

func zeroWords(addr uintptr, size uintptr) {
	for off := uintptr(0); off+wordSize <= size; off += wordSize {
		writeWordAbs(addr+off, 0)
	}
}

func writeWord(base uintptr, wordIndex int, value uintptr) {
	writeWordAbs(base+uintptr(wordIndex)*wordSize, value)
}

func writeWordAbs(addr uintptr, value uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = value
}
