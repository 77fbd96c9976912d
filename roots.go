package sgc

import "unsafe"

// This file is the collector's sole unsafe boundary. Every place elsewhere
// in the package that needs a raw address calls into one of the small
// helpers here rather than importing unsafe itself.

// addressOfBytes reports the address of a byte slice's backing array.
func addressOfBytes(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// addressOfWord reports the address of a single word.
func addressOfWord(p *uintptr) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// rootRef is one registered root: a span of memory, [begin, end), that the
// scanner treats as a sequence of candidate pointer-sized words. A single
// registered word (RegisterRoot) is stored as a one-word span.
type rootRef struct {
	begin uintptr
	end   uintptr
}

// RegisterRoot adds the storage location of slot itself to the root set:
// every scan treats *slot as one candidate pointer word. Because slot
// escapes to the heap the instant it is passed here, Go's non-moving heap
// allocator guarantees its address never changes for as long as the
// caller keeps slot registered, which is exactly what spec.md requires of
// a root address (observed once, valid until unregistered). See
// SPEC_FULL.md §3 for why this replaces native stack scanning.
//
// The collector only ever stores the numeric address of slot, never a Go
// pointer to it; slot is not kept alive by virtue of being registered.
// The caller must keep its own reference to slot reachable (a
// package-level variable, a field on a live struct, or an explicit
// runtime.KeepAlive around the scope that needs it rooted) for as long as
// it stays registered, exactly as a native mutator must keep its own
// stack frame alive for a root to mean anything.
func (c *Collector) RegisterRoot(slot *uintptr) {
	addr := uintptr(unsafe.Pointer(slot))
	c.roots = append(c.roots, rootRef{begin: addr, end: addr + wordSize})
}

// RegisterRootRange adds an arbitrary memory span, [begin, end), to the
// root set: every word-aligned word in the span is scanned as a candidate
// pointer on every collection. Use this for arrays or structs of
// pointer-sized fields, and for static data the client wants treated as
// roots (spec.md's data-segment bounds, supplied explicitly here rather
// than read from linker symbols — see SPEC_FULL.md §3).
func (c *Collector) RegisterRootRange(begin, end unsafe.Pointer) {
	b, e := uintptr(begin), uintptr(end)
	if e < b {
		b, e = e, b
	}
	c.roots = append(c.roots, rootRef{begin: b, end: e})
}

// UnregisterRoot removes the root previously registered at the address of
// slot. It returns ErrUnknownRoot if no such root is currently registered.
func (c *Collector) UnregisterRoot(slot *uintptr) error {
	addr := uintptr(unsafe.Pointer(slot))
	for i, r := range c.roots {
		if r.begin == addr && r.end == addr+wordSize {
			c.roots = append(c.roots[:i], c.roots[i+1:]...)
			return nil
		}
	}
	return ErrUnknownRoot
}

// wordSize is the size in bytes of a pointer-sized word on this platform.
const wordSize = unsafe.Sizeof(uintptr(0))

// scanRegion walks [begin, end) one word at a time and passes every value
// found to visit; deciding whether a value names a live, currently-unmarked
// slot is up to visit (considerCandidate in gc.go during a collection).
// This is the only place raw memory is reinterpreted as a
// sequence of uintptr candidates rather than typed Go values: the scan is
// conservative by construction, since a word that merely happens to look
// like a tracked address is treated identically to a real pointer.
func scanRegion(begin, end uintptr, visit func(candidate uintptr)) {
	for p := begin; p+wordSize <= end; p += wordSize {
		word := *(*uintptr)(unsafe.Pointer(p))
		visit(word)
	}
}
