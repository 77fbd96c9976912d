// Package sgc implements a conservative, stop-the-world, mark-and-sweep
// collector for programs that manage their own heap through an explicit
// Collector handle rather than relying on Go's own garbage collector.
//
// The collector tracks every live allocation in a slot table keyed by the
// allocation's address. Collection walks a set of explicitly registered
// roots, treats any word in a root or in an already-marked slot that looks
// like the address of a tracked allocation as a pointer to it (conservative
// scanning: no type information is consulted), and frees every slot that
// was not reached.
//
// A Collector is not safe for use by more than one goroutine at a time.
// The contract mirrors a single-threaded native mutator: allocate, touch
// roots, and collect all happen on the same logical thread of control.
package sgc
