package sgc

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Collector operations. Callers should compare
// against these with errors.Is rather than matching on message text.
var (
	// ErrNotInitialized is returned when a Collector method is called
	// before Initialize (or New) has run.
	ErrNotInitialized = errors.New("sgc: collector not initialized")

	// ErrShutdown is returned by any operation on a Collector that has
	// already had Shutdown called on it.
	ErrShutdown = errors.New("sgc: collector is shut down")

	// ErrInvalidSize is returned for a zero or negative allocation size.
	ErrInvalidSize = errors.New("sgc: invalid allocation size")

	// ErrOOM is returned when the system allocator cannot satisfy a
	// client allocation or reallocation request. This is a normal,
	// recoverable outcome from the caller's point of view (spec.md's
	// "return null" path) and is never escalated to a panic.
	ErrOOM = errors.New("sgc: out of memory")

	// ErrUnknownRoot is returned by UnregisterRoot when the given
	// address was never registered.
	ErrUnknownRoot = errors.New("sgc: root not registered")
)

// FatalError marks a failure the collector cannot recover from: releasing
// a region's backing mapping failed (during sweep or reallocation). The
// slot table and gray worklist grow through Go's own allocator, whose
// out-of-memory failure ends the process without a FatalError.
// Unlike ErrOOM (a client allocation request that simply fails), this
// leaves the collector's own bookkeeping unable to continue, so it is
// raised as a panic rather than returned, matching the severity of the
// original implementation's hard abort.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("sgc: fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatalf(op string, err error) {
	panic(&FatalError{Op: op, Err: err})
}
