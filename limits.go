package sgc

// Compiled-in defaults. A Tunables value (see config.go) may override any
// of these at runtime; the constants below are what an empty/zero
// Tunables resolves to.
const (
	defaultInitialCapacity = 8
	defaultGrowFactor      = 2
	defaultMaxLoad         = 0.75
	defaultHeapGrowFactor  = 2
	defaultInitialNextGC   = 1024

	// grayInitialCapacity is the starting capacity of the gray worklist.
	// It grows through append (see graylist.go), not by the slot table's
	// GrowFactor.
	grayInitialCapacity = 8
)
