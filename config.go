package sgc

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Tunables overrides the collector's compiled-in constants. Any field left
// at its zero value keeps the compiled-in default; there is no way to
// explicitly request zero for a tunable, since zero is never a sensible
// value for any of them.
type Tunables struct {
	InitialCapacity int     `json:"initial_capacity,omitempty"`
	MaxLoad         float64 `json:"max_load,omitempty"`
	GrowFactor      int     `json:"grow_factor,omitempty"`
	HeapGrowFactor  int     `json:"heap_grow_factor,omitempty"`
	InitialNextGC   uint64  `json:"initial_next_gc,omitempty"`

	// StressMode collects before every allocation instead of only when
	// bytesAllocated crosses nextGC. Intended for exercising P1-P5 under
	// test, not for production use.
	StressMode bool `json:"stress_mode,omitempty"`

	// Debug enables the trace log described in SPEC_FULL.md §5.
	Debug bool `json:"debug,omitempty"`
}

// DefaultTunables returns the compiled-in defaults spec.md §6 names.
func DefaultTunables() Tunables {
	return Tunables{
		InitialCapacity: defaultInitialCapacity,
		MaxLoad:         defaultMaxLoad,
		GrowFactor:      defaultGrowFactor,
		HeapGrowFactor:  defaultHeapGrowFactor,
		InitialNextGC:   defaultInitialNextGC,
	}
}

// withDefaults fills any zero-valued field of t with the corresponding
// default, so a caller-supplied Tunables only needs to set what it wants
// to override.
func (t Tunables) withDefaults() Tunables {
	d := DefaultTunables()
	if t.InitialCapacity == 0 {
		t.InitialCapacity = d.InitialCapacity
	}
	if t.MaxLoad == 0 {
		t.MaxLoad = d.MaxLoad
	}
	if t.GrowFactor == 0 {
		t.GrowFactor = d.GrowFactor
	}
	if t.HeapGrowFactor == 0 {
		t.HeapGrowFactor = d.HeapGrowFactor
	}
	if t.InitialNextGC == 0 {
		t.InitialNextGC = d.InitialNextGC
	}
	return t
}

// LoadTunables reads a JSONC (JSON-with-comments) tunables profile from
// path, standardizes it to plain JSON with hujson, and unmarshals it over
// the compiled-in defaults. Missing fields keep their default; this
// mirrors the teacher's root config.go, simplified to a single file since
// sgc has no per-project/global config layering to merge.
func LoadTunables(path string) (Tunables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("sgc: reading tunables file %q: %w", path, err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return Tunables{}, fmt.Errorf("sgc: parsing tunables file %q: %w", path, err)
	}
	t := DefaultTunables()
	if err := json.Unmarshal(std, &t); err != nil {
		return Tunables{}, fmt.Errorf("sgc: decoding tunables file %q: %w", path, err)
	}
	return t, nil
}
