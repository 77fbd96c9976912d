package sgc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTunablesAppliesOverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sgc.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// only override the heap growth factor; everything else defaults
		"heap_grow_factor": 4,
	}`), 0o644))

	tun, err := LoadTunables(path)
	require.NoError(t, err)

	require.Equal(t, 4, tun.HeapGrowFactor)
	require.Equal(t, defaultInitialCapacity, tun.InitialCapacity)
	require.Equal(t, defaultMaxLoad, tun.MaxLoad)
}

func TestLoadTunablesMissingFile(t *testing.T) {
	_, err := LoadTunables(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
}
