package sgc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpStats(t *testing.T) {
	c := newTestCollector(t)
	_, err := c.Allocate(64)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, c.DumpStats(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Stats
	require.NoError(t, json.Unmarshal(data, &got))
	require.EqualValues(t, 64, got.BytesAllocated)
	require.Equal(t, 1, got.SlotsInUse)
}

func TestDumpStatsAfterShutdown(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.Shutdown())
	err := c.DumpStats(filepath.Join(t.TempDir(), "stats.json"))
	require.ErrorIs(t, err, ErrShutdown)
}
