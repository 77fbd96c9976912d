package sgc

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnregisterRootRemovesReachability(t *testing.T) {
	c := newTestCollector(t)

	addr, err := c.Allocate(16)
	require.NoError(t, err)

	root := addr
	c.RegisterRoot(&root)
	c.Collect()
	_, ok := c.table.find(addr)
	require.True(t, ok)

	require.NoError(t, c.UnregisterRoot(&root))
	c.Collect()
	_, ok = c.table.find(addr)
	require.False(t, ok, "collection after unregistering the only root must sweep it")
	runtime.KeepAlive(&root)
}

func TestUnregisterUnknownRoot(t *testing.T) {
	c := newTestCollector(t)
	var never uintptr
	err := c.UnregisterRoot(&never)
	require.ErrorIs(t, err, ErrUnknownRoot)
}

func TestScanRegionVisitsEveryWord(t *testing.T) {
	words := [3]uintptr{0x10, 0x20, 0x30}
	begin := addressOfWord(&words[0])
	end := begin + wordSize*uintptr(len(words))

	var seen []uintptr
	scanRegion(begin, end, func(c uintptr) { seen = append(seen, c) })

	require.Equal(t, []uintptr{0x10, 0x20, 0x30}, seen)
	runtime.KeepAlive(&words)
}
