package sgc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgcollect/sgc"
	"github.com/sgcollect/sgc/internal/gctest"
)

// TestModelAgreesWithCollector drives a real collector and the reference
// object-graph model through many deterministic, independently-seeded
// operation sequences and requires that the two always agree on exactly
// which allocations survive each collection (spec.md P1/P2, expressed as
// a property rather than a fixed scenario).
func TestModelAgreesWithCollector(t *testing.T) {
	for seed := 0; seed < 64; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			raw := make([]byte, 512)
			for i := range raw {
				raw[i] = byte((i*31 + seed*97) % 256)
			}

			c := sgc.New(sgc.Options{Tunables: sgc.Tunables{StressMode: true}})
			t.Cleanup(func() { _ = c.Shutdown() })

			h := gctest.NewHarness(c)
			stream := gctest.NewByteStream(raw)
			require.NoError(t, gctest.Run(h, stream, 200))
		})
	}
}
