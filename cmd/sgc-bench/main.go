// Package main provides sgc-bench, a benchmark tool for the collector.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/sgcollect/sgc"
)

// Config holds all benchmark configuration.
type Config struct {
	Counts  []int
	OutDir  string
	Warmup  int
	Runs    int
	Tunables string
}

// BenchResult holds one benchmark's measurements: allocation throughput,
// time spent in the collector, and peak resident set size as reported by
// the kernel (unix.Getrusage), echoing the pairing of collector stats
// with host memory stats used elsewhere in the corpus for a VM's
// "show stats" surface.
type BenchResult struct {
	Count          int           `json:"count"`
	Runs           int           `json:"runs"`
	MeanAlloc      time.Duration `json:"mean_alloc"`
	MeanCollect    time.Duration `json:"mean_collect"`
	AllocsPerSec   float64       `json:"allocs_per_sec"`
	MaxRSSKB       int64         `json:"max_rss_kb"`
	FinalSlots     int           `json:"final_slots_in_use"`
	FinalBytes     uint64        `json:"final_bytes_allocated"`
	FinalNextGC    uint64        `json:"final_next_gc"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := Config{}
	var counts []int

	pflag.IntSliceVar(&counts, "counts", []int{1_000, 10_000, 100_000}, "allocation counts to benchmark")
	pflag.StringVar(&cfg.OutDir, "out", "", "directory to write JSON results into (stdout only if empty)")
	pflag.IntVar(&cfg.Warmup, "warmup", 1, "warmup runs per count, discarded from the mean")
	pflag.IntVar(&cfg.Runs, "runs", 3, "measured runs per count")
	pflag.StringVar(&cfg.Tunables, "tunables", "", "path to a JSONC tunables profile")
	pflag.Parse()
	cfg.Counts = counts

	tunables := sgc.DefaultTunables()
	if cfg.Tunables != "" {
		loaded, err := sgc.LoadTunables(cfg.Tunables)
		if err != nil {
			return err
		}
		tunables = loaded
	}

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return fmt.Errorf("creating out dir: %w", err)
		}
	}

	for _, count := range cfg.Counts {
		res, err := benchCount(tunables, count, cfg.Warmup, cfg.Runs)
		if err != nil {
			return fmt.Errorf("benchmarking count=%d: %w", count, err)
		}
		printResult(res)

		if cfg.OutDir != "" {
			if err := writeResult(filepath.Join(cfg.OutDir, fmt.Sprintf("bench-%d.json", count)), res); err != nil {
				return err
			}
		}
	}
	return nil
}

// benchCount runs warmup+runs iterations of "allocate count word-sized,
// half-linked objects, then collect", returning the mean timings of the
// measured (non-warmup) runs and the peak RSS observed across all of them.
func benchCount(tunables sgc.Tunables, count, warmup, runs int) (BenchResult, error) {
	if runs < 1 {
		runs = 1
	}
	wordSize := unsafe.Sizeof(uintptr(0))

	var totalAlloc, totalCollect time.Duration
	var last sgc.Stats

	for i := 0; i < warmup+runs; i++ {
		c := sgc.New(sgc.Options{Tunables: tunables})

		allocStart := time.Now()
		var prev uintptr
		for n := 0; n < count; n++ {
			addr, err := c.Allocate(wordSize)
			if err != nil {
				c.Shutdown()
				return BenchResult{}, err
			}
			if n%2 == 0 && prev != 0 {
				*(*uintptr)(unsafe.Pointer(addr)) = prev
			}
			prev = addr
		}
		allocElapsed := time.Since(allocStart)

		collectStart := time.Now()
		c.Collect()
		collectElapsed := time.Since(collectStart)

		if i >= warmup {
			totalAlloc += allocElapsed
			totalCollect += collectElapsed
			last = c.Stats()
		}
		c.Shutdown()
	}

	var rusage unix.Rusage
	var maxRSSKB int64
	if err := unix.Getrusage(unix.RUSAGE_SELF, &rusage); err == nil {
		maxRSSKB = rusage.Maxrss
	}

	meanAlloc := totalAlloc / time.Duration(runs)
	meanCollect := totalCollect / time.Duration(runs)
	var allocsPerSec float64
	if meanAlloc > 0 {
		allocsPerSec = float64(count) / meanAlloc.Seconds()
	}

	return BenchResult{
		Count:        count,
		Runs:         runs,
		MeanAlloc:    meanAlloc,
		MeanCollect:  meanCollect,
		AllocsPerSec: allocsPerSec,
		MaxRSSKB:     maxRSSKB,
		FinalSlots:   last.SlotsInUse,
		FinalBytes:   last.BytesAllocated,
		FinalNextGC:  last.NextGC,
	}, nil
}

func printResult(r BenchResult) {
	fmt.Printf("count=%-8d alloc=%-12s collect=%-12s allocs/sec=%-12.0f maxRSS=%dKB slots=%d bytes=%d nextGC=%d\n",
		r.Count, r.MeanAlloc, r.MeanCollect, r.AllocsPerSec, r.MaxRSSKB, r.FinalSlots, r.FinalBytes, r.FinalNextGC)
}

func writeResult(path string, r BenchResult) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
