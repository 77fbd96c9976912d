// sgc-shell is an interactive REPL for driving a collector by hand.
//
// Usage:
//
//	sgc-shell [--tunables path.jsonc]
//
// Commands:
//
//	alloc <size>                Allocate size bytes, print its address
//	realloc <addr> <size>       Resize an allocation, print its (possibly new) address
//	root <addr>                 Register addr as a root
//	unroot <addr>               Unregister a previously registered root
//	roots                       List currently registered root addresses
//	link <addr> <target> [off]  Write target into addr's word [off] (default 0)
//	collect                     Run one collection cycle
//	stats                       Show collector stats
//	dump <path>                 Write a JSON stats snapshot to path
//	stress <count>              Allocate count small objects, linking about half to the previous one
//	bench <count>               Benchmark allocate+collect throughput
//	help                        Show this help
//	exit / quit / q             Exit
package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/sgcollect/sgc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var tunablesPath string
	pflag.StringVar(&tunablesPath, "tunables", "", "path to a JSONC tunables profile")
	pflag.Parse()

	tunables := sgc.DefaultTunables()
	if tunablesPath != "" {
		loaded, err := sgc.LoadTunables(tunablesPath)
		if err != nil {
			return err
		}
		tunables = loaded
	}

	r := &REPL{c: sgc.New(sgc.Options{Tunables: tunables})}
	defer r.c.Shutdown()

	return r.Run()
}

// REPL holds the interactive shell's state: the collector plus the
// bookkeeping needed to turn user-typed addresses into registered root
// words (the collector itself only stores addresses, not Go pointers —
// see roots.go's RegisterRoot doc comment).
type REPL struct {
	c     *sgc.Collector
	liner *liner.State
	roots map[uintptr]*uintptr
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sgc_shell_history")
}

func (r *REPL) Run() error {
	r.roots = make(map[uintptr]*uintptr)

	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("sgc-shell - conservative collector REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("sgc> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil

		case "help", "?":
			r.printHelp()

		case "alloc":
			r.cmdAlloc(args)

		case "realloc":
			r.cmdRealloc(args)

		case "root":
			r.cmdRoot(args)

		case "unroot":
			r.cmdUnroot(args)

		case "roots":
			r.cmdRoots()

		case "link":
			r.cmdLink(args)

		case "collect":
			r.cmdCollect()

		case "stats":
			r.cmdStats()

		case "dump":
			r.cmdDump(args)

		case "stress":
			r.cmdStress(args)

		case "bench":
			r.cmdBench(args)

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"alloc", "realloc", "root", "unroot", "roots", "link",
		"collect", "stats", "dump", "stress", "bench",
		"clear", "cls", "help", "exit", "quit", "q",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  alloc <size>                Allocate size bytes, print its address")
	fmt.Println("  realloc <addr> <size>       Resize an allocation")
	fmt.Println("  root <addr>                 Register addr as a root")
	fmt.Println("  unroot <addr>               Unregister a root")
	fmt.Println("  roots                       List registered root addresses")
	fmt.Println("  link <addr> <target> [off]  Write target into addr's word [off]")
	fmt.Println("  collect                     Run one collection cycle")
	fmt.Println("  stats                       Show collector stats")
	fmt.Println("  dump <path>                 Write a JSON stats snapshot")
	fmt.Println("  stress <count>              Allocate count linked objects")
	fmt.Println("  bench <count>               Benchmark allocate+collect throughput")
	fmt.Println("  help                        Show this help")
	fmt.Println("  exit / quit / q             Exit")
	fmt.Println()
	fmt.Println("Addresses are printed and parsed as hex, e.g. 0x7f3a1000.")
}

func parseAddr(s string) (uintptr, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uintptr(v), nil
}

func (r *REPL) cmdAlloc(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: alloc <size>")
		return
	}
	size, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid size: %v\n", err)
		return
	}
	addr, err := r.c.Allocate(uintptr(size))
	if err != nil {
		fmt.Printf("allocate failed: %v\n", err)
		return
	}
	fmt.Printf("0x%x\n", addr)
}

func (r *REPL) cmdRealloc(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: realloc <addr> <size>")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	size, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Printf("invalid size: %v\n", err)
		return
	}
	newAddr, err := r.c.Reallocate(addr, uintptr(size))
	if err != nil {
		fmt.Printf("reallocate failed: %v\n", err)
		return
	}
	fmt.Printf("0x%x\n", newAddr)
}

func (r *REPL) cmdRoot(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: root <addr>")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, ok := r.roots[addr]; ok {
		fmt.Println("already rooted")
		return
	}
	w := new(uintptr)
	*w = addr
	r.c.RegisterRoot(w)
	r.roots[addr] = w
	fmt.Println("ok")
}

func (r *REPL) cmdUnroot(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: unroot <addr>")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	w, ok := r.roots[addr]
	if !ok {
		fmt.Println("not rooted")
		return
	}
	if err := r.c.UnregisterRoot(w); err != nil {
		fmt.Printf("unroot failed: %v\n", err)
		return
	}
	delete(r.roots, addr)
	fmt.Println("ok")
}

func (r *REPL) cmdRoots() {
	if len(r.roots) == 0 {
		fmt.Println("(none)")
		return
	}
	for addr := range r.roots {
		fmt.Printf("0x%x\n", addr)
	}
}

// cmdLink writes target into the allocation at addr, at word offset off,
// so the shell can build graphs to demonstrate transitive reachability.
func (r *REPL) cmdLink(args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Println("usage: link <addr> <target> [offset]")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	target, err := parseAddr(args[1])
	if err != nil {
		fmt.Println(err)
		return
	}
	offset := 0
	if len(args) == 3 {
		offset, err = strconv.Atoi(args[2])
		if err != nil {
			fmt.Printf("invalid offset: %v\n", err)
			return
		}
	}
	wordSize := int(unsafe.Sizeof(uintptr(0)))
	p := (*uintptr)(unsafe.Pointer(addr + uintptr(offset*wordSize)))
	*p = target
	fmt.Println("ok")
}

func (r *REPL) cmdCollect() {
	r.c.Collect()
	fmt.Println("ok")
}

func (r *REPL) cmdStats() {
	s := r.c.Stats()
	fmt.Printf("bytesAllocated: %d\n", s.BytesAllocated)
	fmt.Printf("nextGC:         %d\n", s.NextGC)
	fmt.Printf("slotsInUse:     %d\n", s.SlotsInUse)
	fmt.Printf("slotsCapacity:  %d\n", s.SlotsCapacity)
	fmt.Printf("bounds:         0x%x - 0x%x\n", s.MinAddress, s.MaxAddress)
	fmt.Printf("collections:    %d\n", s.Collections)
	fmt.Printf("lastFreedSlots: %d\n", s.LastFreedSlots)
	fmt.Printf("lastFreedBytes: %d\n", s.LastFreedBytes)
}

func (r *REPL) cmdDump(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: dump <path>")
		return
	}
	if err := r.c.DumpStats(args[0]); err != nil {
		fmt.Printf("dump failed: %v\n", err)
		return
	}
	fmt.Println("ok")
}

// cmdStress allocates count small word-sized objects, linking a
// randomly-chosen fraction of them to the previously allocated one. None
// of them is registered as a root, so a subsequent 'collect' reclaims
// them all.
func (r *REPL) cmdStress(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: stress <count>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid count: %v\n", err)
		return
	}

	wordSize := unsafe.Sizeof(uintptr(0))
	var prev uintptr
	for i := 0; i < count; i++ {
		addr, err := r.c.Allocate(wordSize)
		if err != nil {
			fmt.Printf("allocate failed at %d: %v\n", i, err)
			return
		}
		if prev != 0 && rand.Intn(2) == 0 {
			*(*uintptr)(unsafe.Pointer(addr)) = prev
		}
		prev = addr
	}
	fmt.Printf("allocated %d objects\n", count)
}

func (r *REPL) cmdBench(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: bench <count>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid count: %v\n", err)
		return
	}
	wordSize := unsafe.Sizeof(uintptr(0))
	start := time.Now()
	for i := 0; i < count; i++ {
		if _, err := r.c.Allocate(wordSize); err != nil {
			fmt.Printf("allocate failed at %d: %v\n", i, err)
			return
		}
	}
	r.c.Collect()
	elapsed := time.Since(start)

	var perSec float64
	if elapsed > 0 {
		perSec = float64(count) / elapsed.Seconds()
	}
	fmt.Printf("allocated %d objects in %s (%.0f allocs/sec)\n", count, elapsed, perSec)
}
