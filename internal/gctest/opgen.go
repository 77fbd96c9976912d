package gctest

// opKind enumerates the operations the generator can emit, weighted by
// their entry in opRates (pickOp draws NextInt(totalRate()) and walks a
// running total, mirroring the teacher's rate-table-driven
// internal/testutil/opgen.go).
type opKind int

const (
	opAlloc opKind = iota
	opLink
	opSetRoot
	opClearRoot
	opCollect
)

// opRates gives opAlloc and opLink the most weight: a realistic mutator
// spends most of its time building structure, with roots and collections
// interspersed.
var opRates = [...]int{
	opAlloc:     4,
	opLink:      4,
	opSetRoot:   2,
	opClearRoot: 1,
	opCollect:   1,
}

func totalRate() int {
	t := 0
	for _, r := range opRates {
		t += r
	}
	return t
}

func pickOp(s *ByteStream) opKind {
	n := s.NextInt(totalRate())
	for k, r := range opRates {
		if n < r {
			return opKind(k)
		}
		n -= r
	}
	return opCollect
}

// Run consumes s to drive h through a bounded number of generated
// operations, applying each to both the real collector and the model,
// comparing the two after every explicit collection and once more at the
// end, and erroring out at the first disagreement.
func Run(h *Harness, s *ByteStream, steps int) error {
	var handles []handle

	pick := func() (handle, bool) {
		if len(handles) == 0 {
			return 0, false
		}
		return handles[s.NextInt(len(handles))], true
	}

	for i := 0; i < steps; i++ {
		switch pickOp(s) {
		case opAlloc:
			hd, err := h.Alloc()
			if err != nil {
				return err
			}
			handles = append(handles, hd)

		case opLink:
			from, ok1 := pick()
			to, ok2 := pick()
			if !ok1 || !ok2 {
				continue
			}
			h.Link(from, to, s.NextInt(8))

		case opSetRoot:
			hd, ok := pick()
			if !ok {
				continue
			}
			h.SetRoot(hd)

		case opClearRoot:
			hd, ok := pick()
			if !ok {
				continue
			}
			h.ClearRoot(hd)

		case opCollect:
			if err := h.Collect(); err != nil {
				return err
			}
		}
	}
	return h.Collect()
}
