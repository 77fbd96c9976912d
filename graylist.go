package sgc

// grayList is the worklist of slots that have been marked reachable but
// not yet traced for pointers they themselves contain (spec.md §4.3). It
// is a LIFO stack grown by Go's append: capacity doubles on overflow while
// the list is small and grows by a smaller factor once it is large; no
// manual capacity arithmetic is done here.
type grayList struct {
	items []*slot
}

func newGrayList() *grayList {
	return &grayList{items: make([]*slot, 0, grayInitialCapacity)}
}

func (g *grayList) push(s *slot) {
	g.items = append(g.items, s)
}

func (g *grayList) pop() (*slot, bool) {
	n := len(g.items)
	if n == 0 {
		return nil, false
	}
	s := g.items[n-1]
	g.items[n-1] = nil
	g.items = g.items[:n-1]
	return s, true
}

func (g *grayList) empty() bool { return len(g.items) == 0 }
