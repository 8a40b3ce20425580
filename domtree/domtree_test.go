package domtree

import "testing"

type fakeCFG struct {
	entry int
	succ  map[int][]int
	ids   []int
}

func (f fakeCFG) BlockIDs() []int        { return f.ids }
func (f fakeCFG) Entry() int             { return f.entry }
func (f fakeCFG) Successors(b int) []int { return f.succ[b] }

// diamond: 0 -> 1, 0 -> 2, 1 -> 3, 2 -> 3
var diamond = fakeCFG{
	entry: 0,
	ids:   []int{0, 1, 2, 3},
	succ: map[int][]int{
		0: {1, 2},
		1: {3},
		2: {3},
	},
}

func TestDiamondImmediateDominators(t *testing.T) {
	tree := Build(diamond)

	if got := tree.ImmediateDominator(1); got != 0 {
		t.Errorf("idom(1) = %d, want 0", got)
	}
	if got := tree.ImmediateDominator(2); got != 0 {
		t.Errorf("idom(2) = %d, want 0", got)
	}
	if got := tree.ImmediateDominator(3); got != 0 {
		t.Errorf("idom(3) = %d, want 0 (join block dominated only by entry)", got)
	}
	if !tree.Dominates(0, 3) {
		t.Errorf("expected entry to dominate join block")
	}
	if tree.Dominates(1, 2) || tree.Dominates(2, 1) {
		t.Errorf("siblings must not dominate each other")
	}
}

func TestBFSOrderStartsAtEntry(t *testing.T) {
	tree := Build(diamond)
	bfs := tree.BFS()
	if len(bfs) == 0 || bfs[0] != diamond.entry {
		t.Fatalf("BFS order must start at entry, got %v", bfs)
	}
	if len(bfs) != len(diamond.ids) {
		t.Errorf("expected all reachable blocks in BFS order, got %v", bfs)
	}
}

func TestUnreachableBlockExcluded(t *testing.T) {
	withUnreachable := fakeCFG{
		entry: 0,
		ids:   []int{0, 1, 99},
		succ:  map[int][]int{0: {1}},
	}
	tree := Build(withUnreachable)
	for _, b := range tree.BFS() {
		if b == 99 {
			t.Fatalf("unreachable block must be excluded from BFS order")
		}
	}
}
