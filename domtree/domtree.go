// Package domtree builds the dominator tree external collaborator named
// in spec.md §6 ("DominatorTree(function, cfg, in: module)"). The
// dominator computation itself is the donor's iterative dataflow
// algorithm (utils/graph.Graph.DominatorTree, Cooper/Harvey/Kennedy's
// "A Simple, Fast Dominance Algorithm": https://www.cs.rice.edu/~keith/EMBED/dom.pdf),
// specialized directly to this pass's int block ids rather than kept
// behind the donor's generic Graph[T]/Mapper[K] machinery: every
// dominator tree this pass ever builds is over one function's block
// list, so the extra type parameter and pluggable map factory the donor
// needs — to dominate over ssa.Value-keyed and other non-comparable-key
// graphs elsewhere in its own analyses — buys nothing here, and a plain
// map[int]int/[]int is the natural representation of a CFG's own block
// ids.
package domtree

import "fmt"

// CFG is the minimal view the dominator builder needs: every live block
// id, its entry point, and its successor edges. ir.Function satisfies
// this directly.
type CFG interface {
	BlockIDs() []int
	Entry() int
	Successors(b int) []int
}

// Tree answers the three queries spec.md §6 requires of the external
// DominatorTree collaborator.
type Tree struct {
	idom func(...int) int
	bfs  []int
	doms map[int]int
}

// Build computes the dominator tree of the given CFG, rooted at its
// entry block. Unreachable blocks (not reachable from entry) are
// excluded from the BFS order, matching the donor's general stance that
// analyses only reason about reachable code.
func Build(cfg CFG) *Tree {
	idomOf := blockDominators(cfg.Entry(), cfg.Successors)

	t := &Tree{idom: idomOf, doms: make(map[int]int)}

	// Reachability from entry, computed independently of the dominator
	// builder: its returned closure panics on a block it never visited,
	// so unreachable blocks must never be passed to it.
	reachable := map[int]struct{}{cfg.Entry(): {}}
	queue := []int{cfg.Entry()}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range cfg.Successors(b) {
			if _, ok := reachable[s]; !ok {
				reachable[s] = struct{}{}
				queue = append(queue, s)
			}
		}
	}

	// Breadth-first order of the dominator tree: seed the work list with
	// the entry block, then repeatedly add, level by level, every
	// not-yet-visited block whose immediate dominator has already been
	// visited (order within one level is unspecified). This is the
	// ordering spec.md §4.1 asks the fixed-point driver to seed its work
	// list with.
	visited := map[int]struct{}{cfg.Entry(): {}}
	t.bfs = []int{cfg.Entry()}
	t.doms[cfg.Entry()] = cfg.Entry()

	remaining := map[int]struct{}{}
	for _, b := range cfg.BlockIDs() {
		if _, ok := reachable[b]; ok && b != cfg.Entry() {
			remaining[b] = struct{}{}
		}
	}

	for len(remaining) > 0 {
		// Collect a whole level before marking any of it visited, so a
		// block is never placed ahead of a shallower one.
		var level []int
		for b := range remaining {
			if _, ok := visited[idomOf(b)]; ok {
				level = append(level, b)
			}
		}
		for _, b := range level {
			visited[b] = struct{}{}
			t.doms[b] = idomOf(b)
			t.bfs = append(t.bfs, b)
			delete(remaining, b)
		}
		if len(level) == 0 {
			// Anything left is unreachable from entry; drop it rather
			// than spin forever.
			break
		}
	}

	return t
}

// blockDominators computes, via Cooper/Harvey/Kennedy's iterative
// dataflow algorithm, a function from any non-empty set of blocks to
// the nearest block that strictly dominates each of them in the CFG
// rooted at entry. For a single block that is its immediate dominator;
// the entry block maps to itself.
func blockDominators(entry int, successors func(int) []int) func(...int) int {
	postorderTime := map[int]int{}
	pred := map[int][]int{}

	// Compute DFS post-order ordering, recording each block's
	// predecessors along the way.
	time := 0
	var order []int

	var dfs func(int)
	dfs = func(b int) {
		if _, seen := postorderTime[b]; seen {
			return
		}
		postorderTime[b] = -1

		for _, s := range successors(b) {
			pred[s] = append(pred[s], b)
			dfs(s)
		}

		postorderTime[b] = time
		order = append(order, b)
		time++
	}
	dfs(entry)

	// Initialize doms to "undefined"; the entry block (last in
	// post-order) dominates itself.
	doms := make([]int, time)
	for i := range doms {
		doms[i] = -1
	}
	doms[time-1] = time - 1

	intersect := func(a, b int) int {
		for a != b {
			if a < b {
				a = doms[a]
			} else {
				b = doms[b]
			}
		}
		return a
	}

	for {
		changed := false

		// Process blocks in reverse post-order, skipping the entry block.
		for i := time - 2; i >= 0; i-- {
			b := order[i]

			newIdom := -1
			for _, p := range pred[b] {
				j := postorderTime[p]
				if doms[j] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = j
				} else {
					newIdom = intersect(j, newIdom)
				}
			}

			if newIdom != doms[i] {
				doms[i] = newIdom
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	return func(blocks ...int) int {
		if len(blocks) == 0 {
			panic("domtree: dominator requested of an empty block set")
		}

		dom := -1
		for _, b := range blocks {
			i, found := postorderTime[b]
			if !found {
				panic(fmt.Sprintf("domtree: block %d was not reachable when computing the dominator tree", b))
			}
			i = doms[i]
			if dom == -1 {
				dom = i
			} else {
				dom = intersect(i, dom)
			}
		}
		return order[dom]
	}
}

// BFS returns the blocks in breadth-first order of the dominator tree,
// the seeding order for the fixed-point work list (§4.1).
func (t *Tree) BFS() []int { return t.bfs }

// ImmediateDominator returns b's immediate dominator (b itself for the
// entry block).
func (t *Tree) ImmediateDominator(b int) int { return t.doms[b] }

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *Tree) Dominates(a, b int) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		dom, ok := t.doms[cur]
		if !ok || dom == cur {
			return cur == a
		}
		cur = dom
	}
}
