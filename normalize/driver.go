package normalize

import (
	"github.com/ownlang/objnorm/context"
	"github.com/ownlang/objnorm/diag"
	"github.com/ownlang/objnorm/domtree"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/utils"
	"github.com/ownlang/objnorm/utils/worklist"
)

// blockCtx is the cached (before, after) pair the driver keeps per
// block, spec.md §4.1's `contexts[b]`.
type blockCtx struct {
	before, after *context.Context
}

// driver is the fixed-point work-list scheduler of spec.md §4.1. It
// owns the CFG/dominator-tree cache, the work list, and the `done` and
// `visited` sets; transfer functions (package-level, not methods on
// driver) own only the Context they're handed.
type driver struct {
	module *ir.Module
	fn     *ir.Function
	tc     *transferCtx
	dom    *domtree.Tree

	contexts map[int]blockCtx
	visited  map[int]bool // has ever had an after Context computed
	done     map[int]bool // stable: after will not change again

	wl      worklist.Worklist[int]
	inQueue map[int]bool // guards wl against duplicate membership; resolves
	// spec.md §9's "implementers should assert at enqueue time that the
	// work list is a set" by construction instead of by assertion: an
	// enqueue that would create a duplicate is simply a no-op.
}

// Run performs the object-state normalization pass over fn within
// module, spec.md §6's exposed entry point `normalizeObjectStates`. If
// diags.HasErrors() is false once Run returns, fn contains explicit
// deinit instructions at every point an object's storage is overwritten
// or freed, and no decidable static-branch remains.
func Run(module *ir.Module, fn *ir.Function, diags *diag.Set) {
	defer attributePanic(fn)

	d := &driver{
		module:   module,
		fn:       fn,
		tc:       &transferCtx{module: module, fn: fn, diags: diags},
		dom:      domtree.Build(fn),
		contexts: make(map[int]blockCtx),
		visited:  make(map[int]bool),
		done:     make(map[int]bool),
		inQueue:  make(map[int]bool),
	}
	for _, b := range d.dom.BFS() {
		d.enqueue(b)
	}
	d.run()
}

// attributePanic recovers a panic one frame up from Run, attaches fn's
// name if the panic is this package's own fatalError, and re-panics. A
// crash from an unrelated bug (e.g. a nil map access) is re-panicked
// unattributed rather than misreported as fn's precondition failure.
func attributePanic(fn *ir.Function) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*fatalError); ok {
		fe.fn = fn.Name
	}
	panic(r)
}

func (d *driver) enqueue(b int) {
	if d.inQueue[b] {
		return
	}
	d.inQueue[b] = true
	d.wl.Add(b)
}

func (d *driver) run() {
	for !d.wl.IsEmpty() {
		b := d.wl.GetNext()
		if !d.inQueue[b] {
			// Stale entry: b was removed by a static-branch fold after
			// being queued but before being popped.
			continue
		}
		d.inQueue[b] = false
		d.process(b)
	}
}

func (d *driver) process(b int) {
	utils.VerbosePrint("normalize: visiting block %d of %s\n", b, d.fn.Name)
	if b == d.fn.Entry() {
		before := entryContext(d.fn)
		after, removed := d.interpretBlock(b, before)
		d.contexts[b] = blockCtx{before: before, after: after}
		d.visited[b] = true
		d.done[b] = true
		if removed >= 0 {
			d.rebuildAndReseed(removed)
		}
		return
	}

	idom := d.dom.ImmediateDominator(b)
	if !d.visited[idom] {
		d.enqueue(b)
		return
	}

	preds := d.fn.Predecessors(b)
	for _, p := range preds {
		if !d.visited[p] && !d.dom.Dominates(b, p) {
			// p is a forward predecessor not yet visited: b is not
			// visitable yet.
			d.enqueue(b)
			return
		}
	}

	var afters []*context.Context
	for _, p := range preds {
		if d.visited[p] {
			afters = append(afters, d.contexts[p].after)
		}
	}
	var newBefore *context.Context
	if len(afters) == 0 {
		newBefore = context.Empty()
	} else {
		newBefore = context.Merge(afters...)
	}

	cached, hadCached := d.contexts[b]
	recompute := !hadCached || !cached.before.Equal(newBefore)

	var after *context.Context
	removed := -1
	if recompute {
		after, removed = d.interpretBlock(b, newBefore)
	} else {
		after = cached.after
	}

	d.visited[b] = true
	d.contexts[b] = blockCtx{before: newBefore, after: after}

	// b is done once its `before` Context has stopped changing (this
	// visit recomputed nothing new) and every predecessor has itself
	// been visited at least once. Gating on visited rather than done
	// breaks the circular wait a header/latch loop would otherwise
	// create: a loop header's latch predecessor can't be done until the
	// header is, and the header can't be done until the latch is, so a
	// done-based test never fires for either and the driver loops
	// forever. Visited-ness has no such cycle (every predecessor is
	// visited long before the loop's merged state stops changing), and
	// the lattice's finite height still guarantees `before` eventually
	// stabilizes, so this converges in exactly the same cases the old
	// test was meant to, plus the ones it missed.
	allPredsVisited := true
	for _, p := range preds {
		if !d.visited[p] {
			allPredsVisited = false
			break
		}
	}
	finished := allPredsVisited && hadCached && !recompute

	if removed >= 0 {
		d.rebuildAndReseed(removed)
		return
	}

	if finished {
		d.done[b] = true
	} else {
		d.enqueue(b)
	}
}

// interpretBlock runs every instruction currently in block b, in order,
// against `before`. It snapshots the instruction list first: §4.6's
// deinit insertions splice new instructions into the same block, and
// those must wait for the block's next visit rather than being
// interpreted mid-pass.
func (d *driver) interpretBlock(b int, before *context.Context) (*context.Context, int) {
	c := before
	removed := -1
	blk := d.fn.Block(b)
	snapshot := append([]ir.InstrID(nil), blk.Instrs...)
	for _, id := range snapshot {
		in := d.fn.Instr(id)
		var r int
		c, r = transferInstr(d.tc, in, c)
		if r >= 0 {
			removed = r
		}
	}
	return c, removed
}

// rebuildAndReseed implements §4.1's rewriter interaction: purge the
// removed block's cached state, recompute the CFG-derived dominator
// tree, and re-seed the work list in the new BFS order, skipping
// already-done blocks so finished work survives the rewrite.
func (d *driver) rebuildAndReseed(removed int) {
	delete(d.contexts, removed)
	delete(d.visited, removed)
	delete(d.done, removed)
	d.inQueue[removed] = false

	d.dom = domtree.Build(d.fn)
	for _, b := range d.dom.BFS() {
		if !d.done[b] {
			d.enqueue(b)
		}
	}
}
