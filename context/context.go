// Package context implements the Context model of spec.md §2-§4.2: the
// pair (locals, memory) every transfer function reads and mutates, and
// the join operator the fixed-point driver applies at merge blocks.
//
// Locals and memory are backed by benbjohnson/immutable's persistent
// hash maps rather than a plain Go map, the same structural-sharing
// trick the donor's analysis/lattice package gets from utils/tree: a
// Context snapshot at a block boundary is O(1) to take and keeps every
// other live snapshot valid, which is what the driver needs when a
// block is revisited with a different `before` on a later work-list
// iteration.
package context

import (
	"fmt"

	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/spakin/disjoint"

	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/location"
	"github.com/ownlang/objnorm/state"
	"github.com/ownlang/objnorm/typelayout"
	i "github.com/ownlang/objnorm/utils/indenter"
)

// localHasher adapts ir.Local (a plain comparable struct) for use as an
// immutable.Map key.
type localHasher struct{}

func (localHasher) Hash(l ir.Local) uint32 {
	h := uint32(0x6c6f6331)
	if l.IsParam {
		h ^= uint32(l.Param)*2654435761 + 1
	} else {
		h ^= uint32(l.Instr.Block)*2654435761 + uint32(l.Instr.Address)*40503 + uint32(l.Result)
	}
	return h
}

func (localHasher) Equal(a, b ir.Local) bool { return a == b }

// EntryKind distinguishes the two shapes a local binding can take,
// spec.md §4: "Entry = Object(Value) | Locations(Set<Location>)".
type EntryKind int

const (
	KindObject EntryKind = iota
	KindLocations
)

// Entry is the sum type bound to each SSA local. Exactly one of Object /
// Locs is meaningful per the Kind tag; accessing the wrong one panics,
// mirroring Value's Atom()/Children() discipline in package state.
type Entry struct {
	kind  EntryKind
	obj   state.Value
	locs  location.Set
}

func ObjectEntry(v state.Value) Entry { return Entry{kind: KindObject, obj: v} }

func LocationsEntry(s location.Set) Entry { return Entry{kind: KindLocations, locs: s} }

func (e Entry) Kind() EntryKind { return e.kind }

func (e Entry) Object() state.Value {
	if e.kind != KindObject {
		panic("context: Object() called on a Locations Entry")
	}
	return e.obj
}

func (e Entry) Locations() location.Set {
	if e.kind != KindLocations {
		panic("context: Locations() called on an Object Entry")
	}
	return e.locs
}

func (e Entry) Equal(o Entry) bool {
	if e.kind != o.kind {
		return false
	}
	if e.kind == KindObject {
		return e.obj.Equal(o.obj)
	}
	return e.locs.Equal(o.locs)
}

func (e Entry) String() string {
	if e.kind == KindObject {
		return e.obj.String()
	}
	return e.locs.String()
}

// MergeEntry implements spec.md §4.2's ⊓ on Entry. Mixing Object and
// Locations at the same key is a pass invariant violation (§4.2: "is a
// pass invariant violation") reported through the fatal channel, not a
// diagnostic: it can only arise from a bug in this package or its
// callers, never from a user mistake.
func MergeEntry(a, b Entry) Entry {
	if a.kind != b.kind {
		panic(fmt.Sprintf("context: merging Object entry with Locations entry (%s vs %s)", a, b))
	}
	if a.kind == KindObject {
		return ObjectEntry(state.MergeValue(a.obj, b.obj))
	}
	return LocationsEntry(a.locs.Union(b.locs))
}

// Cell is a live memory slot: its type layout (fixed at allocation) and
// its current Value.
type Cell struct {
	Layout typelayout.Layout
	Value  state.Value
}

// Context is the abstract machine state a transfer function reads and
// writes, spec.md §2 item 4 / §4.
type Context struct {
	locals *immutable.Map[ir.Local, Entry]
	memory *immutable.Map[location.Location, Cell]

	// aliases tracks which locations are known to co-refer to the same
	// storage, via union-find classes built up as Locations sets are
	// unioned at merges (§4.2's `Locations(L1) ⊓ Locations(L2) =
	// Locations(L1 ∪ L2)`). It backs invariant (4)'s consistency check
	// ("if two locations in the same Locations set are read, they yield
	// equal Values") without re-walking every live Locations entry on
	// every read.
	aliases map[location.Location]*disjoint.Element
}

// Empty returns a Context with no bound locals and no live memory, the
// starting point for constructing the entry Context (§4.3).
func Empty() *Context {
	return &Context{
		locals:  immutable.NewMap[ir.Local, Entry](localHasher{}),
		memory:  immutable.NewMap[location.Location, Cell](location.Hasher{}),
		aliases: make(map[location.Location]*disjoint.Element),
	}
}

func (c *Context) elementFor(l location.Location) *disjoint.Element {
	if e, ok := c.aliases[l]; ok {
		return e
	}
	e := disjoint.NewElement()
	c.aliases[l] = e
	return e
}

// unionAliases records that every location in s is known to alias every
// other location in s.
func (c *Context) unionAliases(s location.Set) {
	var first *disjoint.Element
	for l := range s {
		e := c.elementFor(l)
		if first == nil {
			first = e
			continue
		}
		disjoint.Union(first, e)
	}
}

// AreAliased reports whether a and b have been observed in a common
// Locations set, used to gate invariant (4)'s equal-value assertion.
func (c *Context) AreAliased(a, b location.Location) bool {
	ea, oka := c.aliases[a]
	eb, okb := c.aliases[b]
	if !oka || !okb {
		return false
	}
	return ea.Find() == eb.Find()
}

func (c *Context) GetLocal(l ir.Local) (Entry, bool) {
	return c.locals.Get(l)
}

// BindObject binds l to an Object entry, returning the Context with the
// binding applied (locals is persistent: the receiver is left intact).
func (c *Context) BindObject(l ir.Local, v state.Value) *Context {
	next := c.clone()
	next.locals = c.locals.Set(l, ObjectEntry(v))
	return next
}

// BindLocations binds l to a Locations entry and records the aliasing
// fact for invariant (4).
func (c *Context) BindLocations(l ir.Local, s location.Set) *Context {
	next := c.clone()
	next.locals = c.locals.Set(l, LocationsEntry(s))
	next.unionAliases(s)
	return next
}

func (c *Context) clone() *Context {
	aliases := make(map[location.Location]*disjoint.Element, len(c.aliases))
	for k, v := range c.aliases {
		aliases[k] = v
	}
	return &Context{locals: c.locals, memory: c.memory, aliases: aliases}
}

// GetMemory reads the cell at l, ok=false if l is not live (invariant
// (1) requires callers resolving a Locations entry to only ever ask for
// locations present here).
//
// Only root locations (argument/instruction) are ever keyed directly in
// memory; an extend(parent, path) location is resolved by projecting its
// root's Value through the accumulated path instead of being tracked as
// an independent Cell. That is what lets a composite object's slots
// diverge into a genuine partial Value at a merge (§4.7: "Any state → P
// on element-wise updates") rather than being merged as unrelated,
// independently-full locations.
func (c *Context) GetMemory(l location.Location) (Cell, bool) {
	root, path := location.Unwrap(l)
	cell, found := c.memory.Get(root)
	if !found {
		return Cell{}, false
	}
	return Cell{Layout: projectLayout(cell.Layout, path), Value: projectValue(cell.Value, path)}, true
}

// projectValue reads the sub-value path steps into, descending into
// children only while the current Value is partial: a full Value
// already applies uniformly to every slot beneath it, so the remaining
// path steps don't change the answer.
func projectValue(v state.Value, path []int) state.Value {
	for _, step := range path {
		if !v.IsPartial() {
			return v
		}
		v = v.Children()[step]
	}
	return v
}

func projectLayout(l typelayout.Layout, path []int) typelayout.Layout {
	for _, step := range path {
		l = l.Children[step]
	}
	return l
}

// Allocate inserts a fresh location into memory. Per §4.4's alloc-stack
// precondition, it panics ("stack leak") if l is already live: locations
// are never reused.
func (c *Context) Allocate(l location.Location, layout typelayout.Layout, v state.Value) *Context {
	if _, found := c.memory.Get(l); found {
		panic(fmt.Sprintf("context: alloc-stack revisited live location %s (stack leak)", l))
	}
	next := c.clone()
	next.memory = c.memory.Set(l, Cell{Layout: layout, Value: v})
	return next
}

// SetMemory overwrites the Value at an already-live location (store,
// deinit, set-convention writes). A write through an extend(parent,
// path) location replaces just that slot of the root's composite Value
// and re-canonicalizes, rather than creating a separate Cell for the
// path: see GetMemory.
func (c *Context) SetMemory(l location.Location, v state.Value) *Context {
	root, path := location.Unwrap(l)
	cell, found := c.memory.Get(root)
	if !found {
		panic(fmt.Sprintf("context: write to location %s absent from memory", l))
	}
	next := c.clone()
	next.memory = c.memory.Set(root, Cell{Layout: cell.Layout, Value: setValuePath(cell.Value, cell.Layout, path, v)})
	return next
}

// setValuePath replaces the sub-value named by path within whole,
// expanding whole into its per-slot form one level at a time as needed,
// then lets Partial's canonicalization collapse the result back down if
// every slot ends up agreeing again.
func setValuePath(whole state.Value, layout typelayout.Layout, path []int, v state.Value) state.Value {
	if len(path) == 0 {
		return v
	}
	children := make([]state.Value, layout.SlotCount())
	if whole.IsPartial() {
		copy(children, whole.Children())
	} else {
		for i := range children {
			children[i] = whole
		}
	}
	children[path[0]] = setValuePath(children[path[0]], layout.Children[path[0]], path[1:], v)
	return state.Partial(children)
}

// Deallocate removes a location from memory (dealloc-stack).
func (c *Context) Deallocate(l location.Location) *Context {
	next := c.clone()
	next.memory = c.memory.Delete(l)
	delete(next.aliases, l)
	return next
}

// ForEachLocal iterates the locals map in an unspecified but stable
// order, for snapshot comparison and pretty-printing.
func (c *Context) ForEachLocal(f func(ir.Local, Entry)) {
	itr := c.locals.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		f(k, v)
	}
}

// ForEachMemory iterates the memory map.
func (c *Context) ForEachMemory(f func(location.Location, Cell)) {
	itr := c.memory.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		f(k, v)
	}
}

// Equal is used by the driver to detect fixed-point convergence (§4.1
// step 3: requeue only while a predecessor's `after` keeps changing).
func (c *Context) Equal(o *Context) bool {
	if c.locals.Len() != o.locals.Len() || c.memory.Len() != o.memory.Len() {
		return false
	}
	eq := true
	c.ForEachLocal(func(l ir.Local, e Entry) {
		oe, found := o.locals.Get(l)
		if !found || !e.Equal(oe) {
			eq = false
		}
	})
	if !eq {
		return false
	}
	c.ForEachMemory(func(l location.Location, cell Cell) {
		ocell, found := o.memory.Get(l)
		if !found || !cell.Value.Equal(ocell.Value) {
			eq = false
		}
	})
	return eq
}

// Merge implements spec.md §4.2's join at a block with more than one
// predecessor: per-key Entry merge for locals (MergeEntry), and
// per-location Value merge for memory restricted to locations common to
// every predecessor ("Locations present in only some predecessors are
// dropped").
func Merge(cs ...*Context) *Context {
	if len(cs) == 0 {
		return Empty()
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out = mergeTwo(out, c)
	}
	return out
}

func mergeTwo(a, b *Context) *Context {
	out := Empty()
	a.ForEachLocal(func(l ir.Local, ea Entry) {
		if eb, found := b.locals.Get(l); found {
			out.locals = out.locals.Set(l, MergeEntry(ea, eb))
		}
	})
	a.ForEachMemory(func(l location.Location, ca Cell) {
		if cb, found := b.memory.Get(l); found {
			out.memory = out.memory.Set(l, Cell{Layout: ca.Layout, Value: state.MergeValue(ca.Value, cb.Value)})
		}
	})
	// Alias classes from a and b use distinct disjoint.Element
	// identities and can't be merged directly; re-derive them from the
	// Locations entries that survived the merge instead.
	out.ForEachLocal(func(_ ir.Local, e Entry) {
		if e.kind == KindLocations {
			out.unionAliases(e.locs)
		}
	})
	return out
}

func (c *Context) String() string {
	var locals []string
	c.ForEachLocal(func(l ir.Local, e Entry) {
		locals = append(locals, fmt.Sprintf("%s ↦ %s", l, e))
	})
	sort.Strings(locals)

	var memory []string
	c.ForEachMemory(func(l location.Location, cell Cell) {
		memory = append(memory, fmt.Sprintf("%s ↦ %s", l, cell.Value))
	})
	sort.Strings(memory)

	return "locals: " + i.Indenter().Start("{").NestStrings(locals...).End("}") +
		"\nmemory: " + i.Indenter().Start("{").NestStrings(memory...).End("}")
}
