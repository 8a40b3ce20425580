// Package normalize is the abstract interpreter and rewriter of
// spec.md §4: one transfer function per opcode, the deinitialization
// insertion helper, the static-branch folder, and the fixed-point
// driver that schedules them. It plays the role the donor's
// analysis/absint package plays for its own (unrelated) points-to
// analysis: a big per-opcode dispatch mutating a Context in place.
package normalize

import (
	"github.com/ownlang/objnorm/context"
	"github.com/ownlang/objnorm/diag"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/location"
	"github.com/ownlang/objnorm/state"
	"github.com/ownlang/objnorm/typelayout"
)

// transferCtx bundles the per-run collaborators every transfer function
// needs but that aren't part of the Context itself: the enclosing
// module (for IR edits), the function being interpreted, and the
// diagnostic sink.
type transferCtx struct {
	module *ir.Module
	fn     *ir.Function
	diags  *diag.Set
}

// resolveLocations dereferences an address operand to its bound
// Locations set (§4.4's shared precondition). A constant operand here
// is the unimplemented path spec.md §9 calls out explicitly.
func resolveLocations(c *context.Context, o ir.Operand) location.Set {
	if o.IsConst {
		fatal("normalize: constant-as-address is unimplemented (§9 open question)")
	}
	entry, found := c.GetLocal(o.Local)
	if !found {
		fatal("normalize: address operand %s has no local binding", o)
	}
	if entry.Kind() != context.KindLocations {
		fatal("normalize: address operand %s is bound as Object, not Locations", o)
	}
	return entry.Locations()
}

// readCommonValue reads the Value at every location in L and asserts
// they agree (invariant 4: "if two locations in the same Locations set
// are read, they yield equal Values"). Divergence is a borrowing
// discipline violation upstream, never a user-facing diagnostic.
//
// Before comparing Values it checks each location against the first
// one with Context.AreAliased, the union-find membership test the
// locations were enrolled in when this Locations set was bound
// (Context.BindLocations) or last survived a merge. A miss there is a
// wiring bug in the Locations/alias bookkeeping itself, distinct from
// (and cheaper to catch than) an actual divergent-Value violation, so
// it gets its own fatal rather than falling through to the Value
// comparison below.
func readCommonValue(c *context.Context, L location.Set) state.Value {
	var common state.Value
	var first location.Location
	firstSet := false
	for _, l := range L.Slice() {
		cell, found := c.GetMemory(l)
		if !found {
			fatal("normalize: location %s in a live Locations set is absent from memory", l)
		}
		if !firstSet {
			common = cell.Value
			first = l
			firstSet = true
			continue
		}
		if !c.AreAliased(first, l) {
			fatal("normalize: locations %s and %s share a Locations set but were never recorded as aliased", first, l)
		}
		if !cell.Value.Equal(common) {
			fatal("normalize: locations in one Locations set observed with divergent Values (%s vs %s)", common, cell.Value)
		}
	}
	return common
}

func setLocations(c *context.Context, L location.Set, v state.Value) *context.Context {
	for _, l := range L.Slice() {
		c = c.SetMemory(l, v)
	}
	return c
}

// classifyUseDiagnostic maps a Value observed where full(initialized)
// was required to the matching diagnostic kind, spec.md §4.4's borrow
// let/inout and load rules.
func classifyUseDiagnostic(v state.Value) diag.Kind {
	if !v.IsPartial() {
		switch v.Atom().Kind() {
		case state.Uninitialized:
			return diag.UseOfUninitializedObject
		default:
			return diag.UseOfConsumedObject
		}
	}
	paths := v.Paths()
	if len(paths.Consumed) > 0 {
		return diag.UseOfPartiallyConsumedObject
	}
	return diag.UseOfPartiallyInitializedObject
}

// reportUse emits the diagnostic classifyUseDiagnostic selects, unless
// v is already full(initialized) (the non-error case every caller
// checks for before calling this).
func reportUse(tc *transferCtx, v state.Value, at ir.InstrID, pos ir.Position, verb string) {
	tc.diags.Insert(diag.Diagnostic{
		Kind:    classifyUseDiagnostic(v),
		At:      at,
		Pos:     pos,
		Message: verb + " observed " + v.String(),
	})
}

// consume implements the "Consume helper" of §4.4: constants are never
// consumed; an Object local transitions from full(initialized) to
// full(consumed by {at}); anything else is an illegal move.
func consume(tc *transferCtx, c *context.Context, o ir.Operand, at ir.InstrID, pos ir.Position) *context.Context {
	if o.IsConst {
		return c
	}
	entry, found := c.GetLocal(o.Local)
	if !found {
		fatal("normalize: consumed operand %s has no local binding", o)
	}
	if entry.Kind() != context.KindObject {
		fatal("normalize: consumed operand %s is bound as Locations, not Object", o)
	}
	if entry.Object().Equal(state.Full(state.Init())) {
		return c.BindObject(o.Local, state.Full(state.ConsumedBy(at)))
	}
	tc.diags.Insert(diag.Diagnostic{
		Kind:    diag.IllegalMove,
		At:      at,
		Pos:     pos,
		Message: "illegal move of " + entry.Object().String(),
	})
	return c
}

func isBuiltinLocation(c *context.Context, l location.Location) bool {
	cell, found := c.GetMemory(l)
	return found && cell.Layout.SlotCount() == 0
}

// assertNoInitializedRemains implements the shared "set"-convention
// precondition in call and store: overwriting already-initialized
// storage is forbidden except for built-in-typed locations.
func assertNoInitializedRemains(c *context.Context, L location.Set) {
	for _, l := range L.Slice() {
		if isBuiltinLocation(c, l) {
			continue
		}
		cell, _ := c.GetMemory(l)
		if len(cell.Value.InitializedPaths()) > 0 {
			fatal("normalize: overwrite of still-initialized non-builtin location %s", l)
		}
	}
}

func bindResults(c *context.Context, in *ir.Instr, v state.Value) *context.Context {
	for i := 0; i < in.NumResults; i++ {
		c = c.BindObject(in.Result(i), v)
	}
	return c
}

// transferInstr dispatches a single instruction's transfer function,
// mutating (a persistent copy of) c and returning the result. Returns
// the id of a block removed by a folded static-branch, or -1.
func transferInstr(tc *transferCtx, in *ir.Instr, c *context.Context) (*context.Context, int) {
	switch in.Op {
	case ir.OpAllocStack:
		return transferAllocStack(tc, in, c), -1
	case ir.OpBorrow:
		return transferBorrow(tc, in, c), -1
	case ir.OpBranch:
		return c, -1
	case ir.OpCondBranch:
		return consume(tc, c, in.Args[0], in.ID, in.Pos), -1
	case ir.OpCall:
		return transferCall(tc, in, c), -1
	case ir.OpDeallocStack:
		return transferDeallocStack(tc, in, c), -1
	case ir.OpDeinit:
		return consume(tc, c, in.Args[0], in.ID, in.Pos), -1
	case ir.OpDestructure:
		c = consume(tc, c, in.Args[0], in.ID, in.Pos)
		return bindResults(c, in, state.Full(state.Init())), -1
	case ir.OpElementAddr:
		return transferElementAddr(in, c), -1
	case ir.OpEndBorrow:
		return c, -1
	case ir.OpLLVM:
		return bindResults(c, in, state.Full(state.Init())), -1
	case ir.OpLoad:
		return transferLoad(tc, in, c), -1
	case ir.OpRecord:
		for _, a := range in.Args {
			c = consume(tc, c, a, in.ID, in.Pos)
		}
		return bindResults(c, in, state.Full(state.Init())), -1
	case ir.OpReturn:
		if len(in.Args) == 0 {
			return c, -1
		}
		return consume(tc, c, in.Args[0], in.ID, in.Pos), -1
	case ir.OpStaticBranch:
		return transferStaticBranch(tc, in, c)
	case ir.OpStore:
		return transferStore(tc, in, c), -1
	case ir.OpUnreachable:
		return c, -1
	default:
		fatal("normalize: unrecognized opcode %v", in.Op)
		return c, -1
	}
}

func transferAllocStack(_ *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	it := location.Instruction{Block: in.ID.Block, Address: in.ID.Address}
	c = c.Allocate(it, typelayout.Of(in.Type), state.Full(state.Uninit()))
	return c.BindLocations(in.Result(0), location.NewSet(it))
}

func transferBorrow(tc *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	addr := in.Args[0]
	L := resolveLocations(c, addr)
	v := readCommonValue(c, L)

	switch in.Conv {
	case ir.ConvLet, ir.ConvInout:
		if !v.Equal(state.Full(state.Init())) {
			reportUse(tc, v, in.ID, in.Pos, "borrow")
		}
	case ir.ConvSet:
		if !v.Equal(state.Full(state.Uninit())) {
			if paths := v.InitializedPaths(); len(paths) > 0 {
				c = insertDeinitSequence(tc, c, addr, paths, in.ID, in.Pos)
			}
			c = setLocations(c, L, state.Full(state.Uninit()))
		}
	case ir.ConvYielded, ir.ConvSink:
		fatal("normalize: borrow with convention %v is invalid", in.Conv)
	}
	return c.BindLocations(in.Result(0), L)
}

func transferCall(tc *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	if in.CalleeSink {
		c = consume(tc, c, in.Callee, in.ID, in.Pos)
	} else if !in.Callee.IsConst {
		entry, found := c.GetLocal(in.Callee.Local)
		if !found || entry.Kind() != context.KindLocations {
			fatal("normalize: call callee %s must be a borrow or constant", in.Callee)
		}
	}

	for _, a := range in.CallArgs {
		switch a.Conv {
		case ir.ConvLet, ir.ConvInout:
			if !a.Operand.IsConst {
				entry, found := c.GetLocal(a.Operand.Local)
				if !found || entry.Kind() != context.KindLocations {
					fatal("normalize: call argument %s must be a borrow or constant", a.Operand)
				}
			}
		case ir.ConvSet:
			L := resolveLocations(c, a.Operand)
			assertNoInitializedRemains(c, L)
			c = setLocations(c, L, state.Full(state.Init()))
		case ir.ConvSink:
			c = consume(tc, c, a.Operand, in.ID, in.Pos)
		case ir.ConvYielded:
			fatal("normalize: yielded call argument convention is invalid")
		}
	}

	return bindResults(c, in, state.Full(state.Init()))
}

func transferDeallocStack(tc *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	addr := in.Args[0]
	L := resolveLocations(c, addr)
	ls := L.Slice()
	if len(ls) != 1 {
		fatal("normalize: dealloc-stack target resolved to %d locations, want exactly 1", len(ls))
	}
	l := ls[0]
	cell, found := c.GetMemory(l)
	if !found {
		fatal("normalize: dealloc-stack target %s absent from memory", l)
	}
	if paths := cell.Value.InitializedPaths(); len(paths) > 0 {
		c = insertDeinitSequence(tc, c, addr, paths, in.ID, in.Pos)
	}
	return c.Deallocate(l)
}

func transferElementAddr(in *ir.Instr, c *context.Context) *context.Context {
	base := in.Args[0]
	L := resolveLocations(c, base)
	result := make([]location.Location, 0, len(L))
	for _, l := range L.Slice() {
		var cur location.Location = l
		for _, step := range in.Path {
			cur = location.Extend{Parent: cur, Path: step}
		}
		result = append(result, cur)
	}
	return c.BindLocations(in.Result(0), location.NewSet(result...))
}

func transferLoad(tc *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	addr := in.Args[0]
	L := resolveLocations(c, addr)
	v := readCommonValue(c, L)

	if v.Equal(state.Full(state.Init())) {
		c = setLocations(c, L, state.Full(state.ConsumedBy(in.ID)))
	} else {
		reportUse(tc, v, in.ID, in.Pos, "load")
	}
	return bindResults(c, in, state.Full(state.Init()))
}

func transferStore(tc *transferCtx, in *ir.Instr, c *context.Context) *context.Context {
	source, target := in.Args[0], in.Args[1]
	c = consume(tc, c, source, in.ID, in.Pos)

	L := resolveLocations(c, target)
	assertNoInitializedRemains(c, L)
	return setLocations(c, L, state.Full(state.Init()))
}
