package normalize

import (
	"github.com/ownlang/objnorm/context"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/state"
)

// transferStaticBranch implements §4.4's static-branch transfer
// function and the rewrite it triggers. Only the `initialized`
// predicate is implemented; every other predicate, and every subject
// Value that isn't full, is the fatal "not implemented" path §7 and §9
// both call out. It returns the id of the block removed by the fold, or
// -1 if no rewrite happened (which, for this opcode, never occurs on a
// well-formed function: §4.4 gives no "do nothing" branch for
// static-branch).
func transferStaticBranch(tc *transferCtx, in *ir.Instr, c *context.Context) (*context.Context, int) {
	if in.Predicate != "initialized" {
		fatal("normalize: static-branch predicate %q is not implemented", in.Predicate)
	}
	if len(in.Targets) != 2 {
		fatal("normalize: static-branch expects exactly 2 targets, got %d", len(in.Targets))
	}

	L := resolveLocations(c, in.Args[0])
	v := readCommonValue(c, L)

	tIfTrue, tIfFalse := in.Targets[0], in.Targets[1]

	var kept, removed int
	switch {
	case v.Equal(state.Full(state.Init())):
		kept, removed = tIfTrue, tIfFalse
	case v.Equal(state.Full(state.Uninit())):
		kept, removed = tIfFalse, tIfTrue
	default:
		fatal("normalize: static-branch over a non-full subject Value is not implemented")
		return c, -1
	}

	tc.module.RemoveBlock(tc.fn, removed)
	tc.module.Replace(tc.fn, in.ID, tc.module.MakeBranch(kept, in.Pos))
	return c, removed
}
