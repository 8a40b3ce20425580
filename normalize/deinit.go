package normalize

import (
	"github.com/ownlang/objnorm/context"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/state"
)

// insertDeinitSequence implements §4.6: for each path in paths, splice
// an element-addr/load/deinit triple immediately before `before`, in
// order, anchored at `pos`. The new instructions are not themselves
// interpreted here — the driver picks them up the next time this block
// is revisited, exactly as §4.6 specifies ("themselves interpreted on
// the next iteration of the driver").
func insertDeinitSequence(tc *transferCtx, c *context.Context, root ir.Operand, paths []state.Path, before ir.InstrID, pos ir.Position) *context.Context {
	for _, p := range paths {
		ea := tc.module.Insert(tc.fn, before, tc.module.MakeElementAddr(root, p, pos))
		ld := tc.module.Insert(tc.fn, before, tc.module.MakeLoad(ir.LocalOperand(ea.Result(0)), pos))
		tc.module.Insert(tc.fn, before, tc.module.MakeDeinit(ir.LocalOperand(ld.Result(0)), pos))
	}
	return c
}
