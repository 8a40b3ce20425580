package normalize

import (
	"github.com/ownlang/objnorm/context"
	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/location"
	"github.com/ownlang/objnorm/state"
	"github.com/ownlang/objnorm/typelayout"
)

// entryContext builds the `before` Context of the entry block from the
// function's parameter signature, spec.md §4.3.
func entryContext(f *ir.Function) *context.Context {
	c := context.Empty()
	for i, p := range f.Params {
		local := ir.ParamLocal(i)
		switch p.Conv {
		case ir.ConvLet, ir.ConvInout:
			arg := location.Argument{Index: i}
			c = c.Allocate(arg, typelayout.Of(p.Type), state.Full(state.Init()))
			c = c.BindLocations(local, location.NewSet(arg))
		case ir.ConvSet:
			arg := location.Argument{Index: i}
			c = c.Allocate(arg, typelayout.Of(p.Type), state.Full(state.Uninit()))
			c = c.BindLocations(local, location.NewSet(arg))
		case ir.ConvSink:
			c = c.BindObject(local, state.Full(state.Init()))
		case ir.ConvYielded:
			fatal("normalize: yielded convention is invalid at a function boundary (param %d)", i)
		default:
			fatal("normalize: unrecognized parameter convention %v", p.Conv)
		}
	}
	return c
}
