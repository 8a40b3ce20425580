// Package cfgdump renders an ir.Function's control-flow graph to
// graphviz dot, the -dot CLI tooling named in SPEC_FULL.md. It reuses
// the donor's DotGraph/DotNode/DotEdge template machinery (utils/dot)
// rather than hand-rolling a second dot emitter.
package cfgdump

import (
	"fmt"

	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/utils/dot"
)

// Dot builds a DotGraph with one node per block (labeled with its
// instructions) and one edge per CFG successor edge.
func Dot(f *ir.Function) *dot.DotGraph {
	g := &dot.DotGraph{
		Title:   f.Name,
		Attrs:   dot.DotAttrs{},
		Options: map[string]string{"rankdir": "TB"},
	}

	nodes := make(map[int]*dot.DotNode, len(f.Blocks))
	for _, b := range f.BlockIDs() {
		label := blockLabel(f, b)
		n := &dot.DotNode{
			ID:    fmt.Sprintf("b%d", b),
			Attrs: dot.DotAttrs{"label": label, "shape": "box"},
		}
		nodes[b] = n
		g.Nodes = append(g.Nodes, n)
	}

	for _, b := range f.BlockIDs() {
		for _, s := range f.Successors(b) {
			g.Edges = append(g.Edges, &dot.DotEdge{From: nodes[b], To: nodes[s], Attrs: dot.DotAttrs{}})
		}
	}
	return g
}

func blockLabel(f *ir.Function, b int) string {
	label := fmt.Sprintf("block %d\\n", b)
	for _, id := range f.Block(b).Instrs {
		in := f.Instr(id)
		label += in.Op.String() + "\\n"
	}
	return label
}
