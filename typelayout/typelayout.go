// Package typelayout implements the AbstractTypeLayout query spec.md §6
// lists as an external collaborator: "slot-count and child-layout
// information needed to build partial values." Rather than invent a
// parallel type representation, it answers the query directly against
// go/types, the same stance the donor takes throughout pkgutil and
// analysis/location (FieldLocation.Type() walks *types.Struct/*types.Array
// the same way Layout does below).
package typelayout

import "go/types"

// Layout describes how many sub-object slots a type's Value occupies,
// and the layout of each slot (for nested partials). A Layout with zero
// children is a scalar: its Value lattice member is always `full`, never
// `partial`.
type Layout struct {
	Children []Layout
}

// SlotCount is the number of child slots; zero means the type is
// scalar for the purposes of this pass's Value lattice.
func (l Layout) SlotCount() int { return len(l.Children) }

// Of computes the layout of a type: the number of independently
// trackable sub-object slots spec.md §3 needs to build a canonical
// `partial` Value.
//
//   - a struct has one slot per field;
//   - a fixed-size array has one slot per element, all sharing the
//     element type's layout;
//   - everything else (scalars, pointers, slices, maps, channels,
//     interfaces, function types) is scalar, with zero child slots — the pass
//     reasons about them as one object, consistent with spec.md's
//     "Out of scope: heap-shape analysis... aliasing is reasoned about
//     through abstract locations... never through arbitrary pointer
//     arithmetic."
func Of(t types.Type) Layout {
	switch u := t.Underlying().(type) {
	case *types.Struct:
		children := make([]Layout, u.NumFields())
		for i := range children {
			children[i] = Of(u.Field(i).Type())
		}
		return Layout{Children: children}
	case *types.Array:
		n := int(u.Len())
		if n <= 0 {
			return Layout{}
		}
		elem := Of(u.Elem())
		children := make([]Layout, n)
		for i := range children {
			children[i] = elem
		}
		return Layout{Children: children}
	default:
		return Layout{}
	}
}

// FieldType resolves the type of slot `index` of an aggregate type t.
// The pass itself does not call it: element-addr resolves sub-object
// layouts by walking Layout.Children instead.
func FieldType(t types.Type, index int) types.Type {
	switch u := t.Underlying().(type) {
	case *types.Struct:
		return u.Field(index).Type()
	case *types.Array:
		return u.Elem()
	default:
		panic("typelayout: FieldType called on a scalar type")
	}
}
