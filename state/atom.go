// Package state implements the abstract domain of spec.md §3: the
// three-atom initialization lattice, its merge operator, and the Value
// lattice built on top of it (full/partial objects with canonicalization
// and the path queries transfer functions rely on).
//
// The donor's analysis/lattice package is the model: a small fixed atom
// set (compare FlatElement's ⊥/valued/⊤ shape in flat-element.go), a
// structural Eq, and pretty-printing routed through a colorize table.
// This lattice is simpler than the donor's — it has no ⊤/⊥, only the
// three atoms spec.md §3 names, because unlike the donor's general
// points-to/channel lattices this one never needs to represent "value
// not yet computed" or "value could be anything."
package state

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/utils"
)

// AtomKind distinguishes the three members of the atom lattice.
type AtomKind int

const (
	Initialized AtomKind = iota
	Uninitialized
	Consumed
)

func (k AtomKind) String() string {
	switch k {
	case Initialized:
		return "initialized"
	case Uninitialized:
		return "uninitialized"
	case Consumed:
		return "consumed"
	default:
		return "?atom"
	}
}

var atomColor = struct {
	Init, Uninit, Cons func(...interface{}) string
}{
	Init:   utils.CanColorize(color.New(color.FgGreen).SprintFunc()),
	Uninit: utils.CanColorize(color.New(color.FgYellow).SprintFunc()),
	Cons:   utils.CanColorize(color.New(color.FgRed).SprintFunc()),
}

// InstrSet is a non-empty set of instruction ids, the "S" in
// consumed(by: S); spec.md §3 requires it non-empty and says it grows
// to more than one member only after a join.
type InstrSet map[ir.InstrID]struct{}

func NewInstrSet(ids ...ir.InstrID) InstrSet {
	s := make(InstrSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s InstrSet) Union(o InstrSet) InstrSet {
	r := make(InstrSet, len(s)+len(o))
	for id := range s {
		r[id] = struct{}{}
	}
	for id := range o {
		r[id] = struct{}{}
	}
	return r
}

func (s InstrSet) Equal(o InstrSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if _, ok := o[id]; !ok {
			return false
		}
	}
	return true
}

func (s InstrSet) String() string {
	ids := make([]ir.InstrID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Block != ids[j].Block {
			return ids[i].Block < ids[j].Block
		}
		return ids[i].Address < ids[j].Address
	})
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id.String()
	}
	return out + "}"
}

// Atom is a member of the three-atom state lattice.
type Atom struct {
	kind AtomKind
	by   InstrSet // non-nil, non-empty iff kind == Consumed
}

func Init() Atom      { return Atom{kind: Initialized} }
func Uninit() Atom    { return Atom{kind: Uninitialized} }
func ConsumedBy(ids ...ir.InstrID) Atom {
	return Atom{kind: Consumed, by: NewInstrSet(ids...)}
}

func (a Atom) Kind() AtomKind   { return a.kind }
func (a Atom) By() InstrSet     { return a.by }
func (a Atom) IsInitialized() bool   { return a.kind == Initialized }
func (a Atom) IsUninitialized() bool { return a.kind == Uninitialized }
func (a Atom) IsConsumed() bool      { return a.kind == Consumed }

func (a Atom) Equal(o Atom) bool {
	if a.kind != o.kind {
		return false
	}
	if a.kind == Consumed {
		return a.by.Equal(o.by)
	}
	return true
}

func (a Atom) String() string {
	switch a.kind {
	case Initialized:
		return atomColor.Init("initialized")
	case Uninitialized:
		return atomColor.Uninit("uninitialized")
	case Consumed:
		return atomColor.Cons(fmt.Sprintf("consumed%s", a.by))
	default:
		return "?"
	}
}

// Merge implements the ⊓ table of spec.md §3: conservative
// superposition across two paths reaching the same join block.
//
//	lhs \ rhs       initialized     uninitialized   consumed(B)
//	initialized     initialized     uninitialized   consumed(B)
//	uninitialized   uninitialized   uninitialized   consumed(B)
//	consumed(A)     consumed(A)     consumed(A)     consumed(A∪B)
//
// This is not a classical lattice join: merging initialized with
// uninitialized yields uninitialized, not a join to some top element,
// by design (spec.md §9: "an object live on only one path is
// conservatively flagged as use-of-uninitialized at the join").
func MergeAtom(a, b Atom) Atom {
	switch a.kind {
	case Consumed:
		if b.kind == Consumed {
			return Atom{kind: Consumed, by: a.by.Union(b.by)}
		}
		return a
	case Uninitialized:
		if b.kind == Consumed {
			return b
		}
		return Atom{kind: Uninitialized}
	case Initialized:
		return b
	default:
		panic("state: malformed Atom in Merge")
	}
}
