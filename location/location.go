// Package location models abstract storage locations for the object-state
// normalization pass: opaque identifiers that stand for a region of
// storage without ever reasoning about concrete addresses.
//
// Two operations observing the same Location are known to alias; two
// observing different Locations are known not to alias. Locations are
// never reused: an alloc-stack revisiting an already-live slot is a
// stack leak (a compiler bug, not a user error).
package location

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/ownlang/objnorm/utils"
)

// colorize mirrors the donor's per-kind ANSI palette for pretty-printing
// locations in diagnostics and -dot dumps.
var colorize = struct {
	Arg   func(...interface{}) string
	Instr func(...interface{}) string
	Path  func(...interface{}) string
}{
	Arg:   utils.CanColorize(color.New(color.FgHiBlue).SprintFunc()),
	Instr: utils.CanColorize(color.New(color.FgHiGreen).SprintFunc()),
	Path:  utils.CanColorize(color.New(color.FgHiCyan).SprintFunc()),
}

// BlockAddr names an instruction position by block and address,
// matching the §3 notion of instruction(block, address) locations
// without depending on the ir package.
type BlockAddr struct {
	Block   int
	Address int
}

// Location is an opaque identifier for storage, per spec.md §3.
//
//	argument(index) | instruction(block, address) | extend(parent, path)
type Location interface {
	Hash() uint32
	Equal(Location) bool
	String() string
	// IsArgument reports whether this location is a function parameter
	// slot created once, at entry, per invariant (5).
	IsArgument() bool
}

// Hasher adapts Location for use as a key in a benbjohnson/immutable map,
// the same role LocationHasher plays in the donor's analysis/location
// package.
type Hasher struct{}

func (Hasher) Hash(l Location) uint32    { return l.Hash() }
func (Hasher) Equal(a, b Location) bool  { return a.Equal(b) }

// Argument is the location of input parameter i, allocated exactly once
// at function entry (§4.3) and never deallocated (invariant 5).
type Argument struct {
	Index int
}

func (a Argument) Hash() uint32 { return utils.HashCombine(0x61726731, uint32(a.Index)) }

func (a Argument) Equal(o Location) bool {
	ob, ok := o.(Argument)
	return ok && ob == a
}

func (a Argument) String() string {
	return colorize.Arg(fmt.Sprintf("arg%d", a.Index))
}

func (Argument) IsArgument() bool { return true }

// Instruction is the location a given alloc-stack instruction creates
// when it executes. Two invocations of the same analysis over the same
// function always derive the same Instruction location for the same
// alloc-stack, which is what lets the driver converge at joins.
type Instruction struct {
	Block   int
	Address int
}

func (i Instruction) Hash() uint32 {
	return utils.HashCombine(0x696e7374, uint32(i.Block), uint32(i.Address))
}

func (i Instruction) Equal(o Location) bool {
	ob, ok := o.(Instruction)
	return ok && ob == i
}

func (i Instruction) String() string {
	return colorize.Instr(fmt.Sprintf("%%%d.%d", i.Block, i.Address))
}

func (Instruction) IsArgument() bool { return false }

// Extend is a path extension of another location: the location of a
// sub-object slot reached by projecting `Parent` through `Path` (an
// element-addr path, §4.4's element-addr transfer function).
type Extend struct {
	Parent Location
	Path   int
}

func (e Extend) Hash() uint32 {
	return utils.HashCombine(0x65787464, e.Parent.Hash(), uint32(e.Path))
}

func (e Extend) Equal(o Location) bool {
	oe, ok := o.(Extend)
	return ok && oe.Path == e.Path && oe.Parent.Equal(e.Parent)
}

func (e Extend) String() string {
	return fmt.Sprintf("%s"+colorize.Path(".(%d)"), e.Parent, e.Path)
}

func (e Extend) IsArgument() bool { return false }

// Unwrap peels off a chain of Extend wrappers, returning the root
// location (an Argument or Instruction, never itself an Extend) and the
// path from that root to l, outermost-first. A non-Extend location
// unwraps to itself with an empty path.
func Unwrap(l Location) (root Location, path []int) {
	for {
		e, ok := l.(Extend)
		if !ok {
			return l, path
		}
		path = append([]int{e.Path}, path...)
		l = e.Parent
	}
}

// Set is a non-empty collection of Locations known to be aliases of one
// another on some path (invariant 2: never empty).
type Set map[Location]struct{}

// NewSet builds a Set from the given locations, panicking if empty:
// invariant (2) forbids an empty Locations entry from ever being
// constructed.
func NewSet(ls ...Location) Set {
	if len(ls) == 0 {
		panic("location: attempted to construct an empty Locations set")
	}
	s := make(Set, len(ls))
	for _, l := range ls {
		s[l] = struct{}{}
	}
	return s
}

// Union merges two non-empty sets.
func (s Set) Union(o Set) Set {
	r := make(Set, len(s)+len(o))
	for l := range s {
		r[l] = struct{}{}
	}
	for l := range o {
		r[l] = struct{}{}
	}
	return r
}

// Equal is a structural comparison, used by Context equality checks at
// fixed-point convergence (§4.1 step 3).
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if _, ok := o[l]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the set's members in an unspecified order, which may
// differ from one call to the next (Go map iteration order).
func (s Set) Slice() []Location {
	r := make([]Location, 0, len(s))
	for l := range s {
		r = append(r, l)
	}
	return r
}

func (s Set) String() string {
	first := true
	str := "{"
	for _, l := range s.Slice() {
		if !first {
			str += ", "
		}
		first = false
		str += l.String()
	}
	return str + "}"
}
