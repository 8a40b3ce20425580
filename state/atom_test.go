package state

import (
	"testing"

	"github.com/ownlang/objnorm/ir"
)

func id(b, a int) ir.InstrID { return ir.InstrID{Block: b, Address: a} }

func TestMergeAtomTable(t *testing.T) {
	a1 := ConsumedBy(id(1, 0))
	a2 := ConsumedBy(id(2, 0))

	cases := []struct {
		name     string
		lhs, rhs Atom
		want     Atom
	}{
		{"init/init", Init(), Init(), Init()},
		{"init/uninit", Init(), Uninit(), Uninit()},
		{"init/consumed", Init(), a1, a1},
		{"uninit/init", Uninit(), Init(), Uninit()},
		{"uninit/uninit", Uninit(), Uninit(), Uninit()},
		{"uninit/consumed", Uninit(), a1, a1},
		{"consumed/init", a1, Init(), a1},
		{"consumed/uninit", a1, Uninit(), a1},
		{"consumed/consumed-same", a1, a1, a1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := MergeAtom(c.lhs, c.rhs)
			if !got.Equal(c.want) {
				t.Errorf("MergeAtom(%s, %s) = %s, want %s", c.lhs, c.rhs, got, c.want)
			}
		})
	}

	// Consumed ∪ consumed unions the instruction sets rather than
	// picking either side, spec.md §3.
	got := MergeAtom(a1, a2)
	if !got.IsConsumed() {
		t.Fatalf("expected consumed, got %s", got)
	}
	if len(got.By()) != 2 {
		t.Fatalf("expected union of 2 instructions, got %d", len(got.By()))
	}
}

func TestMergeAtomCommutative(t *testing.T) {
	atoms := []Atom{Init(), Uninit(), ConsumedBy(id(0, 0)), ConsumedBy(id(1, 0))}
	for _, a := range atoms {
		for _, b := range atoms {
			ab := MergeAtom(a, b)
			ba := MergeAtom(b, a)
			// The table is symmetric, so every pair must agree either way.
			if !ab.Equal(ba) {
				t.Errorf("MergeAtom(%s,%s)=%s but MergeAtom(%s,%s)=%s", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestInstrSetUnionEqual(t *testing.T) {
	s1 := NewInstrSet(id(0, 0), id(1, 0))
	s2 := NewInstrSet(id(1, 0), id(2, 0))
	u := s1.Union(s2)
	if len(u) != 3 {
		t.Fatalf("Union len = %d, want 3", len(u))
	}
	if !u.Equal(NewInstrSet(id(0, 0), id(1, 0), id(2, 0))) {
		t.Errorf("Union set mismatch: %s", u)
	}
}
