package typelayout

import "go/types"

import "testing"

func TestScalarHasNoSlots(t *testing.T) {
	if got := Of(types.Typ[types.Int]).SlotCount(); got != 0 {
		t.Errorf("scalar SlotCount() = %d, want 0", got)
	}
}

func TestStructHasOneSlotPerField(t *testing.T) {
	st := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "x", types.Typ[types.Int], false),
		types.NewField(0, nil, "y", types.Typ[types.Int], false),
		types.NewField(0, nil, "z", types.Typ[types.Bool], false),
	}, nil)

	l := Of(st)
	if got := l.SlotCount(); got != 3 {
		t.Fatalf("SlotCount() = %d, want 3", got)
	}
	for i, c := range l.Children {
		if c.SlotCount() != 0 {
			t.Errorf("field %d expected scalar layout, got %d slots", i, c.SlotCount())
		}
	}
}

func TestArrayRepeatsElementLayout(t *testing.T) {
	inner := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "a", types.Typ[types.Int], false),
	}, nil)
	arr := types.NewArray(inner, 4)

	l := Of(arr)
	if got := l.SlotCount(); got != 4 {
		t.Fatalf("SlotCount() = %d, want 4", got)
	}
	for _, c := range l.Children {
		if c.SlotCount() != 1 {
			t.Errorf("expected each array element to carry the struct's own 1-slot layout, got %d", c.SlotCount())
		}
	}
}

func TestFieldTypeStruct(t *testing.T) {
	st := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "x", types.Typ[types.Int], false),
		types.NewField(0, nil, "y", types.Typ[types.Bool], false),
	}, nil)
	if FieldType(st, 1) != types.Typ[types.Bool] {
		t.Errorf("FieldType(st, 1) did not resolve to bool")
	}
}
