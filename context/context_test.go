package context

import (
	"go/types"
	"testing"

	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/location"
	"github.com/ownlang/objnorm/state"
	"github.com/ownlang/objnorm/typelayout"
)

func TestAllocateThenRead(t *testing.T) {
	c := Empty()
	l := location.Instruction{Block: 0, Address: 0}
	layout := typelayout.Of(types.Typ[types.Int])
	c = c.Allocate(l, layout, state.Full(state.Uninit()))

	cell, found := c.GetMemory(l)
	if !found {
		t.Fatalf("expected location to be live after Allocate")
	}
	if !cell.Value.Equal(state.Full(state.Uninit())) {
		t.Errorf("Value = %s, want uninitialized", cell.Value)
	}
}

func TestAllocateRevisitedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on revisited location")
		}
	}()
	c := Empty()
	l := location.Instruction{Block: 0, Address: 0}
	layout := typelayout.Of(types.Typ[types.Int])
	c = c.Allocate(l, layout, state.Full(state.Uninit()))
	c.Allocate(l, layout, state.Full(state.Uninit()))
}

func TestBindLocationsRecordsAliases(t *testing.T) {
	c := Empty()
	a := location.Instruction{Block: 0, Address: 0}
	b := location.Instruction{Block: 0, Address: 1}
	local := ir.ResultLocal(ir.InstrID{Block: 0, Address: 2}, 0)

	c = c.BindLocations(local, location.NewSet(a, b))
	if !c.AreAliased(a, b) {
		t.Errorf("expected a and b to be recorded as aliases")
	}
}

func TestMergeEntryObjectVsLocationsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic mixing Object and Locations entries")
		}
	}()
	obj := ObjectEntry(state.Full(state.Init()))
	locs := LocationsEntry(location.NewSet(location.Argument{Index: 0}))
	MergeEntry(obj, locs)
}

func TestMergeLocalsUnionsObjectValues(t *testing.T) {
	local := ir.ParamLocal(0)
	a := Empty().BindObject(local, state.Full(state.Init()))
	b := Empty().BindObject(local, state.Full(state.Uninit()))

	merged := Merge(a, b)
	entry, found := merged.GetLocal(local)
	if !found {
		t.Fatalf("expected merged local binding")
	}
	if !entry.Object().Equal(state.Full(state.Uninit())) {
		t.Errorf("merged object = %s, want uninitialized", entry.Object())
	}
}

func TestMergeMemoryDropsNonCommonLocations(t *testing.T) {
	layout := typelayout.Of(types.Typ[types.Int])
	common := location.Instruction{Block: 0, Address: 0}
	onlyInA := location.Instruction{Block: 1, Address: 0}

	a := Empty().Allocate(common, layout, state.Full(state.Init())).
		Allocate(onlyInA, layout, state.Full(state.Init()))
	b := Empty().Allocate(common, layout, state.Full(state.Uninit()))

	merged := Merge(a, b)
	if _, found := merged.GetMemory(onlyInA); found {
		t.Errorf("expected location only live in one predecessor to be dropped")
	}
	cell, found := merged.GetMemory(common)
	if !found {
		t.Fatalf("expected common location to survive merge")
	}
	if !cell.Value.Equal(state.Full(state.Uninit())) {
		t.Errorf("merged common cell = %s, want uninitialized", cell.Value)
	}
}

func TestExtendLocationProjectsIntoRootValue(t *testing.T) {
	recordType := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "a", types.Typ[types.Int], false),
		types.NewField(0, nil, "b", types.Typ[types.Int], false),
	}, nil)
	layout := typelayout.Of(recordType)
	root := location.Instruction{Block: 0, Address: 0}
	field0 := location.Extend{Parent: root, Path: 0}
	field1 := location.Extend{Parent: root, Path: 1}

	c := Empty().Allocate(root, layout, state.Full(state.Uninit()))
	c = c.SetMemory(field0, state.Full(state.Init()))

	cell, found := c.GetMemory(field0)
	if !found || !cell.Value.Equal(state.Full(state.Init())) {
		t.Fatalf("field0 = %v (found=%v), want initialized", cell.Value, found)
	}
	cell, found = c.GetMemory(field1)
	if !found || !cell.Value.Equal(state.Full(state.Uninit())) {
		t.Fatalf("field1 = %v (found=%v), want still uninitialized", cell.Value, found)
	}
	rootCell, found := c.GetMemory(root)
	if !found || !rootCell.Value.IsPartial() {
		t.Fatalf("root = %v (found=%v), want a partial Value after one field is set", rootCell.Value, found)
	}

	c = c.SetMemory(field1, state.Full(state.Init()))
	rootCell, _ = c.GetMemory(root)
	if rootCell.Value.IsPartial() {
		t.Errorf("root = %v, want collapsed to full(initialized) once both fields agree", rootCell.Value)
	}
}

func TestMergeOfDivergentFieldsYieldsPartialValue(t *testing.T) {
	recordType := types.NewStruct([]*types.Var{
		types.NewField(0, nil, "a", types.Typ[types.Int], false),
		types.NewField(0, nil, "b", types.Typ[types.Int], false),
	}, nil)
	layout := typelayout.Of(recordType)
	root := location.Instruction{Block: 0, Address: 0}
	field0 := location.Extend{Parent: root, Path: 0}
	field1 := location.Extend{Parent: root, Path: 1}

	base := Empty().Allocate(root, layout, state.Full(state.Uninit()))
	base = base.SetMemory(field0, state.Full(state.Init()))
	base = base.SetMemory(field1, state.Full(state.Init()))

	consumed := base.SetMemory(field0, state.Full(state.ConsumedBy(ir.InstrID{Block: 1, Address: 0})))

	merged := Merge(consumed, base)
	rootCell, found := merged.GetMemory(root)
	if !found || !rootCell.Value.IsPartial() {
		t.Fatalf("merged root = %v (found=%v), want partial after one predecessor consumed field0", rootCell.Value, found)
	}
	if len(rootCell.Value.Paths().Consumed) != 1 {
		t.Errorf("expected exactly one consumed path, got %v", rootCell.Value.Paths())
	}
}

func TestContextEqualDetectsConvergence(t *testing.T) {
	local := ir.ParamLocal(0)
	a := Empty().BindObject(local, state.Full(state.Init()))
	b := Empty().BindObject(local, state.Full(state.Init()))
	if !a.Equal(b) {
		t.Errorf("expected structurally equal Contexts to compare equal")
	}

	c := Empty().BindObject(local, state.Full(state.Uninit()))
	if a.Equal(c) {
		t.Errorf("expected differing Contexts to compare unequal")
	}
}
