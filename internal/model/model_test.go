package model

import (
	"testing"

	"github.com/outcome-engine/outcome/internal/value"
)

func TestRegisterComponentCreatesInitTrigger(t *testing.T) {
	m := NewSimModel("test")
	if err := m.RegisterComponent(ComponentModel{Name: "ctr"}); err != nil {
		t.Fatal(err)
	}
	ev := InitEventFor("ctr")
	if _, ok := m.Events[ev]; !ok {
		t.Fatalf("expected init event %q to be registered", ev)
	}
	subs := m.Triggers[ev]
	if len(subs) != 1 || subs[0] != value.CompID("ctr") {
		t.Fatalf("Triggers[%q] = %v, want [ctr]", ev, subs)
	}
}

func TestRegisterVarOnMissingComponentCreatesIt(t *testing.T) {
	m := NewSimModel("test")
	if err := m.RegisterVar("ctr", VarModel{Name: "n", Type: value.TypeInt}); err != nil {
		t.Fatal(err)
	}
	c, ok := m.Components["ctr"]
	if !ok {
		t.Fatal("expected component ctr to be created on demand")
	}
	if len(c.Vars) != 1 || c.Vars[0].Name != value.StringID("n") {
		t.Fatalf("unexpected vars: %+v", c.Vars)
	}
}

func TestRegisterTriggerAddsSubscription(t *testing.T) {
	m := NewSimModel("test")
	m.RegisterEvent("dusk")
	if err := m.RegisterTrigger("ctr", "dusk"); err != nil {
		t.Fatal(err)
	}
	subs := m.Triggers["dusk"]
	if len(subs) != 1 || subs[0] != value.CompID("ctr") {
		t.Fatalf("Triggers[dusk] = %v, want [ctr]", subs)
	}
	// Registering the same trigger twice must not duplicate the subscription.
	if err := m.RegisterTrigger("ctr", "dusk"); err != nil {
		t.Fatal(err)
	}
	if len(m.Triggers["dusk"]) != 1 {
		t.Fatalf("Triggers[dusk] = %v, want exactly one entry", m.Triggers["dusk"])
	}
}

func TestExtendComponentCreatesOnMissing(t *testing.T) {
	m := NewSimModel("test")
	frag := LogicModel{
		Commands:   []Command{},
		Locations:  []LocationInfo{},
		States:     map[value.StringID]int{"extra": 0},
		Procedures: map[value.StringID]int{},
	}
	if err := m.ExtendComponent("ctr", frag); err != nil {
		t.Fatal(err)
	}
	c, ok := m.Components["ctr"]
	if !ok {
		t.Fatal("expected component ctr to be created by extend")
	}
	if _, ok := c.Logic.States["extra"]; !ok {
		t.Fatalf("expected extended state 'extra' to carry over, got %+v", c.Logic.States)
	}
}

func TestComponentNamesSorted(t *testing.T) {
	m := NewSimModel("test")
	m.RegisterComponent(ComponentModel{Name: "zeta"})
	m.RegisterComponent(ComponentModel{Name: "alpha"})
	names := m.ComponentNames()
	if len(names) != 2 || names[0] != value.CompID("alpha") || names[1] != value.CompID("zeta") {
		t.Fatalf("ComponentNames() = %v, want sorted [alpha zeta]", names)
	}
}

func TestLogicModelGetSubset(t *testing.T) {
	l := LogicModel{
		Commands:  make([]Command, 5),
		Locations: make([]LocationInfo, 5),
	}
	cmds, locs := l.GetSubset(1, 3)
	if len(cmds) != 2 || len(locs) != 2 {
		t.Fatalf("GetSubset(1,3) lengths = %d,%d; want 2,2", len(cmds), len(locs))
	}
	if cmds, _ := l.GetSubset(4, 2); cmds != nil {
		t.Fatalf("GetSubset with start>=end should return nil, got %v", cmds)
	}
}

func TestCallStackFrames(t *testing.T) {
	cs := NewCallStack()
	cs.Push(Frame{Kind: FrameState})
	cs.Push(Frame{Kind: FrameLoop, Start: 3, End: 9})
	idx, ok := cs.NearestOfKind(FrameLoop)
	if !ok || idx != 1 {
		t.Fatalf("NearestOfKind(FrameLoop) = %d, %v; want 1, true", idx, ok)
	}
	cs.TruncateTo(idx)
	if cs.Len() != 1 {
		t.Fatalf("Len() after TruncateTo = %d, want 1", cs.Len())
	}
}
