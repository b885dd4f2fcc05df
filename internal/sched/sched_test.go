package sched_test

import (
	"reflect"
	"testing"

	"github.com/outcome-engine/outcome/internal/sched"
	"github.com/outcome-engine/outcome/internal/value"
)

func TestEventQueueDedupesWithinATick(t *testing.T) {
	q := sched.NewEventQueue()
	q.Enqueue("tick")
	q.Enqueue("tick")
	q.Enqueue("damage")

	got := q.Drain()
	want := []value.StringID{"tick", "damage"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
}

func TestEventQueueResetsAfterDrain(t *testing.T) {
	q := sched.NewEventQueue()
	q.Enqueue("tick")
	q.Drain()
	q.Enqueue("tick")
	got := q.Drain()
	want := []value.StringID{"tick"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("second Drain() = %v, want %v (dedup must not leak across ticks)", got, want)
	}
}

type fakeDirectory struct {
	ids   []value.EntityID
	comps map[value.EntityID][]value.CompID
}

func (f *fakeDirectory) EntityIDs() []value.EntityID { return f.ids }
func (f *fakeDirectory) ComponentsOf(id value.EntityID) []value.CompID {
	return f.comps[id]
}

func TestPlanOrdersByEntityThenTriggerDeclarationOrder(t *testing.T) {
	dir := &fakeDirectory{
		ids: []value.EntityID{2, 1},
		comps: map[value.EntityID][]value.CompID{
			1: {"zeta", "alpha"},
			2: {"alpha"},
		},
	}
	triggers := map[value.StringID][]value.CompID{
		"tick": {"zeta", "alpha"},
	}

	got := sched.Plan(dir, triggers, []value.StringID{"tick"})
	want := []sched.Invocation{
		{Entity: 1, Component: "zeta", Event: "tick"},
		{Entity: 1, Component: "alpha", Event: "tick"},
		{Entity: 2, Component: "alpha", Event: "tick"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Plan() = %+v, want %+v", got, want)
	}
}

func TestPlanSkipsEventsWithNoSubscribers(t *testing.T) {
	dir := &fakeDirectory{ids: []value.EntityID{1}, comps: map[value.EntityID][]value.CompID{1: {"alpha"}}}
	got := sched.Plan(dir, map[value.StringID][]value.CompID{}, []value.StringID{"unsubscribed"})
	if len(got) != 0 {
		t.Fatalf("Plan() = %+v, want empty", got)
	}
}

func TestClockAdvance(t *testing.T) {
	c := sched.NewClock(nil)
	if c.Tick() != 0 {
		t.Fatalf("initial Tick() = %d, want 0", c.Tick())
	}
	if got := c.Advance(); got != 1 {
		t.Fatalf("Advance() = %d, want 1", got)
	}
	if c.Tick() != 1 {
		t.Fatalf("Tick() after Advance() = %d, want 1", c.Tick())
	}
}
