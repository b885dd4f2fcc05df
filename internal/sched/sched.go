// Package sched implements the event & tick scheduler (spec §4.F): an
// idempotent-per-tick event queue, and the deterministic per-tick
// entity/component visiting order that turns a fired event into a set of
// component invocations. Grounded on the Invoke::execute_ext dedup check
// in outcome-core's machine/cmd/mod.rs and spec §4.F's stated invariant
// that invoking the same event twice in one tick has the same effect as
// invoking it once.
package sched

import (
	"sort"
	"sync"

	"github.com/outcome-engine/outcome/internal/value"
	"go.uber.org/zap"
)

// EventQueue buffers events enqueued during a tick for dispatch on the
// next one, deduplicating repeats within the same tick (spec §4.F
// "at-most-once-per-tick invoke").
type EventQueue struct {
	mu      sync.Mutex
	pending []value.StringID
	seen    map[value.StringID]struct{}
}

func NewEventQueue() *EventQueue {
	return &EventQueue{seen: make(map[value.StringID]struct{})}
}

// Enqueue schedules id to fire on the next Drain, ignoring duplicate
// enqueues within the same tick.
func (q *EventQueue) Enqueue(id value.StringID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[id]; ok {
		return
	}
	q.seen[id] = struct{}{}
	q.pending = append(q.pending, id)
}

// Drain returns the events enqueued since the last Drain, in insertion
// order, and resets the queue for the next tick.
func (q *EventQueue) Drain() []value.StringID {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	q.seen = make(map[value.StringID]struct{})
	return out
}

// EntityDirectory is the minimal view the scheduler needs of a running
// simulation's entities: their ids and the components each one carries
// (spec §3 "entity = set of components").
type EntityDirectory interface {
	EntityIDs() []value.EntityID
	ComponentsOf(id value.EntityID) []value.CompID
}

// Invocation is one (entity, component, event) unit of work the tick
// produced, in deterministic order (spec §4.F "deterministic visiting
// order").
type Invocation struct {
	Entity    value.EntityID
	Component value.CompID
	Event     value.StringID
}

// Plan computes this tick's invocations: for every fired event, every
// entity carrying a component subscribed to it gets one invocation,
// visited in (event enqueue order, entity id, component declaration
// order) order for reproducibility (spec §4.F "components whose triggers
// contain the event in declaration order", §5 "deterministic replay").
func Plan(dir EntityDirectory, triggers map[value.StringID][]value.CompID, events []value.StringID) []Invocation {
	var out []Invocation
	entities := dir.EntityIDs()
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	for _, event := range events {
		subset := triggers[event]
		if len(subset) == 0 {
			continue
		}

		for _, entity := range entities {
			has := make(map[value.CompID]struct{})
			for _, c := range dir.ComponentsOf(entity) {
				has[c] = struct{}{}
			}
			for _, comp := range subset {
				if _, ok := has[comp]; ok {
					out = append(out, Invocation{Entity: entity, Component: comp, Event: event})
				}
			}
		}
	}
	return out
}

// Clock advances the simulation's tick counter and logs tick boundaries
// (spec §4.F "tick advancement").
type Clock struct {
	tick uint64
	log  *zap.Logger
}

func NewClock(log *zap.Logger) *Clock {
	return &Clock{log: log}
}

func (c *Clock) Tick() uint64 { return c.tick }

func (c *Clock) Advance() uint64 {
	c.tick++
	if c.log != nil {
		c.log.Debug("tick advanced", zap.Uint64("tick", c.tick))
	}
	return c.tick
}
