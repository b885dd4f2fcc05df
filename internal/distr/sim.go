// Package distr implements the distribution dispatch tier (spec §4.G,
// §4.H): Sim, the monolithic single-process authority, and SimCentral,
// its distributed counterpart that the same CentralRemoteCommand/
// ExtCommand interfaces run against unmodified. Grounded on outcome-core's
// Sim/SimCentral split and CentralRemoteCommand::execute/execute_distr in
// machine/cmd/mod.rs.
package distr

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/sched"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
	"github.com/outcome-engine/outcome/internal/vm"
)

// entity is one live instance: its name, the components it carries, its
// storage, and each component's current state name (persisted across
// ticks, spec §3).
type entity struct {
	id         value.EntityID
	name       value.StringID
	components []value.CompID
	storage    *storage.Storage
	states     map[value.CompID]value.StringID
}

// Sim is the monolithic single-process simulation: the entire entity set,
// model, and event queue live in one place, and it implements both
// model.CentralAuthority and model.ExternalAuthority directly (spec §4.G
// "Local tier == everything in-process").
type Sim struct {
	mu       sync.Mutex
	model    *model.SimModel
	entities map[value.EntityID]*entity
	byName   map[value.StringID]value.EntityID
	nextID   value.EntityID
	queue    *sched.EventQueue
	clock    *sched.Clock
	log      *zap.Logger
}

// New creates a Sim over an already-built model.
func New(m *model.SimModel, log *zap.Logger) *Sim {
	return &Sim{
		model:    m,
		entities: make(map[value.EntityID]*entity),
		byName:   make(map[value.StringID]value.EntityID),
		queue:    sched.NewEventQueue(),
		clock:    sched.NewClock(log),
		log:      log,
	}
}

func (s *Sim) Model() *model.SimModel { return s.model }

func (s *Sim) Tick() uint64 { return s.clock.Tick() }

// EntityIDs implements sched.EntityDirectory.
func (s *Sim) EntityIDs() []value.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]value.EntityID, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ComponentsOf implements sched.EntityDirectory.
func (s *Sim) ComponentsOf(id value.EntityID) []value.CompID {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return nil
	}
	return append([]value.CompID(nil), e.components...)
}

// EntityStorageByName implements model.ExternalAuthority.
func (s *Sim) EntityStorageByName(name value.StringID) (*storage.Storage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.entities[id].storage, true
}

// EnqueueEvent implements model.CentralAuthority.
func (s *Sim) EnqueueEvent(id value.StringID) { s.queue.Enqueue(id) }

// RegisterEvent/RegisterEntityPrefab/RegisterComponent/RegisterVar/
// RegisterTrigger/ExtendComponent implement model.CentralAuthority by
// delegating straight to the model, under the same lock that guards
// entity bookkeeping (spec §4.H "single mutator").
func (s *Sim) RegisterEvent(id value.StringID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.RegisterEvent(id)
}

func (s *Sim) RegisterEntityPrefab(p model.EntityPrefabModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RegisterEntityPrefab(p)
}

func (s *Sim) RegisterComponent(c model.ComponentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RegisterComponent(c)
}

func (s *Sim) RegisterVar(comp value.CompID, v model.VarModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RegisterVar(comp, v)
}

func (s *Sim) RegisterTrigger(comp value.CompID, event value.StringID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RegisterTrigger(comp, event)
}

func (s *Sim) ExtendComponent(comp value.CompID, extra model.LogicModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.ExtendComponent(comp, extra)
}

// SpawnEntity implements model.CentralAuthority: it allocates a fresh
// EntityID, names it (spawnID if given, else a generated UUID string), and
// initializes storage for every component in the prefab (or an empty
// entity if prefab is nil), per spec §4.C "entity prefabs".
func (s *Sim) SpawnEntity(prefab *value.StringID, spawnID *value.StringID) (value.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var comps []value.CompID
	if prefab != nil {
		pf, ok := s.model.EntityPrefabs[*prefab]
		if !ok {
			return 0, machineerr.Other("spawn: no such entity prefab %q", *prefab)
		}
		comps = pf.Components
	}

	s.nextID++
	id := s.nextID
	// An unspecified spawn_id gets a generated one rather than a counter
	// suffix, so two scenario runs that spawn unnamed entities in a
	// different order don't collide on name if their counts ever diverge
	// (spec §4.C "spawn").
	name := value.NewStringID(uuid.NewString())
	if spawnID != nil {
		name = *spawnID
	}

	st := storage.New()
	states := make(map[value.CompID]value.StringID)
	for _, comp := range comps {
		cm, ok := s.model.Components[comp]
		if !ok {
			continue
		}
		for _, v := range cm.Vars {
			val := v.Default
			st.Insert(comp, v.Name, v.Type, &val)
		}
		states[comp] = cm.Logic.StartState
	}

	s.entities[id] = &entity{id: id, name: name, components: comps, storage: st, states: states}
	s.byName[name] = id
	for _, comp := range comps {
		s.queue.Enqueue(model.InitEventFor(comp))
	}
	return id, nil
}

// DespawnEntity implements model.CentralAuthority: it removes the named
// entity and releases its storage (spec §3 "destroyed on entity
// despawn", §4.D "sim").
func (s *Sim) DespawnEntity(name value.StringID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	if !ok {
		return machineerr.Other("sim despawn: no such entity %q", name)
	}
	delete(s.entities, id)
	delete(s.byName, name)
	return nil
}

// RunTick executes one full tick: plans this tick's invocations from the
// events enqueued since the last tick, runs every component invocation's
// local commands, then drains and executes every deferred ext/central
// command before advancing the clock (spec §4.E, §4.F, §4.G).
func (s *Sim) RunTick() error {
	events := s.queue.Drain()
	s.mu.Lock()
	triggers := s.model.Triggers
	invocations := sched.Plan(s, triggers, events)
	s.mu.Unlock()

	type extJob struct {
		local *storage.Storage
		cmd   model.ExtCommand
	}
	type preWrite struct {
		addr value.Address
		val  value.Var
	}
	var extJobs []extJob
	var preWrites []preWrite
	var centralCmds []model.CentralRemoteCommand

	for _, inv := range invocations {
		s.mu.Lock()
		e, ok := s.entities[inv.Entity]
		s.mu.Unlock()
		if !ok {
			continue
		}
		state := inv.Event
		if cur, ok := e.states[inv.Component]; ok && cur != "" {
			state = cur
		}
		reg := model.NewRegistry()
		out := vm.RunComponent(s.model, inv.Entity, inv.Component, e.storage, &state, reg, s.log)
		e.states[inv.Component] = state
		if out.Err != nil && s.log != nil {
			s.log.Warn("component invocation error",
				zap.String("entity", string(e.name)),
				zap.String("component", string(inv.Component)),
				zap.Error(out.Err))
		}
		for _, ec := range out.ExtCommands {
			// Commands that can be pre-snapshotted (e.g. SetExt) are
			// resolved to a concrete (address, value) write right away,
			// using *this* entity's storage as it stood at the point the
			// command ran — not whatever it has become once every other
			// entity has also run this tick (spec §4.G pre-phase).
			// Commands without a pre-phase (e.g. GetExt) defer to a real
			// ExecuteExt call after all entities have run locally.
			if addr, v, ok := ec.ExecPre(e.storage, e.name); ok {
				preWrites = append(preWrites, preWrite{addr: addr, val: v})
				continue
			}
			extJobs = append(extJobs, extJob{local: e.storage, cmd: ec})
		}
		centralCmds = append(centralCmds, out.CentralCommands...)
	}

	for _, pw := range preWrites {
		remote, ok := s.EntityStorageByName(pw.addr.Entity)
		if !ok {
			if s.log != nil {
				s.log.Warn("ext pre-write: entity not found", zap.String("entity", string(pw.addr.Entity)))
			}
			continue
		}
		if err := remote.SetFromVar(pw.addr, pw.val); err != nil && s.log != nil {
			s.log.Warn("ext pre-write error", zap.Error(err))
		}
	}
	for _, job := range extJobs {
		if err := job.cmd.ExecuteExt(s, job.local, model.LocationInfo{}); err != nil && s.log != nil {
			s.log.Warn("ext command error", zap.Error(err))
		}
	}
	for _, cc := range centralCmds {
		if err := cc.ExecuteCentral(s); err != nil && s.log != nil {
			s.log.Warn("central command error", zap.Error(err))
		}
	}

	s.clock.Advance()
	return nil
}
