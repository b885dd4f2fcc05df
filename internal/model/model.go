package model

import (
	"sort"

	"github.com/outcome-engine/outcome/internal/value"
)

// VarModel is a single variable declaration within a component: its name,
// type, and the default value it is initialized with on spawn (spec
// §4.C).
type VarModel struct {
	Name    value.StringID
	Type    value.VarType
	Default value.Var
}

// LogicModel is a component's compiled instruction list plus the indices
// needed to resume execution at a named state or procedure (spec §4.C,
// §4.D "state/procedure entry points").
type LogicModel struct {
	Commands []Command
	// Locations holds per-command diagnostics, aligned index-for-index
	// with Commands.
	Locations []LocationInfo
	// States maps a state name to the command index its body starts at.
	States map[value.StringID]int
	// Procedures maps a procedure name to its start index.
	Procedures map[value.StringID]int
	// StartState is the component's initial state, entered on spawn.
	StartState value.StringID
}

// GetSubset returns the commands (and their locations) in [start,end),
// mirroring outcome-core's LogicModel::get_subset used when extracting a
// state or procedure body for inspection or re-entry bookkeeping.
func (l LogicModel) GetSubset(start, end int) ([]Command, []LocationInfo) {
	if start < 0 {
		start = 0
	}
	if end > len(l.Commands) {
		end = len(l.Commands)
	}
	if start >= end {
		return nil, nil
	}
	return l.Commands[start:end], l.Locations[start:end]
}

// ComponentModel is one component type's full definition: its variables
// and its compiled logic (spec §4.C).
type ComponentModel struct {
	Name  value.CompID
	Vars  []VarModel
	Logic LogicModel

	// SourceFiles/ScriptFiles/LibFiles record where this component's
	// pieces were assembled from, for diagnostics (spec §4.C, recovered
	// from outcome-core's ComponentModel bookkeeping fields).
	SourceFiles []string
	ScriptFiles []string
	LibFiles    []string
}

// VarNames implements storage.ComponentVars.
func (c ComponentModel) VarNames() []value.StringID {
	out := make([]value.StringID, len(c.Vars))
	for i, v := range c.Vars {
		out[i] = v.Name
	}
	return out
}

// EntityPrefabModel names a template of components an entity is spawned
// with (spec §4.C "entity prefabs").
type EntityPrefabModel struct {
	Name       value.StringID
	Components []value.CompID
}

// EventModel is a declared event name the scheduler can enqueue and
// components can subscribe component states/triggers to (spec §4.F).
type EventModel struct {
	Name value.StringID
}

// SimModel is the whole runtime model: every registered component,
// entity prefab, and event, assembled from a Scenario at startup and
// mutable thereafter through the registration sub-system (spec §4.C,
// §4.H).
type SimModel struct {
	Components    map[value.CompID]ComponentModel
	EntityPrefabs map[value.StringID]EntityPrefabModel
	Events        map[value.StringID]EventModel
	// Triggers maps an event name to the components invoked when it fires
	// (spec §4.F "event subscriptions"). An invoked component runs from its
	// current state; the event name is used as the state only when the
	// component has none yet.
	// Every registered component is implicitly subscribed to its own
	// init_<component> event; `trigger` adds further subscriptions.
	Triggers     map[value.StringID][]value.CompID
	ScenarioName string
}

// NewSimModel returns an empty model ready for registration.
func NewSimModel(scenarioName string) *SimModel {
	return &SimModel{
		Components:    make(map[value.CompID]ComponentModel),
		EntityPrefabs: make(map[value.StringID]EntityPrefabModel),
		Events:        make(map[value.StringID]EventModel),
		Triggers:      make(map[value.StringID][]value.CompID),
		ScenarioName:  scenarioName,
	}
}

// componentInitEventPrefix prefixes the trigger event name synthesized for
// every registered component's init_<component> state, mirroring
// outcome-core's SimModel::from_scenario bootstrap (spec §4.C step 2,
// recovered from original_source model/mod.rs).
const componentInitEventPrefix = "init_"

// InitEventFor returns the synthesized init_<component> trigger event name
// for a given component, matching the scenario-bootstrap convention.
func InitEventFor(comp value.CompID) value.StringID {
	return value.NewStringID(componentInitEventPrefix + string(comp))
}

// RegisterComponent adds or replaces a component definition.
func (m *SimModel) RegisterComponent(c ComponentModel) error {
	m.Components[c.Name] = c
	initEvent := InitEventFor(c.Name)
	m.Events[initEvent] = EventModel{Name: initEvent}
	m.addTrigger(initEvent, c.Name)
	return nil
}

func (m *SimModel) addTrigger(event value.StringID, comp value.CompID) {
	for _, existing := range m.Triggers[event] {
		if existing == comp {
			return
		}
	}
	m.Triggers[event] = append(m.Triggers[event], comp)
}

// RegisterEntityPrefab adds or replaces an entity prefab definition.
func (m *SimModel) RegisterEntityPrefab(p EntityPrefabModel) error {
	m.EntityPrefabs[p.Name] = p
	return nil
}

// RegisterEvent declares a new event name.
func (m *SimModel) RegisterEvent(id value.StringID) {
	m.Events[id] = EventModel{Name: id}
}

// RegisterVar adds a variable declaration to an existing component,
// registering the component on demand if it doesn't yet exist (Open
// Question decision: Extend-on-missing-component creates it; see
// SPEC_FULL.md).
func (m *SimModel) RegisterVar(comp value.CompID, v VarModel) error {
	c, ok := m.Components[comp]
	if !ok {
		c = ComponentModel{Name: comp}
	}
	c.Vars = append(c.Vars, v)
	m.Components[comp] = c
	return nil
}

// RegisterTrigger subscribes a component to an event by recording the
// event in the model. The trigger does not select a state: the invoked
// component runs from its current state (see SimModel.Triggers).
func (m *SimModel) RegisterTrigger(comp value.CompID, event value.StringID) error {
	if _, ok := m.Components[comp]; !ok {
		m.Components[comp] = ComponentModel{Name: comp}
	}
	if _, ok := m.Events[event]; !ok {
		m.Events[event] = EventModel{Name: event}
	}
	m.addTrigger(event, comp)
	return nil
}

// ExtendComponent appends additional compiled logic (states/procedures and
// their commands) onto an existing component, creating it if absent.
func (m *SimModel) ExtendComponent(comp value.CompID, extra LogicModel) error {
	c, ok := m.Components[comp]
	if !ok {
		c = ComponentModel{Name: comp, Logic: LogicModel{
			States:     make(map[value.StringID]int),
			Procedures: make(map[value.StringID]int),
		}}
	}
	base := len(c.Logic.Commands)
	c.Logic.Commands = append(c.Logic.Commands, extra.Commands...)
	c.Logic.Locations = append(c.Logic.Locations, extra.Locations...)
	for name, idx := range extra.States {
		c.Logic.States[name] = base + idx
	}
	for name, idx := range extra.Procedures {
		c.Logic.Procedures[name] = base + idx
	}
	m.Components[comp] = c
	return nil
}

// ComponentNames returns every registered component name in sorted order,
// used wherever iteration order must be deterministic (spec §5).
func (m *SimModel) ComponentNames() []value.CompID {
	out := make([]value.CompID, 0, len(m.Components))
	for name := range m.Components {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
