// Package register implements the registration sub-system's commands:
// event, component (comp), var, trigger (triggered_by), entity (prefab),
// and extend. Every one of these mutates the shared SimModel and is
// therefore deferred to central scope (spec §4.H "Registration
// sub-system"), grounded on outcome-core's CentralRemoteCommand register
// variants in machine/cmd/mod.rs.
package register

import (
	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/value"
)

func argErr(loc model.LocationInfo, head string, args []string) error {
	return machineerr.AtLine(loc.Component, loc.Line, machineerr.KindInvalidCommandBody, "%s: unexpected arguments %v", head, args)
}

// RegisterEvent declares a new event name the scheduler can enqueue
// (spec §4.F, §4.H).
type RegisterEvent struct {
	Name value.StringID
}

func BuildRegisterEvent(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 1 {
		return nil, argErr(loc, "event", args)
	}
	return &RegisterEvent{Name: value.NewStringID(args[0])}, nil
}

func (r *RegisterEvent) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(r)}
}

func (r *RegisterEvent) ExecuteCentral(ca model.CentralAuthority) error {
	ca.RegisterEvent(r.Name)
	return nil
}

// RegisterComponent declares a brand-new, initially variable-less
// component type (spec §4.C, §4.H). `var` calls that follow add
// its variables.
type RegisterComponent struct {
	Name value.CompID
}

func BuildRegisterComponent(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 1 {
		return nil, argErr(loc, "component", args)
	}
	return &RegisterComponent{Name: value.NewStringID(args[0])}, nil
}

func (r *RegisterComponent) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(r)}
}

func (r *RegisterComponent) ExecuteCentral(ca model.CentralAuthority) error {
	return ca.RegisterComponent(model.ComponentModel{
		Name: r.Name,
		Logic: model.LogicModel{
			States:     make(map[value.StringID]int),
			Procedures: make(map[value.StringID]int),
		},
	})
}

// RegisterVar adds a variable declaration to an existing (or
// on-demand-created, per the Extend open-question decision) component
// (spec §4.C, §4.H).
type RegisterVar struct {
	Component value.CompID
	VarName   value.StringID
	VarType   value.VarType
}

func BuildRegisterVar(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 3 {
		return nil, argErr(loc, "var", args)
	}
	vt, ok := value.ParseVarType(args[2])
	if !ok {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "var: unknown var_type %q", args[2])
	}
	return &RegisterVar{
		Component: value.NewStringID(args[0]),
		VarName:   value.NewStringID(args[1]),
		VarType:   vt,
	}, nil
}

func (r *RegisterVar) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(r)}
}

func (r *RegisterVar) ExecuteCentral(ca model.CentralAuthority) error {
	return ca.RegisterVar(r.Component, model.VarModel{
		Name:    r.VarName,
		Type:    r.VarType,
		Default: value.New(r.VarType),
	})
}

// RegisterTrigger subscribes a component to an event (spec §4.F, §4.H).
type RegisterTrigger struct {
	Component value.CompID
	Event     value.StringID
}

func BuildRegisterTrigger(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 2 {
		return nil, argErr(loc, "trigger", args)
	}
	return &RegisterTrigger{Component: value.NewStringID(args[0]), Event: value.NewStringID(args[1])}, nil
}

func (r *RegisterTrigger) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(r)}
}

func (r *RegisterTrigger) ExecuteCentral(ca model.CentralAuthority) error {
	return ca.RegisterTrigger(r.Component, r.Event)
}

// RegisterEntityPrefab declares a named template of components an entity
// spawned from it will carry (spec §4.C, §4.H).
type RegisterEntityPrefab struct {
	Name       value.StringID
	Components []value.CompID
}

func BuildRegisterEntityPrefab(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) < 1 {
		return nil, argErr(loc, "entity", args)
	}
	comps := make([]value.CompID, len(args)-1)
	for i, a := range args[1:] {
		comps[i] = value.NewStringID(a)
	}
	return &RegisterEntityPrefab{Name: value.NewStringID(args[0]), Components: comps}, nil
}

func (r *RegisterEntityPrefab) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(r)}
}

func (r *RegisterEntityPrefab) ExecuteCentral(ca model.CentralAuthority) error {
	return ca.RegisterEntityPrefab(model.EntityPrefabModel{Name: r.Name, Components: r.Components})
}

// Extend appends the given component's logic with the caller's own
// state/procedure subrange, resolved at build time into a standalone
// LogicModel fragment by the compile layer (spec §4.H "Extend"). Per the
// Open Question decision, extending a component that doesn't yet exist
// creates it.
type Extend struct {
	Component value.CompID
	Fragment  model.LogicModel
}

func BuildExtend(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 1 {
		return nil, argErr(loc, "extend", args)
	}
	// The fragment (commands to append) is attached post-construction by
	// the compile layer, which knows the full command list this `extend`
	// block spans; see internal/compile.
	return &Extend{Component: value.NewStringID(args[0])}, nil
}

func (e *Extend) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(e)}
}

func (e *Extend) ExecuteCentral(ca model.CentralAuthority) error {
	return ca.ExtendComponent(e.Component, e.Fragment)
}
