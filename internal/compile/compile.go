// Package compile assembles a ComponentModel's LogicModel from a flat
// list of CommandPrototypes: it calls cmd.FromPrototype for each one and
// then back-patches the jump targets that depend on matching control-flow
// pairs (if/else/end, loop/end, for/end, extend/end) across the whole
// command list. It exists as its own package — rather than living in
// internal/model or internal/vm/cmd — specifically to avoid the import
// cycle those two packages would otherwise form: model.Command is the
// interface LogicModel stores, vm/cmd builds concrete Commands that
// reference model types, and this layer is the one place that needs both
// "build a command" and "know the whole program's structure" at once
// (spec §4.C step 5, grounded on outcome-core's linear from_prototype
// pass in model/mod.rs SimModel::from_scenario).
package compile

import (
	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/value"
	"github.com/outcome-engine/outcome/internal/vm/cmd"
	"github.com/outcome-engine/outcome/internal/vm/cmd/flow"
	"github.com/outcome-engine/outcome/internal/vm/cmd/register"
)

// openBlock records a still-open control command and which back-patch
// shape it needs once its matching end is found.
type openBlock struct {
	index int
	kind  string // "if", "loop", "for", "extend"
}

// BuildLogic compiles one component's flat prototype stream into a
// LogicModel: commands, per-command locations, and its state/procedure
// entry points, with if/else/end, loop/end, for/end, and extend/end
// spans resolved (spec §4.C, §4.D).
func BuildLogic(compName value.CompID, protos []model.CommandPrototype, locs []model.LocationInfo) (model.LogicModel, error) {
	commands := make([]model.Command, len(protos))
	for i, p := range protos {
		c, err := cmd.FromPrototype(p, locs[i], protos, i)
		if err != nil {
			return model.LogicModel{}, err
		}
		commands[i] = c
	}

	states := make(map[value.StringID]int)
	procedures := make(map[value.StringID]int)
	var startState value.StringID
	haveStart := false

	var stack []openBlock
	for i, c := range commands {
		switch v := c.(type) {
		case *cmd.StateMarker:
			states[v.Name] = i
			if !haveStart {
				startState = v.Name
				haveStart = true
			}
		case *cmd.ProcDecl:
			procedures[v.Name] = i
		case *flow.If:
			stack = append(stack, openBlock{index: i, kind: "if"})
		case *flow.Else:
			if len(stack) == 0 || stack[len(stack)-1].kind != "if" {
				return model.LogicModel{}, machineerr.AtLine(locs[i].Component, locs[i].Line, machineerr.KindInvalidCommandBody, "else without matching if")
			}
			ifIdx := stack[len(stack)-1].index
			ifCmd := commands[ifIdx].(*flow.If)
			ifCmd.HasElse = true
			ifCmd.ElseLine = i
		case *flow.Loop:
			stack = append(stack, openBlock{index: i, kind: "loop"})
		case *flow.ForIn:
			stack = append(stack, openBlock{index: i, kind: "for"})
		case *register.Extend:
			stack = append(stack, openBlock{index: i, kind: "extend"})
		case *flow.End:
			if len(stack) == 0 {
				return model.LogicModel{}, machineerr.AtLine(locs[i].Component, locs[i].Line, machineerr.KindInvalidCommandBody, "end without matching open block")
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch open.kind {
			case "if":
				ifCmd := commands[open.index].(*flow.If)
				ifCmd.EndLine = i
				if ifCmd.HasElse {
					commands[ifCmd.ElseLine].(*flow.Else).EndLine = i
				}
			case "loop":
				commands[open.index].(*flow.Loop).EndLine = i
			case "for":
				commands[open.index].(*flow.ForIn).EndLine = i
			case "extend":
				ext := commands[open.index].(*register.Extend)
				fragCmds, fragLocs := commands[open.index+1:i], locs[open.index+1:i]
				ext.Fragment = model.LogicModel{
					Commands:   fragCmds,
					Locations:  fragLocs,
					States:     make(map[value.StringID]int),
					Procedures: make(map[value.StringID]int),
				}
			}
		}
	}
	if len(stack) != 0 {
		open := stack[len(stack)-1]
		return model.LogicModel{}, machineerr.AtLine(locs[open.index].Component, locs[open.index].Line, machineerr.KindInvalidCommandBody, "unterminated %s block", open.kind)
	}

	return model.LogicModel{
		Commands:   commands,
		Locations:  locs,
		States:     states,
		Procedures: procedures,
		StartState: startState,
	}, nil
}

// BuildComponent compiles a full ComponentModel: its declared variables
// plus the compiled logic (spec §4.C).
func BuildComponent(name value.CompID, vars []model.VarModel, protos []model.CommandPrototype, locs []model.LocationInfo, sourceFiles, scriptFiles, libFiles []string) (model.ComponentModel, error) {
	logic, err := BuildLogic(name, protos, locs)
	if err != nil {
		return model.ComponentModel{}, err
	}
	return model.ComponentModel{
		Name:        name,
		Vars:        vars,
		Logic:       logic,
		SourceFiles: sourceFiles,
		ScriptFiles: scriptFiles,
		LibFiles:    libFiles,
	}, nil
}
