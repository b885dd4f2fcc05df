// Package vm is the per-entity execution engine (spec §4.E): it walks one
// component's compiled LogicModel starting from a given state, executing
// commands until the list is exhausted or a command errors — halting only
// that component's run for the tick (spec §7). Deferred ext/central
// results are collected and execution continues past them. Grounded on outcome-core's per-entity/per-component invocation
// loop described in machine/cmd/mod.rs's Command::execute call sites.
package vm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
)

// maxStepsPerInvocation bounds a single component invocation's command
// count, guarding against a goto/jump cycle that never reaches the end of
// the program (the language has no explicit "yield" instruction, so
// without a cap a buggy scenario script could spin the engine forever).
const maxStepsPerInvocation = 100_000

// Outcome is everything one component invocation produced: any deferred
// entity-external and central-remote commands (to be drained by the
// caller after every entity in the tick has run locally), and the error
// that halted it, if any.
type Outcome struct {
	ExtCommands     []model.ExtCommand
	CentralCommands []model.CentralRemoteCommand
	Err             error
	StepsRun        int
}

// RunComponent executes comp's logic for one entity, starting at the
// command index the state name resolves to in Logic.States (index 0 when
// it names no known state), running straight through until the command
// list ends, a goto names a missing state, a command reports an error, or
// maxStepsPerInvocation is reached (spec §4.D, §4.E, §7).
//
// state is updated in place to reflect the last state entered via a
// StateMarker or goto, so the caller can persist it across ticks. log may
// be nil; commands that write through it (e.g. `print`) simply stay quiet.
func RunComponent(m *model.SimModel, entity value.EntityID, compName value.CompID, st *storage.Storage, state *value.StringID, reg *model.Registry, log *zap.Logger) Outcome {
	comp, ok := m.Components[compName]
	if !ok {
		return Outcome{Err: fmt.Errorf("run component: %q not registered", compName)}
	}
	pc, ok := comp.Logic.States[*state]
	if !ok {
		pc = 0
	}

	out := Outcome{}
	stack := model.NewCallStack()
	ctx := &model.ExecCtx{
		Storage:   st,
		CompState: state,
		Stack:     stack,
		Registry:  reg,
		CompName:  compName,
		EntityID:  entity,
		Model:     m,
		Log:       log,
	}

	for steps := 0; pc < len(comp.Logic.Commands); steps++ {
		if steps >= maxStepsPerInvocation {
			out.Err = fmt.Errorf("run component: %q exceeded %d steps without terminating", compName, maxStepsPerInvocation)
			out.StepsRun = steps
			return out
		}
		ctx.Location = comp.Logic.Locations[pc]
		ctx.PC = pc
		results := comp.Logic.Commands[pc].ExecuteLocal(ctx)

		advance := pc + 1
		halted := false
		for _, r := range results {
			switch r.Kind {
			case model.ResultContinue:
				// advance unchanged
			case model.ResultBreak:
				// Break is resolved to a JumpToLine by the command itself
				// in practice; a bare Break reaching here is a no-op.
			case model.ResultJumpToLine:
				advance = r.Line
			case model.ResultJumpToTag:
				target, ok := comp.Logic.States[r.Tag]
				if !ok {
					out.Err = fmt.Errorf("run component: %q: no such state %q", compName, r.Tag)
					halted = true
					break
				}
				*state = r.Tag
				advance = target
			case model.ResultExecExt:
				out.ExtCommands = append(out.ExtCommands, r.Ext)
			case model.ResultExecCentralExt:
				out.CentralCommands = append(out.CentralCommands, r.Central)
			case model.ResultErr:
				out.Err = r.Err
				halted = true
			}
			if halted {
				break
			}
		}
		out.StepsRun = steps + 1
		if halted {
			return out
		}
		pc = advance
	}
	return out
}
