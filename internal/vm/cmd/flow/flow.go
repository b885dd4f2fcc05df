// Package flow implements the structured control-flow commands — if/else/
// end, loop/while/break, for — as frame-stack pushes and pops rather than
// raw goto, per the engine's no-goto design note (spec §9 "Frame-stack, not
// goto"). Grounded on outcome-core's Command::If/Else/End/Loop/ForIn
// variants in machine/cmd/mod.rs, adapted from a flat enum match to one
// Go type per variant.
package flow

import (
	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/value"
)

func argErr(loc model.LocationInfo, head string, args []string) error {
	return machineerr.AtLine(loc.Component, loc.Line, machineerr.KindInvalidCommandBody, "%s: unexpected arguments %v", head, args)
}

// If evaluates Cond and either falls through (true) or jumps past its
// matching Else/End (false). EndLine and ElseLine are back-patched once,
// at build time, by internal/compile (spec §4.D "if/else/end").
type If struct {
	Cond     value.Address
	ElseLine int
	HasElse  bool
	EndLine  int
}

// BuildIf parses `if <cond_addr>`. EndLine/ElseLine are back-patched by
// the caller once the full command list is known (see
// internal/compile, which resolves matching end/else indices after
// FromPrototype has built every command in a component).
func BuildIf(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 1 {
		return nil, argErr(loc, "if", args)
	}
	cond, err := value.ParseAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "if: %v", err)
	}
	return &If{Cond: cond, EndLine: -1, ElseLine: -1}, nil
}

func (i *If) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	v, err := ctx.Storage.GetFromAddr(i.Cond, nil)
	if err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	cond, _ := v.AsBool()
	if cond {
		ctx.Stack.Push(model.Frame{Kind: model.FrameIf, Start: ctx.PC, End: i.EndLine})
		return model.CommandResultVec{model.Continue()}
	}
	if i.HasElse {
		ctx.Stack.Push(model.Frame{Kind: model.FrameElse, Start: i.ElseLine, End: i.EndLine})
		return model.CommandResultVec{model.JumpToLine(i.ElseLine + 1)}
	}
	return model.CommandResultVec{model.JumpToLine(i.EndLine + 1)}
}

// Else marks the else branch of an enclosing if; reached only by falling
// through the true branch, in which case it jumps past the matching end.
type Else struct {
	EndLine int
}

func NewElse() *Else { return &Else{EndLine: -1} }

func (e *Else) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	if _, ok := ctx.Stack.Peek(); ok {
		ctx.Stack.Pop()
	}
	return model.CommandResultVec{model.JumpToLine(e.EndLine + 1)}
}

// End closes an if/else or loop body. For if/else it is a no-op landing
// pad that pops the If/Else frame; for loop/for bodies it jumps back to
// the Loop/ForIn command, which re-tests its condition (or advances its
// iterator) against the frame still on the stack.
type End struct{}

func NewEnd() *End { return &End{} }

func (e *End) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	f, ok := ctx.Stack.Peek()
	if !ok {
		return model.CommandResultVec{model.Continue()}
	}
	switch f.Kind {
	case model.FrameIf, model.FrameElse:
		ctx.Stack.Pop()
		return model.CommandResultVec{model.Continue()}
	case model.FrameLoop, model.FrameForIn:
		return model.CommandResultVec{model.JumpToLine(f.Start)}
	default:
		ctx.Stack.Pop()
		return model.CommandResultVec{model.Continue()}
	}
}

// Loop pushes an unconditional (or conditionally-guarded) repeat frame.
// It is left by Break, or, for a guarded loop, when its condition reads
// false; either way the loop frame is removed (spec §4.D "loop/break").
type Loop struct {
	Cond    value.Address
	HasCond bool
	EndLine int
}

func BuildLoop(args []string, loc model.LocationInfo) (model.Command, error) {
	l := &Loop{EndLine: -1}
	if len(args) == 1 {
		cond, err := value.ParseAddress(args[0])
		if err != nil {
			return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "loop: %v", err)
		}
		l.Cond = cond
		l.HasCond = true
	} else if len(args) != 0 {
		return nil, argErr(loc, "loop", args)
	}
	return l, nil
}

func (l *Loop) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	if l.HasCond {
		v, err := ctx.Storage.GetFromAddr(l.Cond, nil)
		if err != nil {
			return model.CommandResultVec{model.Err(err)}
		}
		if ok, _ := v.AsBool(); !ok {
			if f, ok := ctx.Stack.Peek(); ok && f.Kind == model.FrameLoop && f.Start == ctx.PC {
				ctx.Stack.Pop()
			}
			return model.CommandResultVec{model.JumpToLine(l.EndLine + 1)}
		}
	}
	if f, ok := ctx.Stack.Peek(); !ok || f.Start != ctx.PC {
		ctx.Stack.Push(model.Frame{Kind: model.FrameLoop, Start: ctx.PC, End: l.EndLine, Condition: l.Cond, HasCond: l.HasCond})
	}
	return model.CommandResultVec{model.Continue()}
}

// Break unwinds to the nearest enclosing Loop/ForIn frame and jumps past
// its End.
type Break struct{}

func NewBreak() *Break { return &Break{} }

func (b *Break) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	idx, ok := ctx.Stack.NearestOfKind(model.FrameLoop, model.FrameForIn)
	if !ok {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindOther, "break: no enclosing loop"))}
	}
	f := *ctx.Stack.At(idx)
	ctx.Stack.TruncateTo(idx)
	return model.CommandResultVec{model.JumpToLine(f.End + 1)}
}

// ForIn iterates Source (a list-kinded address) binding each element to
// Var in turn, popping its frame and exiting once exhausted (spec §4.D
// "for").
type ForIn struct {
	Var     value.LocalAddress
	Source  value.Address
	EndLine int
}

func BuildForIn(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 2 {
		return nil, argErr(loc, "for", args)
	}
	v, err := value.ParseLocalAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "for var: %v", err)
	}
	src, err := value.ParseAddress(args[1])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "for source: %v", err)
	}
	return &ForIn{Var: v, Source: src, EndLine: -1}, nil
}

func listItems(v value.Var) []value.Var {
	switch v.Kind() {
	case value.TypeIntList:
		l, _ := v.AsIntList()
		out := make([]value.Var, len(l))
		for i, x := range l {
			out[i] = value.NewInt(x)
		}
		return out
	case value.TypeFloatList:
		l, _ := v.AsFloatList()
		out := make([]value.Var, len(l))
		for i, x := range l {
			out[i] = value.NewFloat(x)
		}
		return out
	case value.TypeStringList:
		l, _ := v.AsStringList()
		out := make([]value.Var, len(l))
		for i, x := range l {
			out[i] = value.NewString(x)
		}
		return out
	case value.TypeBoolList:
		l, _ := v.AsBoolList()
		out := make([]value.Var, len(l))
		for i, x := range l {
			out[i] = value.NewBool(x)
		}
		return out
	default:
		return nil
	}
}

func (f *ForIn) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	if frame, ok := ctx.Stack.Peek(); ok && frame.Kind == model.FrameForIn && frame.Start == ctx.PC {
		frame.Index++
		if frame.Index >= len(frame.Items) {
			ctx.Stack.Pop()
			return model.CommandResultVec{model.JumpToLine(f.EndLine + 1)}
		}
		if err := ctx.Storage.SetFromVar(f.Var.ToAddress(), frame.Items[frame.Index]); err != nil {
			return model.CommandResultVec{model.Err(err)}
		}
		return model.CommandResultVec{model.Continue()}
	}

	srcVar, err := ctx.Storage.GetFromAddr(f.Source, nil)
	if err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	items := listItems(srcVar)
	if len(items) == 0 {
		return model.CommandResultVec{model.JumpToLine(f.EndLine + 1)}
	}
	ctx.Stack.Push(model.Frame{
		Kind:         model.FrameForIn,
		Start:        ctx.PC,
		End:          f.EndLine,
		Items:        items,
		Index:        0,
		InductionVar: f.Var.VarName,
	})
	if err := ctx.Storage.SetFromVar(f.Var.ToAddress(), items[0]); err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	return model.CommandResultVec{model.Continue()}
}
