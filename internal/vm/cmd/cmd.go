// Package cmd implements the closed Command union (spec §4.D): concrete
// instruction types constructed from CommandPrototypes and dispatched by
// the execution engine through the model.Command/ExtCommand/
// CentralRemoteCommand interfaces. Grounded directly on
// outcome-core/src/machine/cmd/mod.rs's Command enum and
// Command::from_prototype/execute.
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
	"github.com/outcome-engine/outcome/internal/vm/cmd/flow"
	"github.com/outcome-engine/outcome/internal/vm/cmd/register"
)

// FromPrototype builds a concrete Command from a parsed prototype, the
// construction-time analog of outcome-core's Command::from_prototype
// dispatch table (spec §4.C step 5, §4.D). all and index (the whole
// prototype list and this prototype's position in it) are not read by any
// builder; control-flow spans are back-patched afterwards by
// internal/compile.
func FromPrototype(proto model.CommandPrototype, loc model.LocationInfo, all []model.CommandPrototype, index int) (model.Command, error) {
	if proto.Name == nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindNoCommandPresent, "command prototype has no head")
	}
	head := *proto.Name
	args := proto.Args

	switch head {
	case "print":
		return &Print{Args: args}, nil
	case "set":
		return buildSet(args, loc)
	case "eval":
		return buildEval(args, loc)
	case "state":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		return &StateMarker{Name: value.NewStringID(args[0])}, nil
	case "goto":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		return &Goto{Target: value.NewStringID(args[0])}, nil
	case "jump":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindInvalidCommandBody, "jump: %v", err)
		}
		return &Jump{Line: n}, nil
	case "proc", "procedure":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		return &ProcDecl{Name: value.NewStringID(args[0])}, nil
	case "call":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		return &Call{Name: value.NewStringID(args[0])}, nil
	case "return":
		return &Return{}, nil
	case "invoke":
		if len(args) != 1 {
			return nil, argErr(loc, head, args)
		}
		return &Invoke{Event: value.NewStringID(args[0])}, nil
	case "spawn":
		return buildSpawn(args, loc)
	case "get":
		return buildGetExt(args, loc)
	case "set_ext":
		return buildSetExt(args, loc)
	case "if":
		return flow.BuildIf(args, loc)
	case "else":
		return flow.NewElse(), nil
	case "end":
		return flow.NewEnd(), nil
	case "loop", "while":
		return flow.BuildLoop(args, loc)
	case "break":
		return flow.NewBreak(), nil
	case "for":
		return flow.BuildForIn(args, loc)
	case "range":
		return buildRange(args, loc)
	case "sim":
		return buildSim(args, loc)
	case "event":
		return register.BuildRegisterEvent(args, loc)
	case "component", "comp":
		return register.BuildRegisterComponent(args, loc)
	case "var":
		return register.BuildRegisterVar(args, loc)
	case "trigger", "triggered_by":
		return register.BuildRegisterTrigger(args, loc)
	case "entity", "prefab":
		return register.BuildRegisterEntityPrefab(args, loc)
	case "extend":
		return register.BuildExtend(args, loc)
	default:
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindUnknownCommand, "unknown command %q", head)
	}
}

func argErr(loc model.LocationInfo, head string, args []string) error {
	return machineerr.AtLine(loc.Component, loc.Line, machineerr.KindInvalidCommandBody, "%s: unexpected arguments %v", head, args)
}

// Print writes its arguments to the engine log, substituting any token
// that parses as an address with the value currently stored there; a
// debug aid with no storage effect (spec §4.D).
type Print struct {
	Args []string
}

func (p *Print) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	resolved := make([]string, len(p.Args))
	for i, a := range p.Args {
		resolved[i] = substituteAddressToken(ctx, a)
	}
	msg := strings.Join(resolved, " ")
	if ctx.Log != nil {
		ctx.Log.Info(msg,
			zap.String("component", string(ctx.CompName)),
			zap.Uint64("entity", uint64(ctx.EntityID)))
	}
	return model.CommandResultVec{model.Continue()}
}

// substituteAddressToken resolves tok as an address against ctx.Storage,
// returning its current value's string form; tok passes through unchanged
// if it isn't a valid address or isn't set.
func substituteAddressToken(ctx *model.ExecCtx, tok string) string {
	addr, err := value.ParseAddress(tok)
	if err != nil {
		return tok
	}
	v, err := ctx.Storage.GetFromAddr(addr, nil)
	if err != nil {
		return tok
	}
	return v.String()
}

// StateMarker is a no-op placeholder inserted at each state's entry point
// so jump/goto targets and call-stack state frames have a concrete command
// index to land on (spec §4.D "state boundaries").
type StateMarker struct {
	Name value.StringID
}

func (s *StateMarker) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	*ctx.CompState = s.Name
	return model.CommandResultVec{model.Continue()}
}

// Goto transfers control to another state by name, re-entering at its
// start index (Open Question decision: goto re-runs the target state's
// entry commands within the same tick; see SPEC_FULL.md).
type Goto struct {
	Target value.StringID
}

func (g *Goto) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.JumpToTag(g.Target)}
}

// Jump transfers control to an absolute command index within the current
// component's logic (Open Question decision: JumpToLine is an absolute
// index, not relative to the enclosing state; see SPEC_FULL.md).
type Jump struct {
	Line int
}

func (j *Jump) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.JumpToLine(j.Line)}
}

// ProcDecl marks a procedure's entry point; like StateMarker it is a
// no-op when reached by straight-line execution (procedures only run when
// Call-ed).
type ProcDecl struct {
	Name value.StringID
}

func (p *ProcDecl) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.Continue()}
}

// Call pushes a Call frame (recording the resume line) and jumps to the
// named procedure's start (spec §4.E "proc/call").
type Call struct {
	Name value.StringID
}

func (c *Call) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	comp, ok := ctx.Model.Components[ctx.CompName]
	if !ok {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindOther, "call: component %q not registered", ctx.CompName))}
	}
	start, ok := comp.Logic.Procedures[c.Name]
	if !ok {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindOther, "call: no such procedure %q", c.Name))}
	}
	ctx.Stack.Push(model.Frame{Kind: model.FrameCall, Start: start, ReturnLine: ctx.PC + 1})
	return model.CommandResultVec{model.JumpToLine(start)}
}

// Return pops the nearest Call frame and resumes after the call site.
type Return struct{}

func (r *Return) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	idx, ok := ctx.Stack.NearestOfKind(model.FrameCall)
	if !ok {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindOther, "return: no enclosing call frame"))}
	}
	frame := *ctx.Stack.At(idx)
	ctx.Stack.TruncateTo(idx)
	return model.CommandResultVec{model.JumpToLine(frame.ReturnLine)}
}

// Invoke enqueues an event for the scheduler to dispatch, deferred to
// central scope since the event queue is shared sim-wide state (spec
// §4.F, §4.H). Central execution is idempotent per tick per event id,
// matching outcome-core's Invoke::execute_ext dedup check.
type Invoke struct {
	Event value.StringID
}

func (i *Invoke) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(i)}
}

func (i *Invoke) ExecuteCentral(ca model.CentralAuthority) error {
	ca.EnqueueEvent(i.Event)
	return nil
}

// Spawn asks the central authority to create a new entity from a prefab
// and stores the resulting entity id at Out (spec §4.C, §4.H).
type Spawn struct {
	Prefab value.StringID
	HasPrefab bool
	Out    value.LocalAddress
	HasOut bool
}

func buildSpawn(args []string, loc model.LocationInfo) (model.Command, error) {
	s := &Spawn{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--prefab":
			i++
			if i >= len(args) {
				return nil, argErr(loc, "spawn", args)
			}
			s.Prefab = value.NewStringID(args[i])
			s.HasPrefab = true
		case "-o", "--out":
			i++
			if i >= len(args) {
				return nil, argErr(loc, "spawn", args)
			}
			addr, err := value.ParseAddress(args[i])
			if err != nil {
				return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "spawn --out: %v", err)
			}
			if !addr.IsSelf() {
				return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "spawn --out: %q does not address the local entity", args[i])
			}
			s.Out = addr.ToLocal()
			s.HasOut = true
		}
	}
	return s, nil
}

func (s *Spawn) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(&spawnBound{Spawn: s, storage: ctx.Storage})}
}

// spawnBound carries the executing entity's storage so ExecuteCentral can
// write the --out result back locally once the central authority assigns
// an id.
type spawnBound struct {
	*Spawn
	storage *storage.Storage
}

func (s *spawnBound) ExecuteCentral(ca model.CentralAuthority) error {
	var prefab *value.StringID
	if s.HasPrefab {
		p := s.Prefab
		prefab = &p
	}
	id, err := ca.SpawnEntity(prefab, nil)
	if err != nil {
		return err
	}
	if s.HasOut {
		s.storage.Insert(s.Out.Component, s.Out.VarName, value.TypeInt, varPtr(value.NewInt(int64(id))))
	}
	return nil
}

func varPtr(v value.Var) *value.Var { return &v }

// buildSim parses `sim <sub-command> [args...]`. Only `despawn` is
// implemented (spec §4.D "sim", §3 "destroyed on entity despawn");
// ExecuteCentral rejects any other sub-command.
func buildSim(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) < 1 {
		return nil, argErr(loc, "sim", args)
	}
	switch args[0] {
	case "despawn":
		if len(args) != 2 {
			return nil, argErr(loc, "sim despawn", args[1:])
		}
		return &Sim{Sub: "despawn", Entity: value.NewStringID(args[1])}, nil
	default:
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindInvalidCommandBody, "sim: unknown sub-command %q", args[0])
	}
}

// Sim is simulation control, deferred to central scope since it mutates
// sim-wide entity bookkeeping (spec §4.D "sim", §4.H).
type Sim struct {
	Sub    string
	Entity value.StringID
}

func (s *Sim) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecCentralExt(s)}
}

func (s *Sim) ExecuteCentral(ca model.CentralAuthority) error {
	switch s.Sub {
	case "despawn":
		return ca.DespawnEntity(s.Entity)
	default:
		return machineerr.Other("sim: unknown sub-command %q", s.Sub)
	}
}

// buildSet parses `set <target_addr> <literal-or-addr>`.
func buildSet(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 2 {
		return nil, argErr(loc, "set", args)
	}
	target, err := value.ParseLocalAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "set target: %v", err)
	}
	if srcAddr, err := value.ParseAddress(args[1]); err == nil {
		return &SetFromAddr{Target: target, Source: srcAddr}, nil
	}
	return &SetLiteral{Target: target, Literal: args[1]}, nil
}

// SetFromAddr copies another variable's value onto Target (spec §4.D
// `set`).
type SetFromAddr struct {
	Target value.LocalAddress
	Source value.Address
}

func (s *SetFromAddr) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	v, err := ctx.Storage.GetFromAddr(s.Source, nil)
	if err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	if err := ctx.Storage.SetFromVar(s.Target.ToAddress(), v); err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	return model.CommandResultVec{model.Continue()}
}

// SetLiteral parses Literal according to Target's declared kind and
// writes it (spec §4.D `set`, literal form).
type SetLiteral struct {
	Target  value.LocalAddress
	Literal string
}

func (s *SetLiteral) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	v, err := parseLiteral(s.Target.VarType, s.Literal)
	if err != nil {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindParseError, "set literal: %v", err))}
	}
	if err := ctx.Storage.SetFromVar(s.Target.ToAddress(), v); err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	return model.CommandResultVec{model.Continue()}
}

func parseLiteral(vt value.VarType, lit string) (value.Var, error) {
	switch vt {
	case value.TypeInt:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return value.Var{}, err
		}
		return value.NewInt(n), nil
	case value.TypeFloat:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return value.Var{}, err
		}
		return value.NewFloat(f), nil
	case value.TypeBool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return value.Var{}, err
		}
		return value.NewBool(b), nil
	case value.TypeString:
		return value.NewString(lit), nil
	default:
		return value.Var{}, fmt.Errorf("literal assignment unsupported for kind %s", vt)
	}
}

// buildEval parses `eval <target_addr> <op> <lhs> <rhs>` for the small
// arithmetic/comparison subset spec §4.D names under "eval".
func buildEval(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 4 {
		return nil, argErr(loc, "eval", args)
	}
	target, err := value.ParseLocalAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "eval target: %v", err)
	}
	return &Eval{Target: target, Op: args[1], Lhs: args[2], Rhs: args[3]}, nil
}

// Eval computes Op(Lhs, Rhs) over two operands (each either an address or
// a numeric/bool literal) and writes the result to Target.
type Eval struct {
	Target value.LocalAddress
	Op     string
	Lhs    string
	Rhs    string
}

func (e *Eval) resolveOperand(ctx *model.ExecCtx, s string) (value.Var, error) {
	if addr, err := value.ParseAddress(s); err == nil {
		return ctx.Storage.GetFromAddr(addr, nil)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.NewInt(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.NewFloat(f), nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return value.NewBool(b), nil
	}
	return value.NewString(s), nil
}

func (e *Eval) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	lhs, err := e.resolveOperand(ctx, e.Lhs)
	if err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	rhs, err := e.resolveOperand(ctx, e.Rhs)
	if err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	result, err := evalOp(e.Op, lhs, rhs)
	if err != nil {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindInvalidCommandBody, "eval: %v", err))}
	}
	if err := ctx.Storage.SetFromVar(e.Target.ToAddress(), result); err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	return model.CommandResultVec{model.Continue()}
}

func evalOp(op string, lhs, rhs value.Var) (value.Var, error) {
	numeric := func() (float64, float64, bool) {
		l, lok := lhs.AsFloat()
		r, rok := rhs.AsFloat()
		if lok && rok {
			return l, r, true
		}
		li, liok := lhs.AsInt()
		ri, riok := rhs.AsInt()
		if liok && riok {
			return float64(li), float64(ri), true
		}
		return 0, 0, false
	}
	bothInt := lhs.IsInt() && rhs.IsInt()
	switch op {
	case "add", "+":
		if bothInt {
			l, _ := lhs.AsInt()
			r, _ := rhs.AsInt()
			return value.NewInt(l + r), nil
		}
		if l, r, ok := numeric(); ok {
			return value.NewFloat(l + r), nil
		}
	case "sub", "-":
		if bothInt {
			l, _ := lhs.AsInt()
			r, _ := rhs.AsInt()
			return value.NewInt(l - r), nil
		}
		if l, r, ok := numeric(); ok {
			return value.NewFloat(l - r), nil
		}
	case "mul", "*":
		if bothInt {
			l, _ := lhs.AsInt()
			r, _ := rhs.AsInt()
			return value.NewInt(l * r), nil
		}
		if l, r, ok := numeric(); ok {
			return value.NewFloat(l * r), nil
		}
	case "div", "/":
		if l, r, ok := numeric(); ok {
			if r == 0 {
				return value.Var{}, fmt.Errorf("division by zero")
			}
			return value.NewFloat(l / r), nil
		}
	case "eq", "==":
		return value.NewBool(lhs.String() == rhs.String()), nil
	case "neq", "!=":
		return value.NewBool(lhs.String() != rhs.String()), nil
	case "gt", ">":
		if l, r, ok := numeric(); ok {
			return value.NewBool(l > r), nil
		}
	case "lt", "<":
		if l, r, ok := numeric(); ok {
			return value.NewBool(l < r), nil
		}
	case "and":
		l, _ := lhs.AsBool()
		r, _ := rhs.AsBool()
		return value.NewBool(l && r), nil
	case "or":
		l, _ := lhs.AsBool()
		r, _ := rhs.AsBool()
		return value.NewBool(l || r), nil
	}
	return value.Var{}, fmt.Errorf("unsupported eval op %q for operand kinds %s/%s", op, lhs.Kind(), rhs.Kind())
}

// buildRange parses `range <target_local_addr> <start> <end>` (spec §4.D
// `range`, testable scenario 5). start/end are each either an int literal
// or an address resolving to one.
func buildRange(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 3 {
		return nil, argErr(loc, "range", args)
	}
	target, err := value.ParseLocalAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "range target: %v", err)
	}
	return &Range{Target: target, Start: args[1], End: args[2]}, nil
}

// Range populates Target, an int_list variable, with the half-open
// interval [Start, End) and writes it to storage (spec §4.D `range`).
type Range struct {
	Target value.LocalAddress
	Start  string
	End    string
}

func (r *Range) resolveBound(ctx *model.ExecCtx, s string) (value.Int, error) {
	if addr, err := value.ParseAddress(s); err == nil {
		v, err := ctx.Storage.GetFromAddr(addr, nil)
		if err != nil {
			return 0, err
		}
		n, ok := v.AsInt()
		if !ok {
			return 0, fmt.Errorf("%s does not hold an int", s)
		}
		return n, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an int literal or address: %v", s, err)
	}
	return n, nil
}

func (r *Range) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	start, err := r.resolveBound(ctx, r.Start)
	if err != nil {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindInvalidCommandBody, "range start: %v", err))}
	}
	end, err := r.resolveBound(ctx, r.End)
	if err != nil {
		return model.CommandResultVec{model.Err(machineerr.AtLine(ctx.Location.Component, ctx.Location.Line, machineerr.KindInvalidCommandBody, "range end: %v", err))}
	}
	items := make([]value.Int, 0, maxInt(0, int(end-start)))
	for i := start; i < end; i++ {
		items = append(items, i)
	}
	if err := ctx.Storage.SetFromVar(r.Target.ToAddress(), value.NewIntList(items)); err != nil {
		return model.CommandResultVec{model.Err(err)}
	}
	return model.CommandResultVec{model.Continue()}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
