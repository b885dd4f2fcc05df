package model

import (
	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
)

// LocationInfo carries (component, line) diagnostics alongside every built
// command (spec §4.D, §9 "Location-annotated commands").
type LocationInfo struct {
	Component    string
	HasComponent bool
	Line         int
	HasLine      bool
}

func Loc(component string, line int) LocationInfo {
	return LocationInfo{Component: component, HasComponent: true, Line: line, HasLine: true}
}

// CommandPrototype is the parser/preprocessor's output: a command head plus
// its string arguments, the input to Command construction (spec §4.C/D).
// The parser itself is out of scope (spec §1); this is the data contract it
// produces.
type CommandPrototype struct {
	Name *string
	Args []string
}

// Registry is a per-invocation typed scratch map used by eval, for-in
// induction variables, and inter-command temporaries. It does not persist
// across component invocations (spec §4.E).
type Registry struct {
	vars map[string]value.Var
}

func NewRegistry() *Registry {
	return &Registry{vars: make(map[string]value.Var)}
}

func (r *Registry) Get(name string) (value.Var, bool) {
	v, ok := r.vars[name]
	return v, ok
}

func (r *Registry) Set(name string, v value.Var) {
	r.vars[name] = v
}

// FrameKind tags the kind of control structure a call-stack frame
// represents (spec §4.E "Call stack frames").
type FrameKind int

const (
	FrameState FrameKind = iota
	FrameIf
	FrameElse
	FrameLoop
	FrameForIn
	FrameProcedure
	FrameCall
)

// Frame is one call-stack entry: a control structure's span, plus any
// iterator/induction bindings and (for Call frames) the return line.
type Frame struct {
	Kind       FrameKind
	Start, End int

	// ForIn/Loop iteration state.
	Items        []value.Var
	Index        int
	InductionVar value.StringID

	// Call frames record the line to resume at after the callee returns.
	ReturnLine int

	// Loop frames optionally carry a condition address re-checked each
	// pass (for `loop`/`while`); empty for unconditional `loop`.
	Condition value.Address
	HasCond   bool
}

// CallStack is re-created per component execution invocation; it never
// outlives the tick (spec §3).
type CallStack struct {
	frames []Frame
}

func NewCallStack() *CallStack { return &CallStack{} }

func (c *CallStack) Push(f Frame) { c.frames = append(c.frames, f) }

func (c *CallStack) Pop() (Frame, bool) {
	if len(c.frames) == 0 {
		return Frame{}, false
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return f, true
}

func (c *CallStack) Peek() (*Frame, bool) {
	if len(c.frames) == 0 {
		return nil, false
	}
	return &c.frames[len(c.frames)-1], true
}

// NearestOfKind finds the nearest frame of the given kind without popping past
// it, returning its index (for Break's "unwind to enclosing loop frame").
func (c *CallStack) NearestOfKind(kinds ...FrameKind) (int, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if c.frames[i].Kind == k {
				return i, true
			}
		}
	}
	return 0, false
}

// TruncateTo pops frames down to (and including) index i.
func (c *CallStack) TruncateTo(i int) {
	c.frames = c.frames[:i]
}

func (c *CallStack) Len() int { return len(c.frames) }

func (c *CallStack) At(i int) *Frame { return &c.frames[i] }

// ExecCtx bundles everything a Command's ExecuteLocal needs: mutable
// storage, transient state, current-state name, call stack, registry,
// component name, entity id, model, and location (spec §4.E step 3).
type ExecCtx struct {
	Storage   *storage.Storage
	CompState *value.StringID
	Stack     *CallStack
	Registry  *Registry
	CompName  value.CompID
	EntityID  value.EntityID
	Model     *SimModel
	Location  LocationInfo
	// PC is the current command's 0-based index within the component's
	// Logic.Commands, the coordinate JumpToLine/Frame.Start/End operate
	// in. Location.Line is a separate, purely diagnostic line number and
	// must never be used for control flow.
	PC int
	// Log is the ambient structured logger commands like `print` write
	// through; nil when the caller (e.g. a unit test) doesn't wire one.
	Log *zap.Logger
}

// ResultKind tags a CommandResult's variant (spec §4.D "Command result").
type ResultKind int

const (
	ResultContinue ResultKind = iota
	ResultBreak
	ResultJumpToLine
	ResultJumpToTag
	ResultExecExt
	ResultExecCentralExt
	ResultErr
)

// CommandResult is one outcome of executing a command. A single command
// may emit several, drained by the caller in order (spec §4.D).
type CommandResult struct {
	Kind    ResultKind
	Line    int
	Tag     value.StringID
	Ext     ExtCommand
	Central CentralRemoteCommand
	Err     error
}

func Continue() CommandResult   { return CommandResult{Kind: ResultContinue} }
func Break() CommandResult      { return CommandResult{Kind: ResultBreak} }
func JumpToLine(n int) CommandResult {
	return CommandResult{Kind: ResultJumpToLine, Line: n}
}
func JumpToTag(tag value.StringID) CommandResult {
	return CommandResult{Kind: ResultJumpToTag, Tag: tag}
}
func ExecExt(e ExtCommand) CommandResult {
	return CommandResult{Kind: ResultExecExt, Ext: e}
}
func ExecCentralExt(c CentralRemoteCommand) CommandResult {
	return CommandResult{Kind: ResultExecCentralExt, Central: c}
}
func Err(err error) CommandResult {
	return CommandResult{Kind: ResultErr, Err: err}
}

// CommandResultVec is the ordered list of results a single command
// execution emits.
type CommandResultVec []CommandResult

// Command is the closed-union instruction interface (spec §4.D). Concrete
// implementations live in internal/vm/cmd and its subpackages; this
// interface is what lets LogicModel and the execution engine (internal/vm)
// stay independent of that package's construction logic, avoiding an
// import cycle between "build commands from the model" and "commands
// mutate the model".
type Command interface {
	ExecuteLocal(ctx *ExecCtx) CommandResultVec
}

// ExternalAuthority is the entity-remote execution scope (spec §4.G):
// access to another named entity's storage. Addresses name entities by
// their StringId (spec §4.A); "self" never reaches this interface since
// buildGetExt/buildSetExt resolve self-addressed operands locally.
type ExternalAuthority interface {
	EntityStorageByName(name value.StringID) (*storage.Storage, bool)
}

// ExtCommand is a command deferred to entity-external scope: Get, Set
// across a non-self entity (spec §4.D, §4.G).
type ExtCommand interface {
	// ExecuteExt runs the command against a remote entity's storage, given
	// the executing entity's own (already-resolved) local storage.
	ExecuteExt(ea ExternalAuthority, local *storage.Storage, loc LocationInfo) error
	// ExecPre optionally materializes an (address, value) snapshot during a
	// pre-phase, for commands where the main execution needs a consistent
	// read taken before other components mutate local storage this tick
	// (spec §4.G). Returns ok=false when this command has no pre-phase.
	ExecPre(local *storage.Storage, entityName value.StringID) (addr value.Address, v value.Var, ok bool)
}

// CentralAuthority is the model-mutating scope (spec §4.G, §4.H): the
// single owner of the mutable SimModel and global event queue, in either
// the monolithic (Sim) or distributed (SimCentral) case.
type CentralAuthority interface {
	Model() *SimModel
	EnqueueEvent(id value.StringID)
	SpawnEntity(prefab *value.StringID, spawnID *value.StringID) (value.EntityID, error)
	// DespawnEntity removes a named entity and its storage from the sim,
	// the `sim despawn` sub-command's effect (spec §4.D "sim", §3
	// "destroyed on entity despawn").
	DespawnEntity(name value.StringID) error
	RegisterEvent(id value.StringID)
	RegisterEntityPrefab(p EntityPrefabModel) error
	RegisterComponent(c ComponentModel) error
	RegisterVar(comp value.CompID, v VarModel) error
	RegisterTrigger(comp value.CompID, event value.StringID) error
	ExtendComponent(comp value.CompID, extra LogicModel) error
}

// CentralRemoteCommand is a command deferred to the central authority:
// registrations, spawn, invoke, sim control (spec §4.D, §4.H).
type CentralRemoteCommand interface {
	ExecuteCentral(ca CentralAuthority) error
}
