package cmd

import (
	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
)

// buildGetExt parses `get <target_local_addr> <source_addr>`, where
// source_addr may name another entity (spec §4.G "entity-external
// scope"). A self-addressed source resolves locally at construction time
// rather than crossing into ext scope at all.
func buildGetExt(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 2 {
		return nil, argErr(loc, "get", args)
	}
	target, err := value.ParseLocalAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "get target: %v", err)
	}
	source, err := value.ParseAddress(args[1])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "get source: %v", err)
	}
	if source.IsSelf() {
		return &SetFromAddr{Target: target, Source: source}, nil
	}
	return &GetExt{Target: target, Source: source}, nil
}

// GetExt reads a variable from a remote entity's storage and writes it
// into the local entity's storage, deferred to entity-external scope
// since it crosses entity storage boundaries (spec §4.D, §4.G).
type GetExt struct {
	Target value.LocalAddress
	Source value.Address
}

func (g *GetExt) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecExt(g)}
}

// ExecPre: Get has no pre-phase — the value it needs lives on the remote
// side, read during ExecuteExt itself, not snapshotted beforehand.
func (g *GetExt) ExecPre(local *storage.Storage, entityName value.StringID) (value.Address, value.Var, bool) {
	return value.Address{}, value.Var{}, false
}

func (g *GetExt) ExecuteExt(ea model.ExternalAuthority, local *storage.Storage, loc model.LocationInfo) error {
	remote, ok := ea.EntityStorageByName(g.Source.Entity)
	if !ok {
		return machineerr.AtLine(loc.Component, loc.Line, machineerr.KindFailedGettingVariable, "get: entity %q not found", g.Source.Entity)
	}
	v, err := remote.GetFromAddr(g.Source, nil)
	if err != nil {
		return err
	}
	return local.SetFromVar(g.Target.ToAddress(), v)
}

// buildSetExt parses `set_ext <target_addr> <source_local_addr>`: the
// inverse of get, writing a local value into a remote entity. A
// self-addressed target resolves locally at construction time.
func buildSetExt(args []string, loc model.LocationInfo) (model.Command, error) {
	if len(args) != 2 {
		return nil, argErr(loc, "set_ext", args)
	}
	target, err := value.ParseAddress(args[0])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "set_ext target: %v", err)
	}
	source, err := value.ParseLocalAddress(args[1])
	if err != nil {
		return nil, machineerr.AtLine(loc.Component, loc.Line, machineerr.KindParseError, "set_ext source: %v", err)
	}
	if target.IsSelf() {
		return &SetFromAddr{Target: target.ToLocal(), Source: source.ToAddress()}, nil
	}
	return &SetExt{Target: target, Source: source}, nil
}

// SetExt writes a local value into another entity's storage (spec §4.D,
// §4.G). It reads its source during ExecPre, before any other local
// command this tick can have mutated it out from under it, matching
// outcome-core's pre-phase treatment of cross-entity writes.
type SetExt struct {
	Target value.Address
	Source value.LocalAddress
}

func (s *SetExt) ExecuteLocal(ctx *model.ExecCtx) model.CommandResultVec {
	return model.CommandResultVec{model.ExecExt(s)}
}

func (s *SetExt) ExecPre(local *storage.Storage, entityName value.StringID) (value.Address, value.Var, bool) {
	v, err := local.GetFromAddr(s.Source.ToAddress(), nil)
	if err != nil {
		return value.Address{}, value.Var{}, false
	}
	return s.Target, v, true
}

func (s *SetExt) ExecuteExt(ea model.ExternalAuthority, local *storage.Storage, loc model.LocationInfo) error {
	v, err := local.GetFromAddr(s.Source.ToAddress(), nil)
	if err != nil {
		return err
	}
	remote, ok := ea.EntityStorageByName(s.Target.Entity)
	if !ok {
		return machineerr.AtLine(loc.Component, loc.Line, machineerr.KindFailedGettingVariable, "set_ext: entity %q not found", s.Target.Entity)
	}
	return remote.SetFromVar(s.Target, v)
}
