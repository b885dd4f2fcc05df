package value

import (
	"fmt"
	"strings"
)

// StorageIndex is the (component, var_name) projection an Address resolves
// to, independent of entity and var_type (spec §3, §4.B).
type StorageIndex struct {
	Component CompID
	VarName   StringID
}

// Address is a fully-qualified variable reference:
// [entity:]component:var_type:var_name (spec §4.A, §6). Entity defaults to
// "self" when omitted.
type Address struct {
	Entity    StringID // "self" when not explicitly named
	Component CompID
	VarType   VarType
	VarName   StringID
}

// LocalAddress is an Address minus the entity component (spec §3).
type LocalAddress struct {
	Component CompID
	VarType   VarType
	VarName   StringID
}

// ShortLocalAddress is the textual form accepted by commands that target
// the local entity only (e.g. `spawn --out self:sys:int:last_id`); parsing
// rejects an explicit non-"self" entity segment.
type ShortLocalAddress = LocalAddress

const selfEntity = StringID("self")

// ParseAddress parses "[entity:]component:var_type:var_name". Parsing is
// total: malformed input surfaces as an error rather than a panic (spec §6).
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ":")
	var entity, comp, vtStr, varName string
	switch len(parts) {
	case 3:
		entity = string(selfEntity)
		comp, vtStr, varName = parts[0], parts[1], parts[2]
	case 4:
		entity, comp, vtStr, varName = parts[0], parts[1], parts[2], parts[3]
		if entity == "" {
			entity = string(selfEntity)
		}
	default:
		return Address{}, fmt.Errorf("malformed address %q: expected 3 or 4 colon-separated atoms", s)
	}
	vt, ok := ParseVarType(vtStr)
	if !ok {
		return Address{}, fmt.Errorf("malformed address %q: unknown var_type %q", s, vtStr)
	}
	return Address{
		Entity:    NewStringID(entity),
		Component: NewStringID(comp),
		VarType:   vt,
		VarName:   NewStringID(varName),
	}, nil
}

// ParseLocalAddress parses "component:var_type:var_name", rejecting an
// entity segment outright (it is never meaningful for a LocalAddress).
func ParseLocalAddress(s string) (LocalAddress, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return LocalAddress{}, fmt.Errorf("malformed local address %q: expected 3 colon-separated atoms", s)
	}
	vt, ok := ParseVarType(parts[1])
	if !ok {
		return LocalAddress{}, fmt.Errorf("malformed local address %q: unknown var_type %q", s, parts[1])
	}
	return LocalAddress{
		Component: NewStringID(parts[0]),
		VarType:   vt,
		VarName:   NewStringID(parts[2]),
	}, nil
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", a.Entity, a.Component, a.VarType, a.VarName)
}

func (a LocalAddress) String() string {
	return fmt.Sprintf("%s:%s:%s", a.Component, a.VarType, a.VarName)
}

// IsSelf reports whether the address targets the executing entity.
func (a Address) IsSelf() bool {
	return a.Entity == selfEntity || a.Entity == ""
}

// StorageIndex projects the Address down to its (component, var_name) key.
func (a Address) StorageIndex() StorageIndex {
	return StorageIndex{Component: a.Component, VarName: a.VarName}
}

// StorageIndex projects the LocalAddress down to its (component, var_name) key.
func (a LocalAddress) StorageIndex() StorageIndex {
	return StorageIndex{Component: a.Component, VarName: a.VarName}
}

// ToLocal strips the entity component. Callers that already confirmed
// a.IsSelf() use this to reach entity-local storage directly.
func (a Address) ToLocal() LocalAddress {
	return LocalAddress{Component: a.Component, VarType: a.VarType, VarName: a.VarName}
}

// ToAddress re-attaches "self" as the entity, the inverse of ToLocal.
func (a LocalAddress) ToAddress() Address {
	return Address{Entity: selfEntity, Component: a.Component, VarType: a.VarType, VarName: a.VarName}
}
