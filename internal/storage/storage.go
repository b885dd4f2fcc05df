// Package storage implements the per-entity typed variable store (spec
// §3, §4.B): a map keyed by (component, var_name) over the closed Var
// kind union, with typed and address-based access.
package storage

import (
	"sort"

	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/value"
)

// ComponentVars describes which variable names belong to a component, used
// by RemoveComponentVars to know which keys to drop (spec §4.B).
type ComponentVars interface {
	VarNames() []value.StringID
}

// Storage is the main data store of an entity: a mapping
// (CompId, StringId) -> Var. Keys are unique; insertion order is not
// observable (spec §3).
type Storage struct {
	m map[value.StorageIndex]value.Var
}

// New creates an empty Storage.
func New() *Storage {
	return &Storage{m: make(map[value.StorageIndex]value.Var)}
}

// Get is the untyped getter: returns the stored Var regardless of kind.
func (s *Storage) Get(idx value.StorageIndex) (value.Var, bool) {
	v, ok := s.m[idx]
	return v, ok
}

// Mutate applies fn to the Var stored at idx and writes the result back.
// Go map values aren't addressable, so in-place mutation (by eval/set) goes
// through this read-modify-write helper rather than a returned pointer.
// Reports false if idx isn't present.
func (s *Storage) Mutate(idx value.StorageIndex, fn func(value.Var) value.Var) bool {
	v, ok := s.m[idx]
	if !ok {
		return false
	}
	s.m[idx] = fn(v)
	return true
}

// GetFromAddr resolves an Address to its stored Var, optionally overriding
// the component with compOverride (used by external/remote Get where the
// addressed component differs from the address's own component field).
// Returns machineerr.FailedGettingVariable on a miss (spec §4.B).
func (s *Storage) GetFromAddr(addr value.Address, compOverride *value.CompID) (value.Var, error) {
	idx := addr.StorageIndex()
	if compOverride != nil {
		idx.Component = *compOverride
	}
	v, ok := s.m[idx]
	if !ok {
		return value.Var{}, machineerr.FailedGettingVariable(addr.String())
	}
	return v, nil
}

// GetCoerceToString resolves source and returns its deterministic coerced
// string form (spec §4.B "Conversions").
func (s *Storage) GetCoerceToString(source value.Address, compOverride *value.CompID) (string, error) {
	v, err := s.GetFromAddr(source, compOverride)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Insert stores v under (comp, varName), or the zero value of kind if v is
// nil (spec §4.B `insert`).
func (s *Storage) Insert(comp, varName value.StringID, kind value.VarType, v *value.Var) {
	idx := value.StorageIndex{Component: comp, VarName: varName}
	if v != nil {
		s.m[idx] = *v
		return
	}
	s.m[idx] = value.New(kind)
}

// InsertVar stores v verbatim under (comp, varName), creating the key if
// absent.
func (s *Storage) InsertVar(comp, varName value.StringID, v value.Var) {
	s.m[value.StorageIndex{Component: comp, VarName: varName}] = v
}

// SetFromLocalAddr copies the value at source onto target; both keys must
// already exist (spec §4.B `set_from_local_addr`).
func (s *Storage) SetFromLocalAddr(target, source value.LocalAddress) error {
	v, ok := s.m[source.StorageIndex()]
	if !ok {
		return machineerr.FailedGettingVariable(source.String())
	}
	tIdx := target.StorageIndex()
	if _, ok := s.m[tIdx]; !ok {
		return machineerr.FailedGettingVariable(target.String())
	}
	s.m[tIdx] = v
	return nil
}

// SetFromVar overwrites the Var at targetAddr irrespective of kind; the
// target must already exist (spec §4.B `set_from_var`).
func (s *Storage) SetFromVar(targetAddr value.Address, v value.Var) error {
	idx := targetAddr.StorageIndex()
	if _, ok := s.m[idx]; !ok {
		return machineerr.FailedGettingVariable(targetAddr.String())
	}
	s.m[idx] = v
	return nil
}

// RemoveComponentVars removes exactly the entries whose component key
// equals comp and whose variable name appears in compVars (spec §4.B
// `remove_comp_vars`).
func (s *Storage) RemoveComponentVars(comp value.CompID, compVars ComponentVars) {
	names := make(map[value.StringID]struct{}, len(compVars.VarNames()))
	for _, n := range compVars.VarNames() {
		names[n] = struct{}{}
	}
	for idx := range s.m {
		if idx.Component != comp {
			continue
		}
		if _, ok := names[idx.VarName]; ok {
			delete(s.m, idx)
		}
	}
}

// GetAllCoerceToString produces a flat map "comp:type:name" -> coerced
// string, total over the store (spec §4.B).
func (s *Storage) GetAllCoerceToString() map[string]string {
	out := make(map[string]string, len(s.m))
	for idx, v := range s.m {
		key := string(idx.Component) + ":" + v.Kind().String() + ":" + string(idx.VarName)
		out[key] = v.String()
	}
	return out
}

// Handle is one (component, var_type, var_name) triple, as enumerated by
// GetAllHandles[OfType].
type Handle struct {
	Component value.CompID
	VarType   value.VarType
	VarName   value.StringID
}

// GetAllHandles enumerates every stored (component, var_type, var_name)
// triple in a deterministic order (sorted by component then var name),
// matching the requirement that reads be side-effect-free and total.
func (s *Storage) GetAllHandles() []Handle {
	return s.handles(nil)
}

// GetAllHandlesOfType enumerates only handles whose kind equals vt.
func (s *Storage) GetAllHandlesOfType(vt value.VarType) []Handle {
	return s.handles(&vt)
}

func (s *Storage) handles(filter *value.VarType) []Handle {
	out := make([]Handle, 0, len(s.m))
	for idx, v := range s.m {
		if filter != nil && v.Kind() != *filter {
			continue
		}
		out = append(out, Handle{Component: idx.Component, VarType: v.Kind(), VarName: idx.VarName})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].VarName < out[j].VarName
	})
	return out
}

// Len reports the number of stored variables, mainly for tests.
func (s *Storage) Len() int { return len(s.m) }
