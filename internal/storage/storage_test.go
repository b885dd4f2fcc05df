package storage

import (
	"testing"

	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/value"
)

type fakeCompVars []value.StringID

func (f fakeCompVars) VarNames() []value.StringID { return f }

func TestInsertAndGet(t *testing.T) {
	s := New()
	s.Insert("ctr", "n", value.TypeInt, nil)
	v, ok := s.Get(value.StorageIndex{Component: "ctr", VarName: "n"})
	if !ok {
		t.Fatal("expected inserted var to be present")
	}
	if got, ok := v.AsInt(); !ok || got != 0 {
		t.Fatalf("default int value = %v, %v; want 0, true", got, ok)
	}
}

func TestGetFromAddrMiss(t *testing.T) {
	s := New()
	addr, _ := value.ParseAddress("self:ctr:int:missing")
	_, err := s.GetFromAddr(addr, nil)
	if err == nil {
		t.Fatal("expected FailedGettingVariable error")
	}
	merr, ok := err.(*machineerr.Error)
	if !ok || merr.Kind != machineerr.KindFailedGettingVariable {
		t.Fatalf("got %v, want FailedGettingVariable", err)
	}
}

func TestSetFromVarRequiresExisting(t *testing.T) {
	s := New()
	addr, _ := value.ParseAddress("self:ctr:int:n")
	if err := s.SetFromVar(addr, value.NewInt(5)); err == nil {
		t.Fatal("expected error setting non-existent target")
	}
	s.Insert("ctr", "n", value.TypeInt, nil)
	if err := s.SetFromVar(addr, value.NewInt(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := s.Get(addr.StorageIndex())
	if got, _ := v.AsInt(); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestMutateCounter(t *testing.T) {
	s := New()
	idx := value.StorageIndex{Component: "ctr", VarName: "n"}
	s.Insert("ctr", "n", value.TypeInt, nil)
	for i := 0; i < 3; i++ {
		s.Mutate(idx, func(v value.Var) value.Var {
			cur, _ := v.AsInt()
			return value.NewInt(cur + 1)
		})
	}
	v, _ := s.Get(idx)
	if got, _ := v.AsInt(); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestRemoveComponentVars(t *testing.T) {
	s := New()
	s.Insert("ctr", "n", value.TypeInt, nil)
	s.Insert("ctr", "m", value.TypeInt, nil)
	s.Insert("other", "n", value.TypeInt, nil)
	s.RemoveComponentVars("ctr", fakeCompVars{"n", "m"})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if _, ok := s.Get(value.StorageIndex{Component: "other", VarName: "n"}); !ok {
		t.Fatal("expected unrelated component's var to survive")
	}
}

func TestGetAllCoerceToString(t *testing.T) {
	s := New()
	s.InsertVar("ctr", "n", value.NewInt(3))
	out := s.GetAllCoerceToString()
	if out["ctr:int:n"] != "3" {
		t.Fatalf("out[ctr:int:n] = %q, want %q", out["ctr:int:n"], "3")
	}
}

func TestGetAllHandlesDeterministicOrder(t *testing.T) {
	s := New()
	s.InsertVar("b", "z", value.NewInt(1))
	s.InsertVar("a", "y", value.NewInt(1))
	s.InsertVar("a", "x", value.NewInt(1))
	h := s.GetAllHandles()
	if len(h) != 3 {
		t.Fatalf("len = %d, want 3", len(h))
	}
	if h[0].Component != "a" || h[0].VarName != "x" {
		t.Fatalf("unexpected first handle: %+v", h[0])
	}
}
