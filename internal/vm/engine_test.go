package vm_test

import (
	"testing"

	"github.com/outcome-engine/outcome/internal/compile"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
	"github.com/outcome-engine/outcome/internal/vm"
)

func proto(name string, args ...string) model.CommandPrototype {
	n := name
	return model.CommandPrototype{Name: &n, Args: args}
}

func TestRunComponentStraightLine(t *testing.T) {
	protos := []model.CommandPrototype{
		proto("state", "init"),
		proto("set", "ctr:int:n", "5"),
		proto("eval", "ctr:int:n", "add", "self:ctr:int:n", "1"),
	}
	locs := make([]model.LocationInfo, len(protos))
	for i := range locs {
		locs[i] = model.Loc("ctr", i+1)
	}
	logic, err := compile.BuildLogic("ctr", protos, locs)
	if err != nil {
		t.Fatal(err)
	}

	m := model.NewSimModel("test")
	m.Components["ctr"] = model.ComponentModel{Name: "ctr", Logic: logic}

	st := storage.New()
	st.Insert("ctr", "n", value.TypeInt, nil)

	state := value.StringID("init")
	out := vm.RunComponent(m, 1, "ctr", st, &state, model.NewRegistry(), nil)
	if out.Err != nil {
		t.Fatalf("RunComponent() error: %v", out.Err)
	}
	v, _ := st.Get(value.StorageIndex{Component: "ctr", VarName: "n"})
	got, _ := v.AsInt()
	if got != 6 {
		t.Fatalf("n = %d, want 6", got)
	}
}

func TestRunComponentLoopBreak(t *testing.T) {
	protos := []model.CommandPrototype{
		proto("state", "init"),
		proto("set", "ctr:int:i", "0"),
		proto("loop"),
		proto("eval", "ctr:int:i", "add", "self:ctr:int:i", "1"),
		proto("eval", "ctr:bool:done", "gt", "self:ctr:int:i", "2"),
		proto("if", "self:ctr:bool:done"),
		proto("break"),
		proto("end"),
		proto("end"),
	}
	locs := make([]model.LocationInfo, len(protos))
	for i := range locs {
		locs[i] = model.Loc("ctr", i+1)
	}
	logic, err := compile.BuildLogic("ctr", protos, locs)
	if err != nil {
		t.Fatal(err)
	}

	m := model.NewSimModel("test")
	m.Components["ctr"] = model.ComponentModel{Name: "ctr", Logic: logic}

	st := storage.New()
	st.Insert("ctr", "i", value.TypeInt, nil)
	st.Insert("ctr", "done", value.TypeBool, nil)

	state := value.StringID("init")
	out := vm.RunComponent(m, 1, "ctr", st, &state, model.NewRegistry(), nil)
	if out.Err != nil {
		t.Fatalf("RunComponent() error: %v", out.Err)
	}
	v, _ := st.Get(value.StorageIndex{Component: "ctr", VarName: "i"})
	got, _ := v.AsInt()
	if got != 3 {
		t.Fatalf("i = %d, want 3", got)
	}
}

func TestRunComponentUnknownComponent(t *testing.T) {
	m := model.NewSimModel("test")
	st := storage.New()
	state := value.StringID("init")
	out := vm.RunComponent(m, 1, "missing", st, &state, model.NewRegistry(), nil)
	if out.Err == nil {
		t.Fatal("expected error for unregistered component")
	}
}
