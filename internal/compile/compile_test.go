package compile

import (
	"testing"

	"github.com/outcome-engine/outcome/internal/model"
)

func proto(name string, args ...string) model.CommandPrototype {
	n := name
	return model.CommandPrototype{Name: &n, Args: args}
}

func TestBuildLogicStatesAndIf(t *testing.T) {
	protos := []model.CommandPrototype{
		proto("state", "init"),
		proto("if", "self:ctr:bool:flag"),
		proto("print", "yes"),
		proto("else"),
		proto("print", "no"),
		proto("end"),
	}
	locs := make([]model.LocationInfo, len(protos))
	for i := range locs {
		locs[i] = model.Loc("ctr", i+1)
	}

	logic, err := BuildLogic("ctr", protos, locs)
	if err != nil {
		t.Fatalf("BuildLogic() error: %v", err)
	}
	if _, ok := logic.States["init"]; !ok {
		t.Fatalf("expected state 'init' to be recorded, got %+v", logic.States)
	}
	if logic.StartState != "init" {
		t.Fatalf("StartState = %q, want init", logic.StartState)
	}
}

func TestBuildLogicUnterminatedBlock(t *testing.T) {
	protos := []model.CommandPrototype{
		proto("if", "self:ctr:bool:flag"),
		proto("print", "yes"),
	}
	locs := []model.LocationInfo{model.Loc("ctr", 1), model.Loc("ctr", 2)}
	if _, err := BuildLogic("ctr", protos, locs); err == nil {
		t.Fatal("expected error for unterminated if block")
	}
}

func TestBuildLogicElseWithoutIf(t *testing.T) {
	protos := []model.CommandPrototype{proto("else")}
	locs := []model.LocationInfo{model.Loc("ctr", 1)}
	if _, err := BuildLogic("ctr", protos, locs); err == nil {
		t.Fatal("expected error for else without matching if")
	}
}

func TestBuildLogicExtendCapturesFragment(t *testing.T) {
	protos := []model.CommandPrototype{
		proto("extend", "ctr"),
		proto("state", "extra"),
		proto("print", "hi"),
		proto("end"),
	}
	locs := make([]model.LocationInfo, len(protos))
	for i := range locs {
		locs[i] = model.Loc("ctr", i+1)
	}
	logic, err := BuildLogic("ctr", protos, locs)
	if err != nil {
		t.Fatalf("BuildLogic() error: %v", err)
	}
	if len(logic.Commands) != 4 {
		t.Fatalf("expected 4 commands including extend/end markers, got %d", len(logic.Commands))
	}
}
