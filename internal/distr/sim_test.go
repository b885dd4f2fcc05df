package distr_test

import (
	"testing"

	"github.com/outcome-engine/outcome/internal/compile"
	"github.com/outcome-engine/outcome/internal/distr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/value"
)

func proto(name string, args ...string) model.CommandPrototype {
	n := name
	return model.CommandPrototype{Name: &n, Args: args}
}

func newCounterModel(t *testing.T) *model.SimModel {
	t.Helper()
	protos := []model.CommandPrototype{
		proto("state", "init_ctr"),
		proto("set", "ctr:int:n", "1"),
	}
	locs := make([]model.LocationInfo, len(protos))
	for i := range locs {
		locs[i] = model.Loc("ctr", i+1)
	}
	comp, err := compile.BuildComponent("ctr",
		[]model.VarModel{{Name: "n", Type: value.TypeInt, Default: value.New(value.TypeInt)}},
		protos, locs, nil, nil, nil)
	if err != nil {
		t.Fatalf("BuildComponent() error: %v", err)
	}

	m := model.NewSimModel("test-scenario")
	if err := m.RegisterComponent(comp); err != nil {
		t.Fatalf("RegisterComponent() error: %v", err)
	}
	if err := m.RegisterEntityPrefab(model.EntityPrefabModel{Name: "bot", Components: []value.CompID{"ctr"}}); err != nil {
		t.Fatalf("RegisterEntityPrefab() error: %v", err)
	}
	return m
}

func TestSpawnEntityRunsInitOnFirstTick(t *testing.T) {
	m := newCounterModel(t)
	sim := distr.New(m, nil)

	prefab := value.NewStringID("bot")
	spawnID := value.NewStringID("bot-1")
	id, err := sim.SpawnEntity(&prefab, &spawnID)
	if err != nil {
		t.Fatalf("SpawnEntity() error: %v", err)
	}
	if id == 0 {
		t.Fatal("SpawnEntity() returned zero id")
	}

	if err := sim.RunTick(); err != nil {
		t.Fatalf("RunTick() error: %v", err)
	}

	st, ok := sim.EntityStorageByName(spawnID)
	if !ok {
		t.Fatalf("EntityStorageByName(%q) not found", spawnID)
	}
	v, err := st.GetFromAddr(value.Address{Entity: "self", Component: "ctr", VarType: value.TypeInt, VarName: "n"}, nil)
	if err != nil {
		t.Fatalf("GetFromAddr() error: %v", err)
	}
	got, _ := v.AsInt()
	if got != 1 {
		t.Fatalf("n = %d, want 1 after init tick", got)
	}
}

func TestEntityIDsSortedAndComponentsOf(t *testing.T) {
	m := newCounterModel(t)
	sim := distr.New(m, nil)

	prefab := value.NewStringID("bot")
	id2 := value.NewStringID("bot-2")
	id1 := value.NewStringID("bot-1")
	if _, err := sim.SpawnEntity(&prefab, &id2); err != nil {
		t.Fatal(err)
	}
	if _, err := sim.SpawnEntity(&prefab, &id1); err != nil {
		t.Fatal(err)
	}

	ids := sim.EntityIDs()
	if len(ids) != 2 || ids[0] >= ids[1] {
		t.Fatalf("EntityIDs() = %v, want ascending", ids)
	}
	comps := sim.ComponentsOf(ids[0])
	if len(comps) != 1 || comps[0] != "ctr" {
		t.Fatalf("ComponentsOf() = %v, want [ctr]", comps)
	}
}
