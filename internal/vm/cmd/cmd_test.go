package cmd_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/storage"
	"github.com/outcome-engine/outcome/internal/value"
	"github.com/outcome-engine/outcome/internal/vm/cmd"
)

func proto(name string, args ...string) model.CommandPrototype {
	n := name
	return model.CommandPrototype{Name: &n, Args: args}
}

func TestFromPrototypeAcceptsSpecHeadsAndAliases(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"for", []string{"ctr:int:i", "self:ctr:int_list:items"}},
		{"range", []string{"ctr:int_list:items", "0", "5"}},
		{"sim", []string{"despawn", "bot-1"}},
		{"procedure", []string{"p1"}},
		{"while", nil},
		{"event", []string{"tick"}},
		{"comp", []string{"ctr"}},
		{"var", []string{"ctr", "n", "int"}},
		{"triggered_by", []string{"ctr", "tick"}},
		{"prefab", []string{"bot", "ctr"}},
	}
	for _, c := range cases {
		if _, err := cmd.FromPrototype(proto(c.name, c.args...), model.Loc("ctr", 1), nil, 0); err != nil {
			t.Errorf("FromPrototype(%q) error: %v", c.name, err)
		}
	}
}

func TestFromPrototypeRejectsOldForInHead(t *testing.T) {
	if _, err := cmd.FromPrototype(proto("for_in", "self:ctr:int:i", "self:ctr:int_list:items"), model.Loc("ctr", 1), nil, 0); err == nil {
		t.Fatal("expected for_in to be rejected as an unknown command")
	}
}

func TestRangePopulatesIntList(t *testing.T) {
	c, err := cmd.FromPrototype(proto("range", "ctr:int_list:items", "0", "5"), model.Loc("ctr", 1), nil, 0)
	if err != nil {
		t.Fatalf("FromPrototype() error: %v", err)
	}

	st := storage.New()
	st.Insert("ctr", "items", value.TypeIntList, nil)
	ctx := &model.ExecCtx{Storage: st}

	results := c.ExecuteLocal(ctx)
	if len(results) != 1 || results[0].Kind != model.ResultContinue {
		t.Fatalf("ExecuteLocal() = %+v, want a single Continue", results)
	}

	v, err := st.GetFromAddr(value.Address{Entity: "self", Component: "ctr", VarType: value.TypeIntList, VarName: "items"}, nil)
	if err != nil {
		t.Fatalf("GetFromAddr() error: %v", err)
	}
	got, ok := v.AsIntList()
	if !ok {
		t.Fatalf("AsIntList() = %v, %v, want ok", got, ok)
	}
	want := []value.Int{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestRangeEmptyInterval(t *testing.T) {
	c, err := cmd.FromPrototype(proto("range", "ctr:int_list:items", "5", "5"), model.Loc("ctr", 1), nil, 0)
	if err != nil {
		t.Fatalf("FromPrototype() error: %v", err)
	}
	st := storage.New()
	st.Insert("ctr", "items", value.TypeIntList, nil)
	ctx := &model.ExecCtx{Storage: st}
	if results := c.ExecuteLocal(ctx); len(results) != 1 || results[0].Kind != model.ResultContinue {
		t.Fatalf("ExecuteLocal() = %+v, want a single Continue", results)
	}
	v, _ := st.GetFromAddr(value.Address{Entity: "self", Component: "ctr", VarType: value.TypeIntList, VarName: "items"}, nil)
	got, _ := v.AsIntList()
	if len(got) != 0 {
		t.Fatalf("items = %v, want empty", got)
	}
}

// fakeAuthority implements model.CentralAuthority, recording DespawnEntity
// calls for TestSimDespawnDispatchesToCentralAuthority.
type fakeAuthority struct {
	despawned []value.StringID
}

func (f *fakeAuthority) Model() *model.SimModel         { return nil }
func (f *fakeAuthority) EnqueueEvent(id value.StringID) {}

func (f *fakeAuthority) SpawnEntity(p, s *value.StringID) (value.EntityID, error) {
	return 0, nil
}

func (f *fakeAuthority) DespawnEntity(name value.StringID) error {
	f.despawned = append(f.despawned, name)
	return nil
}

func (f *fakeAuthority) RegisterEvent(id value.StringID)                     {}
func (f *fakeAuthority) RegisterEntityPrefab(p model.EntityPrefabModel) error { return nil }
func (f *fakeAuthority) RegisterComponent(c model.ComponentModel) error       { return nil }
func (f *fakeAuthority) RegisterVar(comp value.CompID, v model.VarModel) error {
	return nil
}

func (f *fakeAuthority) RegisterTrigger(comp value.CompID, event value.StringID) error {
	return nil
}

func (f *fakeAuthority) ExtendComponent(comp value.CompID, extra model.LogicModel) error {
	return nil
}

func TestSimDespawnDispatchesToCentralAuthority(t *testing.T) {
	c, err := cmd.FromPrototype(proto("sim", "despawn", "bot-1"), model.Loc("ctr", 1), nil, 0)
	if err != nil {
		t.Fatalf("FromPrototype() error: %v", err)
	}
	ctx := &model.ExecCtx{}
	results := c.ExecuteLocal(ctx)
	if len(results) != 1 || results[0].Kind != model.ResultExecCentralExt {
		t.Fatalf("ExecuteLocal() = %+v, want a single ExecCentralExt", results)
	}

	fa := &fakeAuthority{}
	if err := results[0].Central.ExecuteCentral(fa); err != nil {
		t.Fatalf("ExecuteCentral() error: %v", err)
	}
	if len(fa.despawned) != 1 || fa.despawned[0] != "bot-1" {
		t.Fatalf("despawned = %v, want [bot-1]", fa.despawned)
	}
}

func TestSimRejectsUnknownSubCommand(t *testing.T) {
	if _, err := cmd.FromPrototype(proto("sim", "frobnicate"), model.Loc("ctr", 1), nil, 0); err == nil {
		t.Fatal("expected error for unknown sim sub-command")
	}
}

func TestPrintLogsWithAddressSubstitution(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	c, err := cmd.FromPrototype(proto("print", "n is", "self:ctr:int:n"), model.Loc("ctr", 1), nil, 0)
	if err != nil {
		t.Fatalf("FromPrototype() error: %v", err)
	}

	st := storage.New()
	st.Insert("ctr", "n", value.TypeInt, nil)
	if err := st.SetFromVar(value.Address{Entity: "self", Component: "ctr", VarType: value.TypeInt, VarName: "n"}, value.NewInt(42)); err != nil {
		t.Fatalf("SetFromVar() error: %v", err)
	}

	ctx := &model.ExecCtx{Storage: st, CompName: "ctr", Log: log}
	if results := c.ExecuteLocal(ctx); len(results) != 1 || results[0].Kind != model.ResultContinue {
		t.Fatalf("ExecuteLocal() = %+v, want a single Continue", results)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if want := "n is 42"; entries[0].Message != want {
		t.Fatalf("logged message = %q, want %q", entries[0].Message, want)
	}
}

func TestPrintNilLoggerIsSilentNoOp(t *testing.T) {
	c, err := cmd.FromPrototype(proto("print", "hello"), model.Loc("ctr", 1), nil, 0)
	if err != nil {
		t.Fatalf("FromPrototype() error: %v", err)
	}
	ctx := &model.ExecCtx{Storage: storage.New()}
	if results := c.ExecuteLocal(ctx); len(results) != 1 || results[0].Kind != model.ResultContinue {
		t.Fatalf("ExecuteLocal() = %+v, want a single Continue", results)
	}
}
