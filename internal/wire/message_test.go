package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/outcome-engine/outcome/internal/value"
)

func TestVarJsonRoundTrip(t *testing.T) {
	cases := []value.Var{
		value.NewString("hello"),
		value.NewInt(42),
		value.NewFloat(3.5),
		value.NewBool(true),
		value.NewIntList([]value.Int{1, 2, 3}),
	}
	for _, v := range cases {
		j := FromVar(v)
		got, err := j.ToVar()
		if err != nil {
			t.Fatalf("ToVar() error: %v", err)
		}
		if got.Kind() != v.Kind() || got.String() != v.String() {
			t.Fatalf("round trip mismatch: got %+v (%s), want %+v (%s)", got, got.String(), v, v.String())
		}
	}
}

func TestMessagePackUnpack(t *testing.T) {
	taskID := uuid.NewString()
	want := SpawnEntityRequest{Prefab: "unit"}
	msg := Message{TaskID: taskID, Type: MessageTypeSpawnEntityRequest, Payload: &want}
	b, err := msg.Pack()
	if err != nil {
		t.Fatalf("Pack() error: %v", err)
	}
	got, err := Unpack(b, msg.Type)
	if err != nil {
		t.Fatalf("Unpack() error: %v", err)
	}
	if got.TaskID != taskID {
		t.Fatalf("TaskID = %q, want %q", got.TaskID, taskID)
	}
	payload, ok := got.Payload.(*SpawnEntityRequest)
	if !ok {
		t.Fatalf("Payload type = %T, want *SpawnEntityRequest", got.Payload)
	}
	if diff := cmp.Diff(want, *payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageTypeString(t *testing.T) {
	if MessageTypeErrorResponse.String() != "ErrorResponse" {
		t.Fatalf("String() = %q, want %q", MessageTypeErrorResponse.String(), "ErrorResponse")
	}
}
