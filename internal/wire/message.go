// Package wire defines the external wire message contract (spec §6
// "wire message type codes"): the Message envelope, its MessageType
// codes, and the Payload/VarJson encodings used to carry Var values
// across the (out-of-scope) network transport. Grounded directly on
// outcome-net/src/msg/mod.rs; this package stops at the data contract —
// actually opening and framing a socket connection is explicitly out of
// scope (spec §1).
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/outcome-engine/outcome/internal/value"
)

// MessageType enumerates the closed set of wire message kinds (spec §6),
// in the order outcome-net declares them.
type MessageType int

const (
	MessageTypePingRequest MessageType = iota
	MessageTypePingResponse
	MessageTypeRegisterClientRequest
	MessageTypeRegisterClientResponse
	MessageTypeStatusRequest
	MessageTypeStatusResponse
	MessageTypeInitializeRequest
	MessageTypeInitializeResponse
	MessageTypeTurnAdvanceRequest
	MessageTypeTurnAdvanceResponse
	MessageTypeDataRequest
	MessageTypeDataResponse
	MessageTypeDataPullRequest
	MessageTypeDataPullResponse
	MessageTypeDataTransferRequest
	MessageTypeDataTransferResponse
	MessageTypeSpawnEntityRequest
	MessageTypeSpawnEntityResponse
	MessageTypeInvokeEventRequest
	MessageTypeInvokeEventResponse
	MessageTypeErrorResponse
)

var messageTypeStrings = map[MessageType]string{
	MessageTypePingRequest:            "PingRequest",
	MessageTypePingResponse:           "PingResponse",
	MessageTypeRegisterClientRequest:  "RegisterClientRequest",
	MessageTypeRegisterClientResponse: "RegisterClientResponse",
	MessageTypeStatusRequest:          "StatusRequest",
	MessageTypeStatusResponse:         "StatusResponse",
	MessageTypeInitializeRequest:      "InitializeRequest",
	MessageTypeInitializeResponse:     "InitializeResponse",
	MessageTypeTurnAdvanceRequest:     "TurnAdvanceRequest",
	MessageTypeTurnAdvanceResponse:    "TurnAdvanceResponse",
	MessageTypeDataRequest:            "DataRequest",
	MessageTypeDataResponse:           "DataResponse",
	MessageTypeDataPullRequest:        "DataPullRequest",
	MessageTypeDataPullResponse:       "DataPullResponse",
	MessageTypeDataTransferRequest:    "DataTransferRequest",
	MessageTypeDataTransferResponse:   "DataTransferResponse",
	MessageTypeSpawnEntityRequest:     "SpawnEntityRequest",
	MessageTypeSpawnEntityResponse:    "SpawnEntityResponse",
	MessageTypeInvokeEventRequest:     "InvokeEventRequest",
	MessageTypeInvokeEventResponse:    "InvokeEventResponse",
	MessageTypeErrorResponse:          "ErrorResponse",
}

func (t MessageType) String() string {
	if s, ok := messageTypeStrings[t]; ok {
		return s
	}
	return "Unknown"
}

// Payload is any concrete message body; Message.Pack/Unpack dispatch on
// MessageType to know which concrete type to decode into.
type Payload interface {
	Type() MessageType
}

// Message is the wire envelope: a correlation id, a type code, and the
// type-specific payload (spec §6 "Message{TaskID, Type, Payload}").
type Message struct {
	TaskID  string
	Type    MessageType
	Payload Payload
}

// Pack encodes a Message using CBOR, the default on-wire encoding (spec
// §6). A self-describing alternative (JSON, via PackJSON) trades size for
// human readability; it is always compiled in, with no build tag or
// feature switch, and has no matching decoder in this package.
func (m Message) Pack() ([]byte, error) {
	return cbor.Marshal(envelope{TaskID: m.TaskID, Type: m.Type, Payload: m.Payload})
}

// PackJSON encodes a Message as self-describing JSON.
func (m Message) PackJSON() ([]byte, error) {
	return json.Marshal(envelope{TaskID: m.TaskID, Type: m.Type, Payload: m.Payload})
}

type envelope struct {
	TaskID  string      `cbor:"task_id" json:"task_id"`
	Type    MessageType `cbor:"type" json:"type"`
	Payload Payload     `cbor:"payload" json:"payload"`
}

// Unpack decodes raw CBOR bytes into a Message, using typ to select which
// concrete Payload type to decode the payload field into.
func Unpack(b []byte, typ MessageType) (Message, error) {
	var raw struct {
		TaskID  string          `cbor:"task_id"`
		Type    MessageType     `cbor:"type"`
		Payload cbor.RawMessage `cbor:"payload"`
	}
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return Message{}, fmt.Errorf("unpack: %w", err)
	}
	payload, err := decodePayload(typ, raw.Payload)
	if err != nil {
		return Message{}, err
	}
	return Message{TaskID: raw.TaskID, Type: raw.Type, Payload: payload}, nil
}

func decodePayload(typ MessageType, raw []byte) (Payload, error) {
	var p Payload
	switch typ {
	case MessageTypePingRequest:
		p = &PingRequest{}
	case MessageTypePingResponse:
		p = &PingResponse{}
	case MessageTypeStatusResponse:
		p = &StatusResponse{}
	case MessageTypeSpawnEntityRequest:
		p = &SpawnEntityRequest{}
	case MessageTypeSpawnEntityResponse:
		p = &SpawnEntityResponse{}
	case MessageTypeInvokeEventRequest:
		p = &InvokeEventRequest{}
	case MessageTypeDataRequest:
		p = &DataRequest{}
	case MessageTypeDataResponse:
		p = &DataResponse{}
	case MessageTypeErrorResponse:
		p = &ErrorResponse{}
	default:
		return nil, fmt.Errorf("unpack: unsupported message type %s", typ)
	}
	if err := cbor.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("unpack payload (%s): %w", typ, err)
	}
	return p, nil
}

type PingRequest struct{}

func (PingRequest) Type() MessageType { return MessageTypePingRequest }

type PingResponse struct{}

func (PingResponse) Type() MessageType { return MessageTypePingResponse }

type StatusResponse struct {
	ScenarioName string `cbor:"scenario_name" json:"scenario_name"`
	Tick         uint64 `cbor:"tick" json:"tick"`
	EntityCount  int    `cbor:"entity_count" json:"entity_count"`
}

func (StatusResponse) Type() MessageType { return MessageTypeStatusResponse }

// SpawnEntityRequest asks the central authority to spawn an entity from a
// named prefab (spec §6, §4.H).
type SpawnEntityRequest struct {
	Prefab  string `cbor:"prefab" json:"prefab"`
	SpawnID string `cbor:"spawn_id,omitempty" json:"spawn_id,omitempty"`
}

func (SpawnEntityRequest) Type() MessageType { return MessageTypeSpawnEntityRequest }

type SpawnEntityResponse struct {
	EntityID uint64 `cbor:"entity_id" json:"entity_id"`
}

func (SpawnEntityResponse) Type() MessageType { return MessageTypeSpawnEntityResponse }

// InvokeEventRequest asks the central authority to enqueue an event (spec
// §6, §4.F).
type InvokeEventRequest struct {
	Event string `cbor:"event" json:"event"`
}

func (InvokeEventRequest) Type() MessageType { return MessageTypeInvokeEventRequest }

// DataRequest asks for a single variable's value by address (spec §6,
// §4.B).
type DataRequest struct {
	EntityName string `cbor:"entity_name" json:"entity_name"`
	Address    string `cbor:"address" json:"address"`
}

func (DataRequest) Type() MessageType { return MessageTypeDataRequest }

// DataResponse carries the resolved variable's VarJson form.
type DataResponse struct {
	Value VarJson `cbor:"value" json:"value"`
}

func (DataResponse) Type() MessageType { return MessageTypeDataResponse }

type ErrorResponse struct {
	Kind    string `cbor:"kind" json:"kind"`
	Message string `cbor:"message" json:"message"`
}

func (ErrorResponse) Type() MessageType { return MessageTypeErrorResponse }

// VarJson is Var's untagged wire projection (spec §6 "VarJson untagged
// payload"): exactly one of these fields is populated, selected by which
// one round-trips through From/Into Var without ambiguity, mirroring
// outcome-net's untagged serde enum.
type VarJson struct {
	Str       *string   `cbor:"str,omitempty" json:"str,omitempty"`
	Int       *int64    `cbor:"int,omitempty" json:"int,omitempty"`
	Float     *float64  `cbor:"float,omitempty" json:"float,omitempty"`
	Bool      *bool     `cbor:"bool,omitempty" json:"bool,omitempty"`
	StrList   []string  `cbor:"str_list,omitempty" json:"str_list,omitempty"`
	IntList   []int64   `cbor:"int_list,omitempty" json:"int_list,omitempty"`
	FloatList []float64 `cbor:"float_list,omitempty" json:"float_list,omitempty"`
	BoolList  []bool    `cbor:"bool_list,omitempty" json:"bool_list,omitempty"`
}

// FromVar converts a Var into its VarJson wire form. Byte, byte-list and
// grid kinds are coerced to a single string (their Var.String() form),
// since the wire contract (spec §6) only names scalar/list shapes
// explicitly.
func FromVar(v value.Var) VarJson {
	switch v.Kind() {
	case value.TypeString:
		s, _ := v.AsString()
		return VarJson{Str: &s}
	case value.TypeInt:
		i, _ := v.AsInt()
		return VarJson{Int: &i}
	case value.TypeFloat:
		f, _ := v.AsFloat()
		return VarJson{Float: &f}
	case value.TypeBool:
		b, _ := v.AsBool()
		return VarJson{Bool: &b}
	case value.TypeStringList:
		l, _ := v.AsStringList()
		return VarJson{StrList: l}
	case value.TypeIntList:
		l, _ := v.AsIntList()
		return VarJson{IntList: l}
	case value.TypeFloatList:
		l, _ := v.AsFloatList()
		return VarJson{FloatList: l}
	case value.TypeBoolList:
		l, _ := v.AsBoolList()
		return VarJson{BoolList: l}
	default:
		s := v.String()
		return VarJson{Str: &s}
	}
}

// ToVar converts a VarJson back into a Var, picking whichever field is
// populated (spec §6 round-trip law: FromVar then ToVar is identity for
// every representable kind).
func (j VarJson) ToVar() (value.Var, error) {
	switch {
	case j.Str != nil:
		return value.NewString(*j.Str), nil
	case j.Int != nil:
		return value.NewInt(*j.Int), nil
	case j.Float != nil:
		return value.NewFloat(*j.Float), nil
	case j.Bool != nil:
		return value.NewBool(*j.Bool), nil
	case j.StrList != nil:
		return value.NewStringList(j.StrList), nil
	case j.IntList != nil:
		return value.NewIntList(j.IntList), nil
	case j.FloatList != nil:
		return value.NewFloatList(j.FloatList), nil
	case j.BoolList != nil:
		return value.NewBoolList(j.BoolList), nil
	default:
		return value.Var{}, fmt.Errorf("VarJson: no field populated")
	}
}
