package value

import (
	"fmt"
	"strconv"
	"strings"
)

// VarType is a small enum mirroring the value-kind tags (spec §4.A). Adding
// a kind is an exhaustive-match change by design (spec §9 "Tagged values
// over dynamic dispatch") — never widen this into an interface hierarchy.
type VarType int

const (
	TypeString VarType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeByte
	TypeStringList
	TypeIntList
	TypeFloatList
	TypeBoolList
	TypeByteList
	TypeStringGrid
	TypeIntGrid
	TypeFloatGrid
	TypeBoolGrid
	TypeByteGrid
)

var typeStrings = map[VarType]string{
	TypeString:     "str",
	TypeInt:        "int",
	TypeFloat:      "float",
	TypeBool:       "bool",
	TypeByte:       "byte",
	TypeStringList: "str_list",
	TypeIntList:    "int_list",
	TypeFloatList:  "float_list",
	TypeBoolList:   "bool_list",
	TypeByteList:   "byte_list",
	TypeStringGrid: "str_grid",
	TypeIntGrid:    "int_grid",
	TypeFloatGrid:  "float_grid",
	TypeBoolGrid:   "bool_grid",
	TypeByteGrid:   "byte_grid",
}

func (t VarType) String() string {
	if s, ok := typeStrings[t]; ok {
		return s
	}
	return "unknown"
}

// ParseVarType parses the var_type atom of an address string.
func ParseVarType(s string) (VarType, bool) {
	for t, str := range typeStrings {
		if str == s {
			return t, true
		}
	}
	return 0, false
}

// Int and Float are the engine's platform-consistent scalar number
// representations (spec §3: "implementation-chosen signed integer /
// binary float").
type Int = int64
type Float = float64

// Var is a closed tagged value over scalars, lists of scalars, and
// (feature-gated) 2-D grids of scalars. Construction is via New/the
// typed New* constructors; the kind tag never changes post-construction
// (spec §3 invariant).
type Var struct {
	kind      VarType
	strVal    string
	intVal    Int
	floatVal  Float
	boolVal   bool
	byteVal   byte
	strList   []string
	intList   []Int
	floatList []Float
	boolList  []bool
	byteList  []byte
	strGrid   [][]string
	intGrid   [][]Int
	floatGrid [][]Float
	boolGrid  [][]bool
	byteGrid  [][]byte
}

// New returns the zero/empty value of the given kind.
func New(kind VarType) Var {
	v := Var{kind: kind}
	switch kind {
	case TypeStringList:
		v.strList = []string{}
	case TypeIntList:
		v.intList = []Int{}
	case TypeFloatList:
		v.floatList = []Float{}
	case TypeBoolList:
		v.boolList = []bool{}
	case TypeByteList:
		v.byteList = []byte{}
	case TypeStringGrid:
		v.strGrid = [][]string{}
	case TypeIntGrid:
		v.intGrid = [][]Int{}
	case TypeFloatGrid:
		v.floatGrid = [][]Float{}
	case TypeBoolGrid:
		v.boolGrid = [][]bool{}
	case TypeByteGrid:
		v.byteGrid = [][]byte{}
	}
	return v
}

func NewString(s string) Var     { return Var{kind: TypeString, strVal: s} }
func NewInt(i Int) Var           { return Var{kind: TypeInt, intVal: i} }
func NewFloat(f Float) Var       { return Var{kind: TypeFloat, floatVal: f} }
func NewBool(b bool) Var         { return Var{kind: TypeBool, boolVal: b} }
func NewByte(b byte) Var         { return Var{kind: TypeByte, byteVal: b} }
func NewStringList(v []string) Var { return Var{kind: TypeStringList, strList: v} }
func NewIntList(v []Int) Var       { return Var{kind: TypeIntList, intList: v} }
func NewFloatList(v []Float) Var   { return Var{kind: TypeFloatList, floatList: v} }
func NewBoolList(v []bool) Var     { return Var{kind: TypeBoolList, boolList: v} }
func NewByteList(v []byte) Var     { return Var{kind: TypeByteList, byteList: v} }
func NewStringGrid(v [][]string) Var { return Var{kind: TypeStringGrid, strGrid: v} }
func NewIntGrid(v [][]Int) Var       { return Var{kind: TypeIntGrid, intGrid: v} }
func NewFloatGrid(v [][]Float) Var   { return Var{kind: TypeFloatGrid, floatGrid: v} }
func NewBoolGrid(v [][]bool) Var     { return Var{kind: TypeBoolGrid, boolGrid: v} }

// Kind returns the value's tag.
func (v Var) Kind() VarType { return v.kind }

func (v Var) IsString() bool { return v.kind == TypeString }
func (v Var) IsInt() bool    { return v.kind == TypeInt }
func (v Var) IsFloat() bool  { return v.kind == TypeFloat }
func (v Var) IsBool() bool   { return v.kind == TypeBool }
func (v Var) IsByte() bool   { return v.kind == TypeByte }

func (v Var) AsString() (string, bool) {
	if v.kind != TypeString {
		return "", false
	}
	return v.strVal, true
}
func (v Var) AsInt() (Int, bool) {
	if v.kind != TypeInt {
		return 0, false
	}
	return v.intVal, true
}
func (v Var) AsFloat() (Float, bool) {
	if v.kind != TypeFloat {
		return 0, false
	}
	return v.floatVal, true
}
func (v Var) AsBool() (bool, bool) {
	if v.kind != TypeBool {
		return false, false
	}
	return v.boolVal, true
}
func (v Var) AsByte() (byte, bool) {
	if v.kind != TypeByte {
		return 0, false
	}
	return v.byteVal, true
}
func (v Var) AsStringList() ([]string, bool) {
	if v.kind != TypeStringList {
		return nil, false
	}
	return v.strList, true
}
func (v Var) AsIntList() ([]Int, bool) {
	if v.kind != TypeIntList {
		return nil, false
	}
	return v.intList, true
}
func (v Var) AsFloatList() ([]Float, bool) {
	if v.kind != TypeFloatList {
		return nil, false
	}
	return v.floatList, true
}
func (v Var) AsBoolList() ([]bool, bool) {
	if v.kind != TypeBoolList {
		return nil, false
	}
	return v.boolList, true
}
func (v Var) AsByteList() ([]byte, bool) {
	if v.kind != TypeByteList {
		return nil, false
	}
	return v.byteList, true
}
func (v Var) AsStringGrid() ([][]string, bool) {
	if v.kind != TypeStringGrid {
		return nil, false
	}
	return v.strGrid, true
}
func (v Var) AsIntGrid() ([][]Int, bool) {
	if v.kind != TypeIntGrid {
		return nil, false
	}
	return v.intGrid, true
}
func (v Var) AsFloatGrid() ([][]Float, bool) {
	if v.kind != TypeFloatGrid {
		return nil, false
	}
	return v.floatGrid, true
}
func (v Var) AsBoolGrid() ([][]bool, bool) {
	if v.kind != TypeBoolGrid {
		return nil, false
	}
	return v.boolGrid, true
}

// SetInt overwrites an Int-kinded Var's value in place. Used by eval/set
// commands that mutate a storage slot without changing its kind.
func (v *Var) SetInt(i Int) { v.intVal = i }
func (v *Var) SetFloat(f Float) { v.floatVal = f }
func (v *Var) SetString(s string) { v.strVal = s }
func (v *Var) SetBool(b bool) { v.boolVal = b }
func (v *Var) SetIntList(l []Int) { v.intList = l }

// String produces the total, deterministic coerced string form of the
// value (spec §3 "coerced string form is deterministic per value", §4.A
// coerce_to_string).
func (v Var) String() string {
	switch v.kind {
	case TypeString:
		return v.strVal
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.boolVal)
	case TypeByte:
		return strconv.FormatUint(uint64(v.byteVal), 10)
	case TypeStringList:
		return "[" + strings.Join(v.strList, ",") + "]"
	case TypeIntList:
		return joinInts(v.intList)
	case TypeFloatList:
		return joinFloats(v.floatList)
	case TypeBoolList:
		return joinBools(v.boolList)
	case TypeByteList:
		return joinBytes(v.byteList)
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}

func joinInts(l []Int) string {
	parts := make([]string, len(l))
	for i, x := range l {
		parts[i] = strconv.FormatInt(x, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
func joinFloats(l []Float) string {
	parts := make([]string, len(l))
	for i, x := range l {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
func joinBools(l []bool) string {
	parts := make([]string, len(l))
	for i, x := range l {
		parts[i] = strconv.FormatBool(x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
func joinBytes(l []byte) string {
	parts := make([]string, len(l))
	for i, x := range l {
		parts[i] = strconv.FormatUint(uint64(x), 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
