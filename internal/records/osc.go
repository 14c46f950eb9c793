package records

import "encoding/json"

// ArgType names the variant held by an OscArgument.
type ArgType string

const (
	ArgInt    ArgType = "Int"
	ArgFloat  ArgType = "Float"
	ArgString ArgType = "String"
	ArgBlob   ArgType = "Blob"
	ArgBool   ArgType = "Bool"
	ArgNil    ArgType = "Nil"
	ArgInf    ArgType = "Inf"
)

// OscArgument is a tagged variant. Only the field matching Type is meaningful.
type OscArgument struct {
	Type   ArgType
	Int    int32
	Float  float32
	String string
	Blob   []byte
	Bool   bool
}

func IntArg(v int32) OscArgument { return OscArgument{Type: ArgInt, Int: v} }
func FloatArg(v float32) OscArgument { return OscArgument{Type: ArgFloat, Float: v} }
func StringArg(v string) OscArgument { return OscArgument{Type: ArgString, String: v} }
func BlobArg(v []byte) OscArgument { return OscArgument{Type: ArgBlob, Blob: v} }
func BoolArg(v bool) OscArgument { return OscArgument{Type: ArgBool, Bool: v} }
func NilArg() OscArgument { return OscArgument{Type: ArgNil} }
func InfArg() OscArgument { return OscArgument{Type: ArgInf} }

// Value returns the payload of the active variant, nil for Nil and Inf.
func (a OscArgument) Value() interface{} {
	switch a.Type {
	case ArgInt:
		return a.Int
	case ArgFloat:
		return a.Float
	case ArgString:
		return a.String
	case ArgBlob:
		return bytesToInts(a.Blob)
	case ArgBool:
		return a.Bool
	default:
		return nil
	}
}

// MarshalJSON encodes the argument as {"type": ..., "value": ...}.
func (a OscArgument) MarshalJSON() ([]byte, error) {
	out := struct {
		Type  ArgType     `json:"type"`
		Value interface{} `json:"value,omitempty"`
	}{Type: a.Type, Value: a.Value()}
	return json.Marshal(out)
}

func bytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
