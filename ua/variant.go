/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ua

import "fmt"

// BuiltinType is the datatype id carried in bits 0-5 of a Variant's encoding
// byte. Values 1-25 are the built-in scalar types;
// 22 (ExtensionObject) also carries structures.
type BuiltinType uint8

// Built-in type ids, Table 1.
const (
	TypeBoolean BuiltinType = iota + 1
	TypeSByte
	TypeByte
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat
	TypeDouble
	TypeString
	TypeDateTime
	TypeGuid
	TypeByteString
	TypeXMLElement
	TypeNodeID
	TypeExpandedNodeID
	TypeStatusCode
	TypeQualifiedName
	TypeLocalizedText
	TypeExtensionObject
	TypeDataValue
	TypeVariant
	TypeDiagnosticInfo
)

func (t BuiltinType) String() string {
	names := [...]string{"", "Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32",
		"Int64", "UInt64", "Float", "Double", "String", "DateTime", "Guid", "ByteString",
		"XmlElement", "NodeId", "ExpandedNodeId", "StatusCode", "QualifiedName",
		"LocalizedText", "ExtensionObject", "DataValue", "Variant", "DiagnosticInfo"}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("BuiltinType(%d)", uint8(t))
}

// StorageKind discriminates how a Variant's payload is shaped: no value, a single scalar, or an array (optionally multi-dimensional).
type StorageKind uint8

// Storage kinds.
const (
	StorageEmpty StorageKind = iota
	StorageScalar
	StorageArray
)

// Ownership distinguishes payloads the Variant owns (and must release on
// Clear) from borrowed ones it must not.
type Ownership uint8

// Ownership tags.
const (
	Owned Ownership = iota
	Borrowed
)

// Variant is the discriminated value carrier: a datatype
// reference, a storage kind, optional array dimensions, a payload and an
// ownership flag. Scalar() and arrays are stored in Value; for StorageArray
// Value is always a Go slice whose element type matches Type.
type Variant struct {
	Type      BuiltinType
	Kind      StorageKind
	Value     interface{}
	Dimensions []int32 // only meaningful when Kind == StorageArray and len(Dimensions) > 1
	Ownership Ownership
}

// NewScalarVariant builds a scalar Variant over v, owned by the Variant.
func NewScalarVariant(t BuiltinType, v interface{}) Variant {
	return Variant{Type: t, Kind: StorageScalar, Value: v, Ownership: Owned}
}

// NewArrayVariant builds a flat array Variant. length is validated against
// the slice length by the caller (the binary codec enforces it on decode).
func NewArrayVariant(t BuiltinType, v interface{}) Variant {
	return Variant{Type: t, Kind: StorageArray, Value: v, Ownership: Owned}
}

// NewMatrixVariant builds a multi-dimensional array Variant. The caller
// guarantees that the product of dims equals the flat array's length; the binary codec checks this on decode.
func NewMatrixVariant(t BuiltinType, v interface{}, dims []int32) Variant {
	return Variant{Type: t, Kind: StorageArray, Value: v, Dimensions: append([]int32(nil), dims...), Ownership: Owned}
}

// IsEmpty reports whether the Variant carries no value.
func (v Variant) IsEmpty() bool { return v.Kind == StorageEmpty }

// HasDimensions reports whether the array carries an explicit
// multi-dimensional shape rather than being a flat array.
func (v Variant) HasDimensions() bool { return v.Kind == StorageArray && len(v.Dimensions) > 0 }

// Clear releases the Variant's payload if it is Owned. Borrowed payloads
// (DATA_NODELETE) are left untouched: the caller who lent the payload is
// responsible for it. In Go there is no manual free, so Clear's only
// observable effect is zeroing Value/Dimensions so a stale reference can't
// be read back out of a cleared Variant - still worth doing, since a cleared
// Variant is a documented "no longer valid" state callers may rely on.
func (v *Variant) Clear() {
	if v.Ownership == Borrowed {
		return
	}
	v.Value = nil
	v.Dimensions = nil
	v.Kind = StorageEmpty
	v.Type = 0
}

// Copy returns a deep copy of v that owns its own payload, satisfying the
// clear(copy(x)) independence law: clearing the copy
// must never affect x.
func (v Variant) Copy() Variant {
	out := v
	out.Ownership = Owned
	out.Dimensions = append([]int32(nil), v.Dimensions...)
	out.Value = deepCopyValue(v.Value)
	return out
}

func deepCopyValue(val interface{}) interface{} {
	switch vv := val.(type) {
	case []byte:
		return append([]byte(nil), vv...)
	case ByteString:
		return append(ByteString(nil), vv...)
	case []string:
		return append([]string(nil), vv...)
	case []bool:
		return append([]bool(nil), vv...)
	case []int32:
		return append([]int32(nil), vv...)
	case []uint32:
		return append([]uint32(nil), vv...)
	case []int64:
		return append([]int64(nil), vv...)
	case []uint64:
		return append([]uint64(nil), vv...)
	case []float32:
		return append([]float32(nil), vv...)
	case []float64:
		return append([]float64(nil), vv...)
	case []NodeId:
		return append([]NodeId(nil), vv...)
	case []ExtensionObject:
		cp := make([]ExtensionObject, len(vv))
		for i := range vv {
			cp[i] = vv[i].Copy()
		}
		return cp
	default:
		return val
	}
}
